package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	"github.com/oneroskilfu/ireva-app-sub001/internal/notification"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test events through the notification pipeline`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a test event",
	Long:      `Publish a payment.confirmed or refund.issued test event through the event bus to the configured notification sink`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypePaymentConfirmed, events.EventTypeRefundIssued},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return publishTestEvent(ctx, args[0])
	},
}

var (
	eventUserID string
	eventAmount string
)

func publishTestEvent(ctx context.Context, eventType string) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(eventAmount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", eventAmount, err)
	}

	publisher, err := newNotificationPublisher(cfg, lg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	bus := events.NewEventBus(lg)
	notifier := notification.NewNotifier(publisher, cfg.Kafka.TopicPrefix, lg)
	notifier.Register(bus)

	paymentID := "test-" + uuid.NewString()
	var event events.Event
	switch eventType {
	case events.EventTypePaymentConfirmed:
		event = events.NewPaymentConfirmedEvent(paymentID, eventUserID, amount, "USDT", "paid", uuid.NewString())
	case events.EventTypeRefundIssued:
		event = events.NewRefundIssuedEvent(paymentID, eventUserID, "cli", amount, "USDT", "cli test event")
	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	// synchronous so delivery errors reach the exit code
	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventUserID, "user-id", "investor-demo-1", "user id carried by the event")
	publishEventCmd.Flags().StringVar(&eventAmount, "amount", "1", "amount carried by the event")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
