package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep payment state current.`,
}

var expiryWorkerCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Expire stale pending payments",
	Long:  `Periodically move pending payments past their expiry to expired through the payment state machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startExpiryWorker(cmd.Context())
	},
}

var (
	expiryInterval  time.Duration
	expiryBatchSize int
	expiryOnce      bool
)

func startExpiryWorker(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := buildServices(cfg, db, nil, events.NewEventBus(lg), lg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := func() {
		n, err := svc.Payment.ExpireStale(ctx, expiryBatchSize)
		if err != nil {
			lg.Error("expiry sweep failed", "error", err)
			return
		}
		if n > 0 {
			lg.Info("expired stale payments", "count", n)
		}
	}

	sweep()
	if expiryOnce {
		return nil
	}

	lg.Info("expiry worker is running. Press Ctrl+C to stop.", "interval", expiryInterval, "batch_size", expiryBatchSize)

	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			lg.Info("expiry worker stopped")
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}

func init() {
	expiryWorkerCmd.Flags().DurationVar(&expiryInterval, "interval", time.Minute, "time between sweeps")
	expiryWorkerCmd.Flags().IntVar(&expiryBatchSize, "batch-size", 100, "maximum payments expired per sweep")
	expiryWorkerCmd.Flags().BoolVar(&expiryOnce, "once", false, "run a single sweep and exit")

	workerCmd.AddCommand(expiryWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
