package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	gatewaytypes "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
)

type ServiceConfig struct {
	SupportedCurrencies []string
	ReceiveCurrency     string
	CallbackURL         string
	RequestTimeout      time.Duration
	IntentTTL           time.Duration
}

// Service is the Payment Intent Manager and the only writer of payment status
// driven by the provider.
type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	ledger    LedgerCrediter
	provider  Provider
	publisher events.Publisher
	cfg       ServiceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, ledger LedgerCrediter, provider Provider, publisher events.Publisher, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = time.Hour
	}
	cfg.ReceiveCurrency = strings.ToUpper(strings.TrimSpace(cfg.ReceiveCurrency))
	return &Service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		provider:  provider,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateIntent asks the provider for a payment address and persists a pending
// transaction. Nothing is stored when the provider call fails.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	v := validation.NewValidator()
	v.Field("userId", input.UserID).Required()
	v.Field("amount", input.Amount).Required().PositiveDecimal(internal.ErrCodeInvalidAmount)
	v.Field("currency", input.Currency).Required().OneOf(s.cfg.SupportedCurrencies, internal.ErrCodeUnsupportedCurrency)
	if input.PropertyID != nil {
		v.Field("propertyId", *input.PropertyID).MaxLength(64)
	}
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	orderID := ulid.Make().String()
	req := &gatewaytypes.OrderRequest{
		OrderID:         orderID,
		PriceAmount:     input.Amount,
		PriceCurrency:   input.Currency,
		ReceiveCurrency: s.cfg.ReceiveCurrency,
		Title:           "Wallet deposit",
		Description:     fmt.Sprintf("Deposit of %s %s", input.Amount.String(), input.Currency),
		CallbackURL:     s.cfg.CallbackURL,
	}

	providerCtx, cancel := internal.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	order, err := s.provider.CreateOrder(providerCtx, req)
	if err != nil {
		s.logger.Error("payment provider order creation failed",
			"provider", s.provider.Name(),
			"order_id", orderID,
			"user_id", input.UserID,
			"error", err)
		if isTimeout(err) {
			return nil, internal.NewProviderTimeoutError("payment provider timed out", err)
		}
		return nil, internal.NewProviderError("payment provider unavailable", err)
	}

	now := s.now()
	p := &payment.PaymentTransaction{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		PropertyID:    input.PropertyID,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Status:        payment.StatusPending,
		OrderID:       orderID,
		PaymentURL:    order.PaymentURL,
		WalletAddress: order.PaymentAddress,
		ExpiresAt:     now.Add(s.cfg.IntentTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if id := order.ID.String(); id != "" {
		p.ProviderOrderID = &id
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to persist payment intent", "error", err, "order_id", orderID, "user_id", input.UserID)
		return nil, internal.NewInternalError("failed to create payment", err)
	}

	s.logger.Info("payment intent created",
		"payment_id", p.ID,
		"order_id", orderID,
		"user_id", p.UserID,
		"amount", p.Amount.String(),
		"currency", p.Currency,
		"provider", s.provider.Name())

	return &IntentResult{Payment: p, PaymentURL: order.PaymentURL, PaymentAddress: order.PaymentAddress}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetPayment returns the transaction with lazy expiry applied to its status.
func (s *Service) GetPayment(ctx context.Context, id string, principal internal.Principal) (*payment.PaymentTransaction, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, internal.NewNotFoundError("payment not found", internal.ErrCodePaymentNotFound).WithCause(err)
		}
		return nil, internal.NewInternalError("failed to load payment", err)
	}
	if !principal.CanActFor(p.UserID) {
		return nil, internal.NewForbiddenError("cannot access another user's payment")
	}
	p.Status = p.EffectiveStatus(s.now())
	return p, nil
}

// ApplyProviderEvent moves a payment along the state machine in response to a
// verified callback. Redeliveries, anomalies and no-op statuses succeed
// without touching state. Entering paid or confirmed credits the wallet in the
// same transaction, keyed by the payment id.
//
// A pending payment already past its expiry is expired here, under the row
// lock, so a late settlement never revives what readers saw as expired.
func (s *Service) ApplyProviderEvent(ctx context.Context, event *ProviderEvent) (*ApplyResult, error) {
	var result *ApplyResult
	var credit *ledger.Result

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByOrderIDForUpdate(ctx, event.OrderID)
		if err != nil {
			return err
		}
		result = &ApplyResult{Payment: p, Previous: p.Status}

		now := s.now()
		if p.Status != payment.StatusExpired && p.EffectiveStatus(now) == payment.StatusExpired {
			p.Status = payment.StatusExpired
			p.UpdatedAt = now
			if err := s.repo.Save(ctx, p); err != nil {
				return fmt.Errorf("save expired payment: %w", err)
			}
			if event.Status == payment.StatusExpired {
				result.Outcome = OutcomeApplied
				return nil
			}
			result.Outcome = OutcomeAnomaly
			result.Reason = fmt.Sprintf("intent expired at %s before %s was reported", p.ExpiresAt.Format(time.RFC3339), event.Status)
			return nil
		}

		if p.Status.IsTerminal() {
			result.Outcome = OutcomeDuplicate
			return nil
		}
		if p.Status == event.Status {
			result.Outcome = OutcomeUnchanged
			return nil
		}
		if reason := consistencyViolation(p, event); reason != "" {
			result.Outcome = OutcomeAnomaly
			result.Reason = reason
			return nil
		}
		if !CanTransition(p.Status, event.Status, SourceWebhook) {
			result.Outcome = OutcomeAnomaly
			result.Reason = fmt.Sprintf("transition %s -> %s not allowed", p.Status, event.Status)
			return nil
		}

		var settled decimal.Decimal
		if event.Status.IsCreditable() {
			amount, reason := s.settlementAmount(p, event)
			if reason != "" {
				result.Outcome = OutcomeAnomaly
				result.Reason = reason
				return nil
			}
			settled = amount
		}

		p.Status = event.Status
		if p.ProviderOrderID == nil && event.ProviderID != "" {
			providerID := event.ProviderID
			p.ProviderOrderID = &providerID
		}
		if event.TxHash != "" {
			txHash := event.TxHash
			p.TxHash = &txHash
		}
		p.UpdatedAt = now
		if err := s.repo.Save(ctx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if p.Status.IsCreditable() {
			credit, err = s.ledger.CreditWallet(ctx, p.UserID, settled, p.ID)
			if err != nil {
				return err
			}
			result.Credited = credit.Applied
		}

		result.Outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.logger.Warn("provider event for unknown order", "order_id", event.OrderID, "provider_id", event.ProviderID)
			return nil, internal.NewNotFoundError("payment not found", internal.ErrCodePaymentNotFound).WithCause(err)
		}
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to apply provider event", "error", err, "order_id", event.OrderID, "status", event.Status)
		return nil, internal.NewInternalError("failed to apply provider event", err)
	}

	s.logResult(event, result)

	if result.Credited && s.publisher != nil {
		p := result.Payment
		evt := events.NewPaymentConfirmedEvent(p.ID, p.UserID, credit.Entry.Amount, s.cfg.ReceiveCurrency, string(p.Status), credit.Entry.ID)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish payment confirmed event", "error", err, "payment_id", p.ID)
		}
	}

	return result, nil
}

func (s *Service) logResult(event *ProviderEvent, result *ApplyResult) {
	attrs := []any{
		"payment_id", result.Payment.ID,
		"order_id", event.OrderID,
		"from", result.Previous,
		"to", event.Status,
		"outcome", result.Outcome,
	}
	switch result.Outcome {
	case OutcomeAnomaly:
		s.logger.Warn("provider event rejected as anomaly", append(attrs, "reason", result.Reason)...)
	case OutcomeDuplicate:
		s.logger.Info("provider event for settled payment ignored", attrs...)
	default:
		s.logger.Info("provider event processed", append(attrs, "credited", result.Credited)...)
	}
}

// settlementAmount is what the wallet receives for a settled payment. Wallets
// hold the receive currency only: an intent priced in that currency settles at
// its own amount, any other must carry the provider's receive_amount in the
// wallet currency.
func (s *Service) settlementAmount(p *payment.PaymentTransaction, event *ProviderEvent) (decimal.Decimal, string) {
	walletCurrency := s.cfg.ReceiveCurrency
	if event.ReceiveCurrency != "" && !strings.EqualFold(event.ReceiveCurrency, walletCurrency) {
		return decimal.Zero, fmt.Sprintf("receive currency %s does not match wallet currency %s", event.ReceiveCurrency, walletCurrency)
	}
	if strings.EqualFold(p.Currency, walletCurrency) {
		return p.Amount, ""
	}
	if event.ReceiveCurrency == "" || !event.ReceiveAmount.IsPositive() {
		return decimal.Zero, fmt.Sprintf("%s payment settled without a %s receive amount", p.Currency, walletCurrency)
	}
	return event.ReceiveAmount, ""
}

// consistencyViolation compares the event with the immutable parts of the payment.
func consistencyViolation(p *payment.PaymentTransaction, event *ProviderEvent) string {
	if !event.Amount.Equal(p.Amount) {
		return fmt.Sprintf("amount %s does not match %s", event.Amount.String(), p.Amount.String())
	}
	if !strings.EqualFold(event.Currency, p.Currency) {
		return fmt.Sprintf("currency %s does not match %s", event.Currency, p.Currency)
	}
	if p.ProviderOrderID != nil && event.ProviderID != "" && *p.ProviderOrderID != event.ProviderID {
		return fmt.Sprintf("provider id %s does not match %s", event.ProviderID, *p.ProviderOrderID)
	}
	return ""
}

// ExpireStale persists expiry for pending payments past expiresAt. Reads
// already report them expired; this only makes the state explicit.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	now := s.now()
	candidates, err := s.repo.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, internal.NewInternalError("failed to list expired payments", err)
	}

	expired := 0
	for _, candidate := range candidates {
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			p, err := s.repo.GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if p.EffectiveStatus(now) != payment.StatusExpired || !CanTransition(p.Status, payment.StatusExpired, SourceSystem) {
				return nil
			}
			p.Status = payment.StatusExpired
			p.UpdatedAt = now
			if err := s.repo.Save(ctx, p); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			s.logger.Error("failed to expire payment", "error", err, "payment_id", candidate.ID)
			continue
		}
	}

	if expired > 0 {
		s.logger.Info("expired stale payment intents", "count", expired)
	}
	return expired, nil
}
