package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/audit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	paymentpkg "github.com/oneroskilfu/ireva-app-sub001/internal/payment"
)

const auditTargetPayment = "payment_transaction"

// Service reverses settled payments on admin request. The status change,
// compensating debit and audit entry commit together.
type Service struct {
	payments  PaymentRepository
	ledger    LedgerAPI
	audits    AuditRepositoryAPI
	tx        Transactor
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(payments PaymentRepository, ledger LedgerAPI, audits AuditRepositoryAPI, tx Transactor, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		payments:  payments,
		ledger:    ledger,
		audits:    audits,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) RequestRefund(ctx context.Context, paymentID, reason, adminID string) (*Result, error) {
	v := validation.NewValidator()
	v.Field("paymentId", paymentID).Required()
	v.Field("reason", reason).Required().MaxLength(500)
	v.Field("adminId", adminID).Required()
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	var (
		result *Result
		p      *payment.PaymentTransaction
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, paymentpkg.ErrPaymentNotFound) {
				return internal.NewNotFoundError("payment not found", internal.ErrCodePaymentNotFound).WithCause(err)
			}
			return fmt.Errorf("load payment: %w", err)
		}

		now := s.now()
		if !paymentpkg.CanTransition(p.Status, payment.StatusRefunded, paymentpkg.SourceAdmin) {
			return internal.NewNotRefundableError(fmt.Sprintf("cannot refund payment in status %s", p.EffectiveStatus(now)))
		}

		amount := p.Amount
		deposit, err := s.ledger.FindEntry(ctx, p.UserID, p.ID, wallet.EntryTypeDeposit)
		if err != nil {
			return fmt.Errorf("find original deposit: %w", err)
		}
		if deposit != nil {
			amount = deposit.Amount
		}

		debit, err := s.ledger.DebitWallet(ctx, p.UserID, amount, p.ID, wallet.EntryTypeRefund)
		if err != nil {
			return err
		}

		p.Status = payment.StatusRefunded
		p.UpdatedAt = now
		if err := s.payments.Save(ctx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if err := s.audits.Create(ctx, s.auditEntry(adminID, paymentID, reason, audit.OutcomeSucceeded, "")); err != nil {
			return fmt.Errorf("write audit entry: %w", err)
		}

		result = &Result{
			PaymentID:     p.ID,
			Status:        p.Status,
			Amount:        amount,
			Currency:      p.Currency,
			EntryID:       debit.Entry.ID,
			WalletBalance: debit.Wallet.Balance,
			RefundedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, paymentID, reason, adminID)
	}

	s.logger.Info("payment refunded",
		"payment_id", result.PaymentID,
		"admin_id", adminID,
		"amount", result.Amount.String(),
		"currency", result.Currency,
		"entry_id", result.EntryID)

	if s.publisher != nil {
		evt := events.NewRefundIssuedEvent(p.ID, p.UserID, adminID, result.Amount, result.Currency, reason)
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish refund issued event", "error", err, "payment_id", p.ID)
		}
	}

	return result, nil
}

// fail records the refused attempt after the transaction rolled back.
func (s *Service) fail(ctx context.Context, err error, paymentID, reason, adminID string) error {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("refund could not be completed", err)
	}

	outcome := audit.OutcomeRejected
	if appErr.StatusCode >= http.StatusInternalServerError {
		outcome = audit.OutcomeFailed
		s.logger.Error("refund failed", "error", err, "payment_id", paymentID, "admin_id", adminID)
	} else {
		s.logger.Warn("refund rejected", "payment_id", paymentID, "admin_id", adminID, "code", appErr.Code, "message", appErr.GetDetailedMessage())
	}

	if appErr.Type == internal.ErrorTypeInsufficientFunds {
		appErr.Message = "wallet no longer holds enough funds to reverse this payment; the refund was not completed"
	}

	if auditErr := s.audits.Create(ctx, s.auditEntry(adminID, paymentID, reason, outcome, appErr.GetDetailedMessage())); auditErr != nil {
		s.logger.Error("failed to write audit entry for refund attempt", "error", auditErr, "payment_id", paymentID)
	}
	return appErr
}

func (s *Service) auditEntry(adminID, paymentID, reason, outcome, detail string) *audit.AdminAuditEntry {
	return &audit.AdminAuditEntry{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		Action:     audit.ActionRefund,
		TargetType: auditTargetPayment,
		TargetID:   paymentID,
		Reason:     reason,
		Outcome:    outcome,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
}
