package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
)

// Service is the only code path that mutates wallet balances. Every mutation
// inserts a reference-keyed entry and updates the wallet row inside one
// transaction while holding the wallet row lock.
type Service struct {
	repo     RepositoryAPI
	tx       Transactor
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, currency string, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		currency: currency,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreditWallet records a completed deposit keyed by reference. Repeating the
// call with the same reference returns the original entry with Applied=false.
func (s *Service) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*Result, error) {
	return s.apply(ctx, userID, wallet.EntryTypeDeposit, amount, reference)
}

// DebitWallet records a withdrawal, investment, fee or refund. It fails with
// an InsufficientFunds error when balance < amount.
func (s *Service) DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string, entryType wallet.EntryType) (*Result, error) {
	if !entryType.Valid() || entryType.IsCredit() {
		return nil, internal.NewValidationFieldError("type", fmt.Sprintf("%q is not a debit entry type", entryType), internal.ErrCodeValidationFailed)
	}
	return s.apply(ctx, userID, entryType, amount, reference)
}

func (s *Service) apply(ctx context.Context, userID string, entryType wallet.EntryType, amount decimal.Decimal, reference string) (*Result, error) {
	v := validation.NewValidator()
	v.Field("userId", userID).Required()
	v.Field("amount", amount).PositiveDecimal(internal.ErrCodeInvalidAmount)
	v.Field("reference", reference).Required().MaxLength(128)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	var result *Result
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if entryType.IsCredit() {
			if err := s.repo.EnsureWallet(ctx, userID, s.currency); err != nil {
				return fmt.Errorf("ensure wallet: %w", err)
			}
		}

		w, err := s.repo.GetWalletForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindEntry(ctx, w.ID, reference, entryType)
		if err != nil {
			return fmt.Errorf("find entry: %w", err)
		}
		if existing != nil {
			result, err = replayed(existing, w, amount)
			return err
		}

		if !entryType.IsCredit() && w.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		now := s.now()
		signed := entryType.Signed(amount)
		entry := &wallet.LedgerEntry{
			ID:           uuid.NewString(),
			WalletID:     w.ID,
			Reference:    reference,
			Type:         entryType,
			Amount:       amount,
			Status:       wallet.EntryStatusCompleted,
			BalanceAfter: w.Balance.Add(signed),
			CreatedAt:    now,
		}

		inserted, err := s.repo.InsertEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if !inserted {
			existing, err := s.repo.FindEntry(ctx, w.ID, reference, entryType)
			if err != nil {
				return fmt.Errorf("find entry after conflict: %w", err)
			}
			result, err = replayed(existing, w, amount)
			return err
		}

		w.Balance = w.Balance.Add(signed)
		w.AvailableBalance = w.AvailableBalance.Add(signed)
		w.LastUpdated = now
		if err := s.repo.UpdateBalances(ctx, w); err != nil {
			return fmt.Errorf("update balances: %w", err)
		}

		result = &Result{Entry: entry, Wallet: w, Applied: true}
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, userID, entryType, amount, reference)
	}

	if result.Applied {
		s.logger.Info("ledger entry applied",
			"user_id", userID,
			"wallet_id", result.Wallet.ID,
			"type", entryType,
			"amount", amount.String(),
			"reference", reference,
			"balance", result.Wallet.Balance.String())
	} else {
		s.logger.Info("ledger entry already recorded, skipping",
			"user_id", userID,
			"type", entryType,
			"reference", reference,
			"entry_id", result.Entry.ID)
	}

	return result, nil
}

// replayed answers a repeated reference with the recorded entry, provided the
// repeat asks for the same amount.
func replayed(existing *wallet.LedgerEntry, w *wallet.WalletAccount, amount decimal.Decimal) (*Result, error) {
	if !existing.Amount.Equal(amount) {
		return nil, internal.NewConflictError(
			fmt.Sprintf("reference %s was already recorded for %s, not %s", existing.Reference, existing.Amount.String(), amount.String()),
			internal.ErrCodeReferenceConflict)
	}
	return &Result{Entry: existing, Wallet: w, Applied: false}, nil
}

func (s *Service) mapError(err error, userID string, entryType wallet.EntryType, amount decimal.Decimal, reference string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		s.logger.Warn("debit rejected: insufficient funds",
			"user_id", userID, "type", entryType, "amount", amount.String(), "reference", reference)
		return internal.NewInsufficientFundsError(
			fmt.Sprintf("wallet balance is lower than the requested %s of %s", entryType, amount.String())).
			WithCause(ErrInsufficientFunds)
	case errors.Is(err, ErrWalletNotFound):
		return internal.NewNotFoundError("wallet not found", internal.ErrCodeWalletNotFound).WithCause(ErrWalletNotFound)
	}
	s.logger.Error("ledger mutation failed", "error", err, "user_id", userID, "type", entryType, "reference", reference)
	return internal.NewInternalError("failed to apply ledger entry", err)
}

// GetBalance returns the wallet snapshot with pending deposits derived from
// open payment intents.
func (s *Service) GetBalance(ctx context.Context, userID string) (*wallet.WalletAccount, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, internal.NewNotFoundError("wallet not found", internal.ErrCodeWalletNotFound).WithCause(err)
		}
		return nil, internal.NewInternalError("failed to load wallet", err)
	}

	pending, err := s.repo.PendingDeposits(ctx, userID, w.Currency, s.now())
	if err != nil {
		s.logger.Warn("failed to compute pending deposits", "error", err, "user_id", userID)
	} else {
		w.PendingDeposits = pending
	}
	return w, nil
}

// FindEntry returns nil, nil when the user has no wallet or no such entry.
func (s *Service) FindEntry(ctx context.Context, userID, reference string, entryType wallet.EntryType) (*wallet.LedgerEntry, error) {
	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return s.repo.FindEntry(ctx, w.ID, reference, entryType)
}

func (s *Service) ListEntries(ctx context.Context, userID string, filter EntryFilter) (*EntryPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, internal.NewValidationFieldError("type", "unknown entry type", internal.ErrCodeValidationFailed)
	}
	filter.normalize()

	w, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, internal.NewNotFoundError("wallet not found", internal.ErrCodeWalletNotFound).WithCause(err)
		}
		return nil, internal.NewInternalError("failed to load wallet", err)
	}

	entries, total, err := s.repo.ListEntries(ctx, w.ID, filter)
	if err != nil {
		return nil, internal.NewInternalError("failed to list ledger entries", err)
	}

	return &EntryPage{
		Entries:  entries,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}
