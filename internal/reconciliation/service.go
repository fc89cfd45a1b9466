package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
)

// Service compares stored balances with the signed sum of completed ledger
// entries. It never writes.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Reconcile(ctx context.Context, walletID string) (*Report, error) {
	if walletID == "" {
		return nil, internal.NewValidationFieldError("walletId", "walletId is required", internal.ErrCodeValidationFailed)
	}

	w, err := s.repo.Snapshot(ctx, walletID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, internal.NewNotFoundError("wallet not found", internal.ErrCodeWalletNotFound).WithCause(err)
		}
		s.logger.Error("reconciliation failed to read wallet snapshot", "error", err, "wallet_id", walletID)
		return nil, internal.NewInternalError("failed to read wallet snapshot", err)
	}

	report := &Report{
		WalletID:         w.WalletID,
		UserID:           w.UserID,
		ActualBalance:    w.Balance,
		ExpectedBalance:  w.ExpectedBalance,
		Discrepancy:      w.Balance.Sub(w.ExpectedBalance),
		TransactionCount: w.TransactionCount,
		Timestamp:        s.now(),
		Status:           StatusBalanced,
	}
	if !report.Discrepancy.IsZero() {
		report.Status = StatusDiscrepancyFound
		s.logger.Warn("wallet balance discrepancy found",
			"wallet_id", report.WalletID,
			"user_id", report.UserID,
			"actual", report.ActualBalance.String(),
			"expected", report.ExpectedBalance.String(),
			"discrepancy", report.Discrepancy.String())
	}

	return report, nil
}

func (s *Service) ReconcileAll(ctx context.Context, onlyDiscrepancies bool) (*Summary, error) {
	ids, err := s.repo.ListWalletIDs(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list wallets", err)
	}

	summary := &Summary{Reports: make([]*Report, 0), Timestamp: s.now()}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, internal.NewInternalError("reconciliation interrupted", err)
		}
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			// A wallet removed between listing and reading is skipped.
			if internal.IsType(err, internal.ErrorTypeNotFound) {
				continue
			}
			return nil, err
		}
		summary.WalletsChecked++
		if !report.Balanced() {
			summary.DiscrepancyCount++
		}
		if onlyDiscrepancies && report.Balanced() {
			continue
		}
		summary.Reports = append(summary.Reports, report)
	}

	s.logger.Info("reconciliation completed",
		"wallets_checked", summary.WalletsChecked,
		"discrepancies", summary.DiscrepancyCount)
	return summary, nil
}
