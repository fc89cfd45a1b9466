package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
)

// One statement reads the balance and the entry aggregate from the same
// snapshot, so a credit committing mid-check cannot skew the comparison.
// Entries of credit types count positive, every other type negative.
var snapshotQuery = fmt.Sprintf(`
	SELECT
		w.id,
		w.user_id,
		w.balance,
		COALESCE(e.expected_balance, 0) AS expected_balance,
		COALESCE(e.transaction_count, 0) AS transaction_count
	FROM wallet_accounts w
	LEFT JOIN (
		SELECT
			wallet_id,
			SUM(CASE WHEN type IN ('%s', '%s') THEN amount ELSE -amount END) AS expected_balance,
			COUNT(*) AS transaction_count
		FROM ledger_entries
		WHERE wallet_id = ? AND status = '%s'
		GROUP BY wallet_id
	) e ON e.wallet_id = w.id
	WHERE w.id = ?`,
	wallet.EntryTypeDeposit, wallet.EntryTypeReturn, wallet.EntryStatusCompleted)

type ReconciliationRepository struct {
	db *sqlx.DB
}

func NewReconciliationRepository(db *sqlx.DB) reconciliation.RepositoryAPI {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) Snapshot(ctx context.Context, walletID string) (*reconciliation.WalletSnapshot, error) {
	var s reconciliation.WalletSnapshot
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(snapshotQuery), walletID, walletID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconciliation.ErrWalletNotFound
		}
		return nil, fmt.Errorf("read wallet snapshot: %w", err)
	}
	return &s, nil
}

func (r *ReconciliationRepository) ListWalletIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM wallet_accounts ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return ids, nil
}
