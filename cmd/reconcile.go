package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
)

var (
	reconcileAll               bool
	reconcileOnlyDiscrepancies bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [wallet-id]",
	Short: "Compare wallet balances with their ledger",
	Long:  `Print a reconciliation report for one wallet, or for every wallet with --all. Exits non-zero when a discrepancy is found. Nothing is corrected.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reconcileAll == (len(args) == 1) {
			return errors.New("pass either a wallet id or --all")
		}

		ctx := cmd.Context()
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if !reconcileAll {
			report, err := svc.Reconciliation.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Balanced() {
				return fmt.Errorf("wallet %s is out of balance by %s", report.WalletID, report.Discrepancy.String())
			}
			return nil
		}

		summary, err := svc.Reconciliation.ReconcileAll(ctx, reconcileOnlyDiscrepancies)
		if err != nil {
			return err
		}
		if err := enc.Encode(summary); err != nil {
			return err
		}
		if summary.DiscrepancyCount > 0 {
			return fmt.Errorf("%d of %d wallets are out of balance", summary.DiscrepancyCount, summary.WalletsChecked)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "reconcile every wallet")
	reconcileCmd.Flags().BoolVar(&reconcileOnlyDiscrepancies, "only-discrepancies", false, "with --all, print only wallets out of balance")

	rootCmd.AddCommand(reconcileCmd)
}
