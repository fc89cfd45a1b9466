package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
)

var (
	seedUsers  []string
	seedAmount string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo wallets",
	Long:  `Create demo investor wallets funded through the ledger. Re-running is a no-op because every credit is keyed by reference.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, lg, err := bootstrap()
		if err != nil {
			return err
		}

		amount, err := decimal.NewFromString(seedAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q: %w", seedAmount, err)
		}

		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := buildServices(cfg, db, nil, events.NewEventBus(lg), lg)

		for _, userID := range seedUsers {
			result, err := svc.Ledger.CreditWallet(ctx, userID, amount, "seed:"+userID)
			if err != nil {
				return fmt.Errorf("seed wallet for %s: %w", userID, err)
			}
			if result.Applied {
				fmt.Printf("Seeded wallet %s for %s with %s %s\n", result.Wallet.ID, userID, amount.String(), result.Wallet.Currency)
			} else {
				fmt.Printf("Wallet for %s already seeded; balance %s\n", userID, result.Wallet.Balance.String())
			}
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringSliceVar(&seedUsers, "users", []string{"investor-demo-1", "investor-demo-2"}, "user ids to seed")
	seedCmd.Flags().StringVar(&seedAmount, "amount", "1000", "opening deposit per wallet")

	rootCmd.AddCommand(seedCmd)
}
