package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/auth"
)

var (
	tokenUserID string
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development access token",
	Long:  `Sign a bearer token with the configured JWT secret. Not available in production.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}
		if cfg.IsProduction() {
			return fmt.Errorf("token issuance is disabled in production")
		}

		token, err := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer).
			GenerateToken(tokenUserID, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "investor-demo-1", "subject of the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", internal.RoleInvestor, "investor or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(tokenCmd)
}
