package main

import (
	"fmt"
	"os"
	"time"

	"github.com/amirphl/quote-core/app/services"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject  string
		tenant   string
		role     string
		issuer   string
		audience string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 development token",
		Long: `Sign an access token with the shared secret in JWT_SECRET_KEY.
Production tokens come from the external auth system; this is for local use.

Example:
  JWT_SECRET_KEY=dev quotectl token --subject ops --tenant tenant-a --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET_KEY")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			if role != services.RoleAdmin && role != services.RoleOperator {
				return fmt.Errorf("role must be %q or %q", services.RoleOperator, services.RoleAdmin)
			}

			svc, err := services.NewTokenService(issuer, audience, false, "", secret)
			if err != nil {
				return err
			}
			token, err := svc.IssueToken(subject, tenant, role, ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&role, "role", services.RoleOperator, "operator or admin")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "token issuer")
	cmd.Flags().StringVar(&audience, "audience", os.Getenv("JWT_AUDIENCE"), "token audience")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
