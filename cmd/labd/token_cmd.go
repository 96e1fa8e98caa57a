package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lab-allocation-backend/internal/auth"
	"lab-allocation-backend/internal/model"
)

func newTokenCmd() *cobra.Command {
	var (
		identity model.Identity
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			identity.Role = model.Role(role)
			if !identity.Role.Valid() {
				return fmt.Errorf("invalid --role %q", role)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
			}

			token, err := auth.GenerateToken(cfg.Auth.JWTSecret, identity, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity.UID, "uid", "", "Caller uid (required)")
	cmd.Flags().StringVar(&identity.LoginID, "login", "", "Login id shown to admins (required)")
	cmd.Flags().StringVar(&identity.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "admin, faculty or student")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl_hours)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}
