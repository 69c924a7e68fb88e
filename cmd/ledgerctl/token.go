package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dualledger/internal/config"
	"dualledger/internal/middleware"
	"dualledger/internal/uuid"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue an access token for local development",
		Long:  `Signs an access token with JWT_SECRET. Without a user id a new one is generated.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Env == "production" {
				return fmt.Errorf("refusing to issue tokens in production")
			}

			userID := uuid.New()
			if len(args) == 1 {
				if userID, err = uuid.Parse(args[0]); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}

			token, err := middleware.IssueAccessToken([]byte(cfg.JWTSecret), userID, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"user_id": userID, "access_token": token})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
