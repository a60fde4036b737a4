package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantrypal/api/internal/auth"
)

func newTokenCommand() *cobra.Command {
	var email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an HMAC bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := strings.TrimSpace(args[0])
			if userID == "" {
				return errors.New("user id must not be blank")
			}
			cfg, err := loadWithLogger(cmd)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = time.Duration(cfg.JWT.Expiration) * time.Hour
			}

			token, err := auth.NewLegacyToken(userID, email, cfg.JWT.Secret, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to jwt.expiration hours; 0 means no expiry)")
	return cmd
}
