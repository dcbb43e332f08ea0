// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/curator/internal/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token that enables social signals for a user",
		Long: `Mint an HS256 token signed with security.jwt_secret. Requests that send it
as "Authorization: Bearer <token>" are ranked with the user's friends'
activity.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := auth.NewJWTManager(&c.cfg.Security)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			token, err := m.GenerateToken(userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to put in the token subject")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
