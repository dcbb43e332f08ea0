// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
)

// cli carries state shared by every subcommand. cfg is loaded once in the
// root's PersistentPreRunE.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "curator",
		Short: "Curator - personalized feed ranking service",
		Long: `Curator ranks posts for each user from their interests, their friends'
activity and overall popularity. It serves rankings over HTTP, keeps
precomputed feeds fresh in the background and maintains interest decay.

Configuration is read from defaults, an optional YAML file and environment
variables, in that order.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("curator %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file (overrides "+config.ConfigPathEnvVar+")")

	root.AddCommand(
		newServeCmd(c),
		newPrecomputeCmd(c),
		newMaintainCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) load() error {
	if c.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, c.configPath); err != nil {
			return fmt.Errorf("set %s: %w", config.ConfigPathEnvVar, err)
		}
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	c.cfg = cfg
	return nil
}
