// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/curator/internal/logging"
)

func newPrecomputeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "precompute",
		Short: "Run one scheduler cycle and exit",
		Long: `Run a single scheduler cycle: refresh every missing, expired or soon to
expire feed, then run any maintenance task due today. The cycle report is
printed as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, logging.Logger())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			report, err := a.scheduler.RunCycle(cmd.Context())
			if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
				return printErr
			}
			if err != nil {
				return fmt.Errorf("scheduler cycle: %w", err)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
