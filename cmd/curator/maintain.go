// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend/scheduler"
)

func newMaintainCmd(c *cli) *cobra.Command {
	var task string
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Force one maintenance task regardless of its schedule",
		Example: `  curator maintain --task decay
  curator maintain --task purge`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch task {
			case scheduler.TaskDecay, scheduler.TaskCleanup, scheduler.TaskPurge:
			default:
				return fmt.Errorf("unknown task %q (want %s, %s or %s)", task,
					scheduler.TaskDecay, scheduler.TaskCleanup, scheduler.TaskPurge)
			}

			a, err := newApp(cmd.Context(), c.cfg, logging.Logger())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			result, err := a.scheduler.RunTask(cmd.Context(), task)
			if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "task to run: decay, cleanup or purge")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
