package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				return streamLogsFromDaemon(cmd, client, lines, follow)
			}

			logPath := logging.DaemonLogPath(cfg.Paths.LogDir)
			if logPath == "" {
				return errors.New("log directory not configured")
			}
			return streamLogsFromFile(cmd, logPath, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

func streamLogsFromDaemon(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	offset, limit := initialTailWindow(lines)
	ctx := cmd.Context()
	printed := false

	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// streamLogsFromFile tails the log file directly when no daemon is running.
func streamLogsFromFile(cmd *cobra.Command, path string, lines int, follow bool) error {
	offset, limit := initialTailWindow(lines)
	ctx := cmd.Context()
	printed := false

	for {
		result, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// initialTailWindow maps the lines flag onto tail parameters. Zero means the
// whole file from the start; a positive count means the last that many lines.
func initialTailWindow(lines int) (offset int64, limit int) {
	if lines <= 0 {
		return 0, 0
	}
	return -1, lines
}
