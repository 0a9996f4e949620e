package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callqa/internal/history"
	"callqa/internal/upload"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune the local submission history",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func parseStatusFilters(values []string) ([]upload.Status, error) {
	statuses := make([]upload.Status, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := upload.ParseStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					if records == nil {
						records = []history.Record{}
					}
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No submissions recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(records))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <submission-id>",
		Short: "Show one stored submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := lookupRecord(cmd.Context(), store, args[0])
				if err != nil {
					if errors.Is(err, history.ErrAmbiguousID) {
						return fmt.Errorf("%w; use more characters", err)
					}
					return err
				}
				if rec == nil {
					return fmt.Errorf("no submission %q in history", args[0])
				}
				return reportSubmission(cmd, *rec, asJSON, "")
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored submissions",
		Long: `Delete stored submissions. By default only finished submissions are
removed (duplicate, completed, failed); pass --status to choose, or --all to
remove everything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			if all && len(statuses) > 0 {
				return errors.New("--all cannot be combined with --status")
			}
			if !all && len(statuses) == 0 {
				statuses = []upload.Status{upload.StatusDuplicate, upload.StatusCompleted, upload.StatusFailed}
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d submission(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Only clear these statuses")
	cmd.Flags().BoolVar(&all, "all", false, "Clear every submission")
	return cmd
}
