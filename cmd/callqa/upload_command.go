package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"callqa/internal/config"
	"callqa/internal/history"
	"callqa/internal/notifications"
	"callqa/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var carteira string
	var agent string
	var noWait bool
	var showItems bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a call recording and wait for its evaluation",
		Long: `Upload an .mp3, .wav or .m4a recording tagged with a carteira and agent.

The command polls the backend until the evaluation is ready, the backend
reports a failure, or the configured attempt bound is reached. Ctrl-C stops
waiting; the submission stays in history and can be checked later with
'callqa status'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			file, err := upload.OpenAudioFile(path)
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			logger := ctx.loggerValue()
			stderr := cmd.ErrOrStderr()
			progress := newUploadProgress(stderr, file.Name, !asJSON, shouldColorize(stderr))
			coord := upload.NewCoordinator(client,
				upload.WithPollInterval(cfg.PollInterval()),
				upload.WithMaxPollAttempts(cfg.Upload.MaxPollAttempts),
				upload.WithMaxFileBytes(cfg.MaxFileBytes()),
				upload.WithLogger(logger),
				upload.WithObserver(store.Recorder(logger)),
				upload.WithObserver(notifications.Observer(notifications.NewService(cfg), logger)),
				upload.WithObserver(progress.observe),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := coord.Select(upload.Selection{CarteiraID: carteira, AgentID: agent}, file); err != nil {
				return err
			}

			snap, err := coord.Upload(runCtx)
			if err == nil && snap.Status == upload.StatusProcessing {
				if noWait {
					coord.Remove()
					progress.finish()
					return reportSubmission(cmd, history.FromSnapshot(snap), asJSON,
						fmt.Sprintf("Not waiting; check later with: callqa status %s", shortID(snap.LocalID)))
				}
				snap, err = coord.Wait(runCtx)
				if runCtx.Err() != nil {
					coord.Remove()
					progress.finish()
					fmt.Fprintf(stderr, "Stopped waiting; check later with: callqa status %s\n", shortID(snap.LocalID))
					return context.Canceled
				}
			}
			progress.finish()
			if snap.Idle() {
				return err
			}

			rec := history.FromSnapshot(snap)
			if reportErr := reportSubmission(cmd, rec, asJSON, ""); reportErr != nil {
				return reportErr
			}
			if err != nil {
				if errors.Is(err, upload.ErrSubmissionRemoved) {
					return context.Canceled
				}
				return err
			}
			if showItems && !asJSON && rec.AvaliacaoID != "" {
				items, itemsErr := client.CallItems(cmd.Context(), rec.AvaliacaoID)
				if itemsErr != nil {
					return itemsErr
				}
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), renderItems(items, shouldColorize(cmd.OutOrStdout())))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&carteira, "carteira", "", "Carteira (portfolio) the call belongs to")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent identifier")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the backend accepts the file")
	cmd.Flags().BoolVar(&showItems, "items", false, "Print the evaluation items when the evaluation is ready")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the final submission as JSON")
	return cmd
}

// reportSubmission prints a submission record and an optional hint line.
func reportSubmission(cmd *cobra.Command, rec history.Record, asJSON bool, hint string) error {
	if asJSON {
		return writeJSON(cmd, rec)
	}
	out := cmd.OutOrStdout()
	for _, line := range renderRecord(rec, shouldColorize(out)) {
		fmt.Fprintln(out, line)
	}
	if hint != "" {
		fmt.Fprintln(out, hint)
	}
	return nil
}
