package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"callqa/internal/history"
	"callqa/internal/services"
	"callqa/internal/services/qaapi"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status <submission-or-file-id>",
		Short: "Show and refresh the state of a submission",
		Long: `Look up a submission by its local id (a unique prefix is enough) or by
the backend file id, ask the backend for its current status, and update the
local history with the answer. Submissions that timed out locally finish
here once the backend has produced the evaluation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := lookupRecord(cmd.Context(), store, id)
				if err != nil {
					return err
				}

				fileID := id
				if rec != nil {
					fileID = rec.FileID
				}
				if offline || (rec != nil && !rec.Resumable()) {
					if rec == nil {
						return fmt.Errorf("no submission %q in history", id)
					}
					return reportSubmission(cmd, *rec, asJSON, "")
				}
				if fileID == "" {
					return fmt.Errorf("submission %s was never accepted by the backend", shortID(rec.LocalID))
				}

				client, err := ctx.newClient()
				if err != nil {
					return err
				}
				resp, err := client.UploadStatus(services.WithFileID(cmd.Context(), fileID), fileID)
				if err != nil {
					return err
				}

				if rec == nil {
					return reportRemoteStatus(cmd, fileID, resp, asJSON)
				}
				rec.ApplyStatus(resp, time.Now().UTC())
				if err := store.Save(cmd.Context(), *rec); err != nil {
					return err
				}
				return reportSubmission(cmd, *rec, asJSON, "")
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Show the stored record without asking the backend")
	return cmd
}

// lookupRecord resolves a local id prefix first, then a backend file id.
func lookupRecord(ctx context.Context, store *history.Store, id string) (*history.Record, error) {
	rec, err := store.Get(ctx, id)
	if err != nil && !errors.Is(err, history.ErrAmbiguousID) {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	byFile, findErr := store.FindByFileID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if byFile != nil {
		return byFile, nil
	}
	return nil, err
}

func reportRemoteStatus(cmd *cobra.Command, fileID string, resp qaapi.StatusResponse, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, struct {
			FileID string `json:"file_id"`
			qaapi.StatusResponse
		}{FileID: fileID, StatusResponse: resp})
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	kind := statusInfo
	label := valueOrDash(resp.Status)
	switch {
	case !resp.AvaliacaoID.Empty():
		kind = statusOK
		label = "completed"
	case resp.Failed():
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("File "+fileID, kind, label, colorize))
	if !resp.AvaliacaoID.Empty() {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Avaliação:", resp.AvaliacaoID)
	}
	if !resp.CallID.Empty() {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Call ID:", resp.CallID)
	}
	if resp.ErrorMsg != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Error:", resp.ErrorMsg)
	}
	return nil
}
