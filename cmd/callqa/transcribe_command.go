package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"callqa/internal/config"
	"callqa/internal/upload"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var speakers bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe a recording with speaker diarization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			file, err := upload.OpenAudioFile(path)
			if err != nil {
				return err
			}
			if !file.IsAudio() {
				return fmt.Errorf("%w: %s", upload.ErrUnsupportedAudio, file.Name)
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := client.Transcribe(cmd.Context(), file.Path)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTranscript(result, speakers))
			return nil
		},
	}

	cmd.Flags().BoolVar(&speakers, "speakers", false, "Include a per-speaker word count table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the full transcription as JSON")
	return cmd
}
