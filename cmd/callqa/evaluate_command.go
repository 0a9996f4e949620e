package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"callqa/internal/services/qaapi"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var req qaapi.EvaluationRequest
	var textFlag string
	var fileFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a transcript against the criteria of a carteira",
		Long: `Send transcript text for automatic evaluation. The text comes from --text,
from --file, or from stdin when --file is "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := evaluationText(cmd.InOrStdin(), textFlag, fileFlag)
			if err != nil {
				return err
			}
			req.Transcricao = text
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := client.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEvaluation(result, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().IntVar(&req.CarteiraID, "carteira-id", 0, "Numeric carteira id whose criteria apply")
	cmd.Flags().StringVar(&req.CallID, "call-id", "", "Call identifier to attach to the evaluation")
	cmd.Flags().StringVar(&req.AgentID, "agent", "", "Agent identifier")
	cmd.Flags().StringVar(&textFlag, "text", "", "Transcript text")
	cmd.Flags().StringVar(&fileFlag, "file", "", "Read transcript text from a file (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	return cmd
}

func evaluationText(stdin io.Reader, text, file string) (string, error) {
	switch {
	case strings.TrimSpace(text) != "":
		return text, nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read transcript file: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("transcript text required (use --text or --file)")
	}
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "items <avaliacao-id>",
		Short: "Show the evaluation items of a processed call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			items, err := client.CallItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var stored *qaapi.StoredTranscript
			if withTranscript {
				t, err := client.CallTranscript(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				stored = &t
			}
			if asJSON {
				return writeJSON(cmd, struct {
					AvaliacaoID string                  `json:"avaliacao_id"`
					Items       any                     `json:"items"`
					Transcript  *qaapi.StoredTranscript `json:"transcript,omitempty"`
				}{AvaliacaoID: args[0], Items: items, Transcript: stored})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderItems(items, shouldColorize(out)))
			if stored != nil {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Transcrição", shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, strings.TrimSpace(stored.Content))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&withTranscript, "transcript", false, "Also print the stored transcript")
	return cmd
}

func newCarteirasCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var all bool

	cmd := &cobra.Command{
		Use:   "carteiras",
		Short: "List the carteiras available for submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			carteiras, err := client.Carteiras(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				active := carteiras[:0]
				for _, c := range carteiras {
					if c.Enabled() {
						active = append(active, c)
					}
				}
				carteiras = active
			}
			if asJSON {
				return writeJSON(cmd, carteiras)
			}
			if len(carteiras) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No carteiras found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCarteiras(carteiras))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive carteiras")
	return cmd
}
