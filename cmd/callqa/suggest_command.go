package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"callqa/internal/services"
	"callqa/internal/services/qaapi"
)

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var req qaapi.SuggestionRequest
	var window reportFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the AI service for a coaching suggestion for an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.AgentID = strings.TrimSpace(req.AgentID)
			if req.AgentID == "" {
				return errors.New("--agent-id is required")
			}
			if req.WorstCriterion.NonConformRatio < 0 || req.WorstCriterion.NonConformRatio > 1 {
				return errors.New("--rate must be between 0 and 1")
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			if strings.TrimSpace(req.WorstCriterion.Category) == "" {
				filter, err := window.filter(time.Now())
				if err != nil {
					return err
				}
				worst, err := client.AgentWorstItem(cmd.Context(), req.AgentID, filter)
				if err != nil {
					if errors.Is(err, services.ErrNotFound) {
						return fmt.Errorf("no evaluated criteria for agent %s in this period; pass --criterion", req.AgentID)
					}
					return err
				}
				req.WorstCriterion = worst.Criterion()
			}
			suggestion, err := client.GenerateSuggestion(cmd.Context(), req)
			if err != nil {
				if errors.Is(err, qaapi.ErrSuggestionUnavailable) {
					return errors.New(qaapi.SuggestionFailureMessage)
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd, suggestion)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader(suggestion.Title, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, suggestion.Summary)
			if len(suggestion.SpecificActions) > 0 {
				fmt.Fprintln(out)
				for i, action := range suggestion.SpecificActions {
					fmt.Fprintf(out, "%d. %s\n", i+1, action)
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Priority:", suggestion.Priority)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Time frame:", suggestion.TimeToImplement)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Expected:", suggestion.ExpectedImprovement)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.AgentID, "agent-id", "", "Agent identifier")
	cmd.Flags().StringVar(&req.AgentName, "agent-name", "", "Agent display name")
	cmd.Flags().StringVar(&req.WorstCriterion.Category, "criterion", "", "Criterion the agent fails most often (default: looked up for the --start/--end window)")
	cmd.Flags().Float64Var(&req.WorstCriterion.NonConformRatio, "rate", 0, "Non-conformity rate of that criterion (0-1)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	window.bind(cmd)
	return cmd
}

func newAIHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ai-health",
		Short: "Check whether the AI suggestion service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if client.AIHealth(cmd.Context()) {
				fmt.Fprintln(out, renderStatusLine("AI service", statusOK, "reachable", shouldColorize(out)))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("AI service", statusError, "unavailable", shouldColorize(out)))
			return errors.New("ai service unavailable")
		},
	}
}
