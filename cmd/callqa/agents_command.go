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

const defaultReportDays = 30

// reportFlags holds the date window and carteira shared by report commands.
type reportFlags struct {
	start    string
	end      string
	carteira string
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", fmt.Sprintf("First call date, YYYY-MM-DD (default %d days before --end)", defaultReportDays))
	cmd.Flags().StringVar(&f.end, "end", "", "Last call date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.carteira, "carteira", "", "Restrict to one carteira")
}

func (f *reportFlags) filter(now time.Time) (qaapi.ReportFilter, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if value := strings.TrimSpace(f.end); value != "" {
		parsed, err := time.Parse(qaapi.ReportDateLayout, value)
		if err != nil {
			return qaapi.ReportFilter{}, fmt.Errorf("invalid --end %q (want YYYY-MM-DD)", value)
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -defaultReportDays)
	if value := strings.TrimSpace(f.start); value != "" {
		parsed, err := time.Parse(qaapi.ReportDateLayout, value)
		if err != nil {
			return qaapi.ReportFilter{}, fmt.Errorf("invalid --start %q (want YYYY-MM-DD)", value)
		}
		start = parsed
	}
	if end.Before(start) {
		return qaapi.ReportFilter{}, errors.New("--end is before --start")
	}
	return qaapi.ReportFilter{Start: start, End: end, Carteira: strings.TrimSpace(f.carteira)}, nil
}

func newAgentsCommand(ctx *commandContext) *cobra.Command {
	var window reportFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Rank agents by average evaluation score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := window.filter(time.Now())
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			agents, err := client.Agents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, agents)
			}
			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No evaluated calls in this period")
				return nil
			}
			fmt.Fprintln(out, renderAgents(agents))
			return nil
		},
	}

	window.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type agentReport struct {
	Summary   qaapi.AgentSummary `json:"summary"`
	WorstItem *qaapi.WorstItem   `json:"worst_item,omitempty"`
	Calls     []qaapi.AgentCall  `json:"calls,omitempty"`
}

func newAgentCommand(ctx *commandContext) *cobra.Command {
	var window reportFlags
	var withCalls bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "agent <agent-id>",
		Short: "Show an agent's individual report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := window.filter(time.Now())
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			agentID := strings.TrimSpace(args[0])

			var report agentReport
			report.Summary, err = client.AgentSummary(cmd.Context(), agentID, filter)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("agent %s: %s", agentID, qaapi.ErrorMessage(err))
				}
				return err
			}
			worst, err := client.AgentWorstItem(cmd.Context(), agentID, filter)
			switch {
			case err == nil:
				report.WorstItem = &worst
			case !errors.Is(err, services.ErrNotFound):
				return err
			}
			if withCalls {
				report.Calls, err = client.AgentCalls(cmd.Context(), agentID, filter)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderAgentReport(report.Summary, report.WorstItem, colorize) {
				fmt.Fprintln(out, line)
			}
			if withCalls {
				fmt.Fprintln(out)
				if len(report.Calls) == 0 {
					fmt.Fprintln(out, "No evaluated calls in this period")
					return nil
				}
				fmt.Fprintln(out, renderAgentCalls(report.Calls))
			}
			return nil
		},
	}

	window.bind(cmd)
	cmd.Flags().BoolVar(&withCalls, "calls", false, "List the agent's evaluated calls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newKPIsCommand(ctx *commandContext) *cobra.Command {
	var window reportFlags
	var withTrend bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Show the global average, call count, and worst criterion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := window.filter(time.Now())
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			kpis, err := client.KPIs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			var trend []qaapi.TrendPoint
			if withTrend {
				if trend, err = client.Trend(cmd.Context(), filter); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, struct {
					qaapi.KPIs
					Trend []qaapi.TrendPoint `json:"trend,omitempty"`
				}{KPIs: kpis, Trend: trend})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderKPIs(kpis, colorize) {
				fmt.Fprintln(out, line)
			}
			if len(trend) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTrend(trend))
			}
			return nil
		},
	}

	window.bind(cmd)
	cmd.Flags().BoolVar(&withTrend, "trend", false, "Include the daily average trend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
