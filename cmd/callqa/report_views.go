package main

import (
	"fmt"
	"strconv"
	"strings"

	"callqa/internal/evaluation"
	"callqa/internal/services/qaapi"
)

func scoreKind(average float64) statusKind {
	if average >= evaluation.PassThreshold {
		return statusOK
	}
	return statusWarn
}

func formatScore(value qaapi.FlexibleNumber) string {
	return fmt.Sprintf("%.1f", value.Float())
}

func renderAgents(agents []qaapi.AgentRank) string {
	rows := make([][]string, 0, len(agents))
	for i, a := range agents {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			a.AgentID.String(),
			valueOrDash(a.Name),
			strconv.Itoa(a.Calls.Int()),
			formatScore(a.Average),
		})
	}
	return renderTable(tableSpec{
		headers: []string{"#", "Agent", "Nome", "Ligações", "Média"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight},
		maxWide: map[int]int{2: 40},
	})
}

// renderWorstItem describes an agent's worst criterion, or "-" when the
// backend had none for the window.
func renderWorstItem(item *qaapi.WorstItem) string {
	if item == nil || strings.TrimSpace(item.Category) == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s não conforme, %d de %d)",
		evaluation.DisplayName(item.Category),
		formatPercent(item.NonConformRatio.Float()*100),
		item.NonConformCount.Int(),
		item.Evaluated.Int(),
	)
}

func renderAgentReport(summary qaapi.AgentSummary, worst *qaapi.WorstItem, colorize bool) []string {
	title := summary.AgentID.String()
	if summary.Name != "" {
		title = fmt.Sprintf("%s (%s)", summary.Name, summary.AgentID)
	}
	lines := renderSectionHeader(title, colorize)
	lines = append(lines,
		fmt.Sprintf("%s%-*s %d", statusIndent, statusLabelWidth, "Calls:", summary.Calls.Int()),
		renderStatusLine("Average", scoreKind(summary.Average.Float()), formatScore(summary.Average), colorize),
	)
	kind := statusInfo
	if worst != nil && worst.Category != "" {
		kind = statusWarn
	}
	lines = append(lines, renderStatusLine("Worst item", kind, renderWorstItem(worst), colorize))
	return lines
}

func renderAgentCalls(calls []qaapi.AgentCall) string {
	rows := make([][]string, 0, len(calls))
	for _, c := range calls {
		rows = append(rows, []string{
			valueOrDash(c.CallDate),
			c.AvaliacaoID.String(),
			valueOrDash(c.CallID.String()),
			formatScore(c.Score),
			valueOrDash(c.Verdict),
		})
	}
	return renderTable(tableSpec{
		headers: []string{"Data", "Avaliação", "Call ID", "Pontuação", "Status"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	})
}

func renderKPIs(kpis qaapi.KPIs, colorize bool) []string {
	lines := renderSectionHeader("Indicadores", colorize)
	lines = append(lines,
		fmt.Sprintf("%s%-*s %d", statusIndent, statusLabelWidth, "Calls:", kpis.TotalCalls.Int()),
		renderStatusLine("Average", scoreKind(kpis.AverageScore.Float()), formatScore(kpis.AverageScore), colorize),
	)
	worst := "-"
	if kpis.WorstItem.Category != "" {
		worst = fmt.Sprintf("%s (%s não conforme)",
			evaluation.DisplayName(kpis.WorstItem.Category),
			formatPercent(kpis.WorstItem.NonConformPct.Float()))
	}
	lines = append(lines, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Worst item:", worst))
	return lines
}

func renderTrend(points []qaapi.TrendPoint) string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Day, formatScore(p.Average)})
	}
	return renderTable(tableSpec{
		headers: []string{"Dia", "Média"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight},
	})
}
