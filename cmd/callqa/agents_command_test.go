package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"callqa/internal/services/qaapi"
)

func TestAgentsRanking(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "agents", "--start", "2025-01-01", "--end", "2025-01-31", "--carteira", "Vendas")
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	requireContains(t, out, "Bruna Lima")
	requireContains(t, out, "82.5")
	requireContains(t, out, "61.2")

	queries := env.backend.queries()
	if len(queries) != 1 || queries[0] != "carteira=Vendas&end=2025-01-31&start=2025-01-01" {
		t.Fatalf("unexpected report queries: %v", queries)
	}

	out, _, err = runCLI(t, env, "agents", "--start", "2025-01-01", "--end", "2025-01-31", "--json")
	if err != nil {
		t.Fatalf("agents --json: %v", err)
	}
	var ranking []qaapi.AgentRank
	if err := json.Unmarshal([]byte(out), &ranking); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ranking) != 2 || ranking[1].AgentID != "9" || ranking[0].Calls.Int() != 12 {
		t.Fatalf("unexpected ranking: %+v", ranking)
	}
}

func TestAgentsDefaultWindow(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "agents"); err != nil {
		t.Fatalf("agents: %v", err)
	}
	queries := env.backend.queries()
	if len(queries) != 1 {
		t.Fatalf("expected one report query, got %v", queries)
	}
	end := time.Now()
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	// The window may straddle midnight between the request and this check.
	if !strings.Contains(queries[0], "end="+end.Format(qaapi.ReportDateLayout)) &&
		!strings.Contains(queries[0], "end="+end.AddDate(0, 0, -1).Format(qaapi.ReportDateLayout)) {
		t.Fatalf("unexpected default end in %q", queries[0])
	}
	if strings.Contains(queries[0], "carteira=") {
		t.Fatalf("unexpected carteira in %q", queries[0])
	}
}

func TestReportFlagsRejectBadDates(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"agents", "--start", "01/02/2025"},
		{"agents", "--start", "2025-02-01", "--end", "2025-01-01"},
		{"agent", "7", "--end", "yesterday"},
		{"kpis", "--start", "2025-13-01"},
	}
	for _, args := range cases {
		if _, _, err := runCLI(t, env, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if n := env.backend.requestCount(); n != 0 {
		t.Fatalf("expected no backend requests, got %d", n)
	}
}

func TestAgentReport(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "agent", "7", "--start", "2025-01-01", "--end", "2025-01-31", "--calls")
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	requireContains(t, out, "Bruna Lima (7)")
	requireContains(t, out, "[OK] 82.5")
	requireContains(t, out, "Finalização Adequada (75.0% não conforme, 3 de 4)")
	requireContains(t, out, "c-88")
	requireContains(t, out, "APROVADA")

	out, _, err = runCLI(t, env, "agent", "7", "--start", "2025-01-01", "--end", "2025-01-31", "--json")
	if err != nil {
		t.Fatalf("agent --json: %v", err)
	}
	var report agentReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.WorstItem == nil || report.WorstItem.Category != "finalizacao_adequada" || report.Calls != nil {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestAgentReportWithoutWorstItem(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.worstItemBody = ""

	out, _, err := runCLI(t, env, "agent", "7", "--start", "2025-01-01", "--end", "2025-01-31")
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	requireContains(t, out, "Worst item:")
	requireContains(t, out, "[INFO] -")
}

func TestAgentReportUnknownAgent(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "agent", "404", "--start", "2025-01-01", "--end", "2025-01-31")
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
	if !strings.Contains(err.Error(), "Agente não encontrado") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKPIsWithTrend(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "kpis", "--start", "2025-01-01", "--end", "2025-01-31", "--trend")
	if err != nil {
		t.Fatalf("kpis: %v", err)
	}
	requireContains(t, out, "Indicadores")
	requireContains(t, out, "[OK] 74.3")
	requireContains(t, out, "16")
	requireContains(t, out, "2025-01-21")
	requireContains(t, out, "78.5")
	if n := len(env.backend.queries()); n != 2 {
		t.Fatalf("expected kpis and trend requests, got %d", n)
	}
}

func TestSuggestFillsWorstCriterion(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "suggest", "--agent-id", "7", "--agent-name", "Bruna Lima",
		"--start", "2025-01-01", "--end", "2025-01-31")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	requireContains(t, out, "Plano de melhoria")
	requireContains(t, out, "1. Revisar o roteiro")

	sent := env.backend.suggestionRequest()
	worst, ok := sent["worstCriterion"].(map[string]any)
	if !ok {
		t.Fatalf("missing worstCriterion in %v", sent)
	}
	if worst["categoria"] != "finalizacao_adequada" || worst["taxa_nao_conforme"] != 0.75 {
		t.Fatalf("unexpected worstCriterion: %v", worst)
	}
}

func TestSuggestExplicitCriterionSkipsLookup(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "suggest", "--agent-id", "7", "--criterion", "empatia", "--rate", "0.4"); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if n := len(env.backend.queries()); n != 0 {
		t.Fatalf("expected no worst item lookup, got %d report requests", n)
	}
	worst, _ := env.backend.suggestionRequest()["worstCriterion"].(map[string]any)
	if worst["categoria"] != "empatia" {
		t.Fatalf("unexpected worstCriterion: %v", worst)
	}
}

func TestSuggestWithoutWorstItemAsksForCriterion(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.worstItemBody = ""

	_, _, err := runCLI(t, env, "suggest", "--agent-id", "7")
	if err == nil || !strings.Contains(err.Error(), "--criterion") {
		t.Fatalf("expected --criterion hint, got %v", err)
	}
	if env.backend.suggestionRequest() != nil {
		t.Fatal("suggestion should not be requested")
	}
}
