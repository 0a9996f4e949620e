package qaapi

import (
	"context"
	"net/url"
	"strings"
	"time"

	"callqa/internal/services"
)

// ReportDateLayout is the date format the report endpoints expect.
const ReportDateLayout = "2006-01-02"

// ReportFilter scopes the report endpoints to a call-date window and,
// optionally, one carteira. Both dates are inclusive.
type ReportFilter struct {
	Start    time.Time
	End      time.Time
	Carteira string
}

func (f ReportFilter) query(operation string) (url.Values, error) {
	if f.Start.IsZero() || f.End.IsZero() {
		return nil, services.Wrap(services.ErrValidation, "qaapi", operation, "start and end dates required", nil)
	}
	if f.End.Before(f.Start) {
		return nil, services.Wrap(services.ErrValidation, "qaapi", operation, "end date before start date", nil)
	}
	q := url.Values{}
	q.Set("start", f.Start.Format(ReportDateLayout))
	q.Set("end", f.End.Format(ReportDateLayout))
	if carteira := strings.TrimSpace(f.Carteira); carteira != "" {
		q.Set("carteira", carteira)
	}
	return q, nil
}

// AgentRank is one row of the agent ranking.
type AgentRank struct {
	AgentID FlexibleID     `json:"agent_id"`
	Name    string         `json:"nome"`
	Calls   FlexibleNumber `json:"ligacoes"`
	Average FlexibleNumber `json:"media"`
}

// AgentSummary aggregates an agent's evaluated calls in the window.
type AgentSummary struct {
	AgentID FlexibleID     `json:"agent_id"`
	Name    string         `json:"name"`
	Calls   FlexibleNumber `json:"ligacoes"`
	Average FlexibleNumber `json:"media"`
}

// AgentCall is one evaluated call of an agent.
type AgentCall struct {
	AvaliacaoID FlexibleID     `json:"avaliacao_id"`
	CallID      FlexibleID     `json:"call_id"`
	CallDate    string         `json:"data_ligacao"`
	Score       FlexibleNumber `json:"pontuacao"`
	Verdict     string         `json:"status_avaliacao"`
}

// WorstItem is the criterion an agent failed most often in the window.
// NonConformRatio is a fraction between 0 and 1.
type WorstItem struct {
	Category        string         `json:"categoria"`
	NonConformCount FlexibleNumber `json:"qtd_nao_conforme"`
	Evaluated       FlexibleNumber `json:"total_avaliacoes_item"`
	NonConformRatio FlexibleNumber `json:"taxa_nao_conforme"`
}

// Criterion converts the item into the suggestion request shape.
func (w WorstItem) Criterion() WorstCriterion {
	return WorstCriterion{Category: w.Category, NonConformRatio: w.NonConformRatio.Float()}
}

// CriterionNonConformity is the globally worst criterion reported by KPIs.
// NonConformPct is a percentage between 0 and 100.
type CriterionNonConformity struct {
	Category      string         `json:"categoria"`
	NonConform    FlexibleNumber `json:"nao_conformes"`
	Conform       FlexibleNumber `json:"conformes"`
	NonConformPct FlexibleNumber `json:"pct_nao_conforme"`
}

// KPIs are the headline numbers of the evaluation dashboard.
type KPIs struct {
	AverageScore FlexibleNumber         `json:"media_geral"`
	TotalCalls   FlexibleNumber         `json:"total_ligacoes"`
	WorstItem    CriterionNonConformity `json:"pior_item"`
}

// TrendPoint is the average score of one day.
type TrendPoint struct {
	Day     string         `json:"dia"`
	Average FlexibleNumber `json:"media"`
}

// KPIs returns the global average, call count, and worst criterion.
func (c *Client) KPIs(ctx context.Context, f ReportFilter) (KPIs, error) {
	q, err := f.query("kpis")
	if err != nil {
		return KPIs{}, err
	}
	var out KPIs
	if err := c.getJSONWithQuery(ctx, "/api/kpis", q, "kpis", true, &out); err != nil {
		return KPIs{}, err
	}
	return out, nil
}

// Trend returns the daily average score, oldest day first.
func (c *Client) Trend(ctx context.Context, f ReportFilter) ([]TrendPoint, error) {
	q, err := f.query("trend")
	if err != nil {
		return nil, err
	}
	var out []TrendPoint
	if err := c.getJSONWithQuery(ctx, "/api/trend", q, "trend", true, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []TrendPoint{}
	}
	return out, nil
}

// Agents returns the agent ranking, best average first.
func (c *Client) Agents(ctx context.Context, f ReportFilter) ([]AgentRank, error) {
	q, err := f.query("agents")
	if err != nil {
		return nil, err
	}
	var out []AgentRank
	if err := c.getJSONWithQuery(ctx, "/api/agents", q, "agents", true, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []AgentRank{}
	}
	return out, nil
}

// AgentSummary returns one agent's call count and average. The backend
// answers 404 for an agent with no evaluations in the window.
func (c *Client) AgentSummary(ctx context.Context, agentID string, f ReportFilter) (AgentSummary, error) {
	path, q, err := agentReportRequest(agentID, "summary", f)
	if err != nil {
		return AgentSummary{}, err
	}
	var out AgentSummary
	if err := c.getJSONWithQuery(ctx, path, q, "agent summary", true, &out); err != nil {
		return AgentSummary{}, err
	}
	if out.AgentID.Empty() {
		out.AgentID = FlexibleID(strings.TrimSpace(agentID))
	}
	return out, nil
}

// AgentCalls returns an agent's evaluated calls, newest first.
func (c *Client) AgentCalls(ctx context.Context, agentID string, f ReportFilter) ([]AgentCall, error) {
	path, q, err := agentReportRequest(agentID, "calls", f)
	if err != nil {
		return nil, err
	}
	var out []AgentCall
	if err := c.getJSONWithQuery(ctx, path, q, "agent calls", true, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []AgentCall{}
	}
	return out, nil
}

// AgentWorstItem returns the criterion with the highest non-conformity
// rate for an agent. A 404 means no items were evaluated in the window.
func (c *Client) AgentWorstItem(ctx context.Context, agentID string, f ReportFilter) (WorstItem, error) {
	path, q, err := agentReportRequest(agentID, "worst_item", f)
	if err != nil {
		return WorstItem{}, err
	}
	var out WorstItem
	if err := c.getJSONWithQuery(ctx, path, q, "agent worst item", true, &out); err != nil {
		return WorstItem{}, err
	}
	return out, nil
}

func agentReportRequest(agentID, resource string, f ReportFilter) (string, url.Values, error) {
	operation := "agent " + strings.ReplaceAll(resource, "_", " ")
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return "", nil, services.Wrap(services.ErrValidation, "qaapi", operation, "agent id required", nil)
	}
	q, err := f.query(operation)
	if err != nil {
		return "", nil, err
	}
	return "/api/agent/" + url.PathEscape(agentID) + "/" + resource, q, nil
}
