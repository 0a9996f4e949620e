package qaapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"callqa/internal/logging"
)

// ErrSuggestionUnavailable is returned when the suggestion service fails for
// any reason. The underlying cause is wrapped.
var ErrSuggestionUnavailable = errors.New("ai suggestion service unavailable")

// SuggestionFailureMessage is the user-facing text for ErrSuggestionUnavailable.
const SuggestionFailureMessage = "Não foi possível gerar sugestões de IA. Verifique se o backend está rodando."

// Suggestion defaults applied when the service omits a field.
const (
	DefaultSuggestionTitle       = "Sugestão de Melhoria"
	DefaultSuggestionSummary     = "Análise baseada nos dados de performance"
	DefaultExpectedImprovement   = "Melhoria esperada baseada na análise"
	DefaultSuggestionPriority    = "medium"
	DefaultSuggestionTimeToApply = "2-4 semanas"
)

// WorstCriterion identifies the criterion an agent fails most often.
type WorstCriterion struct {
	Category        string  `json:"categoria"`
	NonConformRatio float64 `json:"taxa_nao_conforme"`
}

// SuggestionRequest asks for a coaching suggestion for one agent.
type SuggestionRequest struct {
	AgentName         string         `json:"agentName"`
	AgentID           string         `json:"agentId"`
	WorstCriterion    WorstCriterion `json:"worstCriterion"`
	RecentPerformance []any          `json:"recentPerformance,omitempty"`
	Timestamp         string         `json:"timestamp"`
}

// Suggestion is a normalized coaching suggestion.
type Suggestion struct {
	Title               string   `json:"title"`
	Summary             string   `json:"summary"`
	SpecificActions     []string `json:"specificActions"`
	ExpectedImprovement string   `json:"expectedImprovement"`
	Priority            string   `json:"priority"`
	TimeToImplement     string   `json:"timeToImplement"`
}

func (s *Suggestion) normalize() {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = DefaultSuggestionTitle
	}
	if strings.TrimSpace(s.Summary) == "" {
		s.Summary = DefaultSuggestionSummary
	}
	if s.SpecificActions == nil {
		s.SpecificActions = []string{}
	}
	if strings.TrimSpace(s.ExpectedImprovement) == "" {
		s.ExpectedImprovement = DefaultExpectedImprovement
	}
	switch strings.ToLower(strings.TrimSpace(s.Priority)) {
	case "high", "medium", "low":
		s.Priority = strings.ToLower(strings.TrimSpace(s.Priority))
	default:
		s.Priority = DefaultSuggestionPriority
	}
	if strings.TrimSpace(s.TimeToImplement) == "" {
		s.TimeToImplement = DefaultSuggestionTimeToApply
	}
}

// GenerateSuggestion requests an AI coaching suggestion. Every failure is
// reported as ErrSuggestionUnavailable.
func (c *Client) GenerateSuggestion(ctx context.Context, req SuggestionRequest) (Suggestion, error) {
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	var out Suggestion
	if err := c.postJSON(ctx, "/api/ai/suggestions", "generate suggestion", false, req, &out); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "suggestion request failed", "suggestion_failed",
			logging.String(logging.FieldErrorHint, "check that the backend AI service is running"),
			logging.String(logging.FieldImpact, "no coaching suggestion generated"),
			logging.Error(err),
		)
		return Suggestion{}, fmt.Errorf("%w: %w", ErrSuggestionUnavailable, err)
	}
	out.normalize()
	return out, nil
}

// AIHealth reports whether the AI service answers its health probe.
func (c *Client) AIHealth(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/ai/health", nil, false)
	if err != nil {
		return false
	}
	return c.send(req, "ai health", nil) == nil
}
