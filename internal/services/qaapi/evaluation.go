package qaapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"callqa/internal/evaluation"
	"callqa/internal/services"
)

// EvaluationRequest asks the backend to score a transcript against the
// criteria of a carteira.
type EvaluationRequest struct {
	Transcricao string `json:"transcricao"`
	CarteiraID  int    `json:"carteira_id"`
	CallID      string `json:"call_id,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
}

type evaluationPayload struct {
	CallID          FlexibleID `json:"id_chamada"`
	Evaluator       string     `json:"avaliador"`
	CriticalFailure bool       `json:"falha_critica"`
	Items           []wireItem `json:"itens"`
	TotalScore      float64    `json:"pontuacao_total"`
	Percentage      *float64   `json:"pontuacao_percentual"`
	Verdict         string     `json:"status_avaliacao"`
	ProcessingError string     `json:"erro_processamento"`
}

// wireItem accepts both item shapes: automatic evaluation items
// (criterio_nome/status/observacao/peso) and stored call items
// (categoria/resultado/descricao).
type wireItem struct {
	CriterionID FlexibleID  `json:"criterio_id"`
	Name        string      `json:"criterio_nome"`
	Category    string      `json:"categoria"`
	Status      string      `json:"status"`
	Result      string      `json:"resultado"`
	Note        string      `json:"observacao"`
	Description string      `json:"descricao"`
	Weight      json.Number `json:"peso"`
}

func (w wireItem) canonical() evaluation.Item {
	key := firstNonEmpty(w.Name, w.Category)
	status := firstNonEmpty(w.Status, w.Result)
	note := firstNonEmpty(w.Note, w.Description)
	weight, _ := strconv.ParseFloat(w.Weight.String(), 64)
	return evaluation.NewItem(w.CriterionID.String(), key, status, note, weight)
}

func (p evaluationPayload) result() evaluation.Result {
	items := make([]evaluation.Item, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item.canonical())
	}
	result := evaluation.Result{
		CallID:          p.CallID.String(),
		Evaluator:       p.Evaluator,
		CriticalFailure: p.CriticalFailure,
		Items:           items,
		TotalScore:      p.TotalScore,
		Verdict:         evaluation.Verdict(p.Verdict),
		ProcessingError: strings.TrimSpace(p.ProcessingError),
	}
	if p.Percentage != nil {
		result.Percentage = *p.Percentage
	} else {
		result.Percentage = evaluation.Percentage(items)
	}
	result.Normalize()
	return result
}

// Evaluate requests an automatic evaluation of a transcript.
func (c *Client) Evaluate(ctx context.Context, req EvaluationRequest) (evaluation.Result, error) {
	if strings.TrimSpace(req.Transcricao) == "" {
		return evaluation.Result{}, services.Wrap(services.ErrValidation, "qaapi", "evaluate", "transcript text required", nil)
	}
	if req.CarteiraID <= 0 {
		return evaluation.Result{}, services.Wrap(services.ErrValidation, "qaapi", "evaluate", "carteira id required", nil)
	}
	var payload evaluationPayload
	if err := c.postJSON(ctx, "/api/avaliacao/automatica", "evaluate", true, req, &payload); err != nil {
		return evaluation.Result{}, err
	}
	result := payload.result()
	if result.CallID == "" {
		result.CallID = req.CallID
	}
	return result, nil
}

// CallItems returns the stored per-criterion outcomes of an evaluation.
func (c *Client) CallItems(ctx context.Context, avaliacaoID string) ([]evaluation.Item, error) {
	avaliacaoID = strings.TrimSpace(avaliacaoID)
	if avaliacaoID == "" {
		return nil, services.Wrap(services.ErrValidation, "qaapi", "call items", "evaluation id required", nil)
	}
	var wire []wireItem
	if err := c.getJSON(ctx, "/api/call/"+url.PathEscape(avaliacaoID)+"/items", "call items", true, &wire); err != nil {
		return nil, err
	}
	items := make([]evaluation.Item, 0, len(wire))
	for _, item := range wire {
		items = append(items, item.canonical())
	}
	return items, nil
}

// StoredTranscript is the stored plain-text transcript of a call.
type StoredTranscript struct {
	Content  string `json:"conteudo"`
	CallerID string `json:"callerid"`
}

// CallTranscript fetches the stored transcript of an evaluated call.
func (c *Client) CallTranscript(ctx context.Context, avaliacaoID string) (StoredTranscript, error) {
	avaliacaoID = strings.TrimSpace(avaliacaoID)
	if avaliacaoID == "" {
		return StoredTranscript{}, services.Wrap(services.ErrValidation, "qaapi", "call transcript", "evaluation id required", nil)
	}
	var out StoredTranscript
	if err := c.getJSON(ctx, "/api/call/"+url.PathEscape(avaliacaoID)+"/transcription", "call transcript", true, &out); err != nil {
		return StoredTranscript{}, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
