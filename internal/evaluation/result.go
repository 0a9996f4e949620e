package evaluation

import (
	"math"
	"strings"
)

// PassThreshold is the minimum percentage for an approved evaluation.
const PassThreshold = 70.0

// DefaultEvaluator is reported when the backend omits the evaluator.
const DefaultEvaluator = "IA"

// Verdict is the overall outcome of an evaluation.
type Verdict string

const (
	VerdictApproved Verdict = "APROVADA"
	VerdictRejected Verdict = "REPROVADA"
)

// Item is the canonical per-criterion outcome. Both backend shapes (automatic
// evaluation items and stored call items) normalize into it.
type Item struct {
	CriterionID string  `json:"criterion_id,omitempty"`
	Key         string  `json:"key,omitempty"`
	Name        string  `json:"name"`
	Status      Status  `json:"status"`
	RawStatus   string  `json:"raw_status,omitempty"`
	Note        string  `json:"note,omitempty"`
	Weight      float64 `json:"weight"`
}

// NewItem builds a canonical item from loosely typed backend fields. The key
// is the technical criterion name; Name is its display form.
func NewItem(criterionID, key, rawStatus, note string, weight float64) Item {
	key = strings.TrimSpace(key)
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	return Item{
		CriterionID: strings.TrimSpace(criterionID),
		Key:         key,
		Name:        DisplayName(key),
		Status:      ParseStatus(rawStatus),
		RawStatus:   strings.TrimSpace(rawStatus),
		Note:        strings.TrimSpace(note),
		Weight:      weight,
	}
}

// Result is the read-only evaluation of one call.
type Result struct {
	CallID          string  `json:"call_id,omitempty"`
	Evaluator       string  `json:"evaluator"`
	CriticalFailure bool    `json:"critical_failure"`
	Items           []Item  `json:"items"`
	TotalScore      float64 `json:"total_score"`
	Percentage      float64 `json:"percentage"`
	Verdict         Verdict `json:"verdict"`
	ProcessingError string  `json:"processing_error,omitempty"`
}

// Passed reports whether the evaluation meets the pass threshold. A critical
// failure always fails.
func (r Result) Passed() bool {
	if r.CriticalFailure {
		return false
	}
	return r.Percentage >= PassThreshold
}

// Normalize fills defaults: evaluator, non-nil items, a clamped percentage,
// and a verdict derived from the threshold when the backend sent none.
func (r *Result) Normalize() {
	r.Evaluator = strings.TrimSpace(r.Evaluator)
	if r.Evaluator == "" {
		r.Evaluator = DefaultEvaluator
	}
	if r.Items == nil {
		r.Items = []Item{}
	}
	if math.IsNaN(r.Percentage) || r.Percentage < 0 {
		r.Percentage = 0
	}
	if r.Percentage > 100 {
		r.Percentage = 100
	}
	switch Verdict(strings.ToUpper(strings.TrimSpace(string(r.Verdict)))) {
	case VerdictApproved:
		r.Verdict = VerdictApproved
	case VerdictRejected:
		r.Verdict = VerdictRejected
	default:
		if r.Passed() {
			r.Verdict = VerdictApproved
		} else {
			r.Verdict = VerdictRejected
		}
	}
}

// Percentage computes the weighted conformity of the applicable items. Items
// without weight count as weight 1. It returns 0 when nothing is applicable.
func Percentage(items []Item) float64 {
	var earned, possible float64
	for _, item := range items {
		if !item.Status.Applicable() {
			continue
		}
		w := item.Weight
		if w == 0 {
			w = 1
		}
		possible += w
		if item.Status == StatusConforme {
			earned += w
		}
	}
	if possible == 0 {
		return 0
	}
	return math.Round(earned/possible*1000) / 10
}

// Tally counts items by status.
type Tally struct {
	Conforme    int `json:"conforme"`
	NaoConforme int `json:"nao_conforme"`
	NaoSeAplica int `json:"nao_se_aplica"`
	Other       int `json:"other"`
}

// Count tallies the items of a result.
func Count(items []Item) Tally {
	var t Tally
	for _, item := range items {
		switch item.Status {
		case StatusConforme:
			t.Conforme++
		case StatusNaoConforme:
			t.NaoConforme++
		case StatusNaoSeAplica:
			t.NaoSeAplica++
		default:
			t.Other++
		}
	}
	return t
}
