package evaluation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is the outcome of a single criterion.
type Status string

const (
	StatusConforme    Status = "conforme"
	StatusNaoConforme Status = "nao_conforme"
	StatusNaoSeAplica Status = "nao_se_aplica"
	StatusOther       Status = "other"
)

// ParseStatus folds accents, case, and separators so "Não Conforme",
// "NAO_CONFORME", and "nao-conforme" all map to StatusNaoConforme. Unknown
// labels map to StatusOther.
func ParseStatus(value string) Status {
	switch foldKey(value) {
	case "conforme", "c", "ok", "sim":
		return StatusConforme
	case "nao conforme", "naoconforme", "nc", "nao":
		return StatusNaoConforme
	case "nao se aplica", "naoseaplica", "na", "n a", "nao aplicavel":
		return StatusNaoSeAplica
	default:
		return StatusOther
	}
}

// Label returns the display label used by the backend.
func (s Status) Label() string {
	switch s {
	case StatusConforme:
		return "Conforme"
	case StatusNaoConforme:
		return "Não Conforme"
	case StatusNaoSeAplica:
		return "Não Aplicável"
	default:
		return "Outro"
	}
}

// Applicable reports whether the criterion counts toward the score.
func (s Status) Applicable() bool {
	return s == StatusConforme || s == StatusNaoConforme
}

// foldKey lowercases, strips combining marks, and collapses separators to a
// single space.
func foldKey(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}
	folded = strings.ToLower(folded)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == '_' || r == '-' || r == '/' || r == '.' || unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
