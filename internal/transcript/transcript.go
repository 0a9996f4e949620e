package transcript

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// TokenType classifies a diarized token.
type TokenType string

const (
	TokenWord        TokenType = "word"
	TokenSpacing     TokenType = "spacing"
	TokenPunctuation TokenType = "punctuation"
)

// Role is the conversational role attributed to a speaker.
type Role string

const (
	RoleAgent    Role = "agente"
	RoleCustomer Role = "cliente"
	RoleUnknown  Role = "unknown"
)

// ParseRole maps backend role labels onto a Role, defaulting to RoleUnknown.
func ParseRole(value string) Role {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "agente", "agent":
		return RoleAgent
	case "cliente", "customer", "client":
		return RoleCustomer
	default:
		return RoleUnknown
	}
}

// Label returns a display label for the role, falling back to the speaker id.
func (r Role) Label(speakerID string) string {
	switch r {
	case RoleAgent:
		return "Agente"
	case RoleCustomer:
		return "Cliente"
	default:
		if strings.TrimSpace(speakerID) == "" {
			return "Falante"
		}
		return "Falante " + speakerID
	}
}

// Word is a single timed token of the diarized transcript. Start and End are
// offsets in seconds from the beginning of the recording.
type Word struct {
	Text        string    `json:"text"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Type        TokenType `json:"type"`
	SpeakerID   string    `json:"speaker_id"`
	SpeakerRole Role      `json:"speaker_role"`
}

// RoleSummary holds the concatenated text spoken by each role.
type RoleSummary struct {
	AgentText    string `json:"agente_text"`
	CustomerText string `json:"cliente_text"`
	UnknownText  string `json:"unknown_text"`
}

// AccuracyInfo describes the transcription model that produced the result.
type AccuracyInfo struct {
	Model       string `json:"model"`
	Accuracy    string `json:"accuracy"`
	Diarization string `json:"diarization"`
}

// Transcription is the read-only diarized transcript of one recording.
type Transcription struct {
	Text                   string          `json:"text"`
	Words                  []Word          `json:"words"`
	SpeakerClassifications map[string]Role `json:"speaker_classifications"`
	RoleSummary            RoleSummary     `json:"role_summary"`
	AccuracyInfo           *AccuracyInfo   `json:"accuracy_info,omitempty"`
}

// Result is the transcription endpoint response: upload bookkeeping plus the
// transcript itself.
type Result struct {
	Message         string        `json:"mensagem"`
	FileName        string        `json:"arquivo"`
	ChunksProcessed int           `json:"chunks_processados"`
	TotalDuration   float64       `json:"duracao_total"`
	WordCount       int           `json:"palavras"`
	Transcription   Transcription `json:"transcricao"`
}

// Normalize fills defaults on the embedded transcript and derives counters
// the backend omitted.
func (r *Result) Normalize() {
	r.Transcription.Normalize()
	if r.WordCount == 0 {
		for _, w := range r.Transcription.Words {
			if w.Type == TokenWord {
				r.WordCount++
			}
		}
	}
	if r.TotalDuration == 0 {
		r.TotalDuration = r.Transcription.Duration()
	}
}

// Normalize fills defaults so callers never see nil collections or blank
// token metadata.
func (t *Transcription) Normalize() {
	if t.Words == nil {
		t.Words = []Word{}
	}
	if t.SpeakerClassifications == nil {
		t.SpeakerClassifications = map[string]Role{}
	}
	for id, role := range t.SpeakerClassifications {
		t.SpeakerClassifications[id] = ParseRole(string(role))
	}
	for i := range t.Words {
		w := &t.Words[i]
		switch w.Type {
		case TokenWord, TokenSpacing, TokenPunctuation:
		default:
			w.Type = TokenWord
		}
		role := ParseRole(string(w.SpeakerRole))
		if role == RoleUnknown {
			if classified, ok := t.SpeakerClassifications[w.SpeakerID]; ok {
				role = classified
			}
		}
		w.SpeakerRole = role
		if w.End < w.Start {
			w.End = w.Start
		}
	}
	if strings.TrimSpace(t.Text) == "" && len(t.Words) > 0 {
		var b strings.Builder
		for _, w := range t.Words {
			b.WriteString(w.Text)
		}
		t.Text = strings.TrimSpace(b.String())
	}
}

// Segment is a run of consecutive words from the same speaker.
type Segment struct {
	SpeakerID string  `json:"speaker_id"`
	Role      Role    `json:"speaker_role"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	WordCount int     `json:"word_count"`
}

// Segments groups word tokens into speaker turns. A new segment starts
// whenever the speaker changes. Punctuation attaches to the open segment
// without a leading space; spacing tokens are ignored.
func (t Transcription) Segments() []Segment {
	var segments []Segment
	var current *Segment
	var text strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Text = text.String()
		segments = append(segments, *current)
		current = nil
		text.Reset()
	}

	for _, w := range t.Words {
		switch w.Type {
		case TokenPunctuation:
			if current != nil {
				text.WriteString(strings.TrimSpace(w.Text))
			}
			continue
		case TokenSpacing:
			continue
		}

		word := strings.TrimSpace(w.Text)
		if current == nil || current.SpeakerID != w.SpeakerID {
			flush()
			role := w.SpeakerRole
			if role == "" {
				role = RoleUnknown
			}
			current = &Segment{SpeakerID: w.SpeakerID, Role: role, Start: w.Start, End: w.End}
		} else if word != "" {
			text.WriteByte(' ')
		}
		text.WriteString(word)
		current.End = w.End
		current.WordCount++
	}
	flush()
	return segments
}

// SpeakerStat counts the words attributed to one classified speaker.
type SpeakerStat struct {
	SpeakerID string `json:"speaker_id"`
	Role      Role   `json:"role"`
	WordCount int    `json:"word_count"`
}

// SpeakerStats returns word counts per classified speaker, ordered by speaker id.
func (t Transcription) SpeakerStats() []SpeakerStat {
	counts := make(map[string]int, len(t.SpeakerClassifications))
	for _, w := range t.Words {
		if w.Type == TokenWord {
			counts[w.SpeakerID]++
		}
	}
	stats := make([]SpeakerStat, 0, len(t.SpeakerClassifications))
	for id, role := range t.SpeakerClassifications {
		stats = append(stats, SpeakerStat{SpeakerID: id, Role: role, WordCount: counts[id]})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SpeakerID < stats[j].SpeakerID })
	return stats
}

// Duration returns the end offset of the last token in seconds.
func (t Transcription) Duration() float64 {
	var end float64
	for _, w := range t.Words {
		end = math.Max(end, w.End)
	}
	return end
}

// FormatOffset renders a second offset as m:ss.
func FormatOffset(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
