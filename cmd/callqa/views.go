package main

import (
	"fmt"
	"strconv"
	"strings"

	"callqa/internal/evaluation"
	"callqa/internal/history"
	"callqa/internal/services/qaapi"
	"callqa/internal/transcript"
)

const shortIDLength = 8

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// renderRecord formats one submission as aligned status lines.
func renderRecord(rec history.Record, colorize bool) []string {
	lines := renderSectionHeader(rec.FileName, colorize)
	lines = append(lines, renderStatusLine("Status", submissionKind(rec.Status), statusLabel(rec.Status), colorize))
	if rec.Message != "" {
		lines = append(lines, renderStatusLine("Message", submissionKind(rec.Status), rec.Message, colorize))
	}
	info := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		lines = append(lines, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value))
	}
	info("Submission", rec.LocalID)
	info("Carteira", rec.CarteiraID)
	info("Agent", rec.AgentID)
	info("Size", formatBytes(rec.FileSizeBytes))
	info("File ID", rec.FileID)
	info("Call ID", rec.CallID)
	info("Avaliação", rec.AvaliacaoID)
	if rec.LastKnownStatus != "" && rec.LastKnownStatus != rec.Message {
		info("Backend status", rec.LastKnownStatus)
	}
	if rec.PollAttempts > 0 {
		info("Status checks", strconv.Itoa(rec.PollAttempts))
	}
	info("Updated", formatWhen(rec.UpdatedAt))
	return lines
}

func renderHistoryTable(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			shortID(rec.LocalID),
			rec.FileName,
			formatBytes(rec.FileSizeBytes),
			rec.CarteiraID,
			rec.AgentID,
			string(rec.Status),
			valueOrDash(rec.AvaliacaoID),
			formatWhen(rec.CreatedAt),
		})
	}
	return renderTable(tableSpec{
		headers: []string{"ID", "File", "Size", "Carteira", "Agent", "Status", "Avaliação", "Created"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		maxWide: map[int]int{1: 40},
	})
}

// renderItems formats evaluation items with a conformity footer.
func renderItems(items []evaluation.Item, colorize bool) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		weight := "-"
		if item.Weight > 0 {
			weight = strconv.FormatFloat(item.Weight, 'f', -1, 64)
		}
		rows = append(rows, []string{
			item.Name,
			paint(itemKind(item.Status), item.Status.Label(), colorize),
			weight,
			valueOrDash(item.Note),
		})
	}
	var b strings.Builder
	b.WriteString(renderTable(tableSpec{
		headers: []string{"Critério", "Status", "Peso", "Observação"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		maxWide: map[int]int{0: 40, 3: 60},
	}))
	b.WriteString("\n")
	tally := evaluation.Count(items)
	fmt.Fprintf(&b, "Conformidade: %s (%d conforme, %d não conforme, %d não aplicável)\n",
		formatPercent(evaluation.Percentage(items)), tally.Conforme, tally.NaoConforme, tally.NaoSeAplica)
	return b.String()
}

func renderEvaluation(result evaluation.Result, colorize bool) string {
	var b strings.Builder
	kind := statusError
	if result.Verdict == evaluation.VerdictApproved {
		kind = statusOK
	}
	for _, line := range renderSectionHeader("Avaliação", colorize) {
		b.WriteString(line + "\n")
	}
	b.WriteString(renderStatusLine("Verdict", kind, string(result.Verdict), colorize) + "\n")
	fmt.Fprintf(&b, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Score:", formatPercent(result.Percentage))
	fmt.Fprintf(&b, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Evaluator:", result.Evaluator)
	if result.CallID != "" {
		fmt.Fprintf(&b, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Call ID:", result.CallID)
	}
	if result.CriticalFailure {
		b.WriteString(renderStatusLine("Critical", statusError, "falha crítica", colorize) + "\n")
	}
	if result.ProcessingError != "" {
		b.WriteString(renderStatusLine("Processing", statusWarn, result.ProcessingError, colorize) + "\n")
	}
	if len(result.Items) > 0 {
		b.WriteString("\n")
		b.WriteString(renderItems(result.Items, colorize))
	}
	return b.String()
}

// renderTranscript prints speaker turns, optionally preceded by per-speaker
// word counts.
func renderTranscript(result transcript.Result, withStats bool) string {
	var b strings.Builder
	t := result.Transcription
	fmt.Fprintf(&b, "%s: %d words, %s\n", valueOrDash(result.FileName), result.WordCount, transcript.FormatOffset(result.TotalDuration))
	if withStats {
		stats := t.SpeakerStats()
		rows := make([][]string, 0, len(stats))
		for _, s := range stats {
			rows = append(rows, []string{s.SpeakerID, s.Role.Label(s.SpeakerID), strconv.Itoa(s.WordCount)})
		}
		if len(rows) > 0 {
			b.WriteString(renderTable(tableSpec{
				headers: []string{"Speaker", "Role", "Words"},
				rows:    rows,
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
			}))
			b.WriteString("\n")
		}
	}
	segments := t.Segments()
	if len(segments) == 0 {
		if t.Text != "" {
			b.WriteString(t.Text + "\n")
		}
		return b.String()
	}
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s] %s: %s\n", transcript.FormatOffset(seg.Start), seg.Role.Label(seg.SpeakerID), seg.Text)
	}
	return b.String()
}

func renderCarteiras(carteiras []qaapi.Carteira) string {
	rows := make([][]string, 0, len(carteiras))
	for _, c := range carteiras {
		rows = append(rows, []string{c.ID.String(), c.Name, yesNo(c.Enabled()), valueOrDash(c.Description)})
	}
	return renderTable(tableSpec{
		headers: []string{"ID", "Nome", "Ativa", "Descrição"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		maxWide: map[int]int{3: 60},
	})
}
