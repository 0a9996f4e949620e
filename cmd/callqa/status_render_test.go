package main

import (
	"strings"
	"testing"
	"time"

	"callqa/internal/evaluation"
	"callqa/internal/history"
	"callqa/internal/upload"
)

func TestRenderStatusLinePlain(t *testing.T) {
	got := renderStatusLine("Status", statusOK, "completed", false)
	want := "  Status:          [OK] completed"
	if got != want {
		t.Fatalf("renderStatusLine = %q, want %q", got, want)
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatal("plain output must not contain ANSI escapes")
	}
}

func TestRenderStatusLineColorized(t *testing.T) {
	got := renderStatusLine("Status", statusError, "failed", true)
	if !strings.Contains(got, "\x1b[31m") {
		t.Fatalf("expected red escape, got %q", got)
	}
}

func TestSubmissionKind(t *testing.T) {
	tests := map[upload.Status]statusKind{
		upload.StatusCompleted:  statusOK,
		upload.StatusDuplicate:  statusOK,
		upload.StatusFailed:     statusError,
		upload.StatusTimedOut:   statusWarn,
		upload.StatusProcessing: statusInfo,
	}
	for status, want := range tests {
		if got := submissionKind(status); got != want {
			t.Fatalf("submissionKind(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestRenderRecordSkipsEmptyFields(t *testing.T) {
	lines := renderRecord(history.Record{
		LocalID:   "abc",
		FileName:  "call.mp3",
		Status:    upload.StatusFailed,
		Message:   "disk full",
		UpdatedAt: time.Now().Add(-time.Minute),
	}, false)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"== call.mp3 ==", "[ERROR] failed", "disk full", "abc"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "File ID") {
		t.Fatalf("empty file id should be omitted:\n%s", joined)
	}
}

func TestRenderItemsFooter(t *testing.T) {
	items := []evaluation.Item{
		evaluation.NewItem("", "saudacao_padrao", "conforme", "", 2),
		evaluation.NewItem("", "captura_dados", "nao conforme", "faltou CPF", 1),
		evaluation.NewItem("", "gestao_objecoes", "na", "", 1),
	}
	got := renderItems(items, false)
	if !strings.Contains(got, "Conformidade: 66.7% (1 conforme, 1 não conforme, 1 não aplicável)") {
		t.Fatalf("unexpected footer:\n%s", got)
	}
	if !strings.Contains(got, "faltou CPF") {
		t.Fatalf("missing note:\n%s", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("5f1c2d3e-aaaa"); got != "5f1c2d3e" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID short = %q", got)
	}
}
