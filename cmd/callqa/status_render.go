package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"callqa/internal/evaluation"
	"callqa/internal/upload"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(kind, base, colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func paint(kind statusKind, value string, colorize bool) string {
	if !colorize {
		return value
	}
	var c *color.Color
	switch kind {
	case statusOK:
		c = color.New(color.FgGreen)
	case statusWarn:
		c = color.New(color.FgYellow)
	case statusError:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.FgBlue)
	}
	c.EnableColor()
	return c.Sprint(value)
}

// submissionKind classifies a submission status for display.
func submissionKind(status upload.Status) statusKind {
	switch {
	case status.Succeeded():
		return statusOK
	case status == upload.StatusFailed:
		return statusError
	case status == upload.StatusTimedOut:
		return statusWarn
	default:
		return statusInfo
	}
}

// statusLabel is the short text shown for a submission status.
func statusLabel(status upload.Status) string {
	switch status {
	case upload.StatusSelected:
		return "selected"
	case upload.StatusUploading:
		return "uploading"
	case upload.StatusProcessing:
		return "processing"
	case upload.StatusDuplicate:
		return "duplicate (already evaluated)"
	case upload.StatusCompleted:
		return "completed"
	case upload.StatusFailed:
		return "failed"
	case upload.StatusTimedOut:
		return "timed out (still processing remotely)"
	case upload.StatusIdle:
		return "idle"
	default:
		return string(status)
	}
}

func itemKind(status evaluation.Status) statusKind {
	switch status {
	case evaluation.StatusConforme:
		return statusOK
	case evaluation.StatusNaoConforme:
		return statusError
	case evaluation.StatusNaoSeAplica:
		return statusInfo
	default:
		return statusWarn
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len([]rune(line)))
	return []string{paint(statusInfo, line, colorize), paint(statusInfo, rule, colorize)}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
