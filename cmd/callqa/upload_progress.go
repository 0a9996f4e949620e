package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"callqa/internal/upload"
)

// uploadProgress renders coordinator snapshots on stderr: a progress bar
// while bytes are sent, then one line per status or message change.
type uploadProgress struct {
	mu          sync.Mutex
	out         io.Writer
	name        string
	enabled     bool
	colorize    bool
	bar         *progressbar.ProgressBar
	lastStatus  upload.Status
	lastMessage string
}

func newUploadProgress(out io.Writer, name string, enabled, colorize bool) *uploadProgress {
	return &uploadProgress{out: out, name: name, enabled: enabled, colorize: colorize}
}

func (p *uploadProgress) observe(snap upload.Snapshot) {
	if p == nil || !p.enabled || snap.Idle() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Status == upload.StatusUploading {
		if p.bar == nil {
			p.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(p.out),
				progressbar.OptionSetDescription(p.name),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionThrottle(50*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = p.bar.Set(snap.Progress)
	} else {
		p.closeBarLocked()
	}

	if snap.Status == p.lastStatus && snap.Message == p.lastMessage {
		return
	}
	p.lastStatus, p.lastMessage = snap.Status, snap.Message
	if snap.Status == upload.StatusUploading || snap.Status == upload.StatusSelected {
		return
	}
	detail := statusLabel(snap.Status)
	if snap.Message != "" && snap.Status == upload.StatusProcessing {
		detail = fmt.Sprintf("%s (%s)", detail, snap.Message)
	}
	if snap.PollAttempts > 0 && snap.Status == upload.StatusProcessing {
		detail = fmt.Sprintf("%s, check %d", detail, snap.PollAttempts)
	}
	fmt.Fprintln(p.out, renderStatusLine("Submission", submissionKind(snap.Status), detail, p.colorize))
}

func (p *uploadProgress) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeBarLocked()
}

func (p *uploadProgress) closeBarLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
