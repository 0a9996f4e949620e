package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"callqa/internal/logging"
	"callqa/internal/services"
	"callqa/internal/services/qaapi"
)

// Backend is the part of the backend API the coordinator drives.
type Backend interface {
	UploadAudio(ctx context.Context, req qaapi.UploadRequest) (qaapi.UploadResponse, error)
	UploadStatus(ctx context.Context, fileID string) (qaapi.StatusResponse, error)
}

// Coordinator owns the lifecycle of a single audio submission: selection,
// upload, and the status polling loop that follows an accepted upload.
//
// At most one submission is held at a time. State changes happen on the
// caller goroutine (Select, Upload, Remove) or on the single poll goroutine;
// observers see every transition in order.
type Coordinator struct {
	backend Backend
	opts    options
	logger  *slog.Logger

	mu         sync.Mutex
	sub        *Submission
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	emitMu sync.Mutex
}

// NewCoordinator constructs an idle coordinator.
func NewCoordinator(backend Backend, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator{
		backend: backend,
		opts:    o,
		logger:  logging.NewComponentLogger(o.logger, "upload"),
	}
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Active reports whether a submission blocks a new selection.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil && c.sub.Status.Active()
}

// Select records the routing and file of a new submission. It rejects the
// request without changing state when the selection is incomplete, another
// submission is active, or the file fails the audio checks. A terminal
// submission is replaced.
func (c *Coordinator) Select(sel Selection, file AudioFile) (Snapshot, error) {
	sel = sel.normalized()
	if err := validateSelection(sel); err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.sub != nil && c.sub.Status.Active() {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrSubmissionActive
	}
	if err := c.checkFile(file); err != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, err
	}

	now := c.opts.clock()
	c.generation++
	c.cancel = nil
	c.done = nil
	c.sub = &Submission{
		LocalID:       c.opts.newID(),
		FileName:      file.Name,
		FilePath:      file.Path,
		FileSizeBytes: file.Size,
		ContentType:   file.ContentType,
		CarteiraID:    sel.CarteiraID,
		AgentID:       sel.AgentID,
		Status:        StatusSelected,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.logger.Info("audio selected",
		logging.String(logging.FieldSubmissionID, c.sub.LocalID),
		logging.String("file", file.Name),
		logging.Int64("size_bytes", file.Size),
		logging.String("carteira_id", sel.CarteiraID),
		logging.String("agent_id", sel.AgentID),
	)
	return c.emitAndUnlock(), nil
}

func (c *Coordinator) checkFile(file AudioFile) error {
	if file.Name == "" && file.Path != "" {
		return fmt.Errorf("%w: file name required", ErrUnsupportedAudio)
	}
	if err := validate.Struct(file); err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedAudio, missingFields(err))
	}
	if !file.IsAudio() {
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedAudio, file.Name, file.ContentType)
	}
	if file.Size <= 0 {
		return fmt.Errorf("%w: %s", ErrEmptyAudio, file.Name)
	}
	if c.opts.maxFileBytes > 0 && file.Size > c.opts.maxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, file.Name, file.Size, c.opts.maxFileBytes)
	}
	return nil
}

// Upload posts the selected file. A duplicate response ends the submission
// immediately; an accepted response starts the polling loop and returns
// while it runs. Transport and HTTP failures move the submission to failed
// and are returned.
func (c *Coordinator) Upload(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.sub == nil || c.sub.Status != StatusSelected {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrNothingSelected
	}
	gen := c.generation
	sub := c.sub
	sub.Status = StatusUploading
	sub.Progress = 0
	sub.Message = ""
	sub.UpdatedAt = c.opts.clock()
	req := qaapi.UploadRequest{
		Path:        sub.FilePath,
		FileName:    sub.FileName,
		ContentType: sub.ContentType,
		AgentID:     sub.AgentID,
		CarteiraID:  sub.CarteiraID,
	}
	ctx = services.WithSubmissionID(ctx, sub.LocalID)
	uploadCtx, cancelUpload := context.WithCancel(ctx)
	defer cancelUpload()
	c.cancel = cancelUpload
	c.emitAndUnlock()

	logger := logging.WithContext(ctx, c.logger)
	req.Progress = func(sent, total int64) { c.applyProgress(gen, sent, total) }

	resp, err := c.backend.UploadAudio(uploadCtx, req)

	c.mu.Lock()
	if gen != c.generation || c.sub == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrSubmissionRemoved
	}
	c.cancel = nil
	sub = c.sub
	sub.UpdatedAt = c.opts.clock()

	if err != nil {
		sub.Status = StatusFailed
		sub.Message = qaapi.ErrorMessage(err)
		sub.ErrorKind = services.Kind(err)
		logging.WarnWithContext(logger, "audio upload failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the backend URL, token and file, then retry"),
			logging.String(logging.FieldImpact, "submission marked failed"),
		)
		return c.emitAndUnlock(), err
	}

	sub.Progress = 100
	ref := &RemoteJobReference{
		FileID:          resp.FileID.String(),
		CallID:          resp.CallID.String(),
		AvaliacaoID:     resp.AvaliacaoID.String(),
		LastKnownStatus: resp.Status,
		Duplicate:       resp.Duplicate(),
	}
	sub.Reference = ref

	switch {
	case ref.Duplicate:
		sub.Status = StatusDuplicate
		sub.Message = resp.Message
		logger.Info("audio already evaluated",
			logging.String(logging.FieldAvaliacaoID, ref.AvaliacaoID),
			logging.String("call_id", ref.CallID),
		)
		return c.emitAndUnlock(), nil
	case ref.AvaliacaoID != "":
		sub.Status = StatusCompleted
		logger.Info("evaluation ready", logging.String(logging.FieldAvaliacaoID, ref.AvaliacaoID))
		return c.emitAndUnlock(), nil
	}

	sub.Status = StatusProcessing
	sub.Message = resp.Status
	pollCtx, cancel := context.WithCancel(services.WithFileID(context.WithoutCancel(ctx), ref.FileID))
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	fileID := ref.FileID
	logger.Info("audio accepted, polling for evaluation",
		logging.String(logging.FieldFileID, fileID),
		logging.Duration("interval", c.opts.pollInterval),
		logging.Int("max_attempts", c.opts.maxPollAttempts),
	)
	snap := c.emitAndUnlock()

	go c.poll(pollCtx, cancel, gen, fileID, done)
	return snap, nil
}

func (c *Coordinator) applyProgress(gen uint64, sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct > 100 {
		pct = 100
	}
	c.mu.Lock()
	if gen != c.generation || c.sub == nil || c.sub.Status != StatusUploading || pct <= c.sub.Progress {
		c.mu.Unlock()
		return
	}
	c.sub.Progress = pct
	c.sub.UpdatedAt = c.opts.clock()
	c.emitAndUnlock()
}

// poll waits one interval before each status request, so at most one request
// is in flight. It exits on a terminal outcome, on cancellation, or when the
// submission it was started for is gone.
func (c *Coordinator) poll(ctx context.Context, cancel context.CancelFunc, gen uint64, fileID string, done chan struct{}) {
	defer close(done)
	defer cancel()
	logger := logging.WithContext(ctx, c.logger)

	for attempt := 1; ; attempt++ {
		if err := c.opts.sleep(ctx, c.opts.pollInterval); err != nil {
			return
		}
		resp, err := c.backend.UploadStatus(ctx, fileID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.WarnWithContext(logger, "status poll failed", "poll_failed",
				logging.Error(err),
				logging.Int("attempt", attempt),
				logging.String(logging.FieldErrorHint, "transient; polling continues"),
				logging.String(logging.FieldImpact, "status update delayed"),
			)
		}
		if c.applyPoll(gen, attempt, resp, err, logger) {
			return
		}
	}
}

// applyPoll folds one poll outcome into the state and reports whether the
// loop should stop.
func (c *Coordinator) applyPoll(gen uint64, attempt int, resp qaapi.StatusResponse, pollErr error, logger *slog.Logger) bool {
	c.mu.Lock()
	if gen != c.generation || c.sub == nil || c.sub.Status != StatusProcessing {
		c.mu.Unlock()
		return true
	}
	sub := c.sub
	sub.PollAttempts = attempt
	sub.UpdatedAt = c.opts.clock()

	finished := false
	if pollErr == nil {
		if !resp.CallID.Empty() {
			sub.Reference.CallID = resp.CallID.String()
		}
		if resp.Status != "" {
			sub.Reference.LastKnownStatus = resp.Status
		}
		switch {
		case !resp.AvaliacaoID.Empty():
			sub.Reference.AvaliacaoID = resp.AvaliacaoID.String()
			sub.Status = StatusCompleted
			sub.Message = resp.Status
			finished = true
			logger.Info("evaluation ready",
				logging.String(logging.FieldAvaliacaoID, sub.Reference.AvaliacaoID),
				logging.Int("attempts", attempt),
			)
		case resp.Failed():
			sub.Status = StatusFailed
			sub.Message = resp.ErrorMsg
			if sub.Message == "" {
				sub.Message = ProcessingFailedMessage
			}
			sub.ErrorKind = services.Kind(services.ErrRemoteFailure)
			finished = true
			logging.WarnWithContext(logger, "backend reported processing failure", "processing_failed",
				logging.String("error_msg", sub.Message),
				logging.String(logging.FieldErrorHint, "inspect the backend logs for this file"),
				logging.String(logging.FieldImpact, "no evaluation produced"),
			)
		default:
			sub.Message = resp.Status
			logger.Debug("still processing", logging.String("status", resp.Status), logging.Int("attempt", attempt))
		}
	}

	if !finished && c.opts.maxPollAttempts > 0 && attempt >= c.opts.maxPollAttempts {
		sub.Status = StatusTimedOut
		sub.Message = TimedOutMessage
		sub.ErrorKind = services.Kind(services.ErrTimeout)
		finished = true
		logging.WarnWithContext(logger, "gave up polling", "poll_timeout",
			logging.Int("attempts", attempt),
			logging.String(logging.FieldErrorHint, "check the evaluation later with 'callqa status'"),
			logging.String(logging.FieldImpact, "submission marked timed out"),
		)
	}
	if finished {
		c.cancel = nil
	}
	c.emitAndUnlock()
	return finished
}

// Wait blocks until the polling loop ends or ctx is done and returns the
// resulting state. Failed and timed-out submissions yield a classified error.
func (c *Coordinator) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	snap := c.Snapshot()
	return snap, snap.Err()
}

// Remove discards the submission from any state and returns to idle. A
// running poll loop is cancelled and has exited when Remove returns; late
// responses are ignored. Calling Remove while idle is a no-op.
func (c *Coordinator) Remove() {
	c.mu.Lock()
	if c.sub == nil && c.cancel == nil && c.done == nil {
		c.mu.Unlock()
		return
	}
	c.generation++
	cancel, done := c.cancel, c.done
	removed := ""
	if c.sub != nil {
		removed = c.sub.LocalID
	}
	c.sub = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.logger.Info("submission removed", logging.String(logging.FieldSubmissionID, removed))

	c.mu.Lock()
	c.emitAndUnlock()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	if c.sub == nil {
		return Snapshot{Submission: Submission{Status: StatusIdle}}
	}
	return Snapshot{Submission: c.sub.clone()}
}

// emitAndUnlock captures a snapshot, releases c.mu and delivers the snapshot
// to observers. emitMu is taken before c.mu is released so deliveries keep
// transition order.
func (c *Coordinator) emitAndUnlock() Snapshot {
	snap := c.snapshotLocked()
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()
	for _, observer := range c.opts.observers {
		c.notify(observer, snap)
	}
	return snap
}

func (c *Coordinator) notify(observer Observer, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(c.logger, "observer panicked", "observer_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldSubmissionID, snap.LocalID),
			)
		}
	}()
	observer(snap)
}

// IsLocalRejection reports whether err came from a local check rather than
// the backend.
func IsLocalRejection(err error) bool {
	return errors.Is(err, services.ErrValidation)
}
