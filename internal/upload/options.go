package upload

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Defaults for the polling loop and file checks.
const (
	DefaultPollInterval    = 2500 * time.Millisecond
	DefaultMaxPollAttempts = 480
	DefaultMaxFileBytes    = 50 << 20
)

// Observer receives a snapshot after every state transition. Observers run
// synchronously while transitions are serialized, so they must not call any
// Coordinator method; doing so can deadlock.
type Observer func(Snapshot)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	pollInterval    time.Duration
	maxPollAttempts int
	maxFileBytes    int64
	logger          *slog.Logger
	observers       []Observer
	sleep           Sleeper
	clock           func() time.Time
	newID           func() string
}

func defaultOptions() options {
	return options{
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
		maxFileBytes:    DefaultMaxFileBytes,
		sleep:           sleepContext,
		clock:           func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
}

// WithPollInterval sets the wait between status requests.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPollAttempts bounds the number of status requests before the
// submission times out. Zero polls until a terminal status arrives.
func WithMaxPollAttempts(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPollAttempts = n
		}
	}
}

// WithMaxFileBytes sets the upload size limit. Zero disables it.
func WithMaxFileBytes(n int64) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFileBytes = n
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver registers a transition observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithSleeper replaces the wait used between polls.
func WithSleeper(sleep Sleeper) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator replaces the local submission ID source.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
