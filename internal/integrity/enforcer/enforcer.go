// Package enforcer keeps the local camera track of a live proctoring
// connection free of cosmetic processors and reports each removal.
package enforcer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"examguard/internal/integrity/classifier"
	"examguard/internal/integrity/metrics"
	"examguard/internal/integrity/models"
	"examguard/internal/proctoring/media"
)

const DefaultInterval = 5000 * time.Millisecond

// Sender delivers events without blocking and without reporting failure.
type Sender interface {
	Send(ev models.Event)
}

// Enforcer inspects one connection's camera track on a fixed interval.
type Enforcer struct {
	conn      media.Connection
	sender    Sender
	examID    string
	studentID string

	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time

	mu sync.Mutex
	// reported is set once a breach has been sent for the current continuous
	// presence of a processor; it clears when the track is found clean.
	reported bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Enforcer)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enforcer) {
		e.metrics = m
	}
}

func WithInterval(interval time.Duration) Option {
	return func(e *Enforcer) {
		if interval > 0 {
			e.interval = interval
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(e *Enforcer) {
		if now != nil {
			e.now = now
		}
	}
}

func New(conn media.Connection, sender Sender, examID, studentID string, opts ...Option) *Enforcer {
	e := &Enforcer{
		conn:      conn,
		sender:    sender,
		examID:    examID,
		studentID: studentID,
		logger:    slog.Default(),
		interval:  DefaultInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check inspects the track once. It strips an active processor and reports
// a VIDEO_INTEGRITY_BREACH, returning true when an event was sent. Media
// errors are logged and left for the next check.
func (e *Enforcer) Check(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.conn.LocalVideoTrack()
	if err != nil {
		if errors.Is(err, media.ErrTrackNotReady) {
			e.logger.Debug("video_track_not_ready", "exam_id", e.examID)
			return false
		}
		e.logger.Warn("video_track_inspection_failed", "error", err, "exam_id", e.examID)
		return false
	}

	p := track.Processor()
	if p == nil {
		e.reported = false
		return false
	}
	name := p.Name()
	if name == "" {
		name = "unnamed"
	}

	stripErr := track.StopProcessor(ctx)
	if stripErr != nil {
		e.logger.Warn("video_processor_strip_failed",
			"error", stripErr,
			"processor", name,
			"exam_id", e.examID,
			"student_id", e.studentID,
		)
	} else {
		e.metrics.IncrementBreachStripped()
		e.logger.Info("video_processor_stripped",
			"processor", name,
			"exam_id", e.examID,
			"student_id", e.studentID,
		)
	}

	if e.reported {
		if stripErr == nil {
			e.reported = false
		}
		return false
	}

	c, ok := classifier.Classify(classifier.Observation{
		Signal:    classifier.SignalVideo,
		Armed:     true,
		Processor: name,
	})
	if !ok {
		return false
	}
	if stripErr != nil {
		c.Details += "; removal failed, retrying"
		e.reported = true
	} else {
		c.Details += "; processor stopped"
	}
	e.sender.Send(models.Event{
		ExamID:     e.examID,
		StudentID:  e.studentID,
		Type:       c.Type,
		Details:    c.Details,
		OccurredAt: e.now(),
	})
	return true
}

// Start runs one check immediately and then every interval until ctx ends
// or Stop is called. Calling Start while running is a no-op.
func (e *Enforcer) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
}

func (e *Enforcer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	e.Check(ctx)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Check(ctx)
		case <-ctx.Done():
			e.logger.Debug("video_enforcer_stopping", "exam_id", e.examID, "reason", ctx.Err())
			return
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (e *Enforcer) Stop() {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
