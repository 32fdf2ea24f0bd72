// Package reporter delivers integrity events from the exam client to the
// collection endpoint. Delivery never blocks or fails the caller: each event
// is attempted once on its own goroutine and failures are logged and counted.
package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"examguard/internal/integrity/metrics"
	"examguard/internal/integrity/models"
	"examguard/internal/platform/tracer"
	"examguard/pkg/platform/circuit"
)

const DefaultSendTimeout = 5 * time.Second

// Deliverer performs one synchronous delivery attempt.
type Deliverer interface {
	Report(ctx context.Context, ev models.Event) error
}

// Async wraps a Deliverer with fire-and-forget semantics.
type Async struct {
	inner   Deliverer
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	health  *circuit.Breaker
	now     func() time.Time
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures Async.
type Option func(*Async)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Async) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Async) {
		a.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(a *Async) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithSendTimeout bounds each delivery attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithDegradedAfter sets the consecutive failures after which delivery is
// logged as degraded.
func WithDegradedAfter(n int) Option {
	return func(a *Async) {
		a.health = circuit.New("integrity-reporter", circuit.WithFailureThreshold(n))
	}
}

// WithNow sets the clock used to stamp OccurredAt.
func WithNow(now func() time.Time) Option {
	return func(a *Async) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAsync(inner Deliverer, opts ...Option) *Async {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		inner:   inner,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		health:  circuit.New("integrity-reporter"),
		now:     time.Now,
		timeout: DefaultSendTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send schedules one delivery attempt for ev and returns immediately.
// OccurredAt is stamped here when the caller left it zero.
func (a *Async) Send(ev models.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = a.now()
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Warn("integrity_event_dropped",
			"reason", "reporter closed",
			"exam_id", ev.ExamID,
			"event_type", string(ev.Type),
		)
		a.metrics.IncrementDelivery(string(ev.Type), "dropped")
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go a.deliver(ev)
}

func (a *Async) deliver(ev models.Event) {
	defer a.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			a.failed(ev, fmt.Errorf("panic during delivery: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, tracer.SpanReportEvent,
		tracer.String(tracer.AttrExamID, ev.ExamID),
		tracer.String(tracer.AttrEventType, string(ev.Type)),
	)
	err := a.inner.Report(ctx, ev)
	span.End(err)

	if err != nil {
		a.failed(ev, err)
		return
	}
	a.metrics.IncrementDelivery(string(ev.Type), "ok")
	if t := a.health.RecordSuccess(); t.Closed {
		a.logger.Info("integrity_reporting_restored")
	}
}

func (a *Async) failed(ev models.Event, err error) {
	a.logger.Warn("integrity_event_delivery_failed",
		"error", err,
		"exam_id", ev.ExamID,
		"student_id", ev.StudentID,
		"event_type", string(ev.Type),
	)
	a.metrics.IncrementDelivery(string(ev.Type), "failed")
	if t := a.health.RecordFailure(); t.Opened {
		a.logger.Error("integrity_reporting_degraded",
			"consecutive_failures", a.health.Failures(),
		)
	}
}

// Close stops accepting events and waits for in-flight deliveries. If ctx
// ends first, outstanding deliveries are cancelled and ctx.Err is returned.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.cancel()
		return nil
	case <-ctx.Done():
		a.cancel()
		return ctx.Err()
	}
}
