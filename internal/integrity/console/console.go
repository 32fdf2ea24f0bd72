// Package console is the staff-facing view over recent integrity events. It
// polls the backend on a fixed interval, ranks what it receives by severity,
// and publishes snapshots to renderers. Poll failures never surface as
// errors; the last good data stays on screen and is marked stale.
package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"examguard/internal/integrity/metrics"
	"examguard/internal/integrity/models"
)

const DefaultInterval = 5000 * time.Millisecond

// Status is the load state of the console.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	default:
		return "ready"
	}
}

// Snapshot is what a renderer draws.
type Snapshot struct {
	Status Status
	Events []models.EventView
	Live   bool
	// Stale is set when the most recent poll failed.
	Stale         bool
	LastFetchedAt time.Time
	// Fresh holds events that were not in the previous snapshot, excluding
	// PROCTORING_STARTED. It is empty on the first successful load.
	Fresh []models.EventView
}

// Console polls one set of exams.
type Console struct {
	fetcher  Fetcher
	examIDs  []string
	interval time.Duration
	limit    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu     sync.Mutex
	snap   Snapshot
	seen   map[string]struct{}
	loaded bool
	nextID int
	subs   map[int]func(Snapshot)

	wake chan struct{}
}

type Option func(*Console)

func WithInterval(d time.Duration) Option {
	return func(c *Console) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLimit bounds the number of ranked rows kept.
func WithLimit(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.limit = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Console) {
		c.metrics = m
	}
}

func WithNow(now func() time.Time) Option {
	return func(c *Console) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a live console for examIDs. With no exam ids the console is
// Empty from the start and never fetches.
func New(fetcher Fetcher, examIDs []string, opts ...Option) *Console {
	c := &Console{
		fetcher:  fetcher,
		examIDs:  append([]string(nil), examIDs...),
		interval: DefaultInterval,
		limit:    DefaultLimit,
		logger:   slog.Default(),
		now:      time.Now,
		snap:     Snapshot{Status: StatusLoading, Live: true},
		seen:     make(map[string]struct{}),
		subs:     make(map[int]func(Snapshot)),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.examIDs) == 0 {
		c.snap.Status = StatusEmpty
	}
	return c
}

// Run polls immediately and then every interval while live, until ctx ends.
// A console paused before Run stays quiet until Resume.
func (c *Console) Run(ctx context.Context) error {
	if len(c.examIDs) == 0 {
		c.publish()
		<-ctx.Done()
		return nil
	}

	if c.Live() {
		// a Resume queued before Run is covered by this poll
		select {
		case <-c.wake:
		default:
		}
		c.poll(ctx)
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.Live() {
				c.poll(ctx)
			}
		case <-c.wake:
			c.poll(ctx)
		case <-ctx.Done():
			c.logger.Debug("integrity_console_stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Pause stops issuing polls; displayed data is kept.
func (c *Console) Pause() {
	c.setLive(false)
}

// Resume re-enables polling and triggers an immediate fetch.
func (c *Console) Resume() {
	if c.setLive(true) && len(c.examIDs) > 0 {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// Toggle flips between live and paused and reports the new live state.
func (c *Console) Toggle() bool {
	if c.Live() {
		c.Pause()
		return false
	}
	c.Resume()
	return true
}

func (c *Console) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Live
}

// Snapshot returns the current view.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Subscribe registers fn for every published snapshot and returns a
// function that removes it.
func (c *Console) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// setLive reports whether the state changed.
func (c *Console) setLive(live bool) bool {
	c.mu.Lock()
	if c.snap.Live == live {
		c.mu.Unlock()
		return false
	}
	c.snap.Live = live
	c.snap.Fresh = nil
	c.mu.Unlock()

	c.logger.Info("integrity_console_live_toggled", "live", live)
	c.publish()
	return true
}

func (c *Console) poll(ctx context.Context) {
	events, err := c.fetcher.FetchRecent(ctx, c.examIDs)
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if err != nil {
		c.snap.Stale = true
		c.snap.Fresh = nil
		if c.snap.Status == StatusLoading {
			c.snap.Status = StatusEmpty
		}
		c.mu.Unlock()

		c.logger.Warn("integrity_console_poll_failed", "error", err, "exam_count", len(c.examIDs))
		c.metrics.IncrementConsolePoll("failed")
		c.publish()
		return
	}

	ranked := Rank(events, c.limit)
	seen := make(map[string]struct{}, len(ranked))
	var fresh []models.EventView
	for _, ev := range ranked {
		k := key(ev)
		seen[k] = struct{}{}
		if _, ok := c.seen[k]; !ok && c.loaded && ev.Type != models.EventProctoringStarted {
			fresh = append(fresh, ev)
		}
	}
	c.seen = seen
	c.loaded = true
	c.snap.Events = ranked
	c.snap.Fresh = fresh
	c.snap.Stale = false
	c.snap.LastFetchedAt = c.now()
	if len(ranked) == 0 {
		c.snap.Status = StatusEmpty
	} else {
		c.snap.Status = StatusReady
	}
	c.mu.Unlock()

	c.metrics.IncrementConsolePoll("ok")
	c.publish()
}

func (c *Console) publish() {
	c.mu.Lock()
	snap := c.copyLocked()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (c *Console) copyLocked() Snapshot {
	s := c.snap
	s.Events = append([]models.EventView(nil), c.snap.Events...)
	s.Fresh = append([]models.EventView(nil), c.snap.Fresh...)
	return s
}

func key(ev models.EventView) string {
	if ev.ID != "" {
		return ev.ID
	}
	return ev.ExamID + "|" + ev.StudentID + "|" + string(ev.Type) + "|" + ev.OccurredAt.String()
}
