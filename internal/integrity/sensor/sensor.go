// Package sensor owns integrity monitoring for one exam attempt. It watches
// browser-level conditions while armed, classifies transitions, and hands the
// resulting events to a non-blocking Sender.
package sensor

import (
	"log/slog"
	"sync"
	"time"

	"examguard/internal/integrity/classifier"
	"examguard/internal/integrity/models"
)

const (
	DefaultThrottle        = 2000 * time.Millisecond
	DefaultWarningCooldown = 5 * time.Second

	FocusWarning = "Leaving the exam window is recorded and reported to your proctor."
)

// Sender delivers events without blocking and without reporting failure.
// Send is called with the sensor's lock held and must not call back into it.
type Sender interface {
	Send(ev models.Event)
}

// Warner shows the deterrent notice to the student.
type Warner interface {
	Warn(message string)
}

// WarnerFunc adapts a function into a Warner.
type WarnerFunc func(message string)

func (f WarnerFunc) Warn(message string) { f(message) }

// Sensor is the monitoring scope of one exam attempt. The zero value is not
// usable; construct with New.
type Sensor struct {
	mu sync.Mutex

	sender  Sender
	sources Sources
	warner  Warner
	logger  *slog.Logger
	now     func() time.Time

	throttle     time.Duration
	warnCooldown time.Duration

	session      models.MonitoringSession
	lastWarnedAt time.Time
	visible      bool
	focused      bool
	fullscreen   bool
	detach       []func()
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithExamMode sets whether the attempt requires monitoring. Default true.
func WithExamMode(on bool) Option {
	return func(s *Sensor) {
		s.session.ExamMode = on
	}
}

// WithThrottle sets the minimum spacing between emitted events.
func WithThrottle(d time.Duration) Option {
	return func(s *Sensor) {
		if d > 0 {
			s.throttle = d
		}
	}
}

// WithWarner sets the student-facing warning sink.
func WithWarner(w Warner) Option {
	return func(s *Sensor) {
		if w != nil {
			s.warner = w
		}
	}
}

// WithWarningCooldown sets the minimum spacing between deterrent warnings.
func WithWarningCooldown(d time.Duration) Option {
	return func(s *Sensor) {
		if d > 0 {
			s.warnCooldown = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sensor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNow sets the clock used for throttling and event timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Sensor) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an unarmed Sensor.
func New(sender Sender, sources Sources, opts ...Option) *Sensor {
	s := &Sensor{
		sender:       sender,
		sources:      sources,
		warner:       WarnerFunc(func(string) {}),
		logger:       slog.Default(),
		now:          time.Now,
		throttle:     DefaultThrottle,
		warnCooldown: DefaultWarningCooldown,
		session:      models.MonitoringSession{ExamMode: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm starts observation for the attempt and emits PROCTORING_STARTED.
// It returns false without side effects when already armed or when the
// attempt is not in exam mode.
func (s *Sensor) Arm(examID, studentID string) bool {
	s.mu.Lock()
	if !s.session.ExamMode || s.session.Armed {
		s.mu.Unlock()
		return false
	}
	s.session.ExamID = examID
	s.session.StudentID = studentID
	s.session.Armed = true
	s.session.LastEmittedAt = time.Time{}
	s.lastWarnedAt = time.Time{}

	s.visible = current(s.sources.Visibility, true)
	s.focused = current(s.sources.Focus, true)
	s.fullscreen = current(s.sources.Fullscreen, false)

	s.attach(s.sources.Visibility, s.onVisibility)
	s.attach(s.sources.Focus, s.onFocus)
	s.attach(s.sources.Fullscreen, s.onFullscreen)

	s.sender.Send(s.lifecycleLocked(true))
	s.mu.Unlock()

	s.logger.Info("integrity_monitoring_armed", "exam_id", examID, "student_id", studentID)
	return true
}

// Disarm detaches every listener and emits PROCTORING_STOPPED. It returns
// false when the sensor is not armed.
func (s *Sensor) Disarm() bool {
	s.mu.Lock()
	if !s.session.Armed {
		s.mu.Unlock()
		return false
	}
	for _, fn := range s.detach {
		fn()
	}
	s.detach = nil
	s.sender.Send(s.lifecycleLocked(false))
	s.session.Armed = false
	examID, studentID := s.session.ExamID, s.session.StudentID
	s.mu.Unlock()

	s.logger.Info("integrity_monitoring_disarmed", "exam_id", examID, "student_id", studentID)
	return true
}

// Session returns a snapshot of the monitoring state.
func (s *Sensor) Session() models.MonitoringSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Listeners returns the number of attached condition listeners.
func (s *Sensor) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.detach)
}

func (s *Sensor) attach(src Source, fn func(bool)) {
	if src == nil {
		return
	}
	s.detach = append(s.detach, src.Subscribe(fn))
}

func (s *Sensor) onVisibility(visible bool) {
	s.observe(func() classifier.Observation {
		s.visible = visible
		return s.observationLocked(classifier.SignalVisibility)
	})
}

func (s *Sensor) onFocus(focused bool) {
	s.observe(func() classifier.Observation {
		s.focused = focused
		return s.observationLocked(classifier.SignalFocus)
	})
}

func (s *Sensor) onFullscreen(fullscreen bool) {
	s.observe(func() classifier.Observation {
		o := s.observationLocked(classifier.SignalFullscreen)
		o.WasFullscreen = s.fullscreen
		o.Fullscreen = fullscreen
		s.fullscreen = fullscreen
		return o
	})
}

// observe applies a state change under the lock and emits the resulting
// event, if any. Events are handed to the Sender under the lock so the
// bracketing lifecycle events cannot be overtaken.
func (s *Sensor) observe(update func() classifier.Observation) {
	s.mu.Lock()
	if !s.session.Armed {
		s.mu.Unlock()
		return
	}
	c, ok := classifier.Classify(update())
	if !ok {
		s.mu.Unlock()
		return
	}

	now := s.now()
	warn := c.Type == models.EventFocusLost && s.warningDueLocked(now)

	if !s.session.LastEmittedAt.IsZero() && now.Sub(s.session.LastEmittedAt) < s.throttle {
		s.mu.Unlock()
		s.logger.Debug("integrity_event_throttled", "event_type", string(c.Type))
		if warn {
			s.warner.Warn(FocusWarning)
		}
		return
	}
	s.session.LastEmittedAt = now
	s.sender.Send(s.eventLocked(c, now))
	s.mu.Unlock()

	if warn {
		s.warner.Warn(FocusWarning)
	}
}

func (s *Sensor) warningDueLocked(now time.Time) bool {
	if !s.lastWarnedAt.IsZero() && now.Sub(s.lastWarnedAt) < s.warnCooldown {
		return false
	}
	s.lastWarnedAt = now
	return true
}

func (s *Sensor) observationLocked(signal classifier.Signal) classifier.Observation {
	return classifier.Observation{
		Signal:     signal,
		Armed:      s.session.Armed,
		Visible:    s.visible,
		Focused:    s.focused,
		Fullscreen: s.fullscreen,
	}
}

// lifecycleLocked builds the bracketing event. Lifecycle events bypass the
// throttle and do not advance it.
func (s *Sensor) lifecycleLocked(armed bool) models.Event {
	c, _ := classifier.Classify(classifier.Observation{Signal: classifier.SignalLifecycle, Armed: armed})
	return s.eventLocked(c, s.now())
}

func (s *Sensor) eventLocked(c classifier.Classification, at time.Time) models.Event {
	return models.Event{
		ExamID:     s.session.ExamID,
		StudentID:  s.session.StudentID,
		Type:       c.Type,
		Details:    c.Details,
		OccurredAt: at,
	}
}

func current(src Source, fallback bool) bool {
	if src == nil {
		return fallback
	}
	return src.Current()
}
