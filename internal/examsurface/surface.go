// Package examsurface hosts integrity monitoring for one exam attempt: it
// arms the sensor, opens live proctoring, and runs the enforcer for as long
// as the attempt is on screen.
package examsurface

import (
	"context"
	"log/slog"
	"strings"

	"examguard/internal/integrity/enforcer"
	"examguard/internal/integrity/metrics"
	"examguard/internal/integrity/models"
	"examguard/internal/integrity/sensor"
	"examguard/internal/proctoring/client"
	"examguard/internal/proctoring/media"
	dErrors "examguard/pkg/domain-errors"
)

// MonitoringUnavailable is shown when live proctoring cannot be established.
const MonitoringUnavailable = "Integrity monitoring unavailable"

// Sender delivers integrity events without blocking.
type Sender interface {
	Send(ev models.Event)
}

// Notifier shows a non-blocking notice to the student.
type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Attempt identifies the exam attempt being hosted.
type Attempt struct {
	ExamID    string
	StudentID string
	ExamMode  bool
}

// Surface wires the integrity components for attempts. One Surface may host
// attempts sequentially.
type Surface struct {
	sender       Sender
	sources      sensor.Sources
	creds        client.CredentialSource
	connector    media.Connector
	notifier     Notifier
	warner       sensor.Warner
	logger       *slog.Logger
	metrics      *metrics.Metrics
	secureOrigin bool
	sensorOpts   []sensor.Option
	enforcerOpts []enforcer.Option
}

type Option func(*Surface)

func WithNotifier(n Notifier) Option {
	return func(s *Surface) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithWarner(w sensor.Warner) Option {
	return func(s *Surface) {
		if w != nil {
			s.warner = w
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Surface) {
		s.metrics = m
	}
}

// WithSecureOrigin upgrades ws:// media addresses to wss://.
func WithSecureOrigin(secure bool) Option {
	return func(s *Surface) {
		s.secureOrigin = secure
	}
}

// WithSensorOptions passes extra options to every sensor the surface builds.
func WithSensorOptions(opts ...sensor.Option) Option {
	return func(s *Surface) {
		s.sensorOpts = append(s.sensorOpts, opts...)
	}
}

// WithEnforcerOptions passes extra options to every enforcer the surface builds.
func WithEnforcerOptions(opts ...enforcer.Option) Option {
	return func(s *Surface) {
		s.enforcerOpts = append(s.enforcerOpts, opts...)
	}
}

func New(sender Sender, sources sensor.Sources, creds client.CredentialSource, connector media.Connector, opts ...Option) *Surface {
	s := &Surface{
		sender:    sender,
		sources:   sources,
		creds:     creds,
		connector: connector,
		notifier:  NotifierFunc(func(string) {}),
		warner:    sensor.WarnerFunc(func(string) {}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run hosts the attempt until ctx ends. Attempts outside exam mode return
// immediately without observing anything. Proctoring failures degrade to
// a notice; sensing continues regardless. Teardown runs on every exit path.
func (s *Surface) Run(ctx context.Context, a Attempt) error {
	if !a.ExamMode {
		s.logger.Debug("exam_surface_inert", "exam_id", a.ExamID)
		return nil
	}
	a.ExamID = strings.TrimSpace(a.ExamID)
	a.StudentID = strings.TrimSpace(a.StudentID)
	if a.ExamID == "" || a.StudentID == "" {
		return dErrors.New(dErrors.CodeValidation, "exam_id and student_id are required")
	}

	opts := append([]sensor.Option{
		sensor.WithExamMode(true),
		sensor.WithLogger(s.logger),
		sensor.WithWarner(s.warner),
	}, s.sensorOpts...)
	sen := sensor.New(s.sender, s.sources, opts...)
	sen.Arm(a.ExamID, a.StudentID)
	defer sen.Disarm()

	sess, err := client.Establish(ctx, s.creds, s.connector, client.EstablishOptions{
		ExamID:       a.ExamID,
		StudentID:    a.StudentID,
		SecureOrigin: s.secureOrigin,
		Logger:       s.logger,
	})
	if err != nil {
		s.notifier.Notify(MonitoringUnavailable)
	} else {
		defer func() {
			if err := sess.Close(); err != nil {
				s.logger.Warn("proctoring_close_failed", "exam_id", a.ExamID, "error", err)
			}
		}()

		eopts := append([]enforcer.Option{
			enforcer.WithLogger(s.logger),
			enforcer.WithMetrics(s.metrics),
		}, s.enforcerOpts...)
		enf := enforcer.New(sess.Connection, s.sender, a.ExamID, a.StudentID, eopts...)
		enf.Start(ctx)
		defer enf.Stop()
	}

	<-ctx.Done()
	return nil
}
