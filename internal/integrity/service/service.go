// Package service records integrity events reported by exam clients and
// answers the staff console and proctoring dashboard queries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"examguard/internal/integrity/clientinfo"
	"examguard/internal/integrity/metrics"
	"examguard/internal/integrity/models"
	"examguard/internal/platform/tracer"
	"examguard/internal/sentinel"
	dErrors "examguard/pkg/domain-errors"
	s "examguard/pkg/string"
)

// Store persists integrity events. See package store for the error contract.
type Store interface {
	Append(ctx context.Context, ev models.Event) error
	ListRecent(ctx context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error)
	ListByExam(ctx context.Context, examID string) ([]models.Event, error)
}

// Stream receives every recorded event after it is stored.
type Stream interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Directory resolves display labels. Unknown ids return "".
type Directory interface {
	StudentName(ctx context.Context, studentID string) string
	ExamTitle(ctx context.Context, examID string) string
}

const (
	DefaultRecentWindow = 2 * time.Hour
	DefaultRecentLimit  = 200
	maxDetailsLength    = 1024
)

// Service implements integrity event collection and queries.
type Service struct {
	store     Store
	stream    Stream
	directory Directory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	now       func() time.Time
	newID     func() string

	recentWindow time.Duration
	recentLimit  int
}

type Option func(*Service)

func WithStream(st Stream) Option {
	return func(svc *Service) {
		if st != nil {
			svc.stream = st
		}
	}
}

func WithDirectory(d Directory) Option {
	return func(svc *Service) {
		if d != nil {
			svc.directory = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		if logger != nil {
			svc.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(svc *Service) {
		if t != nil {
			svc.tracer = t
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(svc *Service) {
		if newID != nil {
			svc.newID = newID
		}
	}
}

// WithRecentWindow bounds how far back ListRecent looks.
func WithRecentWindow(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.recentWindow = d
		}
	}
}

// WithRecentLimit caps the ListRecent result size.
func WithRecentLimit(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.recentLimit = n
		}
	}
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{
		store:        store,
		stream:       nopStream{},
		directory:    StaticDirectory{},
		logger:       slog.Default(),
		tracer:       tracer.NewNoop(),
		now:          time.Now,
		newID:        uuid.NewString,
		recentWindow: DefaultRecentWindow,
		recentLimit:  DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RecordRequest is one client report. A zero OccurredAt is replaced by the
// server time.
type RecordRequest struct {
	ExamID     string
	StudentID  string
	EventType  string
	Details    string
	OccurredAt time.Time
	UserAgent  string
}

// Record validates and stores one event, then publishes it to the stream.
// Stream failures are logged and never fail the call.
func (svc *Service) Record(ctx context.Context, req RecordRequest) (_ *models.Event, err error) {
	start := svc.now()
	ctx, span := svc.tracer.Start(ctx, tracer.SpanRecordEvent,
		tracer.String(tracer.AttrExamID, req.ExamID),
		tracer.String(tracer.AttrEventType, req.EventType),
	)
	defer func() { span.End(err) }()

	examID := strings.TrimSpace(req.ExamID)
	studentID := strings.TrimSpace(req.StudentID)
	if examID == "" || studentID == "" {
		svc.metrics.IncrementRejected("missing_id")
		return nil, dErrors.New(dErrors.CodeValidation, "exam_id and student_id are required")
	}
	eventType, ok := models.ParseEventType(strings.TrimSpace(req.EventType))
	if !ok {
		svc.metrics.IncrementRejected("unknown_type")
		return nil, dErrors.New(dErrors.CodeValidation, "unknown event_type")
	}

	received := svc.now().UTC()
	occurred := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurred = received
	}
	details := req.Details
	if len(details) > maxDetailsLength {
		details = strings.ToValidUTF8(details[:maxDetailsLength], "")
	}

	ev := models.Event{
		ID:         svc.newID(),
		ExamID:     examID,
		StudentID:  studentID,
		Type:       eventType,
		Details:    details,
		OccurredAt: occurred,
		ReceivedAt: received,
		Client:     clientinfo.Label(req.UserAgent),
	}
	if clientinfo.Automated(req.UserAgent) {
		svc.logger.WarnContext(ctx, "integrity_event_automated_client",
			"exam_id", examID,
			"student_id", studentID,
		)
	}

	if err := svc.store.Append(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "integrity event already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record integrity event")
	}

	svc.metrics.IncrementRecorded(string(ev.Type))
	svc.metrics.ObserveRecordLatency(svc.now().Sub(start))
	svc.logger.InfoContext(ctx, "integrity_event_recorded",
		"event_id", ev.ID,
		"exam_id", ev.ExamID,
		"student_id", ev.StudentID,
		"event_type", ev.Type,
	)

	if err := svc.stream.Publish(ctx, ev); err != nil {
		svc.metrics.IncrementStreamFailure()
		svc.logger.WarnContext(ctx, "integrity_stream_publish_failed",
			"event_id", ev.ID,
			"exam_id", ev.ExamID,
			"error", err,
		)
	}
	return &ev, nil
}

// ListRecent returns events received within the recency window for the
// given exams, newest first, capped at the configured limit.
func (svc *Service) ListRecent(ctx context.Context, examIDs []string) (_ []models.EventView, err error) {
	ids := s.DedupeAndTrim(examIDs)
	ctx, span := svc.tracer.Start(ctx, tracer.SpanListRecent,
		tracer.Int64(tracer.AttrExamCount, int64(len(ids))),
	)
	defer func() { span.End(err) }()

	if len(ids) == 0 {
		return []models.EventView{}, nil
	}
	since := svc.now().Add(-svc.recentWindow)
	events, err := svc.store.ListRecent(ctx, ids, since, svc.recentLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recent integrity events")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrResults, int64(len(events))))
	return svc.enrich(ctx, events), nil
}

// ListByExam returns the full history for one exam, oldest first.
func (svc *Service) ListByExam(ctx context.Context, examID string) ([]models.EventView, error) {
	examID = strings.TrimSpace(examID)
	if examID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "exam_id is required")
	}
	events, err := svc.store.ListByExam(ctx, examID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list integrity events")
	}
	return svc.enrich(ctx, events), nil
}

func (svc *Service) enrich(ctx context.Context, events []models.Event) []models.EventView {
	views := make([]models.EventView, 0, len(events))
	for _, ev := range events {
		views = append(views, models.NewEventView(ev,
			svc.directory.StudentName(ctx, ev.StudentID),
			svc.directory.ExamTitle(ctx, ev.ExamID),
		))
	}
	return views
}

type nopStream struct{}

func (nopStream) Publish(context.Context, models.Event) error { return nil }
