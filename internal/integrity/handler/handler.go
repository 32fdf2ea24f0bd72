// Package handler exposes integrity event collection and queries over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"examguard/internal/integrity/models"
	"examguard/internal/integrity/service"
	"examguard/pkg/platform/httputil"
	"examguard/pkg/requestcontext"
	s "examguard/pkg/string"
	"examguard/pkg/validation"
)

// Service defines the integrity operations the handler needs.
type Service interface {
	Record(ctx context.Context, req service.RecordRequest) (*models.Event, error)
	ListRecent(ctx context.Context, examIDs []string) ([]models.EventView, error)
	ListByExam(ctx context.Context, examID string) ([]models.EventView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the integrity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/integrity/events", h.handleRecord)
	r.Get("/integrity/events/recent", h.handleRecent)
	r.Get("/integrity/exams/{examId}/events", h.handleByExam)
}

// RecordEventRequest is the body posted by exam clients.
type RecordEventRequest struct {
	ExamID     string     `json:"examId" validate:"required,notblank,max=128"`
	StudentID  string     `json:"studentId" validate:"required,notblank,max=128"`
	EventType  string     `json:"eventType" validate:"required"`
	Details    string     `json:"details" validate:"max=4096"`
	OccurredAt *time.Time `json:"occurredAt"`
}

func (r *RecordEventRequest) Normalize() {
	r.ExamID = strings.TrimSpace(r.ExamID)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.EventType = strings.TrimSpace(r.EventType)
}

func (r *RecordEventRequest) Validate() error {
	return validation.Validate(r)
}

type recordResponse struct {
	ID string `json:"id"`
}

type eventsResponse struct {
	Events []models.EventView `json:"events"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordEventRequest](w, r, h.logger)
	if !ok {
		return
	}

	record := service.RecordRequest{
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
		EventType: req.EventType,
		Details:   req.Details,
		UserAgent: requestcontext.UserAgent(ctx),
	}
	if record.UserAgent == "" {
		record.UserAgent = r.UserAgent()
	}
	if req.OccurredAt != nil {
		record.OccurredAt = *req.OccurredAt
	}

	ev, err := h.service.Record(ctx, record)
	if err != nil {
		h.logger.WarnContext(ctx, "integrity_event_rejected",
			"request_id", requestID,
			"exam_id", req.ExamID,
			"event_type", req.EventType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordResponse{ID: ev.ID})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	examIDs := s.SplitCSV(r.URL.Query().Get("examIds"))

	views, err := h.service.ListRecent(ctx, examIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "integrity_recent_query_failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Events: views})
}

func (h *Handler) handleByExam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	examID := chi.URLParam(r, "examId")

	views, err := h.service.ListByExam(ctx, examID)
	if err != nil {
		h.logger.ErrorContext(ctx, "integrity_exam_query_failed",
			"request_id", requestcontext.RequestID(ctx),
			"exam_id", examID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Events: views})
}
