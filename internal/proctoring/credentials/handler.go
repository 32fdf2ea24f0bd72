package credentials

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"examguard/internal/integrity/metrics"
	dErrors "examguard/pkg/domain-errors"
	"examguard/pkg/platform/httputil"
	"examguard/pkg/requestcontext"
)

// TokenIssuer is the subset of Issuer the handler needs.
type TokenIssuer interface {
	Issue(examID, identity string, role Role) (string, error)
	ServerAddress() string
}

// Handler serves media credentials to exam clients and the proctor dashboard.
type Handler struct {
	issuer     TokenIssuer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	staffToken []byte
}

type HandlerOption func(*Handler)

// WithStaffToken enables the proctor token route for callers presenting
// token as a bearer credential. Without it the route is not mounted.
func WithStaffToken(token string) HandlerOption {
	return func(h *Handler) {
		if token = strings.TrimSpace(token); token != "" {
			h.staffToken = []byte(token)
		}
	}
}

func NewHandler(issuer TokenIssuer, logger *slog.Logger, m *metrics.Metrics, opts ...HandlerOption) *Handler {
	h := &Handler{issuer: issuer, logger: logger, metrics: m}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the credential routes. The exam client route only ever
// issues student grants.
func (h *Handler) Register(r chi.Router) {
	r.Get("/integrity/token/{examId}", h.handleStudentToken)
	r.Get("/integrity/server-url", h.handleServerURL)
	if len(h.staffToken) > 0 {
		r.Get("/integrity/proctor-token/{examId}", h.handleProctorToken)
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type serverURLResponse struct {
	URL string `json:"url"`
}

func (h *Handler) handleStudentToken(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if role != RoleStudent {
		h.logger.WarnContext(r.Context(), "media_token_role_refused",
			"request_id", requestcontext.RequestID(r.Context()),
			"exam_id", chi.URLParam(r, "examId"),
			"role", role,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "proctor tokens require staff credentials"))
		return
	}
	h.issue(w, r, RoleStudent)
}

func (h *Handler) handleProctorToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedStaff(r) {
		h.logger.WarnContext(r.Context(), "proctor_token_unauthorized",
			"request_id", requestcontext.RequestID(r.Context()),
			"exam_id", chi.URLParam(r, "examId"),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "staff credentials required"))
		return
	}
	h.issue(w, r, RoleProctor)
}

func (h *Handler) authorizedStaff(r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(raw)), h.staffToken) == 1
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, role Role) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	examID := strings.TrimSpace(chi.URLParam(r, "examId"))
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))

	token, err := h.issuer.Issue(examID, userID, role)
	if err != nil {
		h.logger.WarnContext(ctx, "media_token_rejected",
			"request_id", requestID,
			"exam_id", examID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementTokensIssued(string(role))
	h.logger.InfoContext(ctx, "media_token_issued",
		"request_id", requestID,
		"exam_id", examID,
		"user_id", userID,
		"role", role,
	)
	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) handleServerURL(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, serverURLResponse{URL: h.issuer.ServerAddress()})
}
