package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "examguard/pkg/domain-errors"
	"examguard/pkg/requestcontext"
)

// Preparer is implemented by request bodies that normalize themselves and
// then validate. Either half may be a no-op.
type Preparer interface {
	Normalize()
	Validate() error
}

// DecodeJSON reads a JSON body into a new T. On failure it has already
// written a 400 and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	err := json.NewDecoder(r.Body).Decode(&req)
	if err == nil {
		return &req, true
	}

	msg := "invalid request body"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		msg = "request body too large"
	}
	logger.WarnContext(r.Context(), "request_body_decode_failed",
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
	return nil, false
}

// DecodeAndPrepare decodes the body and, when *T is a Preparer, normalizes
// and validates it. Validation failures that are not domain errors are
// reported as CodeValidation.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}
	p, ok := any(req).(Preparer)
	if !ok {
		return req, true
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		logger.WarnContext(r.Context(), "request_rejected",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		if dErrors.CodeOf(err) == "" {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
