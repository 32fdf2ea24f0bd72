package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examguard/internal/platform/logger"
	dErrors "examguard/pkg/domain-errors"
)

type eventRequest struct {
	ExamID    string `json:"exam_id"`
	EventType string `json:"event_type"`
}

func (r *eventRequest) Normalize() {
	r.ExamID = strings.TrimSpace(r.ExamID)
}

func (r *eventRequest) Validate() error {
	if r.ExamID == "" {
		return errors.New("exam_id is required")
	}
	if r.EventType == "BOGUS" {
		return dErrors.New(dErrors.CodeBadRequest, "unsupported event_type")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	log := logger.Discard()

	t.Run("successful decode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"exam_id":"quiz-1","event_type":"TAB_SWITCH"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[eventRequest](w, req, log)

		require.True(t, ok)
		assert.Equal(t, "quiz-1", result.ExamID)
	})

	t.Run("invalid JSON returns bad_request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[eventRequest](w, req, log)

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "bad_request", errResp["error"])
	})

	t.Run("oversized body reports size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"exam_id":"`+strings.Repeat("x", 64)+`"}`))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 16)

		_, ok := DecodeJSON[eventRequest](w, req, log)

		assert.False(t, ok)
		var errResp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "request body too large", errResp["error_description"])
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	log := logger.Discard()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"exam_id":"  quiz-1  "}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[eventRequest](w, req, log)

		require.True(t, ok)
		assert.Equal(t, "quiz-1", result.ExamID)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"exam_id":"   "}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[eventRequest](w, req, log)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var errResp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "validation_error", errResp["error"])
		assert.Contains(t, errResp["error_description"], "exam_id is required")
	})

	t.Run("preserves domain error code from Validate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"exam_id":"quiz-1","event_type":"BOGUS"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[eventRequest](w, req, log)

		assert.False(t, ok)
		var errResp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "bad_request", errResp["error"])
	})
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(tt.code, "x"))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("non-domain error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("raw"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
