package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examguard/internal/integrity/models"
	dErrors "examguard/pkg/domain-errors"
)

func sampleEvent() models.Event {
	return models.Event{
		ExamID:     "exam-1",
		StudentID:  "stu-1",
		Type:       models.EventTabSwitch,
		Details:    "exam window lost input focus while still visible",
		OccurredAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestClient_Report_PostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/integrity/events", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", Token: "s3cret"})
	require.NoError(t, c.Report(context.Background(), sampleEvent()))

	assert.Equal(t, "exam-1", got["examId"])
	assert.Equal(t, "stu-1", got["studentId"])
	assert.Equal(t, "TAB_SWITCH", got["eventType"])
	assert.Equal(t, "2026-06-01T09:00:00Z", got["occurredAt"])
}

func TestClient_Report_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   dErrors.Code
	}{
		{"bad request", http.StatusBadRequest, dErrors.CodeValidation},
		{"unauthorized", http.StatusUnauthorized, dErrors.CodeUnauthorized},
		{"forbidden", http.StatusForbidden, dErrors.CodeForbidden},
		{"server error", http.StatusInternalServerError, dErrors.CodeUnavailable},
		{"bad gateway", http.StatusBadGateway, dErrors.CodeUnavailable},
		{"gateway timeout", http.StatusGatewayTimeout, dErrors.CodeTimeout},
		{"conflict", http.StatusConflict, dErrors.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			err := NewClient(ClientConfig{BaseURL: srv.URL}).Report(context.Background(), sampleEvent())
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_Report_TransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		c := NewClient(ClientConfig{BaseURL: "http://integrity.invalid", HTTPClient: doerFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})})
		err := c.Report(context.Background(), sampleEvent())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("deadline", func(t *testing.T) {
		c := NewClient(ClientConfig{BaseURL: "http://integrity.invalid", HTTPClient: doerFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := c.Report(ctx, sampleEvent())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}
