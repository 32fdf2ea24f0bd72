package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examguard/internal/integrity/models"
	dErrors "examguard/pkg/domain-errors"
)

const (
	eventsPath     = "/integrity/events"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the collection endpoint client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Client posts single integrity events to the collection endpoint.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  doer,
	}
}

type eventPayload struct {
	ExamID     string    `json:"examId"`
	StudentID  string    `json:"studentId"`
	EventType  string    `json:"eventType"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Report delivers ev once. Errors are classified into domain codes: timeouts
// as CodeTimeout, transport failures and 5xx as CodeUnavailable, rejected
// payloads as CodeValidation.
func (c *Client) Report(ctx context.Context, ev models.Event) error {
	body, err := json.Marshal(eventPayload{
		ExamID:     ev.ExamID,
		StudentID:  ev.StudentID,
		EventType:  string(ev.Type),
		Details:    ev.Details,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode integrity event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+eventsPath, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "integrity endpoint timeout")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "integrity endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("integrity endpoint returned %d", resp.StatusCode)
	if s := strings.TrimSpace(string(snippet)); s != "" {
		msg += ": " + s
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case resp.StatusCode == http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, msg)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return dErrors.New(dErrors.CodeValidation, msg)
	case resp.StatusCode == http.StatusGatewayTimeout, resp.StatusCode == http.StatusRequestTimeout:
		return dErrors.New(dErrors.CodeTimeout, msg)
	case resp.StatusCode >= 500:
		return dErrors.New(dErrors.CodeUnavailable, msg)
	default:
		return dErrors.New(dErrors.CodeBadRequest, msg)
	}
}
