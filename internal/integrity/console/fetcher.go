package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"examguard/internal/integrity/models"
	dErrors "examguard/pkg/domain-errors"
)

// Fetcher retrieves recent integrity events for a set of exams.
type Fetcher interface {
	FetchRecent(ctx context.Context, examIDs []string) ([]models.EventView, error)
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherConfig configures the HTTP fetcher.
type FetcherConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// HTTPFetcher reads GET /integrity/events/recent.
type HTTPFetcher struct {
	baseURL string
	token   string
	client  HTTPDoer
}

func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  doer,
	}
}

type recentResponse struct {
	Events []models.EventView `json:"events"`
}

func (f *HTTPFetcher) FetchRecent(ctx context.Context, examIDs []string) ([]models.EventView, error) {
	q := url.Values{}
	q.Set("examIds", strings.Join(examIDs, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/integrity/events/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "recent events request timeout")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "recent events endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("recent events endpoint returned %d", resp.StatusCode))
	}

	var out recentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed recent events response")
	}
	return out.Events, nil
}
