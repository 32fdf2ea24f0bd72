// Package client obtains proctoring credentials from the backend and opens
// the live media connection the video enforcer attaches to.
package client

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

	dErrors "examguard/pkg/domain-errors"
)

const defaultTimeout = 10 * time.Second

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the credentials client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Credentials fetches access tokens and the media server address.
type Credentials struct {
	baseURL string
	token   string
	client  HTTPDoer
}

func NewCredentials(cfg Config) *Credentials {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Credentials{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  doer,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type serverURLResponse struct {
	URL string `json:"url"`
}

// AccessToken returns a short-lived media token for the student's attempt.
func (c *Credentials) AccessToken(ctx context.Context, examID, studentID string) (string, error) {
	path := "/integrity/token/" + url.PathEscape(examID) + "?userId=" + url.QueryEscape(studentID)
	var out tokenResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "token endpoint returned an empty token")
	}
	return out.Token, nil
}

// ServerAddress returns the media server URL clients connect to.
func (c *Credentials) ServerAddress(ctx context.Context) (string, error) {
	var out serverURLResponse
	if err := c.getJSON(ctx, "/integrity/server-url", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", dErrors.New(dErrors.CodeUnavailable, "server-url endpoint returned an empty address")
	}
	return out.URL, nil
}

func (c *Credentials) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "credentials request timeout")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "credentials endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read credentials response")
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, "credentials request unauthorized")
	case resp.StatusCode == http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, "credentials request forbidden")
	case resp.StatusCode == http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credentials endpoint %s not found", path))
	case resp.StatusCode >= 300:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("credentials endpoint returned %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed credentials response")
	}
	return nil
}
