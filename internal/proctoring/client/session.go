package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"examguard/internal/integrity/models"
	"examguard/internal/proctoring/media"
	dErrors "examguard/pkg/domain-errors"
)

// CredentialSource is satisfied by *Credentials.
type CredentialSource interface {
	AccessToken(ctx context.Context, examID, studentID string) (string, error)
	ServerAddress(ctx context.Context) (string, error)
}

// Session is an established proctoring connection and the credentials used
// to open it.
type Session struct {
	models.ProctoringConnection
	media.Connection
}

// EstablishOptions configures Establish.
type EstablishOptions struct {
	ExamID    string
	StudentID string
	// SecureOrigin upgrades a ws:// media address to wss://, matching the
	// scheme of a page served over https.
	SecureOrigin bool
	Logger       *slog.Logger
}

// Establish fetches credentials and connects to the media server. Every
// failure is returned as a CodeUnavailable domain error so the caller can
// degrade to a "proctoring unavailable" notice.
func Establish(ctx context.Context, creds CredentialSource, connector media.Connector, opts EstablishOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	token, err := creds.AccessToken(ctx, opts.ExamID, opts.StudentID)
	if err != nil {
		return nil, unavailable(logger, "access token", opts, err)
	}
	addr, err := creds.ServerAddress(ctx)
	if err != nil {
		return nil, unavailable(logger, "server address", opts, err)
	}
	addr, err = NormalizeAddress(addr, opts.SecureOrigin)
	if err != nil {
		return nil, unavailable(logger, "server address", opts, err)
	}

	conn, err := connector.Connect(ctx, addr, token)
	if err != nil {
		return nil, unavailable(logger, "media connection", opts, err)
	}

	logger.Info("proctoring_connection_established", "exam_id", opts.ExamID, "student_id", opts.StudentID)
	return &Session{
		ProctoringConnection: models.ProctoringConnection{
			AccessToken:        token,
			MediaServerAddress: addr,
		},
		Connection: conn,
	}, nil
}

func unavailable(logger *slog.Logger, step string, opts EstablishOptions, err error) error {
	logger.Warn("proctoring_unavailable",
		"step", step,
		"error", err,
		"exam_id", opts.ExamID,
		"student_id", opts.StudentID,
	)
	return &dErrors.Error{
		Code:    dErrors.CodeUnavailable,
		Message: fmt.Sprintf("proctoring unavailable: %s", step),
		Err:     err,
	}
}

// NormalizeAddress validates a media server address and, when secure is set,
// upgrades ws:// to wss://. http(s) schemes map to their websocket pair.
func NormalizeAddress(raw string, secure bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse media address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported media address scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("media address %q has no host", raw)
	}
	if secure && u.Scheme == "ws" {
		u.Scheme = "wss"
	}
	return u.String(), nil
}
