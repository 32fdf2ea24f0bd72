package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examguard/internal/platform/logger"
	"examguard/internal/proctoring/media"
	dErrors "examguard/pkg/domain-errors"
)

func credentialsServer(t *testing.T, mediaURL string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/integrity/token/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/integrity/token/exam 1", r.URL.Path)
		assert.Equal(t, "stu-1", r.URL.Query().Get("userId"))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	mux.HandleFunc("/integrity/server-url", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": mediaURL})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fakeConnector struct {
	addr, token string
	err         error
}

func (f *fakeConnector) Connect(_ context.Context, addr, token string) (media.Connection, error) {
	f.addr, f.token = addr, token
	if f.err != nil {
		return nil, f.err
	}
	return nopConnection{}, nil
}

type nopConnection struct{}

func (nopConnection) LocalVideoTrack() (media.Track, error) { return nil, media.ErrTrackNotReady }
func (nopConnection) Close() error                          { return nil }

func TestCredentials_FetchesTokenAndAddress(t *testing.T) {
	srv := credentialsServer(t, "ws://media.example:7880")
	c := NewCredentials(Config{BaseURL: srv.URL})

	token, err := c.AccessToken(context.Background(), "exam 1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	addr, err := c.ServerAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ws://media.example:7880", addr)
}

func TestCredentials_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		code   dErrors.Code
	}{
		{http.StatusUnauthorized, dErrors.CodeUnauthorized},
		{http.StatusForbidden, dErrors.CodeForbidden},
		{http.StatusNotFound, dErrors.CodeNotFound},
		{http.StatusBadGateway, dErrors.CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewCredentials(Config{BaseURL: srv.URL}).ServerAddress(context.Background())
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCredentials_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":""}`))
	}))
	defer srv.Close()

	_, err := NewCredentials(Config{BaseURL: srv.URL}).AccessToken(context.Background(), "e", "s")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestEstablish_UpgradesSchemeOnSecureOrigin(t *testing.T) {
	srv := credentialsServer(t, "ws://media.example:7880")
	connector := &fakeConnector{}

	sess, err := Establish(context.Background(), NewCredentials(Config{BaseURL: srv.URL}), connector, EstablishOptions{
		ExamID:       "exam 1",
		StudentID:    "stu-1",
		SecureOrigin: true,
		Logger:       logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://media.example:7880", connector.addr)
	assert.Equal(t, "tok-123", connector.token)
	assert.Equal(t, "tok-123", sess.AccessToken)
	assert.Equal(t, "wss://media.example:7880", sess.MediaServerAddress)
	require.NoError(t, sess.Close())
}

type failingCreds struct{ err error }

func (f failingCreds) AccessToken(context.Context, string, string) (string, error) { return "", f.err }
func (f failingCreds) ServerAddress(context.Context) (string, error)               { return "", f.err }

func TestEstablish_FailuresAreUnavailable(t *testing.T) {
	t.Run("credentials", func(t *testing.T) {
		_, err := Establish(context.Background(), failingCreds{err: dErrors.New(dErrors.CodeUnauthorized, "no")}, &fakeConnector{}, EstablishOptions{Logger: logger.Discard()})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("connect", func(t *testing.T) {
		srv := credentialsServer(t, "wss://media.example")
		_, err := Establish(context.Background(), NewCredentials(Config{BaseURL: srv.URL}), &fakeConnector{err: errors.New("dial failed")}, EstablishOptions{
			ExamID: "exam 1", StudentID: "stu-1", Logger: logger.Discard(),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Contains(t, err.Error(), "media connection")
	})
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		raw    string
		secure bool
		want   string
		ok     bool
	}{
		{"ws://m:7880", false, "ws://m:7880", true},
		{"ws://m:7880", true, "wss://m:7880", true},
		{"wss://m", false, "wss://m", true},
		{"https://m", false, "wss://m", true},
		{"http://m", true, "wss://m", true},
		{"ftp://m", false, "", false},
		{"ws://", false, "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeAddress(tt.raw, tt.secure)
		if !tt.ok {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}
