// Package credentials issues access tokens for the real-time media server
// used by live proctoring, and serves them over HTTP.
package credentials

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "examguard/pkg/domain-errors"
)

// Role decides which media grants a participant receives.
type Role string

const (
	// RoleStudent publishes camera and screen tracks but sees nobody.
	RoleStudent Role = "student"
	// RoleProctor subscribes to every student in the exam room.
	RoleProctor Role = "proctor"
)

// ParseRole maps "" onto RoleStudent and rejects anything else unknown.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoleStudent:
		return RoleStudent, nil
	case RoleProctor:
		return RoleProctor, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "role must be one of [student proctor]")
}

// VideoGrant is the media server's room permission claim.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
	Hidden         bool   `json:"hidden,omitempty"`
}

// Claims is the access token payload.
type Claims struct {
	Video *VideoGrant `json:"video"`
	Name  string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs media access tokens with the server's API key pair.
type Issuer struct {
	apiKey    string
	apiSecret []byte
	serverURL string
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Issuer)

func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// DefaultTTL covers a typical exam sitting.
const DefaultTTL = 2 * time.Hour

func NewIssuer(apiKey, apiSecret, serverURL string, opts ...Option) (*Issuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("media api key and secret are required")
	}
	i := &Issuer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		serverURL: serverURL,
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RoomName is the media room shared by every participant of one exam.
func RoomName(examID string) string {
	return "exam-" + examID
}

// Issue signs a token admitting identity to the exam's room with the grants
// of role.
func (i *Issuer) Issue(examID, identity string, role Role) (string, error) {
	examID = strings.TrimSpace(examID)
	identity = strings.TrimSpace(identity)
	if examID == "" || identity == "" {
		return "", dErrors.New(dErrors.CodeValidation, "exam_id and user_id are required")
	}

	grant := &VideoGrant{
		Room:     RoomName(examID),
		RoomJoin: true,
	}
	switch role {
	case RoleStudent:
		grant.CanPublish = true
		grant.CanPublishData = true
	case RoleProctor:
		grant.CanSubscribe = true
		grant.Hidden = true
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported role %q", role))
	}

	now := i.now()
	claims := Claims{
		Video: grant,
		Name:  identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			ID:        identity,
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign media token")
	}
	return signed, nil
}

// Verify parses a token issued by this Issuer.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid media token")
	}
	return claims, nil
}

// ServerAddress is the media server URL handed to clients.
func (i *Issuer) ServerAddress() string {
	return i.serverURL
}
