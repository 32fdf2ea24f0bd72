// Package media describes the live media collaborator used for proctoring.
// The media stack itself is external; this package only names the
// capabilities the integrity pipeline depends on.
package media

import (
	"context"
	"errors"
)

// ErrTrackNotReady is returned while the local camera track is still being
// published.
var ErrTrackNotReady = errors.New("media: local video track not ready")

// Processor is a cosmetic effect (background blur or replacement) attached
// to a camera track.
type Processor interface {
	Name() string
}

// Track is the local camera track of a connection.
type Track interface {
	// Processor returns the active processor, or nil when none is attached.
	Processor() Processor
	// StopProcessor detaches the active processor and restores the raw feed.
	StopProcessor(ctx context.Context) error
}

// Connection is one live proctoring connection to the media server.
type Connection interface {
	// LocalVideoTrack returns ErrTrackNotReady until the camera is published.
	LocalVideoTrack() (Track, error)
	Close() error
}

// Connector opens connections to a media server.
type Connector interface {
	Connect(ctx context.Context, serverAddress, accessToken string) (Connection, error)
}
