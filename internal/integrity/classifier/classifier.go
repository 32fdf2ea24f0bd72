// Package classifier maps observed browser and media conditions onto the
// closed set of integrity event types. It performs no I/O.
package classifier

import (
	"fmt"

	"examguard/internal/integrity/models"
)

// Signal names the condition whose change triggered an observation.
type Signal string

const (
	SignalLifecycle  Signal = "lifecycle"
	SignalVisibility Signal = "visibility"
	SignalFocus      Signal = "focus"
	SignalFullscreen Signal = "fullscreen"
	SignalVideo      Signal = "video"
)

// Observation is the browser/media state at the moment Signal changed.
type Observation struct {
	Signal Signal

	Armed         bool
	Visible       bool
	Focused       bool
	Fullscreen    bool
	WasFullscreen bool

	// Processor is the name of the cosmetic processor found on the camera
	// track; empty when none is attached.
	Processor string
}

// Classification is the event derived from an Observation.
type Classification struct {
	Type    models.EventType
	Details string
}

// Classify returns the event for o, or false when o matches no known trigger.
func Classify(o Observation) (Classification, bool) {
	switch o.Signal {
	case SignalLifecycle:
		if o.Armed {
			return Classification{models.EventProctoringStarted, "integrity monitoring armed"}, true
		}
		return Classification{models.EventProctoringStopped, "integrity monitoring disarmed"}, true

	case SignalVisibility:
		if !o.Visible {
			return Classification{models.EventFocusLost, "exam tab hidden: student switched away from the exam"}, true
		}

	case SignalFocus:
		if !o.Focused && o.Visible {
			return Classification{models.EventTabSwitch, "exam window lost input focus while still visible"}, true
		}

	case SignalFullscreen:
		if o.WasFullscreen && !o.Fullscreen {
			return Classification{models.EventFullscreenExit, "student left fullscreen mode"}, true
		}

	case SignalVideo:
		if o.Processor != "" {
			return Classification{
				models.EventVideoIntegrityBreach,
				fmt.Sprintf("camera track had active video processor %q (background blur/replacement)", o.Processor),
			}, true
		}
	}
	return Classification{}, false
}
