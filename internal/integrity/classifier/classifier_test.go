package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examguard/internal/integrity/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want models.EventType
	}{
		{"armed", Observation{Signal: SignalLifecycle, Armed: true}, models.EventProctoringStarted},
		{"disarmed", Observation{Signal: SignalLifecycle, Armed: false}, models.EventProctoringStopped},
		{"tab hidden", Observation{Signal: SignalVisibility, Visible: false}, models.EventFocusLost},
		{"blur while visible", Observation{Signal: SignalFocus, Visible: true, Focused: false}, models.EventTabSwitch},
		{"fullscreen exit", Observation{Signal: SignalFullscreen, WasFullscreen: true, Fullscreen: false}, models.EventFullscreenExit},
		{"processor attached", Observation{Signal: SignalVideo, Processor: "background-blur"}, models.EventVideoIntegrityBreach},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.obs)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Type)
			assert.NotEmpty(t, got.Details)
		})
	}
}

func TestClassify_NoEvent(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
	}{
		{"tab visible again", Observation{Signal: SignalVisibility, Visible: true}},
		{"focus regained", Observation{Signal: SignalFocus, Visible: true, Focused: true}},
		// hidden tab already reported as FOCUS_LOST; blur is not a second event
		{"blur while hidden", Observation{Signal: SignalFocus, Visible: false, Focused: false}},
		{"entered fullscreen", Observation{Signal: SignalFullscreen, WasFullscreen: false, Fullscreen: true}},
		{"never fullscreen", Observation{Signal: SignalFullscreen, WasFullscreen: false, Fullscreen: false}},
		{"clean video track", Observation{Signal: SignalVideo}},
		{"unknown signal", Observation{Signal: Signal("clipboard"), Visible: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Classify(tt.obs)
			assert.False(t, ok)
		})
	}
}

func TestClassify_BreachDetailsNameProcessor(t *testing.T) {
	got, ok := Classify(Observation{Signal: SignalVideo, Processor: "virtual-background"})
	require.True(t, ok)
	assert.Contains(t, got.Details, "virtual-background")
}
