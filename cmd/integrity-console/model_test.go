package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examguard/internal/integrity/console"
	"examguard/internal/integrity/models"
)

type fakeController struct {
	live    bool
	toggles int
}

func (f *fakeController) Toggle() bool {
	f.toggles++
	f.live = !f.live
	return f.live
}

func (f *fakeController) Snapshot() console.Snapshot {
	return console.Snapshot{Status: console.StatusLoading, Live: f.live}
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_TogglesLiveState(t *testing.T) {
	ctrl := &fakeController{live: true}
	m := newModel(ctrl, nil)
	assert.Contains(t, m.View(), "LIVE")

	next, _ := m.Update(key("p"))
	m = next.(model)
	assert.Equal(t, 1, ctrl.toggles)
	assert.Contains(t, m.View(), "PAUSED")

	next, _ = m.Update(key(" "))
	m = next.(model)
	assert.Equal(t, 2, ctrl.toggles)
	assert.Contains(t, m.View(), "LIVE")
}

func TestModel_QuitCancelsPolling(t *testing.T) {
	cancelled := false
	m := newModel(&fakeController{live: true}, func() { cancelled = true })

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, cancelled)
}

func TestModel_RendersSnapshot(t *testing.T) {
	m := newModel(&fakeController{live: true}, nil)
	assert.Contains(t, m.View(), "Loading")

	breach := models.NewEventView(models.Event{
		ID:         "a",
		ExamID:     "exam-1",
		StudentID:  "stu-1",
		Type:       models.EventVideoIntegrityBreach,
		Details:    "background-blur; processor stopped",
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}, "Ada Lovelace", "")
	started := models.NewEventView(models.Event{ID: "b", ExamID: "exam-1", StudentID: "stu-2", Type: models.EventProctoringStarted}, "", "")

	next, _ := m.Update(snapshotMsg(console.Snapshot{
		Status: console.StatusReady,
		Live:   true,
		Stale:  true,
		Events: []models.EventView{breach, started},
		Fresh:  []models.EventView{breach},
	}))
	view := next.(model).View()

	assert.Contains(t, view, "VIDEO_INTEGRITY_BREACH")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Contains(t, view, "ID: exam-1")
	assert.Contains(t, view, "ID: stu-2")
	assert.Contains(t, view, "stale")
	assert.Less(t, strings.Index(view, "VIDEO_INTEGRITY_BREACH"), strings.Index(view, "PROCTORING_STARTED"))
}

func TestModel_EmptyAndHeightLimit(t *testing.T) {
	m := newModel(&fakeController{live: true}, nil)
	next, _ := m.Update(snapshotMsg(console.Snapshot{Status: console.StatusEmpty, Live: true}))
	assert.Contains(t, next.(model).View(), "No recent integrity events")

	rows := make([]models.EventView, 20)
	for i := range rows {
		rows[i] = models.NewEventView(models.Event{ID: string(rune('a' + i)), Type: models.EventTabSwitch}, "", "")
	}
	next, _ = next.Update(tea.WindowSizeMsg{Height: 8})
	next, _ = next.Update(snapshotMsg(console.Snapshot{Status: console.StatusReady, Live: true, Events: rows}))
	assert.Equal(t, 3, strings.Count(next.(model).View(), "TAB_SWITCH"))
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"--exams", "exam-1, exam-2", "--interval", "2s", "--api", "http://api.test"})
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", o.api)
	assert.Equal(t, 2*time.Second, o.interval)

	_, err = parseFlags([]string{"--exams", " , "})
	assert.ErrorContains(t, err, "--exams is required")

	_, err = parseFlags([]string{"--exams", "exam-1", "--interval", "0s"})
	assert.ErrorContains(t, err, "--interval")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
