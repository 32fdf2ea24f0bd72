// Package models holds the integrity event vocabulary shared by the client
// sensors, the backend store, and the staff console.
package models

import (
	"time"
)

// EventType is the closed set of integrity observations.
type EventType string

const (
	EventProctoringStarted    EventType = "PROCTORING_STARTED"
	EventProctoringStopped    EventType = "PROCTORING_STOPPED"
	EventFocusLost            EventType = "FOCUS_LOST"
	EventTabSwitch            EventType = "TAB_SWITCH"
	EventFullscreenExit       EventType = "FULLSCREEN_EXIT"
	EventVideoIntegrityBreach EventType = "VIDEO_INTEGRITY_BREACH"
)

// AllEventTypes lists every valid EventType.
var AllEventTypes = []EventType{
	EventProctoringStarted,
	EventProctoringStopped,
	EventFocusLost,
	EventTabSwitch,
	EventFullscreenExit,
	EventVideoIntegrityBreach,
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	switch t {
	case EventProctoringStarted, EventProctoringStopped, EventFocusLost,
		EventTabSwitch, EventFullscreenExit, EventVideoIntegrityBreach:
		return true
	}
	return false
}

// Lifecycle reports whether t brackets a monitoring session.
func (t EventType) Lifecycle() bool {
	return t == EventProctoringStarted || t == EventProctoringStopped
}

// ParseEventType returns the EventType for s. Unknown values are rejected,
// never mapped onto an existing type.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(s)
	return t, t.Valid()
}

// Event is one attributable integrity observation. It is created once at
// detection time and never mutated afterwards.
type Event struct {
	ID         string    `json:"id,omitempty"`
	ExamID     string    `json:"examId"`
	StudentID  string    `json:"studentId"`
	Type       EventType `json:"eventType"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurredAt"`
	ReceivedAt time.Time `json:"receivedAt"`
	Client     string    `json:"client,omitempty"`
}

// MonitoringSession is the armed/disarmed state of one student's exam attempt.
type MonitoringSession struct {
	ExamID        string
	StudentID     string
	Armed         bool
	LastEmittedAt time.Time
	ExamMode      bool
}

// ProctoringConnection carries credentials for one live proctoring connection.
type ProctoringConnection struct {
	AccessToken        string
	MediaServerAddress string
}

// EventView is the staff-facing projection of an Event with display labels
// and derived severity. It is never persisted.
type EventView struct {
	Event
	Severity    Severity `json:"severity"`
	StudentName string   `json:"studentName,omitempty"`
	ExamTitle   string   `json:"examTitle,omitempty"`
}

// NewEventView derives severity from the event type.
func NewEventView(e Event, studentName, examTitle string) EventView {
	return EventView{
		Event:       e,
		Severity:    SeverityOf(e.Type),
		StudentName: studentName,
		ExamTitle:   examTitle,
	}
}

// StudentLabel is the display label for the student, falling back to the raw id.
func (v EventView) StudentLabel() string {
	if v.StudentName != "" {
		return v.StudentName
	}
	return "ID: " + v.StudentID
}

// ExamLabel is the display label for the exam, falling back to the raw id.
func (v EventView) ExamLabel() string {
	if v.ExamTitle != "" {
		return v.ExamTitle
	}
	return "ID: " + v.ExamID
}
