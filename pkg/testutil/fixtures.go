package testutil

import (
	"time"

	"github.com/google/uuid"

	"examguard/internal/integrity/models"
)

// TestIDs provides fixed identifiers for deterministic test data.
var TestIDs = struct {
	ExamID1    string
	ExamID2    string
	StudentID1 string
	StudentID2 string
}{
	ExamID1:    "exam-11111111",
	ExamID2:    "exam-22222222",
	StudentID1: "student-aaaa0001",
	StudentID2: "student-aaaa0002",
}

// EventBuilder provides a fluent interface for building integrity events.
type EventBuilder struct {
	event models.Event
}

// NewEventBuilder creates a TAB_SWITCH event for ExamID1/StudentID1 that
// occurred and was received now.
func NewEventBuilder() *EventBuilder {
	now := time.Now().UTC()
	return &EventBuilder{
		event: models.Event{
			ID:         uuid.NewString(),
			ExamID:     TestIDs.ExamID1,
			StudentID:  TestIDs.StudentID1,
			Type:       models.EventTabSwitch,
			Details:    "exam window lost input focus while still visible",
			OccurredAt: now,
			ReceivedAt: now,
		},
	}
}

func (b *EventBuilder) WithID(id string) *EventBuilder {
	b.event.ID = id
	return b
}

func (b *EventBuilder) ForExam(examID string) *EventBuilder {
	b.event.ExamID = examID
	return b
}

func (b *EventBuilder) ForStudent(studentID string) *EventBuilder {
	b.event.StudentID = studentID
	return b
}

func (b *EventBuilder) OfType(t models.EventType) *EventBuilder {
	b.event.Type = t
	return b
}

// At sets both OccurredAt and ReceivedAt.
func (b *EventBuilder) At(t time.Time) *EventBuilder {
	b.event.OccurredAt = t
	b.event.ReceivedAt = t
	return b
}

func (b *EventBuilder) Build() models.Event {
	return b.event
}
