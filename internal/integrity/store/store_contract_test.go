package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"examguard/internal/integrity/models"
	"examguard/internal/sentinel"
)

type eventStore interface {
	Append(ctx context.Context, ev models.Event) error
	ListRecent(ctx context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error)
	ListByExam(ctx context.Context, examID string) ([]models.Event, error)
}

// contractSuite holds behaviour every backend must share. Backend suites
// embed it and set newStore.
type contractSuite struct {
	suite.Suite
	newStore func() eventStore
	store    eventStore
	now      time.Time
}

func (s *contractSuite) SetupTest() {
	s.store = s.newStore()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *contractSuite) event(examID string, t models.EventType, occurredAgo, receivedAgo time.Duration) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		ExamID:     examID,
		StudentID:  "stu-1",
		Type:       t,
		Details:    "detail",
		OccurredAt: s.now.Add(-occurredAgo),
		ReceivedAt: s.now.Add(-receivedAgo),
		Client:     "Chrome 120 on Linux",
	}
}

func (s *contractSuite) append(evs ...models.Event) {
	for _, ev := range evs {
		s.Require().NoError(s.store.Append(context.Background(), ev))
	}
}

func (s *contractSuite) TestAppendAndListByExam() {
	first := s.event("exam-1", models.EventProctoringStarted, 3*time.Minute, 3*time.Minute)
	second := s.event("exam-1", models.EventTabSwitch, 2*time.Minute, 2*time.Minute)
	other := s.event("exam-2", models.EventFocusLost, time.Minute, time.Minute)
	s.append(second, other, first)

	got, err := s.store.ListByExam(context.Background(), "exam-1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID, "oldest first")
	s.Equal(second.ID, got[1].ID)
	s.Equal(first.Details, got[0].Details)
	s.Equal(first.Client, got[0].Client)
	s.True(first.OccurredAt.Equal(got[0].OccurredAt))
	s.True(first.ReceivedAt.Equal(got[0].ReceivedAt))
}

func (s *contractSuite) TestListByExam_Unknown() {
	got, err := s.store.ListByExam(context.Background(), "missing")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *contractSuite) TestAppend_DuplicateID() {
	ev := s.event("exam-1", models.EventTabSwitch, 0, 0)
	s.append(ev)
	s.ErrorIs(s.store.Append(context.Background(), ev), sentinel.ErrConflict)
}

func (s *contractSuite) TestAppend_MissingID() {
	ev := s.event("exam-1", models.EventTabSwitch, 0, 0)
	ev.ID = ""
	s.ErrorIs(s.store.Append(context.Background(), ev), sentinel.ErrInvalidInput)
}

func (s *contractSuite) TestListRecent_WindowFilterAndOrder() {
	old := s.event("exam-1", models.EventTabSwitch, 3*time.Hour, 3*time.Hour)
	a := s.event("exam-1", models.EventFocusLost, 10*time.Minute, 10*time.Minute)
	b := s.event("exam-2", models.EventVideoIntegrityBreach, 5*time.Minute, 5*time.Minute)
	c := s.event("exam-3", models.EventTabSwitch, time.Minute, time.Minute)
	s.append(old, a, b, c)

	got, err := s.store.ListRecent(context.Background(), []string{"exam-1", "exam-2"}, s.now.Add(-2*time.Hour), 0)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(b.ID, got[0].ID, "newest first")
	s.Equal(a.ID, got[1].ID)
}

func (s *contractSuite) TestListRecent_Limit() {
	for i := 0; i < 5; i++ {
		s.append(s.event("exam-1", models.EventTabSwitch, time.Duration(i)*time.Minute, time.Duration(i)*time.Minute))
	}
	got, err := s.store.ListRecent(context.Background(), []string{"exam-1"}, s.now.Add(-time.Hour), 3)
	s.Require().NoError(err)
	s.Len(got, 3)
}

func (s *contractSuite) TestListRecent_NoExams() {
	s.append(s.event("exam-1", models.EventTabSwitch, 0, 0))
	got, err := s.store.ListRecent(context.Background(), nil, s.now.Add(-time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(got)
}
