package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"examguard/internal/integrity/models"
	"examguard/internal/sentinel"
)

// InMemoryStore keeps events in process memory. It is the default backend
// and the reference implementation for the others.
type InMemoryStore struct {
	mu     sync.RWMutex
	byExam map[string][]models.Event
	ids    map[string]struct{}
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		byExam: make(map[string][]models.Event),
		ids:    make(map[string]struct{}),
	}
}

func (s *InMemoryStore) Append(_ context.Context, ev models.Event) error {
	if ev.ID == "" {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[ev.ID]; ok {
		return sentinel.ErrConflict
	}
	s.ids[ev.ID] = struct{}{}
	s.byExam[ev.ExamID] = append(s.byExam[ev.ExamID], ev)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error) {
	s.mu.RLock()
	var all []models.Event
	for _, examID := range uniq(examIDs) {
		all = append(all, s.byExam[examID]...)
	}
	s.mu.RUnlock()
	return recentFilter(all, since, limit), nil
}

func (s *InMemoryStore) ListByExam(_ context.Context, examID string) ([]models.Event, error) {
	s.mu.RLock()
	out := slices.Clone(s.byExam[examID])
	s.mu.RUnlock()
	if out == nil {
		out = []models.Event{}
	}
	slices.SortStableFunc(out, oldestFirst)
	return out, nil
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
