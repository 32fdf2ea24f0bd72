// Package store persists integrity events. Events are append-only: no
// backend updates or deletes a stored event.
//
// Error Contract:
//   - Append returns sentinel.ErrConflict when an event with the same id exists
//   - Append returns sentinel.ErrInvalidInput for events without an id
//   - List methods return an empty slice, never ErrNotFound, when nothing matches
//   - Infrastructure failures are returned wrapped with context
package store

import (
	"slices"
	"time"

	"examguard/internal/integrity/models"
)

// newestFirst orders events by OccurredAt descending, breaking ties by id so
// results are deterministic across backends.
func newestFirst(a, b models.Event) int {
	if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

func oldestFirst(a, b models.Event) int {
	return newestFirst(b, a)
}

// recentFilter keeps events received at or after since, newest first, capped
// at limit (limit <= 0 means unbounded).
func recentFilter(events []models.Event, since time.Time, limit int) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if !ev.ReceivedAt.Before(since) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, newestFirst)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
