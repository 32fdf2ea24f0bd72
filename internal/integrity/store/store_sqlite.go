package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"examguard/internal/integrity/models"
	"examguard/internal/sentinel"
)

// SQLiteStore persists integrity events in an embedded SQLite database for
// single-node deployments. Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, ev models.Event) error {
	if ev.ID == "" {
		return sentinel.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO integrity_events (id, exam_id, student_id, event_type, details, occurred_at_ns, received_at_ns, client)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`, ev.ID, ev.ExamID, ev.StudentID, string(ev.Type), ev.Details, ev.OccurredAt.UnixNano(), ev.ReceivedAt.UnixNano(), ev.Client)
	if err != nil {
		return fmt.Errorf("append integrity event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append integrity event: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error) {
	examIDs = uniq(examIDs)
	if len(examIDs) == 0 {
		return []models.Event{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(examIDs)), ",")
	args := make([]any, 0, len(examIDs)+2)
	for _, id := range examIDs {
		args = append(args, id)
	}
	args = append(args, since.UnixNano())

	query := `
SELECT id, exam_id, student_id, event_type, details, occurred_at_ns, received_at_ns, client
FROM integrity_events
WHERE exam_id IN (` + placeholders + `) AND received_at_ns >= ?
ORDER BY occurred_at_ns DESC, id ASC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, "list recent integrity events", query, args...)
}

func (s *SQLiteStore) ListByExam(ctx context.Context, examID string) ([]models.Event, error) {
	return s.query(ctx, "list integrity events by exam", `
SELECT id, exam_id, student_id, event_type, details, occurred_at_ns, received_at_ns, client
FROM integrity_events
WHERE exam_id = ?
ORDER BY occurred_at_ns ASC, id DESC;
`, examID)
}

func (s *SQLiteStore) query(ctx context.Context, op, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			ev                   models.Event
			eventType            string
			occurredNs, received int64
		)
		if err := rows.Scan(&ev.ID, &ev.ExamID, &ev.StudentID, &eventType, &ev.Details, &occurredNs, &received, &ev.Client); err != nil {
			return nil, fmt.Errorf("scan integrity event: %w", err)
		}
		ev.Type = models.EventType(eventType)
		ev.OccurredAt = time.Unix(0, occurredNs).UTC()
		ev.ReceivedAt = time.Unix(0, received).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrity events: %w", err)
	}
	return events, nil
}
