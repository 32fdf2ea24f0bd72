package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"examguard/internal/integrity/models"
	"examguard/internal/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists integrity events in PostgreSQL through the pgx
// database/sql driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, ev models.Event) error {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		return fmt.Errorf("%w: event id %q: %v", sentinel.ErrInvalidInput, ev.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO integrity_events (id, exam_id, student_id, event_type, details, occurred_at, received_at, client)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, ev.ExamID, ev.StudentID, string(ev.Type), ev.Details, ev.OccurredAt.UTC(), ev.ReceivedAt.UTC(), ev.Client)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append integrity event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error) {
	if len(examIDs) == 0 {
		return []models.Event{}, nil
	}
	query := `
		SELECT id, exam_id, student_id, event_type, details, occurred_at, received_at, client
		FROM integrity_events
		WHERE exam_id = ANY($1) AND received_at >= $2
		ORDER BY occurred_at DESC, id ASC
	`
	args := []any{examIDs, since.UTC()}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}
	return s.query(ctx, "list recent integrity events", query, args...)
}

func (s *PostgresStore) ListByExam(ctx context.Context, examID string) ([]models.Event, error) {
	return s.query(ctx, "list integrity events by exam", `
		SELECT id, exam_id, student_id, event_type, details, occurred_at, received_at, client
		FROM integrity_events
		WHERE exam_id = $1
		ORDER BY occurred_at ASC, id DESC
	`, examID)
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			ev        models.Event
			id        uuid.UUID
			eventType string
		)
		if err := rows.Scan(&id, &ev.ExamID, &ev.StudentID, &eventType, &ev.Details, &ev.OccurredAt, &ev.ReceivedAt, &ev.Client); err != nil {
			return nil, fmt.Errorf("scan integrity event: %w", err)
		}
		ev.ID = id.String()
		ev.Type = models.EventType(eventType)
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.ReceivedAt = ev.ReceivedAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrity events: %w", err)
	}
	return events, nil
}
