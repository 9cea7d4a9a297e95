package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Transition is one journaled state change.
type Transition struct {
	ID         int64     `json:"id"`
	ChargerID  string    `json:"charger_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Event      string    `json:"event,omitempty"`
	Effect     string    `json:"effect,omitempty"`
	Cause      string    `json:"cause"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Message is one journaled protocol frame.
type Message struct {
	ID         int64     `json:"id"`
	ChargerID  string    `json:"charger_id"`
	Direction  string    `json:"direction"`
	Kind       string    `json:"kind"`
	Action     string    `json:"action"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Repository stores and reads journal entries.
type Repository interface {
	Record(ctx context.Context, t *Transition) error
	RecordMessage(ctx context.Context, m *Message) error
	Recent(ctx context.Context, limit int) ([]Transition, error)
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository is the Repository backed by the transitions and messages
// tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts t and sets its ID. A zero OccurredAt is stamped with now.
func (r *SQLiteRepository) Record(ctx context.Context, t *Transition) error {
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transitions (charger_id, from_state, to_state, event, effect, cause, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ChargerID, t.From, t.To, t.Event, t.Effect, t.Cause, t.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading transition id: %w", err)
	}
	return nil
}

// RecordMessage inserts m and sets its ID.
func (r *SQLiteRepository) RecordMessage(ctx context.Context, m *Message) error {
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (charger_id, direction, kind, action, message_id, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ChargerID, m.Direction, m.Kind, m.Action, m.MessageID, m.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading message id: %w", err)
	}
	return nil
}

// Recent returns up to limit transitions, newest first. limit is clamped to
// 1..500 with 50 as the default for non-positive values.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, charger_id, from_state, to_state, event, effect, cause, occurred_at
		 FROM transitions ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var t Transition
		var at int64
		if err := rows.Scan(&t.ID, &t.ChargerID, &t.From, &t.To, &t.Event, &t.Effect, &t.Cause, &at); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		t.OccurredAt = time.UnixMilli(at)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}
	return out, nil
}

// RecentMessages returns up to limit messages, newest first.
func (r *SQLiteRepository) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, charger_id, direction, kind, action, message_id, occurred_at
		 FROM messages ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var at int64
		if err := rows.Scan(&m.ID, &m.ChargerID, &m.Direction, &m.Kind, &m.Action, &m.MessageID, &at); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.OccurredAt = time.UnixMilli(at)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return out, nil
}

// Prune deletes entries of both tables older than before and returns the
// number of rows removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UnixMilli()
	var total int64

	for _, table := range []string{"transitions", "messages"} {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE occurred_at < ?", cutoff) //nolint:gosec // fixed table names
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("counting pruned %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}
