// Package activity implements the append-only audit trail for pipeline
// records. Entries are written inside the caller's transaction and are never
// updated or deleted afterwards; the only removal path is the cascade when a
// record itself is deleted.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind classifies an activity entry.
type Kind string

const (
	KindCreated                Kind = "created"
	KindStatusChanged          Kind = "status_changed"
	KindContractStatusChanged  Kind = "contract_status_changed"
	KindSignatureStatusChanged Kind = "signature_status_changed"
	KindAssignmentChanged      Kind = "assignment_changed"
	KindContractSent           Kind = "contract_sent"
	KindNote                   Kind = "note"
)

// ChangeMeta captures the before/after values of a transition.
type ChangeMeta struct {
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is one immutable log line.
type Entry struct {
	ID          int64
	RecordID    string
	Kind        Kind
	Description string
	Actor       *string
	Meta        *ChangeMeta
	CreatedAt   time.Time
}

// Recorder appends entries inside an open transaction. It is stateless; the
// transaction carries all context.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one entry. The meta argument may be nil for events that have
// no before/after semantics.
func (r *Recorder) Record(ctx context.Context, tx pgx.Tx, recordID string, kind Kind, description string, actor *string, meta *ChangeMeta) error {
	if recordID == "" {
		return fmt.Errorf("activity: missing record id")
	}

	var metaJSON []byte
	if meta != nil {
		var err error
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("activity: marshal meta: %w", err)
		}
	}

	const query = `
		INSERT INTO activities (record_id, kind, description, actor_id, meta)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, recordID, kind, description, actor, metaJSON); err != nil {
		return fmt.Errorf("activity: insert entry: %w", err)
	}
	return nil
}

// RecordChange is the convenience wrapper for status-change kinds: it formats
// the description from the axis label and the old/new pair.
func (r *Recorder) RecordChange(ctx context.Context, tx pgx.Tx, recordID string, kind Kind, label, oldValue, newValue string, actor *string, at time.Time) error {
	desc := fmt.Sprintf("%s changed from %s to %s", label, oldValue, newValue)
	meta := &ChangeMeta{OldValue: oldValue, NewValue: newValue, Timestamp: at.UTC()}
	return r.Record(ctx, tx, recordID, kind, desc, actor, meta)
}

// Repository reads the log back.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByRecord returns the entries for one record, newest first.
func (r *Repository) ListByRecord(ctx context.Context, recordID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	const query = `
		SELECT id, record_id, kind, description, actor_id, meta, created_at
		FROM activities
		WHERE record_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("activity: list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e        Entry
			metaJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Kind, &e.Description, &e.Actor, &metaJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("activity: scan entry: %w", err)
		}
		if len(metaJSON) > 0 {
			var meta ChangeMeta
			if err := json.Unmarshal(metaJSON, &meta); err != nil {
				return nil, fmt.Errorf("activity: decode meta: %w", err)
			}
			e.Meta = &meta
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity: iterate entries: %w", err)
	}

	return entries, nil
}
