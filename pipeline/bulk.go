package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sponsorflow/activity"
)

// ActivityRecorder is the slice of the activity log the bulk engine needs.
type ActivityRecorder interface {
	RecordChange(ctx context.Context, tx pgx.Tx, recordID string, kind activity.Kind, label, oldValue, newValue string, actor *string, at time.Time) error
}

// Changes is the partial set of field mutations a bulk operation applies to
// every targeted record. Nil pointers leave the field untouched. Tag modes
// combine with replace > add > remove precedence.
type Changes struct {
	Status         *Status
	ContractStatus *ContractStatus
	InvoiceStatus  *InvoiceStatus

	AssignedTo *string
	Unassign   bool

	ReplaceTags []string
	AddTags     []string
	RemoveTags  []string
}

func (c Changes) empty() bool {
	return c.Status == nil && c.ContractStatus == nil && c.InvoiceStatus == nil &&
		c.AssignedTo == nil && !c.Unassign &&
		c.ReplaceTags == nil && c.AddTags == nil && c.RemoveTags == nil
}

// BulkResult summarizes an applied bulk mutation.
type BulkResult struct {
	Targeted int
	Updated  int
	Logged   int
}

// BulkService applies the same field changes to many records in one
// transaction. Either every targeted record receives its update and matching
// activity entries, or none do.
type BulkService struct {
	pool     *pgxpool.Pool
	repo     *Repository
	recorder ActivityRecorder
	now      func() time.Time
}

func NewBulkService(pool *pgxpool.Pool, repo *Repository, recorder ActivityRecorder) *BulkService {
	if repo == nil {
		repo = NewRepository(pool)
	}
	return &BulkService{pool: pool, repo: repo, recorder: recorder, now: time.Now}
}

func (s *BulkService) WithClock(now func() time.Time) *BulkService {
	s.now = now
	return s
}

// Apply mutates every record in ids. Invalid transitions and write failures
// abort the whole batch. Activity entries are emitted only for records whose
// status or assignment actually changed value.
func (s *BulkService) Apply(ctx context.Context, ids []string, changes Changes, actorID string) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, fmt.Errorf("pipeline: bulk apply requires record ids")
	}
	if changes.empty() {
		return BulkResult{}, fmt.Errorf("pipeline: bulk apply requires at least one change")
	}
	// overlapping batches must acquire row locks in the same order
	ids = sortedIDs(ids)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return BulkResult{}, fmt.Errorf("pipeline: begin bulk tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	now := s.now()

	result := BulkResult{Targeted: len(ids)}
	for _, id := range ids {
		rec, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return BulkResult{}, err
		}

		delta, err := computeDelta(rec, changes)
		if err != nil {
			return BulkResult{}, err
		}
		if !delta.dirty {
			continue
		}

		if err := s.writeDelta(ctx, tx, rec.ID, delta); err != nil {
			return BulkResult{}, err
		}
		result.Updated++

		if delta.statusChanged {
			if err := s.recorder.RecordChange(ctx, tx, rec.ID, activity.KindStatusChanged,
				"Status", string(rec.Status), string(delta.status), actor, now); err != nil {
				return BulkResult{}, fmt.Errorf("pipeline: bulk status activity: %w", err)
			}
			result.Logged++
		}
		if delta.assignedChanged {
			if err := s.recorder.RecordChange(ctx, tx, rec.ID, activity.KindAssignmentChanged,
				"Assignment", derefOr(rec.AssignedTo, "unassigned"), derefOr(delta.assignedTo, "unassigned"), actor, now); err != nil {
				return BulkResult{}, fmt.Errorf("pipeline: bulk assignment activity: %w", err)
			}
			result.Logged++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BulkResult{}, fmt.Errorf("pipeline: commit bulk tx: %w", err)
	}

	return result, nil
}

// delta carries the fully-resolved target values for one record.
type delta struct {
	dirty bool

	status          Status
	statusChanged   bool
	contract        ContractStatus
	invoice         InvoiceStatus
	assignedTo      *string
	assignedChanged bool
	tags            []string
}

// computeDelta resolves changes against the freshly-read record and validates
// transition legality on the status axes. No-op changes come back clean.
func computeDelta(rec Record, changes Changes) (delta, error) {
	d := delta{
		status:     rec.Status,
		contract:   rec.ContractStatus,
		invoice:    rec.InvoiceStatus,
		assignedTo: rec.AssignedTo,
		tags:       rec.Tags,
	}

	if changes.Status != nil && *changes.Status != rec.Status {
		if !CanTransitionStatus(rec.Status, *changes.Status) {
			return delta{}, fmt.Errorf("pipeline: record %s status %s -> %s: %w", rec.ID, rec.Status, *changes.Status, ErrInvalidTransition)
		}
		d.status = *changes.Status
		d.statusChanged = true
		d.dirty = true
	}
	if changes.ContractStatus != nil && *changes.ContractStatus != rec.ContractStatus {
		if !CanTransitionContract(rec.ContractStatus, *changes.ContractStatus, rec.SignatureStatus) {
			return delta{}, fmt.Errorf("pipeline: record %s contract %s -> %s: %w", rec.ID, rec.ContractStatus, *changes.ContractStatus, ErrInvalidTransition)
		}
		d.contract = *changes.ContractStatus
		d.dirty = true
	}
	if changes.InvoiceStatus != nil && *changes.InvoiceStatus != rec.InvoiceStatus {
		d.invoice = *changes.InvoiceStatus
		d.dirty = true
	}

	switch {
	case changes.Unassign:
		if rec.AssignedTo != nil {
			d.assignedTo = nil
			d.assignedChanged = true
			d.dirty = true
		}
	case changes.AssignedTo != nil:
		if rec.AssignedTo == nil || *rec.AssignedTo != *changes.AssignedTo {
			d.assignedTo = changes.AssignedTo
			d.assignedChanged = true
			d.dirty = true
		}
	}

	if changes.ReplaceTags != nil || changes.AddTags != nil || changes.RemoveTags != nil {
		next := resolveTags(rec.Tags, changes.ReplaceTags, changes.AddTags, changes.RemoveTags)
		if !equalStrings(rec.Tags, next) {
			d.tags = next
			d.dirty = true
		}
	}

	return d, nil
}

// resolveTags applies the three tag modes in precedence order: full replace
// first, then additive union, then subtractive difference. Order of surviving
// tags is preserved; additions keep their given order, duplicates collapse.
func resolveTags(current, replace, add, remove []string) []string {
	base := current
	if replace != nil {
		base = replace
	}

	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, t := range base {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range add {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}

	if len(remove) > 0 {
		drop := make(map[string]bool, len(remove))
		for _, t := range remove {
			drop[t] = true
		}
		kept := out[:0]
		for _, t := range out {
			if !drop[t] {
				kept = append(kept, t)
			}
		}
		out = kept
	}

	return out
}

func (s *BulkService) writeDelta(ctx context.Context, tx pgx.Tx, id string, d delta) error {
	const query = `
		UPDATE pipeline_records
		SET status = $2,
		    contract_status = $3,
		    invoice_status = $4,
		    assigned_to = $5,
		    tags = $6,
		    updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, id, d.status, d.contract, d.invoice, d.assignedTo, d.tags); err != nil {
		return fmt.Errorf("pipeline: bulk update record %s: %w", id, err)
	}
	return nil
}

// sortedIDs returns a sorted copy; the caller's slice stays untouched.
func sortedIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
