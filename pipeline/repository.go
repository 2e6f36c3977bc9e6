package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no pipeline record exists for the identifier.
var ErrNotFound = errors.New("pipeline: record not found")

const recordColumns = `
	id, event_id, sponsor_id, tier_id, addon_ids,
	status, contract_status, signature_status, invoice_status,
	amount, currency, tags, assigned_to, contacts, billing,
	document_asset_id, signature_agreement_id, created_at, updated_at
`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.EventID, &rec.SponsorID, &rec.TierID, &rec.AddOnIDs,
		&rec.Status, &rec.ContractStatus, &rec.SignatureStatus, &rec.InvoiceStatus,
		&rec.Amount, &rec.Currency, &rec.Tags, &rec.AssignedTo, &rec.Contacts, &rec.Billing,
		&rec.DocumentAssetID, &rec.SignatureAgreementID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// Get fetches a record by primary key.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM pipeline_records WHERE id = $1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("pipeline: get record: %w", err)
	}
	return rec, nil
}

// GetForUpdate fetches a record inside the caller's transaction with a row
// lock, so deltas are computed against the freshly-read value.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM pipeline_records WHERE id = $1 FOR UPDATE`
	rec, err := scanRecord(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("pipeline: get record for update: %w", err)
	}
	return rec, nil
}

// List fetches records for an event, optionally narrowed by status set,
// assignee, tag and tier.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Record, int, error) {
	if filters.EventID == "" {
		return nil, 0, fmt.Errorf("pipeline: list requires event id")
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 200 {
		filters.PageSize = 50
	}

	where := `WHERE event_id = $1`
	args := []any{filters.EventID}
	if len(filters.Statuses) > 0 {
		args = append(args, filters.Statuses)
		where += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if filters.AssignedTo != "" {
		args = append(args, filters.AssignedTo)
		where += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	if filters.Tag != "" {
		args = append(args, filters.Tag)
		where += fmt.Sprintf(" AND $%d = ANY(tags)", len(args))
	}
	if filters.TierID != "" {
		args = append(args, filters.TierID)
		where += fmt.Sprintf(" AND tier_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pipeline_records `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pipeline: count records: %w", err)
	}

	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)
	query := fmt.Sprintf(
		`SELECT %s FROM pipeline_records %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		recordColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: list records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, filters.PageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pipeline: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pipeline: iterate records: %w", err)
	}

	return records, total, nil
}

// MarkContractSent flips the contract axis to contract-sent, stores the
// rendered document reference and, when pending is set, the signature axis.
// It runs inside the caller's transaction so the activity entries land
// atomically with the patch.
func (r *Repository) MarkContractSent(ctx context.Context, tx pgx.Tx, id string, assetID string, setPending bool) error {
	const query = `
		UPDATE pipeline_records
		SET contract_status = $2,
		    signature_status = CASE WHEN $3 THEN $4 ELSE signature_status END,
		    document_asset_id = $5,
		    signature_agreement_id = NULL,
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, id, ContractSent, setPending, SignaturePending, assetID)
	if err != nil {
		return fmt.Errorf("pipeline: mark contract sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSignatureAgreement stores the provider agreement id after a successful
// registration. Best-effort follow-up write, outside the send transaction.
func (r *Repository) SetSignatureAgreement(ctx context.Context, id, agreementID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE pipeline_records SET signature_agreement_id = $2, updated_at = now() WHERE id = $1`,
		id, agreementID,
	)
	if err != nil {
		return fmt.Errorf("pipeline: set signature agreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
