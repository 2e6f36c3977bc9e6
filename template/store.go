package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sponsorflow/richtext"
)

var (
	// ErrNotFound signals the requested template does not exist.
	ErrNotFound = errors.New("template: not found")
)

const templateColumns = `
	id, event_id, title, tier_id, language, currency,
	sections, header, footer, terms, is_default, is_active,
	created_at, updated_at
`

// Store provides CRUD over contract templates.
type Store struct {
	pool  *pgxpool.Pool
	idGen func() string
	now   func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		idGen: func() string { return uuid.NewString() },
		now:   time.Now,
	}
}

func (s *Store) WithIDGenerator(gen func() string) *Store {
	s.idGen = gen
	return s
}

// CreateParams enumerates the writable template fields.
type CreateParams struct {
	EventID   string
	Title     string
	TierID    *string
	Language  Language
	Currency  string
	Sections  []Section
	Header    *string
	Footer    *string
	Terms     richtext.Document
	IsDefault bool
	IsActive  bool
}

func (s *Store) Create(ctx context.Context, params CreateParams) (Template, error) {
	if params.EventID == "" {
		return Template{}, fmt.Errorf("template: event id required")
	}
	if params.Title == "" {
		return Template{}, fmt.Errorf("template: title required")
	}
	if params.Language != LangNorwegian && params.Language != LangEnglish {
		return Template{}, fmt.Errorf("template: unsupported language %q", params.Language)
	}

	const query = `
		INSERT INTO contract_templates
			(id, event_id, title, tier_id, language, currency, sections, header, footer, terms, is_default, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING ` + templateColumns

	row := s.pool.QueryRow(ctx, query,
		s.idGen(), params.EventID, params.Title, params.TierID, params.Language, params.Currency,
		params.Sections, params.Header, params.Footer, params.Terms, params.IsDefault, params.IsActive,
	)
	tpl, err := scanTemplate(row)
	if err != nil {
		return Template{}, fmt.Errorf("template: insert: %w", err)
	}
	return tpl, nil
}

func (s *Store) Get(ctx context.Context, id string) (Template, error) {
	query := `SELECT ` + templateColumns + ` FROM contract_templates WHERE id = $1`
	tpl, err := scanTemplate(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("template: get: %w", err)
	}
	return tpl, nil
}

// UpdateParams mirrors CreateParams; every field is written, read-modify-write
// style, against the current row.
type UpdateParams struct {
	Title     string
	TierID    *string
	Language  Language
	Currency  string
	Sections  []Section
	Header    *string
	Footer    *string
	Terms     richtext.Document
	IsDefault bool
	IsActive  bool
}

func (s *Store) Update(ctx context.Context, id string, params UpdateParams) (Template, error) {
	const query = `
		UPDATE contract_templates
		SET title=$2, tier_id=$3, language=$4, currency=$5, sections=$6,
		    header=$7, footer=$8, terms=$9, is_default=$10, is_active=$11,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + templateColumns

	row := s.pool.QueryRow(ctx, query, id,
		params.Title, params.TierID, params.Language, params.Currency, params.Sections,
		params.Header, params.Footer, params.Terms, params.IsDefault, params.IsActive,
	)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("template: update: %w", err)
	}
	return tpl, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contract_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("template: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns every template owned by the event, oldest first, so the
// matcher's fetch-order tie break is stable.
func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM contract_templates WHERE event_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("template: list: %w", err)
	}
	defer rows.Close()

	templates := make([]Template, 0, 8)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("template: scan: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template: iterate: %w", err)
	}
	return templates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (Template, error) {
	var tpl Template
	err := row.Scan(
		&tpl.ID, &tpl.EventID, &tpl.Title, &tpl.TierID, &tpl.Language, &tpl.Currency,
		&tpl.Sections, &tpl.Header, &tpl.Footer, &tpl.Terms, &tpl.IsDefault, &tpl.IsActive,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	return tpl, err
}
