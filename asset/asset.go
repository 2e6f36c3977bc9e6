// Package asset stores rendered document bytes and hands back stable
// references usable for later retrieval and download.
package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the referenced asset does not exist.
var ErrNotFound = errors.New("asset: not found")

// Ref is a stable reference to a stored asset.
type Ref struct {
	ID          string
	Filename    string
	ContentType string
	Size        int
	CreatedAt   time.Time
}

// Object is a stored asset including its bytes.
type Object struct {
	Ref
	Data []byte
}

// PutParams describes one upload.
type PutParams struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Store is the narrow binary-asset interface the orchestrator depends on.
type Store interface {
	Put(ctx context.Context, params PutParams) (Ref, error)
	Get(ctx context.Context, id string) (Object, error)
}

// PGStore keeps assets in a bytea column.
type PGStore struct {
	pool  *pgxpool.Pool
	idGen func() string
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool:  pool,
		idGen: func() string { return uuid.NewString() },
	}
}

func (s *PGStore) WithIDGenerator(gen func() string) *PGStore {
	s.idGen = gen
	return s
}

func (s *PGStore) Put(ctx context.Context, params PutParams) (Ref, error) {
	if len(params.Data) == 0 {
		return Ref{}, fmt.Errorf("asset: empty payload")
	}
	if params.Filename == "" {
		return Ref{}, fmt.Errorf("asset: filename required")
	}
	if params.ContentType == "" {
		params.ContentType = "application/octet-stream"
	}

	const query = `
		INSERT INTO assets (id, filename, content_type, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, filename, content_type, octet_length(data), created_at
	`
	var ref Ref
	err := s.pool.QueryRow(ctx, query, s.idGen(), params.Filename, params.ContentType, params.Data).
		Scan(&ref.ID, &ref.Filename, &ref.ContentType, &ref.Size, &ref.CreatedAt)
	if err != nil {
		return Ref{}, fmt.Errorf("asset: insert: %w", err)
	}
	return ref, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Object, error) {
	const query = `
		SELECT id, filename, content_type, octet_length(data), created_at, data
		FROM assets
		WHERE id = $1
	`
	var obj Object
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&obj.ID, &obj.Filename, &obj.ContentType, &obj.Size, &obj.CreatedAt, &obj.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("asset: get: %w", err)
	}
	return obj, nil
}
