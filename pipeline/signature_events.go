package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sponsorflow/activity"
	"sponsorflow/esign"
)

var (
	// ErrDuplicateEvent signals the provider replayed a callback we already
	// applied.
	ErrDuplicateEvent = errors.New("pipeline: duplicate signature event")
	// ErrAgreementUnknown is returned when no record references the
	// agreement the provider reported on.
	ErrAgreementUnknown = errors.New("pipeline: unknown signing agreement")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SignatureEvent is a provider callback normalized for the service.
type SignatureEvent struct {
	EventID     string
	AgreementID string
	NextStatus  SignatureStatus
}

// SignatureEventFromCallback translates a verified provider callback into the
// status transition it requests.
func SignatureEventFromCallback(cb esign.Callback) (SignatureEvent, error) {
	var next SignatureStatus
	switch cb.Event {
	case esign.EventAgreementSigned:
		next = SignatureSigned
	case esign.EventAgreementRejected:
		next = SignatureRejected
	case esign.EventAgreementExpired:
		next = SignatureExpired
	default:
		return SignatureEvent{}, fmt.Errorf("pipeline: unsupported provider event %q", cb.Event)
	}
	return SignatureEvent{EventID: cb.EventID, AgreementID: cb.AgreementID, NextStatus: next}, nil
}

// SignatureEventRepository is the data access the webhook service needs.
type SignatureEventRepository interface {
	ReserveEvent(ctx context.Context, tx pgx.Tx, eventID string) error
	ApplySignatureStatus(ctx context.Context, tx pgx.Tx, event SignatureEvent, at time.Time) error
}

// SignatureEventService applies provider-driven signature transitions:
// pending -> signed | rejected | expired. Replayed events are no-ops.
type SignatureEventService struct {
	pool TxBeginner
	repo SignatureEventRepository
	now  func() time.Time
}

func NewSignatureEventService(pool TxBeginner, repo SignatureEventRepository) *SignatureEventService {
	if repo == nil {
		repo = &signatureEventRepo{recorder: activity.NewRecorder()}
	}
	return &SignatureEventService{pool: pool, repo: repo, now: time.Now}
}

func (s *SignatureEventService) WithClock(now func() time.Time) *SignatureEventService {
	s.now = now
	return s
}

// HandleEvent applies one callback. The event id doubles as the idempotency
// key; the reservation and the status write share a transaction.
func (s *SignatureEventService) HandleEvent(ctx context.Context, event SignatureEvent) error {
	if event.EventID == "" {
		return fmt.Errorf("pipeline: missing signature event id")
	}
	if event.AgreementID == "" {
		return fmt.Errorf("pipeline: missing agreement id")
	}
	if err := checkSignatureTransition(SignaturePending, event.NextStatus); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin signature event tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.ReserveEvent(ctx, tx, event.EventID); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return nil
		}
		return err
	}

	if err := s.repo.ApplySignatureStatus(ctx, tx, event, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pipeline: commit signature event tx: %w", err)
	}
	return nil
}

type signatureEventRepo struct {
	recorder *activity.Recorder
}

func (r *signatureEventRepo) ReserveEvent(ctx context.Context, tx pgx.Tx, eventID string) error {
	_, err := tx.Exec(ctx, `INSERT INTO signature_events (event_id) VALUES ($1)`, eventID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("pipeline: reserve signature event: %w", err)
	}
	return nil
}

func (r *signatureEventRepo) ApplySignatureStatus(ctx context.Context, tx pgx.Tx, event SignatureEvent, at time.Time) error {
	var (
		recordID string
		current  SignatureStatus
		contract ContractStatus
	)
	const lookupSQL = `
		SELECT id, signature_status, contract_status
		FROM pipeline_records
		WHERE signature_agreement_id = $1
		FOR UPDATE
	`
	if err := tx.QueryRow(ctx, lookupSQL, event.AgreementID).Scan(&recordID, &current, &contract); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAgreementUnknown
		}
		return fmt.Errorf("pipeline: lookup agreement: %w", err)
	}

	if err := checkSignatureTransition(current, event.NextStatus); err != nil {
		return err
	}

	nextContract := contract
	if event.NextStatus == SignatureSigned && CanTransitionContract(contract, ContractSigned, current) {
		nextContract = ContractSigned
	}

	const updateSQL = `
		UPDATE pipeline_records
		SET signature_status = $2, contract_status = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateSQL, recordID, event.NextStatus, nextContract); err != nil {
		return fmt.Errorf("pipeline: apply signature status: %w", err)
	}

	if err := r.recorder.RecordChange(ctx, tx, recordID, activity.KindSignatureStatusChanged,
		"Signature status", string(current), string(event.NextStatus), nil, at); err != nil {
		return err
	}
	if nextContract != contract {
		if err := r.recorder.RecordChange(ctx, tx, recordID, activity.KindContractStatusChanged,
			"Contract status", string(contract), string(nextContract), nil, at); err != nil {
			return err
		}
	}
	return nil
}
