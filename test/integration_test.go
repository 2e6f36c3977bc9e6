package test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"sponsorflow/activity"
	"sponsorflow/pipeline"
	"sponsorflow/test/infra"
)

// TestPipelineIntegration runs the bulk engine and the webhook service against
// a real Postgres. Gated: skipped when neither Docker nor
// INTEGRATION_TEST_PG_DSN is available.
func TestPipelineIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if os.Getenv("INTEGRATION_TEST_PG_DSN") == "" && !dockerAvailable(ctx) {
		t.Skip("no Docker and no INTEGRATION_TEST_PG_DSN")
	}

	pgC, dsn, err := infra.StartPostgres16(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer pgC.Terminate(context.Background())

	pool, err := infra.ApplyMigrations(ctx, dsn)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()

	seed := mustSeed(t, ctx, pool)

	repo := pipeline.NewRepository(pool)
	recorder := activity.NewRecorder()
	bulk := pipeline.NewBulkService(pool, repo, recorder)
	events := pipeline.NewSignatureEventService(pool, nil)

	t.Run("BulkApply", func(t *testing.T) {
		status := pipeline.StatusContacted
		result, err := bulk.Apply(ctx, seed.recordIDs, pipeline.Changes{
			Status:  &status,
			AddTags: []string{"outreach-2026"},
		}, "user-integration")
		if err != nil {
			t.Fatalf("bulk apply: %v", err)
		}
		if result.Updated != len(seed.recordIDs) {
			t.Errorf("updated %d of %d", result.Updated, len(seed.recordIDs))
		}
		// every record transitioned, so every record gets a status entry
		if result.Logged != len(seed.recordIDs) {
			t.Errorf("logged %d activity entries, want %d", result.Logged, len(seed.recordIDs))
		}

		rec, err := repo.Get(ctx, seed.recordIDs[0])
		if err != nil {
			t.Fatalf("re-read: %v", err)
		}
		if rec.Status != pipeline.StatusContacted {
			t.Errorf("status = %s", rec.Status)
		}
		if len(rec.Tags) == 0 || rec.Tags[len(rec.Tags)-1] != "outreach-2026" {
			t.Errorf("tags = %v", rec.Tags)
		}
	})

	t.Run("BulkApplyAllOrNothing", func(t *testing.T) {
		// closed-won is not reachable from contacted, so the whole batch
		// must roll back
		won := pipeline.StatusClosedWon
		_, err := bulk.Apply(ctx, seed.recordIDs, pipeline.Changes{Status: &won}, "")
		if !errors.Is(err, pipeline.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		rec, err := repo.Get(ctx, seed.recordIDs[0])
		if err != nil {
			t.Fatalf("re-read: %v", err)
		}
		if rec.Status == pipeline.StatusClosedWon {
			t.Errorf("failed batch leaked a write")
		}
	})

	t.Run("ConcurrentWebhookReplay", func(t *testing.T) {
		markPendingSignature(t, ctx, pool, seed.signedRecordID, seed.agreementID)

		event := pipeline.SignatureEvent{
			EventID:     "evt-replay-1",
			AgreementID: seed.agreementID,
			NextStatus:  pipeline.SignatureSigned,
		}

		// the provider retries aggressively; every delivery must succeed
		// and exactly one may apply
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < 8; i++ {
			g.Go(func() error { return events.HandleEvent(gctx, event) })
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent deliveries: %v", err)
		}

		rec, err := repo.Get(ctx, seed.signedRecordID)
		if err != nil {
			t.Fatalf("re-read: %v", err)
		}
		if rec.SignatureStatus != pipeline.SignatureSigned {
			t.Errorf("signature status = %s", rec.SignatureStatus)
		}
		if rec.ContractStatus != pipeline.ContractSigned {
			t.Errorf("contract status = %s, want propagation to signed", rec.ContractStatus)
		}

		entries, err := activity.NewRepository(pool).ListByRecord(ctx, seed.signedRecordID, 50)
		if err != nil {
			t.Fatalf("list activity: %v", err)
		}
		signatureEntries := 0
		for _, e := range entries {
			if e.Kind == activity.KindSignatureStatusChanged {
				signatureEntries++
			}
		}
		if signatureEntries != 1 {
			t.Errorf("replayed event logged %d signature entries, want 1", signatureEntries)
		}
	})

	t.Run("UnknownAgreement", func(t *testing.T) {
		err := events.HandleEvent(ctx, pipeline.SignatureEvent{
			EventID:     "evt-unknown-1",
			AgreementID: "agr-nobody",
			NextStatus:  pipeline.SignatureRejected,
		})
		if !errors.Is(err, pipeline.ErrAgreementUnknown) {
			t.Fatalf("expected ErrAgreementUnknown, got %v", err)
		}
	})
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	eventID        string
	sponsorID      string
	recordIDs      []string
	signedRecordID string
	agreementID    string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	s := seedIDs{
		eventID:     "event-int",
		sponsorID:   "sponsor-int",
		agreementID: "agr-int-1",
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO events (id, title, start_date, end_date, venue, organizer_name, organizer_org_number)
		VALUES ($1, 'DevConf', '2026-06-12', '2026-06-14', 'Oslo Spektrum', 'DevConf AS', '123456789')
	`, s.eventID); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO sponsors (id, name, org_number) VALUES ($1, 'Acme Corp', '987654321')
	`, s.sponsorID); err != nil {
		t.Fatalf("seed sponsor: %v", err)
	}

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("rec-int-%d", i)
		if _, err := pool.Exec(ctx, `
			INSERT INTO pipeline_records (id, event_id, sponsor_id, contacts)
			VALUES ($1, $2, $3, '[{"name":"Kari Nordmann","email":"kari@acme.example","primary":true}]')
		`, id, s.eventID, s.sponsorID); err != nil {
			t.Fatalf("seed record %s: %v", id, err)
		}
		s.recordIDs = append(s.recordIDs, id)
	}
	s.signedRecordID = s.recordIDs[len(s.recordIDs)-1]

	return s
}

// markPendingSignature puts one record into the sent/pending state a webhook
// expects.
func markPendingSignature(t *testing.T, ctx context.Context, pool *pgxpool.Pool, recordID, agreementID string) {
	t.Helper()
	if _, err := pool.Exec(ctx, `
		UPDATE pipeline_records
		SET contract_status = 'contract-sent',
		    signature_status = 'pending',
		    signature_agreement_id = $2
		WHERE id = $1
	`, recordID, agreementID); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
}
