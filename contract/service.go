package contract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sponsorflow/activity"
	"sponsorflow/asset"
	"sponsorflow/esign"
	"sponsorflow/pipeline"
	"sponsorflow/template"
)

// ValidationError reports the readiness gaps that blocked a send. Callers get
// the structured field list, grouped by source, not a single message.
type ValidationError struct {
	Missing []Gap
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Missing))
	for i, gap := range e.Missing {
		fields[i] = fmt.Sprintf("%s/%s", gap.Source, gap.Field)
	}
	return "contract: not ready to send: missing " + strings.Join(fields, ", ")
}

// RecordStore is the slice of the pipeline repository the orchestrator needs.
type RecordStore interface {
	Get(ctx context.Context, id string) (pipeline.Record, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (pipeline.Record, error)
	MarkContractSent(ctx context.Context, tx pgx.Tx, id string, assetID string, setPending bool) error
	SetSignatureAgreement(ctx context.Context, id, agreementID string) error
}

// TemplateMatcher picks the best-fit template for a send.
type TemplateMatcher interface {
	Match(ctx context.Context, eventID string, req template.MatchRequest) (template.Template, error)
}

// ActivityRecorder appends audit entries inside the send transaction.
type ActivityRecorder interface {
	RecordChange(ctx context.Context, tx pgx.Tx, recordID string, kind activity.Kind, label, oldValue, newValue string, actor *string, at time.Time) error
}

// Service drives a pipeline record through contract generation and the
// external signing workflow.
type Service struct {
	pool      pipeline.TxBeginner
	records   RecordStore
	templates TemplateMatcher
	directory Directory
	assets    asset.Store
	provider  esign.Provider
	recorder  ActivityRecorder
	logger    *zap.Logger

	// selfHosted suppresses the provider registration and the invisible
	// anchor markers; how a self-hosted flow collects signatures is an
	// extension point behind esign.Provider.
	selfHosted bool

	now func() time.Time
}

type ServiceParams struct {
	Pool       pipeline.TxBeginner
	Records    RecordStore
	Templates  TemplateMatcher
	Directory  Directory
	Assets     asset.Store
	Provider   esign.Provider
	Recorder   ActivityRecorder
	Logger     *zap.Logger
	SelfHosted bool
}

func NewService(params ServiceParams) *Service {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		pool:       params.Pool,
		records:    params.Records,
		templates:  params.Templates,
		directory:  params.Directory,
		assets:     params.Assets,
		provider:   params.Provider,
		recorder:   params.Recorder,
		logger:     logger,
		selfHosted: params.SelfHosted,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendParams describes one send request.
type SendParams struct {
	RecordID string
	ActorID  string
	// Language narrows template matching; defaults to Norwegian.
	Language template.Language
}

// SendResult reports what a successful send produced. AgreementID stays empty
// when the provider call failed or self-hosted mode skipped it.
type SendResult struct {
	AssetID     string
	AgreementID string
	Report      ReadinessReport
}

// CheckRecord runs the readiness check for one record without sending.
func (s *Service) CheckRecord(ctx context.Context, recordID string) (ReadinessReport, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return ReadinessReport{}, err
	}
	input, err := s.buildReadinessInput(ctx, rec)
	if err != nil {
		return ReadinessReport{}, err
	}
	return CheckReadiness(input), nil
}

// SendForSignature renders the contract, persists it, marks the record sent
// and registers the document with the signing provider. Provider failure is
// non-fatal: the contract stays sent, the asset stays persisted, only the
// agreement id is left unset.
func (s *Service) SendForSignature(ctx context.Context, params SendParams) (SendResult, error) {
	if params.RecordID == "" {
		return SendResult{}, fmt.Errorf("contract: send requires record id")
	}
	lang := params.Language
	if lang == "" {
		lang = template.LangNorwegian
	}

	rec, err := s.records.Get(ctx, params.RecordID)
	if err != nil {
		return SendResult{}, err
	}

	input, err := s.buildReadinessInput(ctx, rec)
	if err != nil {
		return SendResult{}, err
	}
	report := CheckReadiness(input)
	if !report.CanSend {
		return SendResult{}, &ValidationError{Missing: report.Missing}
	}

	tpl, err := s.templates.Match(ctx, rec.EventID, template.MatchRequest{
		TierID:   rec.TierID,
		Language: lang,
	})
	if err != nil {
		return SendResult{}, err
	}

	vc, err := s.buildVariableContext(ctx, rec, input, lang, tpl)
	if err != nil {
		return SendResult{}, err
	}

	pdfBytes, err := RenderDocument(RenderInput{
		Template:              tpl,
		Vars:                  BuildVariables(vc),
		Context:               vc,
		EmbedSignatureMarkers: !s.selfHosted,
	})
	if err != nil {
		return SendResult{}, err
	}

	filename := contractFilename(vc.Sponsor.Name, vc.Event.Title)
	ref, err := s.assets.Put(ctx, asset.PutParams{
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        pdfBytes,
	})
	if err != nil {
		return SendResult{}, err
	}

	contact := rec.PrimaryContact()
	setPending := contact != nil && contact.Email != ""

	if err := s.markSent(ctx, rec, ref.ID, setPending, params.ActorID); err != nil {
		return SendResult{}, err
	}

	result := SendResult{AssetID: ref.ID, Report: report}

	if s.selfHosted || !setPending {
		return result, nil
	}

	// Provider calls run outside the transaction; their failure must not
	// unwind the local state committed above.
	agreementID, err := s.registerWithProvider(ctx, rec, vc, pdfBytes, filename, contact.Email)
	if err != nil {
		s.logger.Warn("signing provider registration failed; contract stays sent",
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
		return result, nil
	}
	result.AgreementID = agreementID

	if err := s.records.SetSignatureAgreement(ctx, rec.ID, agreementID); err != nil {
		s.logger.Warn("could not store agreement id",
			zap.String("record_id", rec.ID),
			zap.String("agreement_id", agreementID),
			zap.Error(err),
		)
	}
	return result, nil
}

// markSent applies the contract-sent patch and its audit entries in one
// transaction, computing deltas against the freshly-read record.
func (s *Service) markSent(ctx context.Context, rec pipeline.Record, assetID string, setPending bool, actorID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("contract: begin send tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.records.GetForUpdate(ctx, tx, rec.ID)
	if err != nil {
		return err
	}
	if !pipeline.CanTransitionContract(current.ContractStatus, pipeline.ContractSent, current.SignatureStatus) {
		return fmt.Errorf("contract: %s -> %s: %w", current.ContractStatus, pipeline.ContractSent, pipeline.ErrInvalidTransition)
	}
	if setPending && !pipeline.CanTransitionSignature(current.SignatureStatus, pipeline.SignaturePending) {
		return fmt.Errorf("contract: signature %s -> %s: %w", current.SignatureStatus, pipeline.SignaturePending, pipeline.ErrInvalidTransition)
	}

	if err := s.records.MarkContractSent(ctx, tx, current.ID, assetID, setPending); err != nil {
		return err
	}

	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	now := s.now()

	if err := s.recorder.RecordChange(ctx, tx, current.ID, activity.KindContractStatusChanged,
		"Contract status", string(current.ContractStatus), string(pipeline.ContractSent), actor, now); err != nil {
		return err
	}
	if setPending {
		if err := s.recorder.RecordChange(ctx, tx, current.ID, activity.KindSignatureStatusChanged,
			"Signature status", string(current.SignatureStatus), string(pipeline.SignaturePending), actor, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("contract: commit send tx: %w", err)
	}
	return nil
}

func (s *Service) registerWithProvider(ctx context.Context, rec pipeline.Record, vc VariableContext, pdfBytes []byte, filename, signerEmail string) (string, error) {
	transientID, err := s.provider.UploadDocument(ctx, pdfBytes, filename)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("Sponsor agreement: %s × %s", vc.Event.Title, vc.Sponsor.Name)
	return s.provider.CreateAgreement(ctx, esign.AgreementParams{
		Name:                name,
		ParticipantEmail:    signerEmail,
		Message:             "Please review and sign the attached sponsor agreement.",
		TransientDocumentID: transientID,
	})
}

func (s *Service) buildReadinessInput(ctx context.Context, rec pipeline.Record) (ReadinessInput, error) {
	event, err := s.directory.Event(ctx, rec.EventID)
	if err != nil {
		return ReadinessInput{}, err
	}
	sponsor, err := s.directory.Sponsor(ctx, rec.SponsorID)
	if err != nil {
		return ReadinessInput{}, err
	}
	return ReadinessInput{Record: rec, Sponsor: sponsor, Event: event}, nil
}

func (s *Service) buildVariableContext(ctx context.Context, rec pipeline.Record, input ReadinessInput, lang template.Language, tpl template.Template) (VariableContext, error) {
	vc := VariableContext{
		Sponsor:  input.Sponsor,
		Event:    input.Event,
		Amount:   rec.Amount,
		Currency: rec.Currency,
		Language: lang,
	}
	if vc.Currency == "" {
		vc.Currency = tpl.Currency
	}

	if contact := rec.PrimaryContact(); contact != nil {
		vc.Contact = &ContactInfo{Name: contact.Name, Email: contact.Email, Phone: contact.Phone}
	}
	if rec.TierID != nil {
		tier, err := s.directory.Tier(ctx, *rec.TierID)
		if err != nil {
			return VariableContext{}, err
		}
		vc.Tier = &tier
	}
	addOns, err := s.directory.AddOns(ctx, rec.AddOnIDs)
	if err != nil {
		return VariableContext{}, err
	}
	vc.AddOns = addOns

	return vc, nil
}

func contractFilename(sponsorName, eventTitle string) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		var b strings.Builder
		for _, r := range s {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ' || r == '-' || r == '_':
				b.WriteByte('-')
			}
		}
		return strings.Trim(b.String(), "-")
	}
	name := slug(eventTitle) + "-" + slug(sponsorName)
	if name == "-" {
		name = "sponsor-agreement"
	}
	return name + ".pdf"
}
