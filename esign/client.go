// Package esign talks to the external e-signature provider. The orchestrator
// depends only on the Provider interface so alternate providers or a
// self-hosted fallback can be substituted without touching it.
package esign

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AgreementParams describes one signing agreement to create.
type AgreementParams struct {
	Name             string
	ParticipantEmail string
	Message          string
	// TransientDocumentID references a previously uploaded document.
	TransientDocumentID string
}

// Provider is the narrow surface of the e-signature service.
type Provider interface {
	// UploadDocument pushes raw document bytes and returns a transient id.
	UploadDocument(ctx context.Context, data []byte, filename string) (string, error)
	// CreateAgreement creates a signing agreement and returns its id.
	CreateAgreement(ctx context.Context, params AgreementParams) (string, error)
}

// Client is the HTTP implementation of Provider.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetAuthToken(apiKey)

	return &Client{http: httpClient, logger: logger}
}

type uploadResponse struct {
	TransientDocumentID string `json:"transientDocumentId"`
}

func (c *Client) UploadDocument(ctx context.Context, data []byte, filename string) (string, error) {
	var result uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("File", filename, bytes.NewReader(data)).
		SetFormData(map[string]string{"File-Name": filename, "Mime-Type": "application/pdf"}).
		SetResult(&result).
		Post("/api/rest/v6/transientDocuments")
	if err != nil {
		return "", fmt.Errorf("esign: upload document: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("esign: upload document: provider returned %s", resp.Status())
	}
	if result.TransientDocumentID == "" {
		return "", fmt.Errorf("esign: upload document: empty transient id")
	}

	c.logger.Info("uploaded transient document",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return result.TransientDocumentID, nil
}

type agreementRequest struct {
	Name               string           `json:"name"`
	SignatureType      string           `json:"signatureType"`
	State              string           `json:"state"`
	Message            string           `json:"message,omitempty"`
	FileInfos          []fileInfo       `json:"fileInfos"`
	ParticipantSetInfo []participantSet `json:"participantSetsInfo"`
}

type fileInfo struct {
	TransientDocumentID string `json:"transientDocumentId"`
}

type participantSet struct {
	Role       string        `json:"role"`
	Order      int           `json:"order"`
	MemberInfo []participant `json:"memberInfos"`
}

type participant struct {
	Email string `json:"email"`
}

type agreementResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateAgreement(ctx context.Context, params AgreementParams) (string, error) {
	if params.ParticipantEmail == "" {
		return "", fmt.Errorf("esign: create agreement: participant email required")
	}
	if params.TransientDocumentID == "" {
		return "", fmt.Errorf("esign: create agreement: transient document required")
	}

	body := agreementRequest{
		Name:          params.Name,
		SignatureType: "ESIGN",
		State:         "IN_PROCESS",
		Message:       params.Message,
		FileInfos:     []fileInfo{{TransientDocumentID: params.TransientDocumentID}},
		ParticipantSetInfo: []participantSet{{
			Role:       "SIGNER",
			Order:      1,
			MemberInfo: []participant{{Email: params.ParticipantEmail}},
		}},
	}

	var result agreementResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post("/api/rest/v6/agreements")
	if err != nil {
		return "", fmt.Errorf("esign: create agreement: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("esign: create agreement: provider returned %s", resp.Status())
	}
	if result.ID == "" {
		return "", fmt.Errorf("esign: create agreement: empty agreement id")
	}

	c.logger.Info("created signing agreement",
		zap.String("agreement_id", result.ID),
		zap.String("participant", params.ParticipantEmail),
	)
	return result.ID, nil
}
