package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/rocjay1/koala-laundry/internal/models"
)

// ErrNoRecipients is returned when every address is blank.
var ErrNoRecipients = errors.New("no email recipients")

// EmailService sends notifications through the Azure Communication Services REST API.
type EmailService struct {
	endpoint   string
	sender     string
	cred       azcore.TokenCredential
	httpClient *http.Client
}

// NewEmailService creates a new EmailService instance.
// If cred is nil, it defaults to using DefaultAzureCredential.
func NewEmailService(cred azcore.TokenCredential) (*EmailService, error) {
	endpoint := os.Getenv("COMMUNICATION_SERVICES_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("COMMUNICATION_SERVICES_ENDPOINT environment variable is required")
	}

	sender := os.Getenv("SENDER_EMAIL")
	if sender == "" {
		return nil, fmt.Errorf("SENDER_EMAIL environment variable is required")
	}

	if cred == nil {
		var err error
		cred, err = newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
	}

	return &EmailService{
		endpoint:   strings.TrimRight(endpoint, "/"),
		sender:     sender,
		cred:       cred,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

const (
	emailScope      = "https://communication.azure.com//.default"
	emailAPIVersion = "2023-03-31"

	// SubjectPrefix tags every notification so the laundry inbox can filter on it.
	SubjectPrefix = "Koala Laundry - "
)

type emailAddress struct {
	Address string `json:"address"`
}

type emailRecipients struct {
	To []emailAddress `json:"to"`
}

type emailContent struct {
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	PlainText string `json:"plainText,omitempty"`
}

type emailRequest struct {
	SenderAddress string          `json:"senderAddress"`
	Content       emailContent    `json:"content"`
	Recipients    emailRecipients `json:"recipients"`
}

// notification is one laundry email before it is addressed.
type notification struct {
	subject string
	html    string
	text    string
}

// recipientList trims, lowercases and de-duplicates addresses.
func recipientList(to []string) []emailAddress {
	seen := make(map[string]bool, len(to))
	out := make([]emailAddress, 0, len(to))
	for _, addr := range to {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, emailAddress{Address: addr})
	}
	return out
}

// SendEmail sends an HTML email; the subject gets SubjectPrefix unless it already has it.
func (s *EmailService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	return s.send(ctx, to, notification{subject: subject, html: body})
}

func (s *EmailService) send(ctx context.Context, to []string, n notification) error {
	recipients := recipientList(to)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	subject := n.subject
	if !strings.HasPrefix(subject, SubjectPrefix) {
		subject = SubjectPrefix + subject
	}

	payload, err := json.Marshal(emailRequest{
		SenderAddress: s.sender,
		Content:       emailContent{Subject: subject, HTML: n.html, PlainText: n.text},
		Recipients:    emailRecipients{To: recipients},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	token, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{emailScope}})
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	url := fmt.Sprintf("%s/emails:send?api-version=%s", s.endpoint, emailAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %q: %w", subject, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email request failed with status %d: %s", resp.StatusCode, string(detail))
	}

	slog.Info("laundry notification sent", "subject", subject, "recipients", len(recipients))
	return nil
}

// SendErrorEmail sends an email listing the rows that could not be processed.
func (s *EmailService) SendErrorEmail(ctx context.Context, recipients []string, rowErrors []string) error {
	return s.send(ctx, recipients, notification{
		subject: "Upload Failed",
		html:    RenderErrorBody(rowErrors),
		text:    "The uploaded sheet could not be processed:\n" + strings.Join(rowErrors, "\n"),
	})
}

// SendSummaryEmail sends the KPI summary of a processed upload.
func (s *EmailService) SendSummaryEmail(ctx context.Context, recipients []string, record models.SummaryRecord) error {
	return s.send(ctx, recipients, notification{
		subject: "Summary for " + record.Filename,
		html:    RenderSummaryBody(record),
		text:    RenderSummaryText(record),
	})
}
