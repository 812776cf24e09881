package handler

import (
	"context"

	"github.com/rocjay1/koala-laundry/internal/models"
)

// DatabaseClient defines the summary storage used by handlers.
type DatabaseClient interface {
	SaveSummary(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error)
	ListSummaries(ctx context.Context, limit int) ([]models.SummaryRecord, error)
}

// BlobClient defines the interface for blob storage operations used by handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}

// EmailClient defines the interface for email operations used by handlers.
type EmailClient interface {
	SendErrorEmail(ctx context.Context, recipients []string, errors []string) error
	SendSummaryEmail(ctx context.Context, recipients []string, record models.SummaryRecord) error
}
