package handler

import (
	"context"

	"github.com/rocjay1/koala-laundry/internal/models"
)

// MockDatabaseClient is a mock implementation of DatabaseClient
type MockDatabaseClient struct {
	SaveSummaryFunc   func(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error)
	ListSummariesFunc func(ctx context.Context, limit int) ([]models.SummaryRecord, error)
}

func (m *MockDatabaseClient) SaveSummary(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
	if m.SaveSummaryFunc != nil {
		return m.SaveSummaryFunc(ctx, record)
	}
	return record, nil
}

func (m *MockDatabaseClient) ListSummaries(ctx context.Context, limit int) ([]models.SummaryRecord, error) {
	if m.ListSummariesFunc != nil {
		return m.ListSummariesFunc(ctx, limit)
	}
	return nil, nil
}

// MockBlobClient is a mock implementation of BlobClient
type MockBlobClient struct {
	UploadTextFunc   func(ctx context.Context, containerName, blobName, content string) error
	DownloadTextFunc func(ctx context.Context, containerName, blobName string) (string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

// MockQueueClient is a mock implementation of QueueClient
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}

// MockEmailClient is a mock implementation of EmailClient
type MockEmailClient struct {
	SendErrorEmailFunc   func(ctx context.Context, recipients []string, errors []string) error
	SendSummaryEmailFunc func(ctx context.Context, recipients []string, record models.SummaryRecord) error
}

func (m *MockEmailClient) SendErrorEmail(ctx context.Context, recipients []string, errors []string) error {
	if m.SendErrorEmailFunc != nil {
		return m.SendErrorEmailFunc(ctx, recipients, errors)
	}
	return nil
}

func (m *MockEmailClient) SendSummaryEmail(ctx context.Context, recipients []string, record models.SummaryRecord) error {
	if m.SendSummaryEmailFunc != nil {
		return m.SendSummaryEmailFunc(ctx, recipients, record)
	}
	return nil
}
