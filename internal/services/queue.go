package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// ProcessQueue receives one message per uploaded sheet.
const ProcessQueue = "process-queue"

// QueueService hands uploads to the processing trigger via Azure Queue Storage.
type QueueService struct {
	serviceClient *azqueue.ServiceClient
}

// NewQueueServiceFromEnv creates a QueueService from QUEUE_SERVICE_URL.
func NewQueueServiceFromEnv() (*QueueService, error) {
	queueURL := os.Getenv("QUEUE_SERVICE_URL")
	if queueURL == "" {
		return nil, fmt.Errorf("QUEUE_SERVICE_URL environment variable is required")
	}
	return NewQueueService(queueURL)
}

// NewQueueService creates a QueueService for the given account URL.
func NewQueueService(queueURL string) (*QueueService, error) {
	slog.Info("initializing queue service", "queue_url", queueURL)
	var client *azqueue.ServiceClient

	auth, err := resolveStorageAuth("queue", queueURL)
	if err != nil {
		return nil, err
	}

	if auth.sharedKey() {
		cred, err := azqueue.NewSharedKeyCredential(auth.accountName, auth.accountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azqueue.NewServiceClientWithSharedKeyCredential(queueURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client with shared key: %w", err)
		}
	} else {
		client, err = azqueue.NewServiceClient(queueURL, auth.token, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client: %w", err)
		}
	}

	return &QueueService{serviceClient: client}, nil
}

// EncodeMessage serializes a message the way the Functions host expects it (base64 JSON).
func EncodeMessage(message any) (string, error) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(msgBytes), nil
}

// EnqueueMessage adds a message to a queue, creating the queue when needed.
func (s *QueueService) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	queueClient := s.serviceClient.NewQueueClient(queueName)

	if _, err := queueClient.Create(ctx, nil); err != nil && !hasErrorCode(err, "QueueAlreadyExists") {
		slog.Warn("failed to create queue", "queue", queueName, "error", err)
	}

	encoded, err := EncodeMessage(message)
	if err != nil {
		return err
	}

	if _, err := queueClient.EnqueueMessage(ctx, encoded, nil); err != nil {
		return fmt.Errorf("failed to enqueue message to %s: %w", queueName, err)
	}

	slog.Info("enqueued message", "queue", queueName)
	return nil
}

func hasErrorCode(err error, code string) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.ErrorCode == code
}
