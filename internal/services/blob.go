package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// DefaultContainer holds uploaded CSVs and exported summaries.
const DefaultContainer = "koala-data"

// BlobService stores uploaded sheets and exported summaries in Azure Blob Storage.
type BlobService struct {
	client *azblob.Client
}

// NewBlobServiceFromEnv creates a BlobService from BLOB_SERVICE_URL.
func NewBlobServiceFromEnv() (*BlobService, error) {
	blobURL := os.Getenv("BLOB_SERVICE_URL")
	if blobURL == "" {
		return nil, fmt.Errorf("BLOB_SERVICE_URL environment variable is required")
	}
	return NewBlobService(blobURL)
}

// NewBlobService creates a BlobService for the given account URL.
// http:// URLs are treated as Azurite and use the well-known shared key.
func NewBlobService(blobURL string) (*BlobService, error) {
	slog.Info("initializing blob service", "blob_url", blobURL)
	var client *azblob.Client

	auth, err := resolveStorageAuth("blob", blobURL)
	if err != nil {
		return nil, err
	}

	if auth.sharedKey() {
		cred, err := azblob.NewSharedKeyCredential(auth.accountName, auth.accountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client with shared key: %w", err)
		}
	} else {
		client, err = azblob.NewClient(blobURL, auth.token, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	}

	return &BlobService{client: client}, nil
}

// UploadText uploads a string to a blob, creating the container when needed.
func (s *BlobService) UploadText(ctx context.Context, containerName, blobName, text string) error {
	slog.Info("uploading blob", "container", containerName, "blob_name", blobName, "size_bytes", len(text))

	if _, err := s.client.CreateContainer(ctx, containerName, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		slog.Warn("failed to create container", "container", containerName, "error", err)
	}

	if _, err := s.client.UploadBuffer(ctx, containerName, blobName, []byte(text), nil); err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", containerName, blobName, err)
	}
	return nil
}

// DownloadText downloads a blob and returns its content as a string.
func (s *BlobService) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return "", fmt.Errorf("blob %s/%s: %w", containerName, blobName, ErrNotFound)
		}
		return "", fmt.Errorf("failed to download blob %s/%s: %w", containerName, blobName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read blob content: %w", err)
	}

	slog.Info("downloaded blob", "container", containerName, "blob_name", blobName, "size_bytes", len(data))
	return string(data), nil
}

// ErrNotFound is returned when a blob or table entity does not exist.
var ErrNotFound = errors.New("not found")
