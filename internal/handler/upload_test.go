package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write([]byte(content))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUpload_Success(t *testing.T) {
	mockBlob := &MockBlobClient{}
	mockQueue := &MockQueueClient{}
	deps := &Dependencies{
		Blob:  mockBlob,
		Queue: mockQueue,
		Now:   func() time.Time { return time.Date(2025, 8, 17, 9, 30, 0, 0, time.UTC) },
	}

	mockBlob.UploadTextFunc = func(ctx context.Context, containerName, blobName, content string) error {
		assert.Equal(t, "koala-data", containerName)
		assert.Equal(t, "uploads/20250817-093000-responses.csv", blobName)
		assert.Equal(t, "Name,Total Paid\nAna,1", content)
		return nil
	}

	enqueued := false
	mockQueue.EnqueueMessageFunc = func(ctx context.Context, queueName string, message any) error {
		enqueued = true
		assert.Equal(t, "process-queue", queueName)
		msg, ok := message.(UploadMessage)
		require.True(t, ok)
		assert.Equal(t, "responses.csv", msg.Filename)
		assert.Equal(t, "uploads/20250817-093000-responses.csv", msg.BlobName)
		return nil
	}

	w := httptest.NewRecorder()
	deps.HandleUpload(w, newUploadRequest(t, "../responses.csv", "Name,Total Paid\nAna,1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, enqueued)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "uploads/20250817-093000-responses.csv", resp["blobName"])
}

func TestHandleUpload_MethodNotAllowed(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()

	deps.HandleUpload(w, httptest.NewRequest(http.MethodGet, "/api/upload", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()

	deps.HandleUpload(w, newUploadRequest(t, "", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpload_RejectsNonCSV(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()

	deps.HandleUpload(w, newUploadRequest(t, "photo.png", "binary"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only CSV files")
}

func TestHandleUpload_UploadError(t *testing.T) {
	mockBlob := &MockBlobClient{
		UploadTextFunc: func(ctx context.Context, containerName, blobName, content string) error {
			return errors.New("upload failed")
		},
	}
	deps := &Dependencies{Blob: mockBlob}
	w := httptest.NewRecorder()

	deps.HandleUpload(w, newUploadRequest(t, "test.csv", "content"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to upload blob")
}

func TestHandleUpload_EnqueueError(t *testing.T) {
	mockQueue := &MockQueueClient{
		EnqueueMessageFunc: func(ctx context.Context, queueName string, message any) error {
			return errors.New("enqueue failed")
		},
	}
	deps := &Dependencies{Blob: &MockBlobClient{}, Queue: mockQueue}
	w := httptest.NewRecorder()

	deps.HandleUpload(w, newUploadRequest(t, "test.csv", "content"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to enqueue message")
}
