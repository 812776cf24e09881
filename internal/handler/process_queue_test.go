package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocjay1/koala-laundry/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Name,Total Paid,Total Unpaid,Total loads completed
2025-08-17,Ana,$40.00,$0,4
2025-08-17,Ben,"$1,010.50",$12.25,9
2025-08-18,Ana,$15,,2
2025-08-18,Broken`

func queueRequest(t *testing.T, item any) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{"Data": map[string]any{"queueItem": item}})
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBuffer(body))
}

func TestProcessQueue_Success(t *testing.T) {
	mockDb := &MockDatabaseClient{}
	mockBlob := &MockBlobClient{}
	mockEmail := &MockEmailClient{}
	processedAt := time.Date(2025, 8, 19, 6, 0, 0, 0, time.UTC)
	deps := &Dependencies{
		Database:  mockDb,
		Blob:      mockBlob,
		Email:     mockEmail,
		UserEmail: "owner@example.com",
		Now:       func() time.Time { return processedAt },
	}

	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		assert.Equal(t, "koala-data", containerName)
		assert.Equal(t, "uploads/test.csv", blobName)
		return sampleCSV, nil
	}

	mockDb.SaveSummaryFunc = func(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
		assert.Equal(t, "responses.csv", record.Filename)
		assert.Equal(t, processedAt, record.ProcessedAt)
		assert.Equal(t, 1, record.SkippedRows)
		assert.Equal(t, 3, record.Report.Rows)
		assert.True(t, record.Report.Summary.TotalPaid.Equal(decimal.RequireFromString("1065.50")))
		assert.True(t, record.Report.Summary.TotalUnpaid.Equal(decimal.RequireFromString("12.25")))
		assert.Equal(t, 15, record.Report.Summary.TotalLoads)
		assert.Len(t, record.Report.Payments, 2)
		record.ID = "row-1"
		return record, nil
	}

	summarySent := false
	mockEmail.SendSummaryEmailFunc = func(ctx context.Context, recipients []string, record models.SummaryRecord) error {
		summarySent = true
		assert.Equal(t, []string{"owner@example.com"}, recipients)
		assert.Equal(t, "row-1", record.ID)
		return nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "uploads/test.csv", "filename": "responses.csv"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, summarySent)
}

func TestProcessQueue_DecodedQueueItem(t *testing.T) {
	saved := false
	deps := &Dependencies{
		Database: &MockDatabaseClient{SaveSummaryFunc: func(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
			saved = true
			assert.Equal(t, "uploads/test.csv", record.Filename)
			return record, nil
		}},
		Blob: &MockBlobClient{DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
			return sampleCSV, nil
		}},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, map[string]any{"blob_name": "uploads/test.csv"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, saved)
}

func TestProcessQueue_DownloadError(t *testing.T) {
	deps := &Dependencies{
		Blob: &MockBlobClient{DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
			return "", errors.New("download failed")
		}},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to download CSV")
}

func TestProcessQueue_NoUsableRows(t *testing.T) {
	mockEmail := &MockEmailClient{}
	deps := &Dependencies{
		Database: &MockDatabaseClient{SaveSummaryFunc: func(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
			t.Fatal("SaveSummary should not be called")
			return record, nil
		}},
		Blob: &MockBlobClient{DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
			return "Name,Total Paid\n\"broken", nil
		}},
		Email:     mockEmail,
		UserEmail: "owner@example.com",
	}

	errorSent := false
	mockEmail.SendErrorEmailFunc = func(ctx context.Context, recipients []string, errs []string) error {
		errorSent = true
		assert.Len(t, errs, 1)
		return nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	// The message is consumed so the host does not retry it.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, errorSent)
}

func TestProcessQueue_SaveError(t *testing.T) {
	deps := &Dependencies{
		Database: &MockDatabaseClient{SaveSummaryFunc: func(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
			return record, errors.New("table unavailable")
		}},
		Blob: &MockBlobClient{DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
			return sampleCSV, nil
		}},
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to save summary")
}

func TestProcessQueue_EmailFailureStillSucceeds(t *testing.T) {
	deps := &Dependencies{
		Database: &MockDatabaseClient{},
		Blob: &MockBlobClient{DownloadTextFunc: func(ctx context.Context, containerName, blobName string) (string, error) {
			return sampleCSV, nil
		}},
		Email: &MockEmailClient{SendSummaryEmailFunc: func(ctx context.Context, recipients []string, record models.SummaryRecord) error {
			return errors.New("smtp down")
		}},
		UserEmail: "owner@example.com",
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessQueue_InvalidBody(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessQueue_MissingBlobName(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, queueRequest(t, `{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing blob_name")
}

func TestProcessQueue_MissingQueueItem(t *testing.T) {
	deps := &Dependencies{}
	body := bytes.NewBufferString(`{"Data": {}}`)
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, httptest.NewRequest(http.MethodPost, "/", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
