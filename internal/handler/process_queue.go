package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rocjay1/koala-laundry/internal/csvparse"
	"github.com/rocjay1/koala-laundry/internal/models"
	"github.com/rocjay1/koala-laundry/internal/services"
)

// invokeRequest represents the payload from Azure Functions Custom Handler.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// ProcessQueue handles the queue trigger: it summarizes an uploaded CSV and stores the result.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var invokeReq invokeRequest
	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	msg, err := decodeQueueItem(invokeReq.Data)
	if err != nil {
		slog.Warn("invalid queue item", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	slog.Info("processing queue item", "blob_name", msg.BlobName, "container", services.DefaultContainer)

	content, err := d.Blob.DownloadText(ctx, services.DefaultContainer, msg.BlobName)
	if err != nil {
		slog.Error("failed to download CSV from blob", "blob_name", msg.BlobName, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to download CSV: %v", err))
		return
	}

	entries, rowErrors := csvparse.ParseCSV(content)
	slog.Info("parsed CSV content", "blob_name", msg.BlobName, "entries_count", len(entries), "errors_count", len(rowErrors))

	if len(entries) == 0 {
		slog.Warn("CSV contained no usable rows", "blob_name", msg.BlobName, "errors_count", len(rowErrors))
		if len(rowErrors) > 0 && d.notificationsEnabled() {
			if err := d.Email.SendErrorEmail(ctx, []string{d.UserEmail}, rowErrors); err != nil {
				slog.Error("failed to send error email", "email", d.UserEmail, "error", err)
			}
		}
		// Consume the message so it doesn't retry forever.
		w.WriteHeader(http.StatusOK)
		return
	}

	filename := msg.Filename
	if filename == "" {
		filename = msg.BlobName
	}
	record := models.SummaryRecord{
		BlobName:    msg.BlobName,
		Filename:    filename,
		ProcessedAt: d.now().UTC(),
		SkippedRows: len(rowErrors),
		Report:      models.BuildReport(entries),
	}

	record, err = d.Database.SaveSummary(ctx, record)
	if err != nil {
		slog.Error("failed to save summary", "blob_name", msg.BlobName, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save summary: %v", err))
		return
	}
	slog.Info("saved summary",
		"id", record.ID,
		"rows", record.Report.Rows,
		"total_paid", record.Report.Summary.TotalPaid.StringFixed(2),
		"total_unpaid", record.Report.Summary.TotalUnpaid.StringFixed(2),
		"total_loads", record.Report.Summary.TotalLoads,
	)

	if d.notificationsEnabled() {
		if err := d.Email.SendSummaryEmail(ctx, []string{d.UserEmail}, record); err != nil {
			// The summary is stored; a failed notification must not trigger a retry.
			slog.Error("failed to send summary email", "email", d.UserEmail, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// decodeQueueItem accepts the queue item either as a JSON string or as an already decoded object.
func decodeQueueItem(data map[string]any) (UploadMessage, error) {
	var msg UploadMessage

	item, ok := data["queueItem"]
	if !ok {
		item, ok = data["queueitem"]
	}
	if !ok {
		return msg, errors.New("Missing queueItem in Data")
	}

	var raw []byte
	switch v := item.(type) {
	case string:
		raw = []byte(v)
	case map[string]any:
		raw, _ = json.Marshal(v)
	default:
		return msg, fmt.Errorf("queueItem has unexpected type %T", item)
	}

	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("Invalid queueItem JSON: %v", err)
	}
	if msg.BlobName == "" {
		return msg, errors.New("Missing blob_name")
	}
	return msg, nil
}
