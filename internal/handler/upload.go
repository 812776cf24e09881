package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rocjay1/koala-laundry/internal/services"
)

const maxUploadSize = 10 << 20

// UploadMessage is enqueued for every stored upload.
type UploadMessage struct {
	BlobName string `json:"blob_name"`
	Filename string `json:"filename"`
}

// HandleUpload stores an uploaded form-responses CSV and queues it for processing.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", maxUploadSize>>20)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		WriteError(w, http.StatusBadRequest, "Only CSV files are accepted")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	slog.Info("received file upload", "filename", filename, "size_bytes", len(content))

	blobName := fmt.Sprintf("uploads/%s-%s", d.now().UTC().Format("20060102-150405"), filename)

	if err := d.Blob.UploadText(r.Context(), services.DefaultContainer, blobName, string(content)); err != nil {
		slog.Error("failed to upload blob", "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob: "+err.Error())
		return
	}

	msg := UploadMessage{BlobName: blobName, Filename: filename}
	if err := d.Queue.EnqueueMessage(r.Context(), services.ProcessQueue, msg); err != nil {
		slog.Error("failed to enqueue message", "queue", services.ProcessQueue, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"blobName": blobName,
	})
}
