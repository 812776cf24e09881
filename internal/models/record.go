package models

import "time"

// SummaryRecord is a processed upload as stored in table storage.
type SummaryRecord struct {
	ID          string    `json:"id"` // RowKey
	BlobName    string    `json:"blob_name"`
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
	SkippedRows int       `json:"skipped_rows"`
	Report      Report    `json:"report"`
}
