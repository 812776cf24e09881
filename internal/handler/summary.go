package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocjay1/koala-laundry/internal/csvparse"
)

const (
	defaultSummaryLimit = 10
	maxSummaryLimit     = 100
)

// HandleSummaries lists the most recent processed uploads.
func (d *Dependencies) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	limit := defaultSummaryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSummaryLimit)
	}

	records, err := d.Database.ListSummaries(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list summaries", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to list summaries")
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

// HandleLatestSummaryCSV downloads the newest summary as metric,value CSV.
func (d *Dependencies) HandleLatestSummaryCSV(w http.ResponseWriter, r *http.Request) {
	records, err := d.Database.ListSummaries(r.Context(), 1)
	if err != nil {
		slog.Error("failed to load latest summary", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to load latest summary")
		return
	}
	if len(records) == 0 {
		WriteError(w, http.StatusNotFound, "No summaries yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvparse.SummaryFilename))
	if err := csvparse.WriteSummaryCSV(w, records[0].Report.Summary); err != nil {
		slog.Error("failed to write summary CSV", "error", err)
	}
}
