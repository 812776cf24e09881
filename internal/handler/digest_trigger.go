package handler

import (
	"log/slog"
	"net/http"
)

// HandleDigestTrigger emails the newest summary to the configured user.
func (d *Dependencies) HandleDigestTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !d.notificationsEnabled() {
		slog.Warn("email notifications are not configured; skipping digest")
		w.WriteHeader(http.StatusOK)
		return
	}

	records, err := d.Database.ListSummaries(ctx, 1)
	if err != nil {
		slog.Error("failed to fetch latest summary", "error", err)
		http.Error(w, "Failed to fetch latest summary", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		slog.Info("no summaries yet; skipping digest")
		w.WriteHeader(http.StatusOK)
		return
	}

	latest := records[0]
	if err := d.Email.SendSummaryEmail(ctx, []string{d.UserEmail}, latest); err != nil {
		slog.Error("failed to send digest email", "email", d.UserEmail, "summary_id", latest.ID, "error", err)
		http.Error(w, "Failed to send digest", http.StatusBadGateway)
		return
	}

	slog.Info("digest email sent", "email", d.UserEmail, "summary_id", latest.ID)
	w.WriteHeader(http.StatusOK)
}
