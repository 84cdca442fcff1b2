package handlers

import (
	"context"
	"net/http"
	"time"
)

type NotificationPurger interface {
	PurgeNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeNotificationsHandler drops read inbox records older than
// ?olderThanDays= (default 90). It shares the trigger's cron secret.
func (h *Handler) PurgeNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !validateCronSecret(r, h.CronSecret) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days := queryInt(r, "olderThanDays", 90, 3650)
	cutoff := h.Now().AddDate(0, 0, -days)
	n, err := h.Purger.PurgeNotifications(r.Context(), cutoff)
	if err != nil {
		h.storeError(w, err, "failed to purge notifications")
		return
	}
	h.Log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("purged read notifications")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": n})
}
