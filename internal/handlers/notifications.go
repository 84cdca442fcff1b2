package handlers

import (
	"net/http"
	"strings"

	"vakit-notify/internal/models"
)

// ListNotificationsHandler returns a user's inbox, newest first.
func (h *Handler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	recs, err := h.Notifications.ListNotifications(r.Context(), userID, queryInt(r, "limit", 50, 200))
	if err != nil {
		h.storeError(w, err, "failed to list notifications")
		return
	}
	if recs == nil {
		recs = []models.NotificationRecord{}
	}

	unread := 0
	for _, rec := range recs {
		if !rec.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": recs,
		"unread":        unread,
	})
}

func (h *Handler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"userId"`
		ID     string `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ID == "" {
		writeError(w, http.StatusBadRequest, "userId and id are required")
		return
	}

	if err := h.Notifications.MarkNotificationRead(r.Context(), req.UserID, req.ID); err != nil {
		h.storeError(w, err, "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
