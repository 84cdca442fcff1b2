package handlers

import (
	"net/http"
	"strings"

	"vakit-notify/internal/models"
)

// NotificationSettingsHandler reads (GET ?userId=) or replaces (PUT) a
// user's reminder settings: the city to follow and the opt-in flag.
func (h *Handler) NotificationSettingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := strings.TrimSpace(r.URL.Query().Get("userId"))
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		p, err := h.Profiles.GetProfile(r.Context(), userID)
		if err != nil {
			h.storeError(w, err, "failed to load profile")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut, http.MethodPost:
		var req struct {
			UserID  string `json:"userId"`
			City    string `json:"city"`
			Enabled bool   `json:"enabled"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		if req.Enabled && strings.TrimSpace(req.City) == "" {
			writeError(w, http.StatusBadRequest, "city is required to enable reminders")
			return
		}

		p := models.Profile{ID: userID, City: req.City, NotificationsEnabled: req.Enabled}
		if err := h.Profiles.UpsertProfile(r.Context(), p); err != nil {
			h.storeError(w, err, "failed to update profile")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
