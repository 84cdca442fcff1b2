package handlers

import (
	"net/http"
	"strings"
)

// RecordActivityHandler advances the caller's streak for today. Calling it
// again on the same day returns the same state.
func (h *Handler) RecordActivityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	st, err := h.Streaks.RecordActivity(r.Context(), userID)
	if err != nil {
		h.storeError(w, err, "failed to record activity")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) GetStreakHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	st, err := h.Streaks.State(r.Context(), userID)
	if err != nil {
		h.storeError(w, err, "failed to load streak")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
