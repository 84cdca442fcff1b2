package handlers

import (
	"net/http"
	"strings"
)

// GetVAPIDKeyHandler returns the public VAPID key browsers subscribe with.
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	if h.VAPIDPublicKey == "" {
		writeError(w, http.StatusServiceUnavailable, "push is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.VAPIDPublicKey})
}

// SubscribePushHandler registers a browser subscription for a user. Posting
// an endpoint again refreshes its keys and owner.
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID       string `json:"userId"`
		Subscription struct {
			Endpoint string `json:"endpoint"`
			Keys     struct {
				P256dh string `json:"p256dh"`
				Auth   string `json:"auth"`
			} `json:"keys"`
		} `json:"subscription"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	sub := req.Subscription
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "userId, endpoint and keys are required")
		return
	}

	if err := h.Subscriptions.UpsertSubscription(r.Context(), userID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth); err != nil {
		h.storeError(w, err, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UnsubscribePushHandler removes an endpoint. Unknown endpoints succeed.
func (h *Handler) UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	if err := h.Subscriptions.DeleteSubscription(r.Context(), req.Endpoint); err != nil {
		h.storeError(w, err, "failed to remove subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
