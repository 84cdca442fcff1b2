package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"vakit-notify/internal/dispatch"
	"vakit-notify/internal/models"
	"vakit-notify/internal/store"
)

const maxBodyBytes = 64 << 10

type Dispatcher interface {
	Run(ctx context.Context, now time.Time) (dispatch.Report, error)
}

type StreakService interface {
	RecordActivity(ctx context.Context, userID string) (models.StreakState, error)
	State(ctx context.Context, userID string) (models.StreakState, error)
}

type Handler struct {
	Cycle         Dispatcher
	Subscriptions store.SubscriptionRegistry
	Notifications store.NotificationStore
	Profiles      store.ProfileStore
	Streaks       StreakService
	Purger        NotificationPurger

	VAPIDPublicKey string
	// CronSecret, when set, must be presented as a Bearer token on the
	// dispatch trigger.
	CronSecret string

	Metrics http.Handler
	Log     zerolog.Logger
	Now     func() time.Time
}

func NewHandler(cycle Dispatcher, s *store.SQLStore, streaks StreakService, log zerolog.Logger) *Handler {
	return &Handler{
		Cycle:         cycle,
		Subscriptions: s,
		Notifications: s,
		Profiles:      s,
		Streaks:       streaks,
		Purger:        s,
		Log:           log,
		Now:           time.Now,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cron/notifications", h.TriggerHandler)
	mux.HandleFunc("/api/cron/purge-notifications", h.PurgeNotificationsHandler)
	mux.HandleFunc("/api/push/vapid-public-key", h.GetVAPIDKeyHandler)
	mux.HandleFunc("/api/push/subscribe", h.SubscribePushHandler)
	mux.HandleFunc("/api/push/unsubscribe", h.UnsubscribePushHandler)
	mux.HandleFunc("/api/notifications", h.ListNotificationsHandler)
	mux.HandleFunc("/api/notifications/read", h.MarkReadHandler)
	mux.HandleFunc("/api/streak", h.GetStreakHandler)
	mux.HandleFunc("/api/streak/activity", h.RecordActivityHandler)
	mux.HandleFunc("/api/profile/notifications", h.NotificationSettingsHandler)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// TriggerHandler runs one dispatch cycle and returns its report.
func (h *Handler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !validateCronSecret(r, h.CronSecret) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := h.Cycle.Run(r.Context(), h.Now())
	if err != nil {
		h.Log.Error().Err(err).Msg("dispatch cycle failed")
		writeError(w, http.StatusInternalServerError, "failed to list users for notification dispatch")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// storeError maps a store failure to a response. Missing rows are 404.
func (h *Handler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.Log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func queryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
