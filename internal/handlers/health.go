package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/store"
)

type HealthHandler struct {
	Store   *store.Store
	Events  *eventlog.Recorder
	Started time.Time
}

type healthReport struct {
	Status           string            `json:"status"`
	Time             time.Time         `json:"time"`
	UptimeSeconds    int64             `json:"uptime_seconds"`
	Database         string            `json:"database"`
	LastPayUCallback *time.Time        `json:"last_payu_callback"`
	FailedOrders     []models.Order    `json:"failed_orders"`
	Errors           []models.LogEntry `json:"errors"`
}

// Health reports database reachability, the last provider callback, unpaid
// orders and recent events. It answers 200 even when degraded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	rep := healthReport{
		Status:        "ok",
		Time:          now,
		UptimeSeconds: int64(now.Sub(h.Started).Seconds()),
		Database:      "ok",
		FailedOrders:  []models.Order{},
		Errors:        h.Events.Recent(r.Context(), 50),
	}

	if err := h.Store.Ping(r.Context()); err != nil {
		slog.Error("Health check database ping failed", "error", err)
		rep.Status = "degraded"
		rep.Database = "unreachable"
	} else if unpaid, err := h.Store.UnpaidOrders(r.Context(), 10); err != nil {
		slog.Error("Health check failed to load unpaid orders", "error", err)
		rep.Status = "degraded"
	} else {
		rep.FailedOrders = unpaid
	}

	if at, ok := h.Events.LastWithPrefix(r.Context(), "payu_"); ok {
		rep.LastPayUCallback = &at
	}
	if rep.Errors == nil {
		rep.Errors = []models.LogEntry{}
	}

	writeJSON(w, http.StatusOK, rep)
}

func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		h.Events.Error(r.Context(), "stats: "+err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
