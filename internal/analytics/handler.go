package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	pkgerrors "github.com/Adithya-Monish-Kumar-K/wordseek/pkg/errors"
)

// SnapshotSource returns the most recent persisted stats, or nil when none
// has been written yet. *Store implements it.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*AggregatedStats, error)
}

// Handler serves live and persisted analytics as JSON.
type Handler struct {
	aggregator *Aggregator
	snapshots  SnapshotSource
	logger     *slog.Logger
}

// NewHandler serves stats from aggregator. snapshots may be nil, in which
// case Snapshot answers 503.
func NewHandler(aggregator *Aggregator, snapshots SnapshotSource) *Handler {
	return &Handler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshot", h.Snapshot)
}

// Stats serves the live AggregatedStats. An optional top=N trims both
// query rankings to N entries.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.aggregator.Stats()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, pkgerrors.Invalidf("top must be a non-negative integer, got %q", raw))
			return
		}
		stats.TopQueries = stats.TopQueries[:min(n, len(stats.TopQueries))]
		stats.ZeroResultQueries = stats.ZeroResultQueries[:min(n, len(stats.ZeroResultQueries))]
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// Snapshot serves the last stats persisted to PostgreSQL.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, pkgerrors.New(pkgerrors.ErrUnavailable, http.StatusServiceUnavailable, "snapshot store not configured"))
		return
	}
	stats, err := h.snapshots.LatestSnapshot(r.Context())
	if err != nil {
		h.logger.Error("reading latest snapshot", "error", err)
		h.writeError(w, pkgerrors.New(pkgerrors.ErrUnavailable, http.StatusServiceUnavailable, "snapshot store unavailable"))
		return
	}
	if stats == nil {
		h.writeError(w, pkgerrors.New(pkgerrors.ErrNotFound, http.StatusNotFound, "no snapshot recorded yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err *pkgerrors.AppError) {
	h.writeJSON(w, err.StatusCode, map[string]string{"error": err.Message})
}
