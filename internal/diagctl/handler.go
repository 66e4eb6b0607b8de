// Package diagctl exposes the client's health/readiness/liveness and
// metrics surface plus a debug endpoint describing the current session,
// adapted from the teacher's internal/api Handler.RegisterRoutes: same
// gorilla/mux route registration and health/ready/live wiring into
// internal/metrics, generalized from an S3 proxy's object routes to a
// read-only view over the backup engine's session state.
package diagctl

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/metrics"
)

// SessionSnapshot is the read-only view of engine state the debug endpoint
// reports. Callers (cmd/cyphertite-client) populate this from the live
// session.Context and txn.Pool on each request.
type SessionSnapshot struct {
	State              string `json:"state"`
	TransactionsInUse  int    `json:"transactions_in_use"`
	TransactionPoolCap int    `json:"transaction_pool_capacity"`
	QueueDepth         int    `json:"queue_depth"`
	CullUUID           string `json:"cull_uuid,omitempty"`
}

// SnapshotFunc produces the current session snapshot on demand.
type SnapshotFunc func() SessionSnapshot

// ReadyCheckFunc reports whether a dependency (transport connection,
// secrets unlock, Redis dedup cache) is healthy.
type ReadyCheckFunc func(context.Context) error

// Handler wires the diagnostics HTTP surface.
type Handler struct {
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	snapshot  SnapshotFunc
	readyCheck ReadyCheckFunc
}

// NewHandler constructs a diagnostics handler. snapshot and readyCheck may
// be nil, in which case /debug/session reports a zero-value snapshot and
// /ready never fails its dependency check.
func NewHandler(logger *logrus.Logger, m *metrics.Metrics, snapshot SnapshotFunc, readyCheck ReadyCheckFunc) *Handler {
	return &Handler{logger: logger, metrics: m, snapshot: snapshot, readyCheck: readyCheck}
}

// RegisterRoutes registers all diagnostics routes on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/ready", h.handleReady).Methods("GET")
	r.HandleFunc("/live", h.handleLive).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	r.HandleFunc("/debug/session", h.handleDebugSession).Methods("GET")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.HealthHandler()(w, r)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	metrics.ReadinessHandler(h.readyCheck)(w, r)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	metrics.LivenessHandler()(w, r)
}

func (h *Handler) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := SessionSnapshot{}
	if h.snapshot != nil {
		snap = h.snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(snap)
	h.logger.WithField("duration", time.Since(start)).Debug("served /debug/session")
}
