package serversync

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"

	"github.com/majak-app/candlesync/collection"
	"github.com/majak-app/candlesync/collection/services"
	"github.com/majak-app/candlesync/data/db"
	"github.com/majak-app/candlesync/reconcile"
)

const runHistoryLimit = 50

type syncHandler struct {
	orch   collection.Orchestrator
	dbPool *pgxpool.Pool
	logger *slog.Logger
}

type runResult struct {
	Count int `json:"count"`
}

type runFailure struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// runIngestion triggers one full pipeline run. The failure kinds mirror
// the pipeline's error taxonomy so callers can tell a busy reconciler
// apart from a broken source.
func (h *syncHandler) runIngestion(w http.ResponseWriter, r *http.Request) {

	count, err := h.orch.RunIngestion(r.Context())
	if err != nil {
		kind, status := classifyRunError(err)
		h.logger.Error("Ingestion run failed", "kind", kind, "err", err)
		writeJSON(w, status, runFailure{Kind: kind, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runResult{Count: count})
}

func classifyRunError(err error) (string, int) {
	var transportErr *services.TransportError
	var syncErr *reconcile.SyncError
	switch {
	case errors.Is(err, reconcile.ErrSyncBusy):
		return "busy", http.StatusConflict
	case errors.Is(err, services.ErrNoResultTable):
		return "parse", http.StatusBadGateway
	case errors.As(err, &transportErr):
		return "transport", http.StatusBadGateway
	case errors.As(err, &syncErr):
		return "persistence", http.StatusInternalServerError
	}
	return "unknown", http.StatusInternalServerError
}

func (h *syncHandler) listRuns(w http.ResponseWriter, r *http.Request) {

	ctx := r.Context()
	q := db.New(h.dbPool)
	runRows, err := q.ListIngestionRuns(ctx, runHistoryLimit)
	if err != nil {
		h.logger.Error("Could not get ingestion run rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}

	runs, err := json.Marshal(runRows)
	if err != nil {
		h.logger.Error("Could not marshal ingestion run rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(runs)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}
