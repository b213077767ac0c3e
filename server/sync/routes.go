package serversync

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/majak-app/candlesync/collection"
)

func PopulateSyncRoutes(r *chi.Router, orch collection.Orchestrator, pool *pgxpool.Pool, logger *slog.Logger) {
	syncHandler := syncHandler{
		orch:   orch,
		dbPool: pool,
		logger: logger,
	}

	(*r).Post("/run", syncHandler.runIngestion)
	(*r).Get("/runs", syncHandler.listRuns)
}
