package servermanage

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

func PopulateManagementRoutes(r *chi.Router, hub *LogHub, logger *slog.Logger) {
	manageHandler := manageHandler{
		hub:    hub,
		logger: logger,
	}

	(*r).Get("/logs/ws", manageHandler.loggingWebSocket)
}
