package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	logrus "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/collection"
	"github.com/majak-app/candlesync/collection/services/candle"
	"github.com/majak-app/candlesync/config"
	"github.com/majak-app/candlesync/data"
	"github.com/majak-app/candlesync/reconcile"
	servercatalog "github.com/majak-app/candlesync/server/catalog"
	servermanage "github.com/majak-app/candlesync/server/manage"
	serversync "github.com/majak-app/candlesync/server/sync"
)

func Serve(cfg config.Config) error {
	r := chi.NewRouter()
	cors := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	})
	r.Use(cors.Handler)
	r.Use(middleware.Logger)

	dbPool, err := data.NewPool(context.Background())
	if err != nil {
		slog.Error("Fatal cannot connect to main db", "err", err)
		return err
	}

	// the pipeline logger also feeds the live websocket log stream
	hub := servermanage.NewLogHub()
	pipelineLog := logrus.New()
	pipelineLog.SetOutput(io.MultiWriter(os.Stderr, hub))
	pipelineLog.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	entry := pipelineLog.WithField("job", "ingestion")

	extractor := candle.NewExtractorFromConfig(cfg.Source, entry)
	reconciler := reconcile.New(reconcile.NewPgStore(dbPool), entry)
	orch := collection.NewOrchestrator(extractor, reconciler, entry)

	logger := slog.Default()
	r.Route("/catalog", func(r chi.Router) {
		servercatalog.PopulateCatalogRoutes(&r, dbPool, logger)
	})
	r.Route("/sync", func(r chi.Router) {
		serversync.PopulateSyncRoutes(&r, orch, dbPool, logger)
	})
	r.Route("/manage", func(r chi.Router) {
		servermanage.PopulateManagementRoutes(&r, hub, logger)
	})

	slog.Info("Running server on", "port", cfg.Server.Port)
	return http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port), r)
}
