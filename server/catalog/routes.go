package servercatalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jackc/pgx/v5/pgxpool"
)

func PopulateCatalogRoutes(r *chi.Router, pool *pgxpool.Pool, logger *slog.Logger) {
	catalogHandler := catalogHandler{
		dbPool: pool,
		logger: logger,
	}

	(*r).Use(populatePagination)
	(*r).Get("/", catalogHandler.getItems)
	(*r).Get("/search", catalogHandler.searchItems)
	(*r).Get("/{itemID}", catalogHandler.getItem)
}

func populatePagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		offset := 0
		limit := 200
		queryOffset := r.URL.Query().Get("offset")
		if queryOffset != "" {
			newOffset, err := strconv.Atoi(queryOffset)
			if err != nil {
				http.Error(w, "Invalid query offset param", http.StatusBadRequest)
				return
			}
			offset = newOffset
		}
		queryLimit := r.URL.Query().Get("limit")
		if queryLimit != "" {
			setLimit, err := strconv.Atoi(queryLimit)
			if err != nil {
				http.Error(w, "Invalid query limit param", http.StatusBadRequest)
				return
			}
			limit = setLimit
		}
		ctx = context.WithValue(ctx, OffsetKey, int32(offset))
		ctx = context.WithValue(ctx, LimitKey, int32(limit))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
