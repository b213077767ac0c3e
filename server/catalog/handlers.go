package servercatalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"log/slog"

	"github.com/majak-app/candlesync/collection/services"
	"github.com/majak-app/candlesync/data/db"
)

type catalogHandler struct {
	dbPool *pgxpool.Pool
	logger *slog.Logger
}

type GetQueriesParam int

const (
	OffsetKey GetQueriesParam = iota
	LimitKey
)

func (h *catalogHandler) getItems(w http.ResponseWriter, r *http.Request) {

	ctx := r.Context()
	q := db.New(h.dbPool)
	itemRows, err := q.ListScheduleItems(ctx, db.ListScheduleItemsParams{
		Offsetvalue: ctx.Value(OffsetKey).(int32),
		Limitvalue:  ctx.Value(LimitKey).(int32),
	})
	if err != nil {
		h.logger.Error("Could not get schedule item rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}

	items, err := json.Marshal(itemRows)
	if err != nil {
		h.logger.Error("Could not marshal schedule item rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(items)
}

func (h *catalogHandler) searchItems(w http.ResponseWriter, r *http.Request) {

	ctx := r.Context()

	day := r.URL.Query().Get("day")
	if day != "" && !services.IsValidDay(day) {
		http.Error(w, "Invalid day query param", http.StatusBadRequest)
		return
	}
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	q := db.New(h.dbPool)
	itemRows, err := q.SearchScheduleItems(ctx, db.SearchScheduleItemsParams{
		Query:       pgtype.Text{String: query, Valid: query != ""},
		DayOfWeek:   pgtype.Text{String: day, Valid: day != ""},
		Category:    pgtype.Text{String: category, Valid: category != ""},
		Offsetvalue: ctx.Value(OffsetKey).(int32),
		Limitvalue:  ctx.Value(LimitKey).(int32),
	})
	if err != nil {
		h.logger.Error("Could not search schedule item rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}

	items, err := json.Marshal(itemRows)
	if err != nil {
		h.logger.Error("Could not marshal schedule item rows", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(items)
}

func (h *catalogHandler) getItem(w http.ResponseWriter, r *http.Request) {

	ctx := r.Context()
	q := db.New(h.dbPool)
	itemRow, err := q.GetScheduleItem(ctx, chi.URLParam(r, "itemID"))
	if errors.Is(err, pgx.ErrNoRows) {
		http.Error(w, http.StatusText(404), 404)
		return
	}
	if err != nil {
		h.logger.Error("Could not get schedule item", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}

	item, err := json.Marshal(itemRow)
	if err != nil {
		h.logger.Error("Could not marshal schedule item", "err", err)
		http.Error(w, http.StatusText(500), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(item)
}
