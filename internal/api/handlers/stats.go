package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/api/problem"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
	"github.com/Togather-Foundation/ewm/internal/validation"
)

type HitStore interface {
	Save(ctx context.Context, hit stats.Hit) (stats.Hit, error)
	Stats(ctx context.Context, query stats.Query) ([]stats.ViewStats, error)
}

// StatsHandler is the HTTP surface of the stats service.
type StatsHandler struct {
	hits HitStore
	env  string
}

func NewStatsHandler(hits HitStore, env string) *StatsHandler {
	return &StatsHandler{hits: hits, env: env}
}

// Hit stores one endpoint hit. A missing timestamp means now.
func (h *StatsHandler) Hit(w http.ResponseWriter, r *http.Request) {
	var hit stats.Hit
	if err := decodeJSON(r, &hit); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if err := validation.Struct(hit); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if hit.Timestamp.IsZero() {
		hit.Timestamp = timestamp.Now()
	}

	saved, err := h.hits.Save(r.Context(), hit)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Stats reports hit counts between start and end, both required, for the
// optional uris list. unique counts distinct IPs.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	query, err := parseStatsQuery(r)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	result, err := h.hits.Stats(r.Context(), query)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseStatsQuery(r *http.Request) (stats.Query, error) {
	values := r.URL.Query()

	start, err := timestamp.Parse(values.Get("start"))
	if err != nil {
		return stats.Query{}, errs.ValidationError{Field: "start", Message: "expected format " + timestamp.Layout}
	}
	end, err := timestamp.Parse(values.Get("end"))
	if err != nil {
		return stats.Query{}, errs.ValidationError{Field: "end", Message: "expected format " + timestamp.Layout}
	}

	query := stats.Query{Start: start.Time, End: end.Time, URIs: listParam(r, "uris")}
	if raw := strings.TrimSpace(values.Get("unique")); raw != "" {
		query.Unique, err = strconv.ParseBool(raw)
		if err != nil {
			return stats.Query{}, errs.ValidationError{Field: "unique", Message: "must be true or false"}
		}
	}
	return query, query.Validate()
}
