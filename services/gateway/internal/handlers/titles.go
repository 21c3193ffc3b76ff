package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

// Title handles GET /v1/titles/{type}/{id}
func Title(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "titles")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := pathID(w, r, rid, "id")
		if !ok {
			return
		}
		body, err := src.Current().GetTitle(r.Context(), id, contentType(chi.URLParam(r, "type")))
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}

// Season handles GET /v1/seasons/{id}
func Season(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "titles")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := pathID(w, r, rid, "id")
		if !ok {
			return
		}
		body, err := src.Current().GetSeason(r.Context(), id)
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}

// Person handles GET /v1/persons/{id}
func Person(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "titles")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := pathID(w, r, rid, "id")
		if !ok {
			return
		}
		body, err := src.Current().GetPersonDetail(r.Context(), id)
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}

// Episodes handles GET /v1/shows/{id}/episodes?page=
func Episodes(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "titles")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := pathID(w, r, rid, "id")
		if !ok {
			return
		}
		page := strings.TrimSpace(r.URL.Query().Get("page"))
		body, err := src.Current().GetEpisodes(r.Context(), id, page)
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}

// Showtimes handles GET /v1/titles/{type}/{id}/showtimes
func Showtimes(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "titles")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := pathID(w, r, rid, "id")
		if !ok {
			return
		}
		q := r.URL.Query()
		lat, okLat := parseOptionalFloat(q.Get("latitude"))
		lng, okLng := parseOptionalFloat(q.Get("longitude"))
		if !okLat || !okLng {
			api.BadRequest(w, "INVALID_COORDINATES", "latitude and longitude must be numbers", rid, nil)
			return
		}
		opts := justwatch.CinemaTimesOptions{
			Date:      strings.TrimSpace(q.Get("date")),
			Latitude:  lat,
			Longitude: lng,
			Radius:    parseInt(q.Get("radius"), 0, 0, 1_000_000),
		}
		body, err := src.Current().GetCinemaTimes(r.Context(), id, contentType(chi.URLParam(r, "type")), opts)
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}
