package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

// Upcoming handles GET /v1/upcoming?weeks_offset=&nationwide=
func Upcoming(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "cinema")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		q := r.URL.Query()
		offset := parseInt(q.Get("weeks_offset"), 0, -52, 52)
		nationwide := parseBool(q.Get("nationwide"), true)

		body, err := src.Current().GetUpcomingCinema(r.Context(), offset, nationwide)
		if err != nil {
			log.Error("upcoming cinema failed", zap.String("request_id", rid), zap.Int("weeks_offset", offset), zap.Error(err))
			api.Internal(w, "Failed to get upcoming cinema", rid)
			return
		}
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}
