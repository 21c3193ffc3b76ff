package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/analytics"
	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

// Refresher re-resolves the upstream locale. *justwatch.Holder implements it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type localeResponse struct {
	Country string `json:"country"`
	Locale  string `json:"locale"`
}

// Locale handles GET /v1/locale
func Locale(src justwatch.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := src.Current()
		api.WriteJSON(w, http.StatusOK, localeResponse{Country: p.Country(), Locale: p.Locale()})
	}
}

// RefreshLocale handles POST /v1/locale/refresh. On failure the previous
// locale stays in effect and the request gets a 502.
func RefreshLocale(src justwatch.Source, ref Refresher, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	log = named(log, "locale")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		before := src.Current().Locale()
		locale, err := ref.Refresh(r.Context())
		if err != nil {
			log.Warn("locale refresh failed", zap.String("request_id", rid), zap.String("locale", locale), zap.Error(err))
			api.BadGateway(w, "LOCALE_REFRESH_FAILED", "Unable to resolve locale, keeping "+locale, rid)
			return
		}
		if locale != before {
			pub.Publish(analytics.SubjectLocaleRefreshed, "locale_refreshed", map[string]any{
				"from": before,
				"to":   locale,
			})
		}
		api.WriteJSON(w, http.StatusOK, localeResponse{Country: src.Current().Country(), Locale: locale})
	}
}
