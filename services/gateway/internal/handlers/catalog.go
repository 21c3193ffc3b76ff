package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

type fetchFunc func(ctx context.Context, p justwatch.Provider) (json.RawMessage, error)

// cached serves locale-scoped reference data through cache, fetching from the
// current provider snapshot on a miss.
func cached(src justwatch.Source, cache Cache, log *zap.Logger, key func(p justwatch.Provider, r *http.Request) string, fetch func(r *http.Request) fetchFunc) http.HandlerFunc {
	if cache == nil {
		cache = noCache{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		p := src.Current()
		k := key(p, r)
		if body, ok := cache.Get(r.Context(), k); ok {
			api.WriteRawJSON(w, http.StatusOK, body)
			return
		}
		body, err := fetch(r)(r.Context(), p)
		if err != nil {
			writeProviderError(w, rid, log, err)
			return
		}
		cache.Set(r.Context(), k, body)
		api.WriteRawJSON(w, http.StatusOK, body)
	}
}

// Providers handles GET /v1/providers.
func Providers(src justwatch.Source, cache Cache, log *zap.Logger) http.HandlerFunc {
	return cached(src, cache, named(log, "catalog"),
		func(p justwatch.Provider, _ *http.Request) string {
			return cacheKey("providers", p.Country(), p.Locale())
		},
		func(*http.Request) fetchFunc {
			return func(ctx context.Context, p justwatch.Provider) (json.RawMessage, error) {
				return p.GetProviders(ctx)
			}
		})
}

// Genres handles GET /v1/genres.
func Genres(src justwatch.Source, cache Cache, log *zap.Logger) http.HandlerFunc {
	return cached(src, cache, named(log, "catalog"),
		func(p justwatch.Provider, _ *http.Request) string {
			return cacheKey("genres", p.Country(), p.Locale())
		},
		func(*http.Request) fetchFunc {
			return func(ctx context.Context, p justwatch.Provider) (json.RawMessage, error) {
				return p.GetGenres(ctx)
			}
		})
}

// Certifications handles GET /v1/certifications?type=movie|show.
func Certifications(src justwatch.Source, cache Cache, log *zap.Logger) http.HandlerFunc {
	return cached(src, cache, named(log, "catalog"),
		func(p justwatch.Provider, r *http.Request) string {
			return cacheKey("certifications", p.Country(), p.Locale(), contentType(r.URL.Query().Get("type")))
		},
		func(r *http.Request) fetchFunc {
			ct := contentType(r.URL.Query().Get("type"))
			return func(ctx context.Context, p justwatch.Provider) (json.RawMessage, error) {
				return p.GetCertifications(ctx, ct)
			}
		})
}
