package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/analytics"
	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

const (
	avatarQuery = "Avatar"
	avatarYear  = 2009
)

// Search handles GET /search: the fixed Avatar (2009) lookup.
func Search(src justwatch.Source, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	log = named(log, "search")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		opts := justwatch.SearchOptions{
			"release_year_from":  avatarYear,
			"release_year_until": avatarYear,
		}
		writeSearch(w, r, rid, src.Current(), pub, log, avatarQuery, opts,
			fmt.Sprintf("No results found for %s (%d)", avatarQuery, avatarYear))
	}
}

// SearchTitles handles GET /v1/search?q=...; every other query parameter is
// passed through as a search filter.
func SearchTitles(src justwatch.Source, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	log = named(log, "search")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		opts := searchOptionsFromQuery(r)
		notFound := "No results found"
		if q != "" {
			notFound = fmt.Sprintf("No results found for %s", q)
		}
		writeSearch(w, r, rid, src.Current(), pub, log, q, opts, notFound)
	}
}

func writeSearch(w http.ResponseWriter, r *http.Request, rid string, p justwatch.Provider, pub *analytics.Publisher, log *zap.Logger, query string, opts justwatch.SearchOptions, notFound string) {
	res, err := p.SearchForItem(r.Context(), query, opts)
	if err != nil {
		log.Error("search failed", zap.String("request_id", rid), zap.String("query", query), zap.Error(err))
		api.Internal(w, "Error while fetching data from JustWatch API", rid)
		return
	}

	movies, err := justwatch.NormalizeResult(res)
	pub.Publish(analytics.SubjectSearchPerformed, "search_performed", map[string]any{
		"query":   query,
		"country": p.Country(),
		"locale":  p.Locale(),
		"results": len(movies),
	})
	switch {
	case errors.Is(err, justwatch.ErrNoResults):
		api.NotFound(w, "NO_RESULTS", notFound, rid)
		return
	case errors.Is(err, justwatch.ErrNoOffers):
		api.NotFound(w, "NO_OFFERS", "No results found for this title", rid)
		return
	case err != nil:
		api.Internal(w, "", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, movies)
}

// searchOptionsFromQuery turns query parameters other than q into search
// filters. Comma separated values become lists; numbers and booleans keep
// their JSON types.
func searchOptionsFromQuery(r *http.Request) justwatch.SearchOptions {
	opts := justwatch.SearchOptions{}
	for k, vals := range r.URL.Query() {
		if k == "q" || len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if v == "" {
			continue
		}
		if strings.Contains(v, ",") {
			opts[k] = parseList(splitList(v))
			continue
		}
		opts[k] = parseScalar(v)
	}
	return opts
}

func parseScalar(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, ok := parseFinite(v); ok {
		return f
	}
	if v == "true" || v == "false" {
		return v == "true"
	}
	return v
}

// parseList returns []int when every element is an integer, []float64 when
// every element is numeric, and the strings otherwise.
func parseList(parts []string) any {
	ints := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		ints = append(ints, n)
	}
	if len(ints) == len(parts) {
		return ints
	}
	floats := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, ok := parseFinite(p)
		if !ok {
			return parts
		}
		floats = append(floats, f)
	}
	return floats
}

// parseFinite rejects NaN and infinities, which cannot be encoded as JSON.
func parseFinite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// TitleIDs handles GET /v1/title-ids?q=...
func TitleIDs(src justwatch.Source, log *zap.Logger) http.HandlerFunc {
	log = named(log, "search")
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			api.BadRequest(w, "MISSING_QUERY", "q is required", rid, nil)
			return
		}
		ids, err := src.Current().SearchTitleID(r.Context(), q)
		if err != nil {
			log.Error("title id search failed", zap.String("request_id", rid), zap.String("query", q), zap.Error(err))
			api.Internal(w, "Error while fetching data from JustWatch API", rid)
			return
		}
		out := make(map[string]string, len(ids))
		for id, title := range ids {
			out[strconv.FormatInt(id, 10)] = title
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func named(log *zap.Logger, name string) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log.Named(name)
}
