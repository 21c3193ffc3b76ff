package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

// pathID reads a positive numeric URL parameter. On failure it writes a 400
// response and returns false.
func pathID(w http.ResponseWriter, r *http.Request, rid, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "INVALID_ID", name+" must be a positive integer", rid, map[string]any{name: raw})
		return 0, false
	}
	return id, true
}

func parseInt(v string, def, min, max int) int {
	if strings.TrimSpace(v) == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	if i < min {
		return min
	}
	if i > max {
		return max
	}
	return i
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// parseOptionalFloat returns nil for an empty value and ok=false for a malformed one.
func parseOptionalFloat(v string) (*float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

func contentType(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return "movie"
}

// writeProviderError maps a client error for the catalog endpoints:
// upstream 404 stays 404, anything else becomes 502.
func writeProviderError(w http.ResponseWriter, rid string, log *zap.Logger, err error) {
	if justwatch.IsNotFound(err) {
		api.NotFound(w, "NOT_FOUND", "Resource not found on JustWatch", rid)
		return
	}
	var ue *justwatch.UpstreamError
	status := 0
	if errors.As(err, &ue) {
		status = ue.Status
	}
	log.Warn("upstream request failed", zap.String("request_id", rid), zap.Int("upstream_status", status), zap.Error(err))
	api.BadGateway(w, "UPSTREAM_ERROR", "Error while fetching data from JustWatch API", rid)
}
