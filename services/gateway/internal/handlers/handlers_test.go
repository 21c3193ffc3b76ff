package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/justwatch-gateway/internal/platform/api"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

// stubProvider returns canned values and records the arguments it was called with.
type stubProvider struct {
	country, locale string

	searchResp *justwatch.SearchResult
	searchErr  error
	idsResp    map[int64]string
	idsErr     error
	raw        json.RawMessage
	rawErr     error

	mu           sync.Mutex
	calls        int
	lastQuery    string
	lastOpts     justwatch.SearchOptions
	lastID       int64
	lastType     string
	lastPage     string
	lastCinema   justwatch.CinemaTimesOptions
	lastOffset   int
	lastNational bool
}

var _ justwatch.Provider = (*stubProvider)(nil)

func (s *stubProvider) record(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	f()
}

func (s *stubProvider) Country() string {
	if s.country == "" {
		return "AU"
	}
	return s.country
}

func (s *stubProvider) Locale() string {
	if s.locale == "" {
		return "en_AU"
	}
	return s.locale
}

func (s *stubProvider) SearchForItem(_ context.Context, query string, opts justwatch.SearchOptions) (*justwatch.SearchResult, error) {
	s.record(func() { s.lastQuery, s.lastOpts = query, opts })
	return s.searchResp, s.searchErr
}

func (s *stubProvider) SearchTitleID(_ context.Context, query string) (map[int64]string, error) {
	s.record(func() { s.lastQuery = query })
	return s.idsResp, s.idsErr
}

func (s *stubProvider) ResolveLocale(context.Context) (string, error) {
	s.record(func() {})
	return s.Locale(), nil
}

func (s *stubProvider) GetProviders(context.Context) (json.RawMessage, error) {
	s.record(func() {})
	return s.raw, s.rawErr
}

func (s *stubProvider) GetGenres(context.Context) (json.RawMessage, error) {
	s.record(func() {})
	return s.raw, s.rawErr
}

func (s *stubProvider) GetTitle(_ context.Context, id int64, contentType string) (json.RawMessage, error) {
	s.record(func() { s.lastID, s.lastType = id, contentType })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetSeason(_ context.Context, id int64) (json.RawMessage, error) {
	s.record(func() { s.lastID = id })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetPersonDetail(_ context.Context, id int64) (json.RawMessage, error) {
	s.record(func() { s.lastID = id })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetEpisodes(_ context.Context, id int64, page string) (json.RawMessage, error) {
	s.record(func() { s.lastID, s.lastPage = id, page })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetCinemaTimes(_ context.Context, id int64, contentType string, opts justwatch.CinemaTimesOptions) (json.RawMessage, error) {
	s.record(func() { s.lastID, s.lastType, s.lastCinema = id, contentType, opts })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetUpcomingCinema(_ context.Context, weeksOffset int, nationwideOnly bool) (json.RawMessage, error) {
	s.record(func() { s.lastOffset, s.lastNational = weeksOffset, nationwideOnly })
	return s.raw, s.rawErr
}

func (s *stubProvider) GetCertifications(_ context.Context, contentType string) (json.RawMessage, error) {
	s.record(func() { s.lastType = contentType })
	return s.raw, s.rawErr
}

type staticSource struct{ p justwatch.Provider }

func (s staticSource) Current() justwatch.Provider { return s.p }

func chiReq(url string, params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

// fakeConn captures analytics publishes.
type fakeConn struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgs == nil {
		c.msgs = map[string][][]byte{}
	}
	c.msgs[subject] = append(c.msgs[subject], data)
	return nil
}

func (c *fakeConn) count(subject string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs[subject])
}
