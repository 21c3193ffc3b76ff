package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

func newCache(t *testing.T) *TTLCache {
	t.Helper()
	c, err := NewTTLCache(time.Minute, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestProviders_CachedPerLocale(t *testing.T) {
	stub := &stubProvider{raw: json.RawMessage(`[{"id":8,"clear_name":"Netflix"}]`)}
	cache := newCache(t)
	handler := Providers(staticSource{stub}, cache, nil)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, chiReq("/v1/providers", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if rr.Body.String() != `[{"id":8,"clear_name":"Netflix"}]` {
			t.Fatalf("unexpected body %s", rr.Body.String())
		}
	}
	if stub.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", stub.calls)
	}

	other := &stubProvider{locale: "en_GB", country: "GB", raw: json.RawMessage(`[]`)}
	rr := httptest.NewRecorder()
	Providers(staticSource{other}, cache, nil).ServeHTTP(rr, chiReq("/v1/providers", nil))
	if other.calls != 1 || rr.Body.String() != `[]` {
		t.Fatalf("expected a miss for another locale, calls=%d body=%s", other.calls, rr.Body.String())
	}
}

func TestGenres_NilCache(t *testing.T) {
	stub := &stubProvider{raw: json.RawMessage(`[{"id":1}]`)}
	handler := Genres(staticSource{stub}, nil, nil)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, chiReq("/v1/genres", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	}
	if stub.calls != 2 {
		t.Fatalf("expected every request to reach upstream, got %d", stub.calls)
	}
}

func TestCertifications_TypeParam(t *testing.T) {
	stub := &stubProvider{raw: json.RawMessage(`{"M":"Mature"}`)}
	cache := newCache(t)
	handler := Certifications(staticSource{stub}, cache, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, chiReq("/v1/certifications?type=show", nil))
	if rr.Code != http.StatusOK || stub.lastType != "show" {
		t.Fatalf("expected show certifications, code=%d type=%q", rr.Code, stub.lastType)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, chiReq("/v1/certifications", nil))
	if stub.lastType != "movie" || stub.calls != 2 {
		t.Fatalf("expected movie default with a separate cache entry, type=%q calls=%d", stub.lastType, stub.calls)
	}
}

func TestCatalog_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("providers: %w", justwatch.ErrNotFound), http.StatusNotFound},
		{"upstream", &justwatch.UpstreamError{Op: "providers", Status: 500, Err: errors.New("bad")}, http.StatusBadGateway},
		{"transport", &justwatch.UpstreamError{Op: "providers", Err: context.DeadlineExceeded}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubProvider{rawErr: tc.err}
			cache := newCache(t)
			rr := httptest.NewRecorder()
			Providers(staticSource{stub}, cache, nil).ServeHTTP(rr, chiReq("/v1/providers", nil))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if _, ok := cache.Get(context.Background(), cacheKey("providers", "AU", "en_AU")); ok {
				t.Fatal("errors must not be cached")
			}
		})
	}
}
