package justwatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type upstream struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newUpstream(t *testing.T, status int, body string) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.requests = append(u.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   b,
		})
		status, body := u.status, u.body
		u.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *upstream) last(t *testing.T) recordedRequest {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		t.Fatal("expected an upstream request")
	}
	return u.requests[len(u.requests)-1]
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	return New(Config{BaseURL: srv.URL + "/content/{path}"}, opts...)
}

func TestSearchForItem_Payload(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `{"page":1,"total_results":1,"items":[{"id":10,"title":"Avatar","offers":[{"provider_id":8,"monetization_type":"rent","retail_price":3.99}]}]}`)
	c := newTestClient(srv)

	res, err := c.SearchForItem(context.Background(), "Avatar", SearchOptions{"release_year_from": 2009, "release_year_until": 2009})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].Title != "Avatar" || res.Items[0].Offers[0].ProviderID.String() != "8" {
		t.Fatalf("unexpected result: %+v", res)
	}

	req := up.last(t)
	if req.Method != http.MethodPost || req.Path != "/content/titles/en_AU/popular" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Header.Get("User-Agent") != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", req.Header.Get("User-Agent"))
	}
	var payload map[string]any
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["query"] != "Avatar" || payload["release_year_from"] != float64(2009) || payload["release_year_until"] != float64(2009) {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSearchForItem_QueryPrecedence(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `{"items":[]}`)
	c := newTestClient(srv)

	if _, err := c.SearchForItem(context.Background(), "Avatar", SearchOptions{"query": "Titanic"}); err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	_ = json.Unmarshal(up.last(t).Body, &payload)
	if payload["query"] != "Avatar" {
		t.Fatalf("expected explicit query to win, got %v", payload["query"])
	}

	if _, err := c.SearchForItem(context.Background(), "", SearchOptions{"query": "Titanic"}); err != nil {
		t.Fatal(err)
	}
	_ = json.Unmarshal(up.last(t).Body, &payload)
	if payload["query"] != "Titanic" {
		t.Fatalf("expected option query when query is empty, got %v", payload["query"])
	}
}

func TestSearchForItem_UnknownFilterForwardedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	up, srv := newUpstream(t, http.StatusOK, `{"items":[]}`)
	c := newTestClient(srv, WithLogger(zap.New(core)))

	if _, err := c.SearchForItem(context.Background(), "x", SearchOptions{"colour": "blue"}); err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	_ = json.Unmarshal(up.last(t).Body, &payload)
	if payload["colour"] != "blue" {
		t.Fatalf("expected unknown filter to be forwarded, got %v", payload)
	}
	if logs.FilterMessage("unknown search filter forwarded").Len() != 1 {
		t.Fatalf("expected one warning, got %v", logs.All())
	}
}

func TestSearchForItem_UpstreamFailure(t *testing.T) {
	_, srv := newUpstream(t, http.StatusBadGateway, `oops`)
	c := newTestClient(srv)

	_, err := c.SearchForItem(context.Background(), "Avatar", nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Op != "search" || ue.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error: %+v", ue)
	}
	if IsNotFound(err) {
		t.Fatal("502 must not be reported as not found")
	}
}

func TestSearchForItem_TransportFailure(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `{}`)
	c := newTestClient(srv)
	srv.Close()

	_, err := c.SearchForItem(context.Background(), "Avatar", nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != 0 {
		t.Fatalf("expected transport UpstreamError, got %v", err)
	}
}

func TestSearchForItem_DecodeFailure(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `<html>`)
	c := newTestClient(srv)

	if _, err := c.SearchForItem(context.Background(), "Avatar", nil); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchTitleID(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `{"items":[{"id":1,"title":"Avatar"},{"id":2,"title":"Avatar: The Way of Water"}]}`)
	c := newTestClient(srv)

	ids, err := c.SearchTitleID(context.Background(), "Avatar")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[1] != "Avatar" || ids[2] != "Avatar: The Way of Water" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestCatalogPaths(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		call  func(c *Client) (json.RawMessage, error)
		path  string
		query url.Values
	}{
		{"providers", func(c *Client) (json.RawMessage, error) { return c.GetProviders(ctx) },
			"/content/providers/locale/en_AU", url.Values{}},
		{"genres", func(c *Client) (json.RawMessage, error) { return c.GetGenres(ctx) },
			"/content/genres/locale/en_AU", url.Values{}},
		{"title default type", func(c *Client) (json.RawMessage, error) { return c.GetTitle(ctx, 42, "") },
			"/content/titles/movie/42/locale/en_AU", url.Values{}},
		{"title show", func(c *Client) (json.RawMessage, error) { return c.GetTitle(ctx, 42, "show") },
			"/content/titles/show/42/locale/en_AU", url.Values{}},
		{"season", func(c *Client) (json.RawMessage, error) { return c.GetSeason(ctx, 7) },
			"/content/titles/show_season/7/locale/en_AU", url.Values{}},
		{"person", func(c *Client) (json.RawMessage, error) { return c.GetPersonDetail(ctx, 3) },
			"/content/titles/person/3/locale/en_AU", url.Values{}},
		{"episodes", func(c *Client) (json.RawMessage, error) { return c.GetEpisodes(ctx, 5, "") },
			"/content/titles/show/5/locale/en_AU/newest_episodes", url.Values{}},
		{"episodes page", func(c *Client) (json.RawMessage, error) { return c.GetEpisodes(ctx, 5, "2") },
			"/content/titles/show/5/locale/en_AU/newest_episodes", url.Values{"page": {"2"}}},
		{"showtimes defaults", func(c *Client) (json.RawMessage, error) { return c.GetCinemaTimes(ctx, 9, "", CinemaTimesOptions{}) },
			"/content/titles/movie/9/showtimes", url.Values{"radius": {"20000"}}},
		{"certifications", func(c *Client) (json.RawMessage, error) { return c.GetCertifications(ctx, "") },
			"/content/age_certifications", url.Values{"country": {"AU"}, "object_type": {"movie"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up, srv := newUpstream(t, http.StatusOK, `{"ok":true}`)
			c := newTestClient(srv)

			out, err := tc.call(c)
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != `{"ok":true}` {
				t.Fatalf("unexpected body %s", out)
			}
			req := up.last(t)
			if req.Method != http.MethodGet || req.Path != tc.path {
				t.Fatalf("expected GET %s, got %s %s", tc.path, req.Method, req.Path)
			}
			if req.Query.Encode() != tc.query.Encode() {
				t.Fatalf("expected query %q, got %q", tc.query.Encode(), req.Query.Encode())
			}
		})
	}
}

func TestGetCinemaTimes_Options(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `[]`)
	c := newTestClient(srv)
	lat, lon := -33.86, 151.2

	_, err := c.GetCinemaTimes(context.Background(), 9, "movie", CinemaTimesOptions{
		Date:      "2026-10-18",
		Latitude:  &lat,
		Longitude: &lon,
		Radius:    5000,
		Extra:     map[string]string{"radius": "100", "fmt": "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	q := up.last(t).Query
	if q.Get("date") != "2026-10-18" || q.Get("latitude") != "-33.86" || q.Get("longitude") != "151.2" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Get("radius") != "100" || q.Get("fmt") != "x" {
		t.Fatalf("expected extra options to be merged last, got %v", q)
	}
}

func TestGetUpcomingCinema(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `{"items":[]}`)
	clock := func() time.Time { return time.Date(2022, time.December, 25, 9, 0, 0, 0, time.UTC) }
	c := newTestClient(srv, WithClock(clock))

	if _, err := c.GetUpcomingCinema(context.Background(), 1, true); err != nil {
		t.Fatal(err)
	}
	req := up.last(t)
	if req.Path != "/content/titles/movie/upcoming/2023/52/locale/en_AU" {
		t.Fatalf("unexpected path %s", req.Path)
	}
	if req.Query.Get("nationwide_cinema_releases_only") != "true" || req.Query.Get("body") != "{}" {
		t.Fatalf("unexpected query %v", req.Query)
	}
	if req.Header.Get("User-Agent") != DefaultUserAgent {
		t.Fatal("expected user agent header")
	}
}

func TestGet_NotFound(t *testing.T) {
	_, srv := newUpstream(t, http.StatusNotFound, `{"error":"nope"}`)
	c := newTestClient(srv)

	_, err := c.GetTitle(context.Background(), 1, "movie")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGet_InvalidJSON(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `not json`)
	c := newTestClient(srv)

	if _, err := c.GetGenres(context.Background()); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestGet_FailureLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	_, srv := newUpstream(t, http.StatusInternalServerError, ``)
	c := newTestClient(srv, WithLogger(zap.New(core)))

	if _, err := c.GetProviders(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	entries := logs.FilterMessage("failed to get providers for locale").All()
	if len(entries) != 1 || entries[0].ContextMap()["locale"] != "en_AU" {
		t.Fatalf("unexpected log entries: %v", logs.All())
	}
}

func TestResolveLocale(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `{"full_locale":"en_US","country":"US"}`)
	c := newTestClient(srv)

	locale, err := c.ResolveLocale(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if locale != "en_US" || up.last(t).Path != "/content/locales/state" {
		t.Fatalf("unexpected locale %q", locale)
	}
}

func TestResolveLocale_Missing(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `{}`)
	c := newTestClient(srv)

	if _, err := c.ResolveLocale(context.Background()); err == nil {
		t.Fatal("expected error for missing full_locale")
	}
}

func TestWithLocale_DoesNotMutate(t *testing.T) {
	up, srv := newUpstream(t, http.StatusOK, `[]`)
	c := newTestClient(srv)
	de := c.WithLocale("de_DE")

	if c.Locale() != "en_AU" || de.Locale() != "de_DE" {
		t.Fatalf("unexpected locales %q %q", c.Locale(), de.Locale())
	}
	if _, err := de.GetGenres(context.Background()); err != nil {
		t.Fatal(err)
	}
	if up.last(t).Path != "/content/genres/locale/de_DE" {
		t.Fatalf("unexpected path %s", up.last(t).Path)
	}
}

func TestCircuitBreaker_Opens(t *testing.T) {
	up, srv := newUpstream(t, http.StatusInternalServerError, ``)
	c := newTestClient(srv, WithCircuitBreaker(NewCircuitBreaker(2, time.Minute, nil)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.GetGenres(ctx); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := c.GetGenres(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Op != "genres" {
		t.Fatalf("expected breaker error wrapped as UpstreamError, got %v", err)
	}
	up.mu.Lock()
	n := len(up.requests)
	up.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 upstream requests, got %d", n)
	}
}

func TestCircuitBreaker_IgnoresNotFound(t *testing.T) {
	_, srv := newUpstream(t, http.StatusNotFound, ``)
	c := newTestClient(srv, WithCircuitBreaker(NewCircuitBreaker(1, time.Minute, nil)))

	for i := 0; i < 3; i++ {
		if _, err := c.GetTitle(context.Background(), 1, ""); !IsNotFound(err) {
			t.Fatalf("attempt %d: expected not found, got %v", i, err)
		}
	}
}

func TestRateLimit_ContextCancelled(t *testing.T) {
	_, srv := newUpstream(t, http.StatusOK, `[]`)
	c := newTestClient(srv, WithRateLimit(0.001, 1))

	if _, err := c.GetGenres(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetGenres(ctx)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected limiter error, got %v", err)
	}
}
