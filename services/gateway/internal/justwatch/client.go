package justwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://apis.justwatch.com/content/{path}"
	DefaultCountry   = "AU"
	DefaultLocale    = "en_AU"
	DefaultUserAgent = "JustWatch client (github.com/dawoudt/JustWatchAPI)"

	defaultContentType = "movie"
	defaultRadius      = 20000
	maxResponseBytes   = 4 << 20
)

// Config is the immutable per-client configuration.
type Config struct {
	// BaseURL is a template; "{path}" is replaced by the endpoint path.
	BaseURL   string
	Country   string
	Locale    string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the JustWatch content API. A Client never changes after
// construction; use WithLocale to derive a snapshot with another locale.
type Client struct {
	cfg        Config
	HTTPClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker
	log        *zap.Logger
	now        func() time.Time
}

// Option configures the Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRateLimit caps outbound requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.cb = cb }
}

// WithClock overrides the time source used for upcoming-cinema weeks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		cfg:        cfg,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewCircuitBreaker builds a breaker that opens after threshold consecutive
// upstream failures. Upstream 404s do not count as failures.
func NewCircuitBreaker(threshold uint32, timeout time.Duration, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "justwatch",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

func (c *Client) Country() string { return c.cfg.Country }
func (c *Client) Locale() string  { return c.cfg.Locale }

// WithLocale returns a copy of c using locale. Transport, limiter and breaker are shared.
func (c *Client) WithLocale(locale string) *Client {
	cp := *c
	cp.cfg.Locale = locale
	return &cp
}

func (c *Client) buildURL(path string) string {
	return strings.Replace(c.cfg.BaseURL, "{path}", path, 1)
}

// SearchForItem searches popular titles. The payload is {"query": query}
// merged with opts; a non-empty query always wins over opts["query"].
func (c *Client) SearchForItem(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	payload := make(map[string]any, len(opts)+1)
	payload["query"] = query
	for k, v := range opts {
		if !IsKnownSearchFilter(k) {
			c.log.Warn("unknown search filter forwarded", zap.String("filter", k))
		}
		payload[k] = v
	}
	if query != "" {
		payload["query"] = query
	}

	u := c.buildURL("titles/" + c.cfg.Locale + "/popular")
	b, err := c.do(ctx, "search", http.MethodPost, u, nil, payload)
	if err != nil {
		c.log.Warn("error while fetching data from justwatch api", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	var out SearchResult
	if err := json.Unmarshal(b, &out); err != nil {
		err = &UpstreamError{Op: "search", Status: http.StatusOK, Err: fmt.Errorf("decode error: %w body=%q", err, snippet(b))}
		c.log.Warn("error while fetching data from justwatch api", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

// SearchTitleID maps the id of every search hit for query to its title.
func (c *Client) SearchTitleID(ctx context.Context, query string) (map[int64]string, error) {
	res, err := c.SearchForItem(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]string, len(res.Items))
	for _, item := range res.Items {
		ids[item.ID] = item.Title
	}
	return ids, nil
}

// ResolveLocale asks the API for the locale of the caller's region.
func (c *Client) ResolveLocale(ctx context.Context) (string, error) {
	b, err := c.do(ctx, "locale", http.MethodGet, c.buildURL("locales/state"), nil, nil)
	if err != nil {
		return "", err
	}
	var st localeState
	if err := json.Unmarshal(b, &st); err != nil {
		return "", &UpstreamError{Op: "locale", Status: http.StatusOK, Err: fmt.Errorf("decode error: %w body=%q", err, snippet(b))}
	}
	if strings.TrimSpace(st.FullLocale) == "" {
		return "", &UpstreamError{Op: "locale", Status: http.StatusOK, Err: errors.New("response has no full_locale")}
	}
	return st.FullLocale, nil
}

func (c *Client) GetProviders(ctx context.Context) (json.RawMessage, error) {
	out, err := c.getRaw(ctx, "providers", c.buildURL("providers/locale/"+c.cfg.Locale), nil)
	if err != nil {
		c.log.Warn("failed to get providers for locale", zap.String("locale", c.cfg.Locale), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetGenres(ctx context.Context) (json.RawMessage, error) {
	out, err := c.getRaw(ctx, "genres", c.buildURL("genres/locale/"+c.cfg.Locale), nil)
	if err != nil {
		c.log.Warn("failed to get genres for locale", zap.String("locale", c.cfg.Locale), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetTitle(ctx context.Context, titleID int64, contentType string) (json.RawMessage, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	path := fmt.Sprintf("titles/%s/%d/locale/%s", url.PathEscape(contentType), titleID, c.cfg.Locale)
	out, err := c.getRaw(ctx, "title", c.buildURL(path), nil)
	if err != nil {
		c.log.Warn("failed to get title", zap.Int64("title_id", titleID), zap.String("content_type", contentType), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetSeason(ctx context.Context, seasonID int64) (json.RawMessage, error) {
	path := fmt.Sprintf("titles/show_season/%d/locale/%s", seasonID, c.cfg.Locale)
	out, err := c.getRaw(ctx, "season", c.buildURL(path), nil)
	if err != nil {
		c.log.Warn("failed to get season", zap.Int64("season_id", seasonID), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetPersonDetail(ctx context.Context, personID int64) (json.RawMessage, error) {
	path := fmt.Sprintf("titles/person/%d/locale/%s", personID, c.cfg.Locale)
	out, err := c.getRaw(ctx, "person", c.buildURL(path), nil)
	if err != nil {
		c.log.Warn("failed to get person detail", zap.Int64("person_id", personID), zap.Error(err))
	}
	return out, err
}

// GetEpisodes returns the newest episodes of a show. An empty page omits the page parameter.
func (c *Client) GetEpisodes(ctx context.Context, showID int64, page string) (json.RawMessage, error) {
	path := fmt.Sprintf("titles/show/%d/locale/%s/newest_episodes", showID, c.cfg.Locale)
	var q url.Values
	if page != "" {
		q = url.Values{"page": {page}}
	}
	out, err := c.getRaw(ctx, "episodes", c.buildURL(path), q)
	if err != nil {
		c.log.Warn("failed to get episodes for show", zap.Int64("show_id", showID), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetCinemaTimes(ctx context.Context, titleID int64, contentType string, opts CinemaTimesOptions) (json.RawMessage, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	path := fmt.Sprintf("titles/%s/%d/showtimes", url.PathEscape(contentType), titleID)
	out, err := c.getRaw(ctx, "showtimes", c.buildURL(path), cinemaTimesQuery(opts))
	if err != nil {
		c.log.Warn("failed to get cinema times for title", zap.Int64("title_id", titleID), zap.Error(err))
	}
	return out, err
}

func cinemaTimesQuery(opts CinemaTimesOptions) url.Values {
	q := url.Values{}
	if opts.Date != "" {
		q.Set("date", opts.Date)
	}
	if opts.Latitude != nil {
		q.Set("latitude", strconv.FormatFloat(*opts.Latitude, 'f', -1, 64))
	}
	if opts.Longitude != nil {
		q.Set("longitude", strconv.FormatFloat(*opts.Longitude, 'f', -1, 64))
	}
	radius := opts.Radius
	if radius == 0 {
		radius = defaultRadius
	}
	q.Set("radius", strconv.Itoa(radius))
	for k, v := range opts.Extra {
		q.Set(k, v)
	}
	return q
}

// GetUpcomingCinema lists cinema releases for the week weeksOffset weeks from now.
func (c *Client) GetUpcomingCinema(ctx context.Context, weeksOffset int, nationwideOnly bool) (json.RawMessage, error) {
	year, week := upcomingWeek(c.now(), weeksOffset)
	path := fmt.Sprintf("titles/movie/upcoming/%d/%d/locale/%s", year, week, c.cfg.Locale)
	q := url.Values{
		"nationwide_cinema_releases_only": {strconv.FormatBool(nationwideOnly)},
		"body":                            {"{}"},
	}
	out, err := c.getRaw(ctx, "upcoming", c.buildURL(path), q)
	if err != nil {
		c.log.Warn("failed to get upcoming cinema", zap.Int("year", year), zap.Int("week", week), zap.Error(err))
	}
	return out, err
}

func (c *Client) GetCertifications(ctx context.Context, contentType string) (json.RawMessage, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	q := url.Values{"country": {c.cfg.Country}, "object_type": {contentType}}
	out, err := c.getRaw(ctx, "certifications", c.buildURL("age_certifications"), q)
	if err != nil {
		c.log.Warn("failed to get certifications for type", zap.String("content_type", contentType), zap.Error(err))
	}
	return out, err
}

func (c *Client) getRaw(ctx context.Context, op, u string, q url.Values) (json.RawMessage, error) {
	b, err := c.do(ctx, op, http.MethodGet, u, q, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, &UpstreamError{Op: op, Status: http.StatusOK, Err: fmt.Errorf("invalid json body=%q", snippet(b))}
	}
	return json.RawMessage(b), nil
}

func (c *Client) do(ctx context.Context, op, method, u string, q url.Values, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{Op: op, Err: err}
		}
	}
	if c.cb == nil {
		return c.roundTrip(ctx, op, method, u, q, payload)
	}
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, op, method, u, q, payload)
	})
	if err != nil {
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			err = &UpstreamError{Op: op, Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, u string, q url.Values, payload any) ([]byte, error) {
	if len(q) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &UpstreamError{Op: op, Err: fmt.Errorf("encode payload: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode != http.StatusOK:
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("body=%q", snippet(b))}
	}
	return b, nil
}

func snippet(b []byte) string {
	return string(b[:min(len(b), 200)])
}
