package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Upstream JustWatch API.
	BaseURL       string
	Country       string
	Locale        string
	UserAgent     string
	Timeout       time.Duration
	ResolveLocale bool
	UpstreamRPS   float64
	UpstreamBurst int

	// Circuit breaker; a zero threshold disables it.
	CBFailureThreshold uint32
	CBTimeout          time.Duration

	// Response cache for reference data.
	CacheTTL          time.Duration
	RedisURL          string
	NATSURL           string
	InvalidateSubject string

	// Inbound per-IP rate limit; zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// HS256 secret for admin routes. Empty rejects every token.
	JWTSecret string
}

func Load() (Config, error) {
	cfg := Config{
		BaseURL:           envString("JUSTWATCH_BASE_URL", "https://apis.justwatch.com/content/{path}"),
		Country:           strings.ToUpper(envString("JUSTWATCH_COUNTRY", "AU")),
		Locale:            envString("JUSTWATCH_LOCALE", "en_AU"),
		UserAgent:         envString("JUSTWATCH_USER_AGENT", "JustWatch client (github.com/dawoudt/JustWatchAPI)"),
		RedisURL:          envString("REDIS_URL", ""),
		NATSURL:           envString("NATS_URL", ""),
		InvalidateSubject: envString("CACHE_INVALIDATE_SUBJECT", "justwatch.cache.invalidate"),
		JWTSecret:         envString("JWT_SECRET", ""),
	}

	var errs []string
	var err error
	if cfg.Timeout, err = envDuration("JUSTWATCH_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.ResolveLocale, err = envBool("JUSTWATCH_RESOLVE_LOCALE", false); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.UpstreamRPS, err = envFloat("JUSTWATCH_RPS", 0); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.UpstreamBurst, err = envInt("JUSTWATCH_BURST", 1); err != nil {
		errs = append(errs, err.Error())
	}
	threshold, err := envInt("CB_FAILURE_THRESHOLD", 0)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.CBFailureThreshold = uint32(threshold)
	if cfg.CBTimeout, err = envDuration("CB_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 10); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 20); err != nil {
		errs = append(errs, err.Error())
	}

	if !strings.Contains(cfg.BaseURL, "{path}") {
		errs = append(errs, fmt.Sprintf("JUSTWATCH_BASE_URL must contain {path}, got %q", cfg.BaseURL))
	} else if u, err := url.Parse(strings.Replace(cfg.BaseURL, "{path}", "", 1)); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("JUSTWATCH_BASE_URL is not a valid URL: %q", cfg.BaseURL))
	}
	if len(cfg.Country) != 2 {
		errs = append(errs, fmt.Sprintf("JUSTWATCH_COUNTRY must be a two letter code, got %q", cfg.Country))
	}
	if cfg.Locale == "" {
		errs = append(errs, "JUSTWATCH_LOCALE cannot be empty")
	}
	if cfg.UpstreamBurst < 1 {
		errs = append(errs, fmt.Sprintf("JUSTWATCH_BURST must be at least 1, got %d", cfg.UpstreamBurst))
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 bytes")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_BURST must be at least 1, got %d", cfg.RateLimitBurst))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def, fmt.Errorf("%s must be a non-negative number, got %q", key, v)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
