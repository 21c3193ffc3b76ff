package config

import (
	"fmt"
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
	// CORSAllowedOrigins is the raw comma separated CORS_ALLOWED_ORIGINS value.
	CORSAllowedOrigins string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	LogFormat   string
	HTTP        HTTPConfig
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:   strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		HTTP: HTTPConfig{
			Addr:               strings.TrimSpace(os.Getenv("HTTP_ADDR")),
			CORSAllowedOrigins: strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "justwatch-gateway"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "json"
	case "json", "console":
	default:
		return AppConfig{}, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	return cfg, nil
}
