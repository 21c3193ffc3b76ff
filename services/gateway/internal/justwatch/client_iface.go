package justwatch

import (
	"context"
	"encoding/json"
)

// Provider is the port for the JustWatch content API.
type Provider interface {
	Country() string
	Locale() string

	SearchForItem(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error)
	SearchTitleID(ctx context.Context, query string) (map[int64]string, error)
	ResolveLocale(ctx context.Context) (string, error)

	GetProviders(ctx context.Context) (json.RawMessage, error)
	GetGenres(ctx context.Context) (json.RawMessage, error)
	GetTitle(ctx context.Context, titleID int64, contentType string) (json.RawMessage, error)
	GetSeason(ctx context.Context, seasonID int64) (json.RawMessage, error)
	GetPersonDetail(ctx context.Context, personID int64) (json.RawMessage, error)
	GetEpisodes(ctx context.Context, showID int64, page string) (json.RawMessage, error)
	GetCinemaTimes(ctx context.Context, titleID int64, contentType string, opts CinemaTimesOptions) (json.RawMessage, error)
	GetUpcomingCinema(ctx context.Context, weeksOffset int, nationwideOnly bool) (json.RawMessage, error)
	GetCertifications(ctx context.Context, contentType string) (json.RawMessage, error)
}

// Source hands out the Provider snapshot to use for one request.
type Source interface {
	Current() Provider
}
