package justwatch

import "encoding/json"

// SearchOptions are search filters forwarded verbatim in the search payload,
// e.g. release_year_from, release_year_until, monetization_types.
type SearchOptions map[string]any

// knownSearchFilters are the payload keys the popular-titles endpoint understands.
var knownSearchFilters = map[string]struct{}{
	"age_certifications":              {},
	"content_types":                   {},
	"presentation_types":              {},
	"providers":                       {},
	"genres":                          {},
	"languages":                       {},
	"release_year_from":               {},
	"release_year_until":              {},
	"monetization_types":              {},
	"min_price":                       {},
	"max_price":                       {},
	"nationwide_cinema_releases_only": {},
	"scoring_filter_types":            {},
	"cinema_release":                  {},
	"query":                           {},
	"page":                            {},
	"page_size":                       {},
	"timeline_type":                   {},
}

// IsKnownSearchFilter reports whether key is a documented search filter.
func IsKnownSearchFilter(key string) bool {
	_, ok := knownSearchFilters[key]
	return ok
}

type SearchResult struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
	Items        []Item `json:"items"`
}

type Item struct {
	ID                  int64  `json:"id"`
	Title               string `json:"title"`
	FullPath            string `json:"full_path,omitempty"`
	ObjectType          string `json:"object_type,omitempty"`
	OriginalReleaseYear int    `json:"original_release_year,omitempty"`
	// Offers is nil when the upstream omitted it or sent null, and empty
	// (non-nil) for an explicit [].
	Offers []Offer `json:"offers"`
}

type Offer struct {
	ProviderID       json.Number `json:"provider_id"`
	MonetizationType string      `json:"monetization_type"`
	PresentationType string      `json:"presentation_type,omitempty"`
	RetailPrice      *float64    `json:"retail_price,omitempty"`
	Currency         string      `json:"currency,omitempty"`
	URLs             struct {
		StandardWeb string `json:"standard_web,omitempty"`
	} `json:"urls"`
}

// CinemaTimesOptions are the showtimes query parameters. Zero values are
// omitted, except Radius which defaults to 20000.
type CinemaTimesOptions struct {
	Date      string
	Latitude  *float64
	Longitude *float64
	Radius    int
	// Extra is merged last and overrides the fields above.
	Extra map[string]string
}

type localeState struct {
	FullLocale string `json:"full_locale"`
}
