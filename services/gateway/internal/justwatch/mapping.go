package justwatch

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MonetizationRent = "rent"
	freePrice        = "Free"
)

var (
	// ErrNoResults means the search returned no items at all.
	ErrNoResults = errors.New("justwatch: no results")
	// ErrNoOffers means a search item carried no offers list.
	ErrNoOffers = errors.New("justwatch: item has no offers")
)

// Movie is the simplified title shape served to clients.
type Movie struct {
	Title     string          `json:"title"`
	Providers []ProviderPrice `json:"providers"`
}

type ProviderPrice struct {
	Provider string `json:"provider"`
	Price    Price  `json:"price"`
}

// Price marshals as the string "Free" or as a number. A priced offer
// without an amount marshals as null.
type Price struct {
	Amount *float64
	Free   bool
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.Free {
		return json.Marshal(freePrice)
	}
	if p.Amount == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*p.Amount)
}

// PriceFor applies the pricing rule: rent offers carry their retail price,
// every other monetization type is reported as "Free".
func PriceFor(o Offer) Price {
	if o.MonetizationType == MonetizationRent {
		return Price{Amount: o.RetailPrice}
	}
	return Price{Free: true}
}

// NormalizeItem flattens an item's offers into provider/price pairs.
func NormalizeItem(item Item) Movie {
	m := Movie{Title: item.Title, Providers: make([]ProviderPrice, 0, len(item.Offers))}
	for _, o := range item.Offers {
		m.Providers = append(m.Providers, ProviderPrice{
			Provider: o.ProviderID.String(),
			Price:    PriceFor(o),
		})
	}
	return m
}

// NormalizeResult converts every item in order. It stops at the first item
// without an offers list and returns ErrNoOffers; an empty result yields ErrNoResults.
func NormalizeResult(res *SearchResult) ([]Movie, error) {
	if res == nil || len(res.Items) == 0 {
		return nil, ErrNoResults
	}
	movies := make([]Movie, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Offers == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoOffers, item.Title)
		}
		movies = append(movies, NormalizeItem(item))
	}
	return movies, nil
}
