package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CatalogResponse represents one page returned by the catalog API
type CatalogResponse struct {
	Products   []Product `json:"products"`
	Pages      int       `json:"pages"`
	ProductCnt int       `json:"productCount"`
}

// Genre is a catalog genre reference
type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Money is a price amount that the API sends either as a string or a number
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// UnmarshalJSON accepts "9.99" as well as 9.99 for the amount
func (m *Money) UnmarshalJSON(data []byte) error {
	aux := struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Currency = aux.Currency

	raw := bytes.TrimSpace(aux.Amount)
	if len(raw) == 0 || string(raw) == "null" {
		m.Amount = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
		if len(raw) == 0 {
			m.Amount = 0
			return nil
		}
	}
	amount, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("failed to parse amount %q: %w", string(raw), err)
	}
	m.Amount = amount
	return nil
}

// Price wraps the money fields of a catalog product
type Price struct {
	Final      string `json:"final"`
	FinalMoney Money  `json:"finalMoney"`
	BaseMoney  Money  `json:"baseMoney"`
}

// Product represents one catalog entry. It is transient: the ingestion
// pipeline turns it into a Game and never persists it directly.
type Product struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Price            Price      `json:"price"`
	ReleaseDate      *time.Time `json:"releaseDate"`
	Genres           []Genre    `json:"genres"`
	OperatingSystems []string   `json:"operatingSystems"`
	Developers       []string   `json:"developers"`
	Publishers       []string   `json:"publishers"`
	CoverHorizontal  string     `json:"coverHorizontal"`
	Screenshots      []string   `json:"screenshots"`
}

var releaseDateLayouts = []string{
	"2006.01.02",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// UnmarshalJSON custom unmarshal for the release date; unparsable dates become nil
func (p *Product) UnmarshalJSON(data []byte) error {
	type Alias Product
	aux := &struct {
		ReleaseDate string `json:"releaseDate"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.ReleaseDate = parseReleaseDate(aux.ReleaseDate)
	return nil
}

func parseReleaseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// GenreNames returns the genre names in catalog order
func (p *Product) GenreNames() []string {
	names := make([]string, 0, len(p.Genres))
	for _, g := range p.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Amount returns the final price amount
func (p *Product) Amount() float64 {
	return p.Price.FinalMoney.Amount
}

// Metadata is the structured data scraped from a product detail page
type Metadata struct {
	Description      string
	ShortDescription string
	Rating           string
}
