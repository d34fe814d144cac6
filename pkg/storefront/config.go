package storefront

import "time"

// Config represents the configuration for the storefront client and scraper
type Config struct {
	// CatalogURL is the paginated catalog endpoint, without query string
	CatalogURL string

	// DetailURL is the base of the per-product HTML detail pages
	DetailURL string

	// Timeout bounds every outbound request
	Timeout time.Duration

	// RequestsPerSecond throttles outbound requests; zero disables throttling
	RequestsPerSecond float64

	// UserAgent is sent with every request
	UserAgent string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CatalogURL == "" {
		return ErrInvalidConfig
	}
	if c.DetailURL == "" {
		return ErrInvalidConfig
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidConfig
	}
	return nil
}
