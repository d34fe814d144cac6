package storefront

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// NoRating is the rating code used when a detail page carries no age rating
	NoRating = "BR0"

	// ShortDescriptionLength is the number of characters kept for the summary
	ShortDescriptionLength = 160

	descriptionSelector = ".description"
	ratingSelector      = ".age-restrictions__icon use"
)

// Scraper extracts metadata from product detail pages
type Scraper struct {
	config Config
	*transport
}

// NewScraper creates a new detail page scraper with the given configuration
func NewScraper(config Config, opts ...Option) (*Scraper, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scraper{config: config, transport: newTransport(config, opts)}, nil
}

// DetailSlug converts a catalog slug into the detail page path segment:
// hyphens become underscores and the result is lowercased.
func DetailSlug(slug string) string {
	return strings.ToLower(strings.ReplaceAll(slug, "-", "_"))
}

// DetailURL returns the detail page URL for a catalog slug
func (s *Scraper) DetailURL(slug string) string {
	return strings.TrimRight(s.config.DetailURL, "/") + "/" + DetailSlug(slug)
}

// FetchMetadata downloads and parses the detail page of a product. Any
// error means the caller has no metadata for that product.
func (s *Scraper) FetchMetadata(ctx context.Context, slug string) (*Metadata, error) {
	body, err := s.get(ctx, s.DetailURL(slug), "text/html")
	if err != nil {
		return nil, err
	}
	return ParseMetadata(slug, body)
}

// ParseMetadata extracts the description, summary and age rating from a
// detail page document.
func ParseMetadata(slug string, page []byte) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &ScrapeError{Slug: slug, Reason: fmt.Errorf("failed to parse html: %w", err)}
	}

	description := doc.Find(descriptionSelector).First()
	if description.Length() == 0 {
		return nil, &ScrapeError{Slug: slug, Reason: ErrDescriptionMissing}
	}

	html, err := description.Html()
	if err != nil {
		return nil, &ScrapeError{Slug: slug, Reason: fmt.Errorf("failed to render description: %w", err)}
	}

	return &Metadata{
		Description:      html,
		ShortDescription: truncate(description.Text(), ShortDescriptionLength),
		Rating:           parseRating(doc.Find(ratingSelector).First()),
	}, nil
}

// truncate keeps the first n characters of s
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// parseRating reads the icon reference ("#_BR_16" style) and strips the
// underscores and the leading fragment marker.
func parseRating(icon *goquery.Selection) string {
	if icon.Length() == 0 {
		return NoRating
	}

	ref, ok := iconReference(icon)
	if !ok {
		return NoRating
	}

	rating := strings.ReplaceAll(ref, "_", "")
	rating = strings.Replace(rating, "#", "", 1)
	if rating == "" {
		return NoRating
	}
	return rating
}

// iconReference returns the xlink:href of an svg <use>. Inside <svg> the html
// parser splits it into namespace "xlink" and key "href".
func iconReference(icon *goquery.Selection) (string, bool) {
	if v, ok := icon.Attr("xlink:href"); ok {
		return v, true
	}
	for _, attr := range icon.Nodes[0].Attr {
		if attr.Key == "href" && (attr.Namespace == "xlink" || attr.Namespace == "") {
			return attr.Val, true
		}
	}
	return "", false
}
