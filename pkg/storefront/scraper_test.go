package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailPage(description string, withRating bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Game</h1>`)
	b.WriteString(`<div class="description">` + description + `</div>`)
	if withRating {
		b.WriteString(`<div class="age-restrictions__icon"><svg><use xlink:href="#_BR_16"></use></svg></div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestDetailSlug(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"the-witcher-enhanced-edition", "the_witcher_enhanced_edition"},
		{"Cyberpunk-2077", "cyberpunk_2077"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailSlug(tt.slug))
		})
	}
}

func TestParseMetadata(t *testing.T) {
	page := detailPage(`<p>Hunt <b>monsters</b>.</p>`, true)

	meta, err := ParseMetadata("the-witcher", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, `<p>Hunt <b>monsters</b>.</p>`, meta.Description)
	assert.Equal(t, "Hunt monsters.", meta.ShortDescription)
	assert.Equal(t, "BR16", meta.Rating)
}

func TestParseMetadata_ShortDescriptionIsFirst160Characters(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50)
	require.Len(t, text, 500)

	meta, err := ParseMetadata("long", []byte(detailPage(text, true)))
	require.NoError(t, err)

	assert.Len(t, []rune(meta.ShortDescription), 160)
	assert.Equal(t, text[:160], meta.ShortDescription)
}

func TestParseMetadata_MultibyteTruncation(t *testing.T) {
	text := strings.Repeat("é", 200)

	meta, err := ParseMetadata("accents", []byte(detailPage(text, false)))
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("é", 160), meta.ShortDescription)
}

func TestParseMetadata_NoRatingIcon(t *testing.T) {
	meta, err := ParseMetadata("unrated", []byte(detailPage("<p>No rating here</p>", false)))
	require.NoError(t, err)

	assert.Equal(t, NoRating, meta.Rating)
	assert.Equal(t, "BR0", meta.Rating)
}

func TestParseMetadata_RatingIconWithoutReference(t *testing.T) {
	tests := []struct {
		name string
		icon string
	}{
		{"No href attribute", `<use class="icon"></use>`},
		{"Reference without code", `<use xlink:href="#__"></use>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><body><div class="description"><p>Rated?</p></div>` +
				`<div class="age-restrictions__icon"><svg>` + tt.icon + `</svg></div></body></html>`

			meta, err := ParseMetadata("unreferenced", []byte(page))
			require.NoError(t, err)
			assert.Equal(t, NoRating, meta.Rating)
		})
	}
}

func TestParseMetadata_MissingDescription(t *testing.T) {
	_, err := ParseMetadata("broken", []byte(`<html><body><p>nothing</p></body></html>`))
	require.Error(t, err)

	var scrapeErr *ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, "broken", scrapeErr.Slug)
	assert.ErrorIs(t, err, ErrDescriptionMissing)
}

func TestScraper_FetchMetadata(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/game/missing_game" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(detailPage("<p>Great game</p>", true)))
	}))
	defer server.Close()

	scraper, err := NewScraper(Config{
		CatalogURL: server.URL,
		DetailURL:  server.URL + "/game",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)

	meta, err := scraper.FetchMetadata(context.Background(), "Great-Game")
	require.NoError(t, err)
	assert.Equal(t, "/game/great_game", gotPath)
	assert.Equal(t, "Great game", meta.ShortDescription)

	_, err = scraper.FetchMetadata(context.Background(), "missing-game")
	var fetchErr *RemoteFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}
