package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/internal/db"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

// countingTaxonomyRepository wraps a real repository and counts calls per name
type countingTaxonomyRepository struct {
	repository.TaxonomyRepository

	mu        sync.Mutex
	creates   map[string]int
	lookupErr map[string]error
	createErr map[string]error
}

func newCountingTaxonomyRepository(inner repository.TaxonomyRepository) *countingTaxonomyRepository {
	return &countingTaxonomyRepository{
		TaxonomyRepository: inner,
		creates:            make(map[string]int),
		lookupErr:          make(map[string]error),
		createErr:          make(map[string]error),
	}
}

func taxonomyKey(kind model.TaxonomyKind, name string) string {
	return string(kind) + ":" + name
}

func (r *countingTaxonomyRepository) FindByName(kind model.TaxonomyKind, name string) (*model.Taxonomy, error) {
	r.mu.Lock()
	err := r.lookupErr[taxonomyKey(kind, name)]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.TaxonomyRepository.FindByName(kind, name)
}

func (r *countingTaxonomyRepository) CreateOrGet(kind model.TaxonomyKind, entity *model.Taxonomy) (bool, error) {
	key := taxonomyKey(kind, entity.Name)
	r.mu.Lock()
	r.creates[key]++
	err := r.createErr[key]
	r.mu.Unlock()
	if err != nil {
		return false, err
	}
	return r.TaxonomyRepository.CreateOrGet(kind, entity)
}

func (r *countingTaxonomyRepository) createCount(kind model.TaxonomyKind, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates[taxonomyKey(kind, name)]
}

// fakeScraper returns canned metadata and fails for the slugs in failures
type fakeScraper struct {
	mu       sync.Mutex
	failures map[string]error
	calls    []string
}

func (s *fakeScraper) FetchMetadata(ctx context.Context, slug string) (*storefront.Metadata, error) {
	s.mu.Lock()
	s.calls = append(s.calls, slug)
	err := s.failures[slug]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &storefront.Metadata{
		Description:      "<p>About " + slug + "</p>",
		ShortDescription: "About " + slug,
		Rating:           "BR16",
	}, nil
}

type uploadCall struct {
	URL    string
	GameID uint
	Field  model.AssetField
}

// fakeUploader records every upload attempt
type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
	fail  map[string]bool
}

func (u *fakeUploader) UploadAsset(ctx context.Context, imageURL string, game *model.Game, field model.AssetField) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, uploadCall{URL: imageURL, GameID: game.ID, Field: field})
	if u.fail[imageURL] {
		return fmt.Errorf("upload of %s failed", imageURL)
	}
	return nil
}

func (u *fakeUploader) byField(field model.AssetField) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var urls []string
	for _, c := range u.calls {
		if c.Field == field {
			urls = append(urls, c.URL)
		}
	}
	return urls
}

// fakeCatalog serves a fixed product list or an error
type fakeCatalog struct {
	products []storefront.Product
	err      error
	params   map[string]string
}

func (c *fakeCatalog) FetchCatalog(ctx context.Context, params map[string]string) ([]storefront.Product, error) {
	c.params = params
	if c.err != nil {
		return nil, c.err
	}
	return c.products, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeLocker struct {
	held     bool
	released int
	err      error
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token", true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	l.held = false
	l.released++
	return nil
}

func product(title, slug string, developers ...string) storefront.Product {
	return storefront.Product{
		Title:            title,
		Slug:             slug,
		Price:            storefront.Price{FinalMoney: storefront.Money{Amount: 19.99, Currency: "USD"}},
		Genres:           []storefront.Genre{{Name: "RPG", Slug: "rpg"}},
		OperatingSystems: []string{"windows"},
		Developers:       developers,
		Publishers:       []string{"Acme Publishing"},
		CoverHorizontal:  "https://images.example.com/" + slug + "/cover.jpg",
	}
}

// newImageServer serves a tiny PNG for every path except /missing
func newImageServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	t.Cleanup(server.Close)
	return server
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
