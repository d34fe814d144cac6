package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"github.com/ikkim/gamecatalog-backend/pkg/util"
	"golang.org/x/sync/errgroup"
)

var ErrUnresolvedRelations = errors.New("unresolved taxonomy relations")

// RelationPolicy decides what happens to a game whose taxonomy names did not
// all resolve to stored rows.
type RelationPolicy string

const (
	RelationsPartial RelationPolicy = "partial" // create with the resolved refs only
	RelationsStrict  RelationPolicy = "strict"  // reject the product
)

type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Stage names the step of a product pipeline that produced a failure
type Stage string

const (
	StageLookup  Stage = "lookup"
	StageResolve Stage = "resolve"
	StageCreate  Stage = "create"
)

// ScreenshotFormatToken is the size placeholder embedded in screenshot URLs
const ScreenshotFormatToken = "{formatter}"

// TaxonomyRef is the result of resolving one taxonomy name: either a stored
// entity or an explicit unresolved marker carrying the reason.
type TaxonomyRef struct {
	Kind   model.TaxonomyKind `json:"kind"`
	Name   string             `json:"name"`
	Entity *model.Taxonomy    `json:"-"`
	Reason string             `json:"reason,omitempty"`
}

func (r TaxonomyRef) Resolved() bool {
	return r.Entity != nil
}

// ProductOutcome is the result of one product pipeline
type ProductOutcome struct {
	Title          string        `json:"title"`
	Slug           string        `json:"slug"`
	Status         OutcomeStatus `json:"status"`
	Stage          Stage         `json:"stage,omitempty"`
	Error          string        `json:"error,omitempty"`
	GameID         uint          `json:"game_id,omitempty"`
	Unresolved     []TaxonomyRef `json:"unresolved,omitempty"`
	MetadataError  string        `json:"metadata_error,omitempty"`
	AssetsUploaded int           `json:"assets_uploaded"`
	AssetsFailed   int           `json:"assets_failed"`

	Game *model.Game `json:"-"`
	Err  error       `json:"-"`
}

// CreatedGames returns the games created by a batch, omitting every product
// that was skipped or failed.
func CreatedGames(outcomes []ProductOutcome) []*model.Game {
	games := make([]*model.Game, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == OutcomeCreated && o.Game != nil {
			games = append(games, o.Game)
		}
	}
	return games
}

// MetadataFetcher is satisfied by *storefront.Scraper
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, slug string) (*storefront.Metadata, error)
}

type UpserterConfig struct {
	Policy           RelationPolicy
	GalleryLimit     int
	ScreenshotFormat string
}

func DefaultUpserterConfig() UpserterConfig {
	return UpserterConfig{
		Policy:           RelationsPartial,
		GalleryLimit:     5,
		ScreenshotFormat: "product_card_v2_mobile_slider_639",
	}
}

type GameUpserter interface {
	// UpsertGames creates a game for every product whose title is not stored
	// yet. Products run concurrently and one product never aborts another.
	UpsertGames(ctx context.Context, products []storefront.Product) []ProductOutcome
}

type gameUpserter struct {
	games      repository.GameRepository
	taxonomies repository.TaxonomyRepository
	scraper    MetadataFetcher
	uploader   AssetUploader
	gates      *Gates
	config     UpserterConfig
	now        func() time.Time
}

func NewGameUpserter(
	games repository.GameRepository,
	taxonomies repository.TaxonomyRepository,
	scraper MetadataFetcher,
	uploader AssetUploader,
	gates *Gates,
	config UpserterConfig,
) GameUpserter {
	if config.Policy == "" {
		config.Policy = RelationsPartial
	}
	if config.ScreenshotFormat == "" {
		config.ScreenshotFormat = DefaultUpserterConfig().ScreenshotFormat
	}
	if config.GalleryLimit < 0 {
		config.GalleryLimit = 0
	}
	return &gameUpserter{
		games:      games,
		taxonomies: taxonomies,
		scraper:    scraper,
		uploader:   uploader,
		gates:      gates,
		config:     config,
		now:        time.Now,
	}
}

func (u *gameUpserter) UpsertGames(ctx context.Context, products []storefront.Product) []ProductOutcome {
	outcomes := make([]ProductOutcome, len(products))

	var g errgroup.Group
	for i := range products {
		g.Go(func() error {
			product := &products[i]
			err := withGate(ctx, u.gates.Product, func() error {
				outcomes[i] = u.upsertOne(ctx, product)
				return nil
			})
			if err != nil {
				outcomes[i] = failed(product, StageLookup, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func failed(product *storefront.Product, stage Stage, err error) ProductOutcome {
	return ProductOutcome{
		Title:  product.Title,
		Slug:   product.Slug,
		Status: OutcomeFailed,
		Stage:  stage,
		Error:  err.Error(),
		Err:    err,
	}
}

func (u *gameUpserter) upsertOne(ctx context.Context, product *storefront.Product) (outcome ProductOutcome) {
	log := logger.WithContext(map[string]interface{}{
		"title": product.Title,
		"slug":  product.Slug,
	})

	// A panic in one pipeline must not take the batch down with it.
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("Product pipeline panicked", err)
			outcome = failed(product, StageCreate, err)
		}
	}()

	existing, err := u.findGame(ctx, product.Title)
	if err != nil {
		log.WithStage(string(StageLookup)).Error("Failed to look up game", err)
		return failed(product, StageLookup, err)
	}
	if existing != nil {
		log.Debug("Game already exists, skipping", map[string]interface{}{
			"game_id": existing.ID,
		})
		return ProductOutcome{
			Title:  product.Title,
			Slug:   product.Slug,
			Status: OutcomeSkipped,
			GameID: existing.ID,
		}
	}

	var (
		refs    map[model.TaxonomyKind][]TaxonomyRef
		meta    *storefront.Metadata
		metaErr error
		g       errgroup.Group
	)
	g.Go(func() error {
		refs = u.resolveRefs(ctx, product)
		return nil
	})
	g.Go(func() error {
		meta, metaErr = u.fetchMetadata(ctx, product.Slug)
		return nil
	})
	_ = g.Wait()

	outcome = ProductOutcome{Title: product.Title, Slug: product.Slug}

	if metaErr != nil {
		outcome.MetadataError = metaErr.Error()
		log.Warn("No metadata for product, using defaults", map[string]interface{}{
			"error": metaErr.Error(),
		})
	}

	outcome.Unresolved = unresolved(refs)
	if len(outcome.Unresolved) > 0 {
		fields := map[string]interface{}{
			"unresolved": len(outcome.Unresolved),
			"policy":     u.config.Policy,
		}
		if u.config.Policy == RelationsStrict {
			err := fmt.Errorf("%w: %s", ErrUnresolvedRelations, describeRefs(outcome.Unresolved))
			log.WithStage(string(StageResolve)).Error("Rejecting product with unresolved relations", err, fields)
			rejected := failed(product, StageResolve, err)
			rejected.Unresolved = outcome.Unresolved
			rejected.MetadataError = outcome.MetadataError
			return rejected
		}
		log.Warn("Creating game with partial relations", fields)
	}

	game := u.buildGame(product, refs, meta)

	log.Info("Creating game")
	err = withGate(ctx, u.gates.Store, func() error {
		return u.games.Create(game)
	})
	if err != nil {
		if apperrors.IsDuplicateKey(err) {
			log.Info("Game was created concurrently, skipping")
			outcome.Status = OutcomeSkipped
			return outcome
		}
		createErr := &apperrors.EntityCreateError{Collection: "game", Name: product.Title, Err: err}
		log.WithStage(string(StageCreate)).Error("Failed to create game", createErr)
		rejected := failed(product, StageCreate, createErr)
		rejected.Unresolved = outcome.Unresolved
		rejected.MetadataError = outcome.MetadataError
		return rejected
	}

	outcome.Status = OutcomeCreated
	outcome.GameID = game.ID
	outcome.Game = game
	// The row is committed and reruns skip it by name, so its assets must not
	// be lost to a cancelled batch.
	outcome.AssetsUploaded, outcome.AssetsFailed = u.attachAssets(context.WithoutCancel(ctx), game, product)
	return outcome
}

func (u *gameUpserter) findGame(ctx context.Context, title string) (*model.Game, error) {
	var game *model.Game
	err := withGate(ctx, u.gates.Store, func() error {
		var err error
		game, err = u.games.FindByName(title)
		return err
	})
	if err != nil {
		return nil, &apperrors.EntityLookupError{Collection: "game", Name: title, Err: err}
	}
	return game, nil
}

func (u *gameUpserter) fetchMetadata(ctx context.Context, slug string) (*storefront.Metadata, error) {
	if u.scraper == nil {
		return nil, errors.New("no scraper configured")
	}
	var meta *storefront.Metadata
	err := withGate(ctx, u.gates.Scrape, func() error {
		var err error
		meta, err = u.scraper.FetchMetadata(ctx, slug)
		return err
	})
	return meta, err
}

// resolveRefs resolves every taxonomy name of the product concurrently. The
// returned slices keep catalog order with duplicates removed.
func (u *gameUpserter) resolveRefs(ctx context.Context, product *storefront.Product) map[model.TaxonomyKind][]TaxonomyRef {
	refs := make(map[model.TaxonomyKind][]TaxonomyRef, len(model.TaxonomyKinds))
	var g errgroup.Group

	for _, kind := range model.TaxonomyKinds {
		names := distinct(TaxonomyNames(kind, product))
		slots := make([]TaxonomyRef, len(names))
		refs[kind] = slots

		for i, name := range names {
			g.Go(func() error {
				slots[i] = u.resolveRef(ctx, kind, name)
				return nil
			})
		}
	}
	_ = g.Wait()

	return refs
}

func (u *gameUpserter) resolveRef(ctx context.Context, kind model.TaxonomyKind, name string) TaxonomyRef {
	ref := TaxonomyRef{Kind: kind, Name: name}

	var entity *model.Taxonomy
	err := withGate(ctx, u.gates.Store, func() error {
		var err error
		entity, err = u.taxonomies.FindByName(kind, name)
		return err
	})
	switch {
	case err != nil:
		ref.Reason = (&apperrors.EntityLookupError{Collection: string(kind), Name: name, Err: err}).Error()
	case entity == nil:
		ref.Reason = "not found"
	default:
		ref.Entity = entity
	}
	return ref
}

func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func unresolved(refs map[model.TaxonomyKind][]TaxonomyRef) []TaxonomyRef {
	var out []TaxonomyRef
	for _, kind := range model.TaxonomyKinds {
		for _, ref := range refs[kind] {
			if !ref.Resolved() {
				out = append(out, ref)
			}
		}
	}
	return out
}

func describeRefs(refs []TaxonomyRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, fmt.Sprintf("%s %q (%s)", ref.Kind, ref.Name, ref.Reason))
	}
	return strings.Join(parts, ", ")
}

func resolvedEntities(refs []TaxonomyRef) []model.Taxonomy {
	var out []model.Taxonomy
	for _, ref := range refs {
		if ref.Resolved() {
			out = append(out, *ref.Entity)
		}
	}
	return out
}

func (u *gameUpserter) buildGame(product *storefront.Product, refs map[model.TaxonomyKind][]TaxonomyRef, meta *storefront.Metadata) *model.Game {
	now := u.now()

	slug := product.Slug
	if slug == "" {
		slug = util.Slugify(product.Title)
	}

	game := &model.Game{
		Name:        product.Title,
		Slug:        slug,
		Price:       product.Amount(),
		ReleaseDate: product.ReleaseDate,
		Rating:      storefront.NoRating,
		PublishedAt: &now,
	}
	if meta != nil {
		game.Description = meta.Description
		game.ShortDescription = meta.ShortDescription
		if meta.Rating != "" {
			game.Rating = meta.Rating
		}
	}

	for _, t := range resolvedEntities(refs[model.KindDeveloper]) {
		game.Developers = append(game.Developers, model.Developer{Taxonomy: t})
	}
	for _, t := range resolvedEntities(refs[model.KindPublisher]) {
		game.Publishers = append(game.Publishers, model.Publisher{Taxonomy: t})
	}
	for _, t := range resolvedEntities(refs[model.KindCategory]) {
		game.Categories = append(game.Categories, model.Category{Taxonomy: t})
	}
	for _, t := range resolvedEntities(refs[model.KindPlatform]) {
		game.Platforms = append(game.Platforms, model.Platform{Taxonomy: t})
	}
	return game
}

// AssetTarget is one image to attach to a game
type AssetTarget struct {
	URL   string
	Field model.AssetField
}

// AssetTargets lists the images to attach to a new game: the cover, then the
// first GalleryLimit screenshots with their size token replaced.
func AssetTargets(product *storefront.Product, config UpserterConfig) []AssetTarget {
	var targets []AssetTarget
	if product.CoverHorizontal != "" {
		targets = append(targets, AssetTarget{URL: product.CoverHorizontal, Field: model.AssetFieldCover})
	}

	screenshots := product.Screenshots
	if limit := max(config.GalleryLimit, 0); len(screenshots) > limit {
		screenshots = screenshots[:limit]
	}
	for _, shot := range screenshots {
		if shot == "" {
			continue
		}
		targets = append(targets, AssetTarget{
			URL:   strings.Replace(shot, ScreenshotFormatToken, config.ScreenshotFormat, 1),
			Field: model.AssetFieldGallery,
		})
	}
	return targets
}

// attachAssets uploads every image of the game concurrently and waits for all
// of them. Upload failures are counted, never returned.
func (u *gameUpserter) attachAssets(ctx context.Context, game *model.Game, product *storefront.Product) (uploaded, failedCount int) {
	if u.uploader == nil {
		return 0, 0
	}

	targets := AssetTargets(product, u.config)
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, target := range targets {
		g.Go(func() error {
			err := u.uploader.UploadAsset(ctx, target.URL, game, target.Field)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failedCount++
			} else {
				uploaded++
			}
			return nil
		})
	}
	_ = g.Wait()
	return uploaded, failedCount
}
