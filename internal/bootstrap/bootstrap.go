package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/ikkim/gamecatalog-backend/config"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/ikkim/gamecatalog-backend/internal/storage"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"gorm.io/gorm"
)

// LoggerConfig derives the logger settings from the server config
func LoggerConfig(cfg *config.Config) logger.Config {
	level := cfg.Server.LogLevel
	if level == "" {
		level = "info"
		if cfg.Server.Environment == "development" {
			level = "debug"
		}
	}
	return logger.Config{
		Level:       level,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat != "json",
	}
}

// Limits maps the ingest concurrency settings onto semaphore limits
func Limits(cfg *config.IngestConfig) service.Limits {
	limits := service.DefaultLimits()
	if cfg.StoreConcurrency > 0 {
		limits.Store = int64(cfg.StoreConcurrency)
	}
	if cfg.ScrapeConcurrency > 0 {
		limits.Scrape = int64(cfg.ScrapeConcurrency)
	}
	if cfg.AssetConcurrency > 0 {
		limits.Asset = int64(cfg.AssetConcurrency)
	}
	if cfg.ProductConcurrency > 0 {
		limits.Product = int64(cfg.ProductConcurrency)
	}
	return limits
}

// UpserterConfig maps the ingest settings onto the game upserter config
func UpserterConfig(cfg *config.IngestConfig) service.UpserterConfig {
	upserterConfig := service.DefaultUpserterConfig()
	upserterConfig.GalleryLimit = cfg.GalleryLimit
	if cfg.ScreenshotFormat != "" {
		upserterConfig.ScreenshotFormat = cfg.ScreenshotFormat
	}
	if cfg.StrictRelations {
		upserterConfig.Policy = service.RelationsStrict
	}
	return upserterConfig
}

// NewPopulateService wires the catalog client, scraper, repositories and
// asset uploader into a populate service.
func NewPopulateService(cfg *config.Config, conn *gorm.DB, opts ...service.PopulateOption) (service.PopulateService, error) {
	storefrontConfig := storefront.Config{
		CatalogURL:        cfg.Storefront.CatalogURL,
		DetailURL:         cfg.Storefront.DetailURL,
		Timeout:           cfg.Storefront.Timeout,
		RequestsPerSecond: cfg.Storefront.RequestsPerSecond,
		UserAgent:         cfg.Storefront.UserAgent,
	}

	// Catalog and detail pages live on the same storefront and share one budget.
	limiter := storefront.WithLimiter(storefront.NewLimiter(cfg.Storefront.RequestsPerSecond))

	catalog, err := storefront.NewClient(storefrontConfig, limiter)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	scraper, err := storefront.NewScraper(storefrontConfig, limiter)
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}

	gates := service.NewGates(Limits(&cfg.Ingest))

	taxonomyRepo := repository.NewTaxonomyRepository(conn)
	gameRepo := repository.NewGameRepository(conn)
	runRepo := repository.NewIngestionRunRepository(conn)

	reconciler := service.NewTaxonomyReconciler(taxonomyRepo, gates)
	uploader := service.NewAssetUploader(cfg.Ingest.UploadURL, gates, &http.Client{Timeout: cfg.Storefront.Timeout})
	upserter := service.NewGameUpserter(gameRepo, taxonomyRepo, scraper, uploader, gates, UpserterConfig(&cfg.Ingest))

	return service.NewPopulateService(catalog, reconciler, upserter, runRepo, opts...), nil
}

// NewBlobStore returns S3 storage when a bucket is configured, otherwise
// local disk storage. staticDir is non-empty only for local storage.
func NewBlobStore(cfg *config.S3Config) (store storage.BlobStore, staticDir string) {
	if cfg.Bucket != "" {
		logger.Info("Using S3 asset storage", map[string]interface{}{
			"bucket": cfg.Bucket,
			"region": cfg.Region,
		})
		return storage.NewS3Storage(cfg.Region, cfg.Bucket, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.BaseURL), ""
	}

	logger.Info("Using local asset storage", map[string]interface{}{
		"dir":        cfg.UploadDir,
		"public_url": cfg.PublicURL,
	})
	local := storage.NewLocalStorage(cfg.UploadDir, cfg.PublicURL)
	return local, local.Dir()
}
