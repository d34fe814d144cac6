package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBatchInProgress = errors.New("another populate batch is running")
	ErrRunNotFound     = errors.New("ingestion run not found")
)

// BatchLockKey is the lock held for the duration of a populate batch
const BatchLockKey = "ingest:populate"

// CatalogFetcher is satisfied by *storefront.Client
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, params map[string]string) ([]storefront.Product, error)
}

// Locker keeps overlapping batches from running across processes
type Locker interface {
	// Acquire returns ok=false without error when the key is already held
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type EventType string

const (
	EventBatchStarted  EventType = "batch_started"
	EventGameCreated   EventType = "game_created"
	EventProductFailed EventType = "product_failed"
	EventBatchFinished EventType = "batch_finished"
)

// Event is a progress notification emitted while a batch runs
type Event struct {
	Type  EventType              `json:"type"`
	RunID string                 `json:"run_id"`
	Time  time.Time              `json:"time"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type EventPublisher interface {
	Publish(event Event)
}

// Report is the structured result of one populate batch
type Report struct {
	RunID           string                `json:"run_id"`
	Status          model.IngestionStatus `json:"status"`
	Params          map[string]string     `json:"params"`
	ProductsFetched int                   `json:"products_fetched"`
	Taxonomies      ReconcileSummary      `json:"taxonomies"`
	Outcomes        []ProductOutcome      `json:"outcomes"`
	GamesCreated    int                   `json:"games_created"`
	GamesSkipped    int                   `json:"games_skipped"`
	GamesFailed     int                   `json:"games_failed"`
	AssetsUploaded  int                   `json:"assets_uploaded"`
	AssetsFailed    int                   `json:"assets_failed"`
	Error           string                `json:"error,omitempty"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`

	Err error `json:"-"`
}

// CreatedGames returns the games this batch created
func (r *Report) CreatedGames() []*model.Game {
	return CreatedGames(r.Outcomes)
}

func (r *Report) tally() {
	r.GamesCreated, r.GamesSkipped, r.GamesFailed = 0, 0, 0
	r.AssetsUploaded, r.AssetsFailed = 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeCreated:
			r.GamesCreated++
		case OutcomeSkipped:
			r.GamesSkipped++
		case OutcomeFailed:
			r.GamesFailed++
		}
		r.AssetsUploaded += o.AssetsUploaded
		r.AssetsFailed += o.AssetsFailed
	}

	switch {
	case r.Err != nil:
		r.Status = model.IngestionFailed
	case r.GamesFailed > 0 || r.AssetsFailed > 0 || r.Taxonomies.Totals().Failed > 0:
		r.Status = model.IngestionPartial
	default:
		r.Status = model.IngestionCompleted
	}
}

type PopulateService interface {
	// Populate runs one ingestion batch for the given catalog filter. A catalog
	// failure yields a report with status failed, not an error; an error is
	// only returned when the batch could not start.
	Populate(ctx context.Context, params map[string]string) (*Report, error)
	GetRun(runID string) (*model.IngestionRun, error)
	ListRuns(limit int) ([]model.IngestionRun, error)
}

type PopulateOption func(*populateService)

// WithLocker makes Populate hold BatchLockKey for at most ttl
func WithLocker(locker Locker, ttl time.Duration) PopulateOption {
	return func(s *populateService) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

func WithEventPublisher(publisher EventPublisher) PopulateOption {
	return func(s *populateService) { s.events = publisher }
}

type populateService struct {
	catalog    CatalogFetcher
	reconciler TaxonomyReconciler
	upserter   GameUpserter
	runs       repository.IngestionRunRepository
	locker     Locker
	lockTTL    time.Duration
	events     EventPublisher
	now        func() time.Time
}

func NewPopulateService(
	catalog CatalogFetcher,
	reconciler TaxonomyReconciler,
	upserter GameUpserter,
	runs repository.IngestionRunRepository,
	opts ...PopulateOption,
) PopulateService {
	s := &populateService{
		catalog:    catalog,
		reconciler: reconciler,
		upserter:   upserter,
		runs:       runs,
		lockTTL:    10 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *populateService) Populate(ctx context.Context, params map[string]string) (*Report, error) {
	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, BatchLockKey, s.lockTTL)
		if err != nil {
			logger.Error("Failed to acquire batch lock", err)
			return nil, fmt.Errorf("failed to acquire batch lock: %w", err)
		}
		if !ok {
			logger.Warn("Populate batch already running", map[string]interface{}{
				"lock": BatchLockKey,
			})
			return nil, ErrBatchInProgress
		}
		defer func() {
			// The batch context may already be cancelled.
			if err := s.locker.Release(context.Background(), BatchLockKey, token); err != nil {
				logger.Error("Failed to release batch lock", err)
			}
		}()
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Params:    params,
		StartedAt: s.now(),
	}
	log := logger.WithContext(map[string]interface{}{
		"run_id": report.RunID,
	})

	log.Info("Populate batch started", map[string]interface{}{
		"params": params,
	})
	run := s.startRun(report)
	s.publish(report.RunID, EventBatchStarted, map[string]interface{}{"params": params})

	s.execute(ctx, report)

	report.FinishedAt = s.now()
	report.tally()
	s.finishRun(run, report)

	log.Info("Populate batch finished", map[string]interface{}{
		"status":          report.Status,
		"products":        report.ProductsFetched,
		"games_created":   report.GamesCreated,
		"games_skipped":   report.GamesSkipped,
		"games_failed":    report.GamesFailed,
		"assets_uploaded": report.AssetsUploaded,
		"assets_failed":   report.AssetsFailed,
		"duration_ms":     report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	s.publish(report.RunID, EventBatchFinished, map[string]interface{}{
		"status":        report.Status,
		"games_created": report.GamesCreated,
		"games_failed":  report.GamesFailed,
		"error":         report.Error,
	})

	return report, nil
}

// execute runs fetch, reconcile and upsert in order, filling report
func (s *populateService) execute(ctx context.Context, report *Report) {
	products, err := s.catalog.FetchCatalog(ctx, report.Params)
	if err != nil {
		logger.Error("Failed to fetch catalog", err, map[string]interface{}{
			"run_id": report.RunID,
		})
		report.Err = err
		report.Error = err.Error()
		return
	}
	report.ProductsFetched = len(products)

	report.Taxonomies = s.reconciler.Reconcile(ctx, products)
	report.Outcomes = s.upserter.UpsertGames(ctx, products)

	for _, o := range report.Outcomes {
		switch o.Status {
		case OutcomeCreated:
			s.publish(report.RunID, EventGameCreated, map[string]interface{}{
				"game_id": o.GameID,
				"title":   o.Title,
				"slug":    o.Slug,
			})
		case OutcomeFailed:
			s.publish(report.RunID, EventProductFailed, map[string]interface{}{
				"title": o.Title,
				"slug":  o.Slug,
				"stage": o.Stage,
				"error": o.Error,
			})
		}
	}
}

func (s *populateService) publish(runID string, eventType EventType, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{Type: eventType, RunID: runID, Time: s.now(), Data: data})
}

func (s *populateService) startRun(report *Report) *model.IngestionRun {
	if s.runs == nil {
		return nil
	}

	params := datatypes.JSONMap{}
	for k, v := range report.Params {
		params[k] = v
	}
	run := &model.IngestionRun{
		RunID:     report.RunID,
		Status:    model.IngestionRunning,
		Params:    params,
		StartedAt: report.StartedAt,
	}
	if err := s.runs.Create(run); err != nil {
		logger.Error("Failed to record ingestion run", err, map[string]interface{}{
			"run_id": report.RunID,
		})
		return nil
	}
	return run
}

func (s *populateService) finishRun(run *model.IngestionRun, report *Report) {
	if run == nil {
		return
	}

	totals := report.Taxonomies.Totals()
	finished := report.FinishedAt
	run.Status = report.Status
	run.ProductsFetched = report.ProductsFetched
	run.GamesCreated = report.GamesCreated
	run.GamesSkipped = report.GamesSkipped
	run.GamesFailed = report.GamesFailed
	run.TaxonomiesCreated = totals.Created
	run.TaxonomiesFailed = totals.Failed
	run.AssetsUploaded = report.AssetsUploaded
	run.AssetsFailed = report.AssetsFailed
	run.Error = report.Error
	run.FinishedAt = &finished

	if encoded, err := json.Marshal(report); err == nil {
		run.Report = datatypes.JSON(encoded)
	} else {
		logger.Warn("Failed to encode batch report", map[string]interface{}{
			"run_id": report.RunID,
			"error":  err.Error(),
		})
	}

	if err := s.runs.Update(run); err != nil {
		logger.Error("Failed to update ingestion run", err, map[string]interface{}{
			"run_id": report.RunID,
		})
	}
}

func (s *populateService) GetRun(runID string) (*model.IngestionRun, error) {
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	run, err := s.runs.FindByRunID(runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *populateService) ListRuns(limit int) ([]model.IngestionRun, error) {
	if s.runs == nil {
		return []model.IngestionRun{}, nil
	}
	return s.runs.FindRecent(limit)
}
