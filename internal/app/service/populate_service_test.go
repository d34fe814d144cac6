package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type populateFixture struct {
	*upserterFixture
	catalog *fakeCatalog
	runs    repository.IngestionRunRepository
	events  *recordingPublisher
	locker  *fakeLocker
	service PopulateService
}

func setupPopulateTest(t *testing.T, products ...storefront.Product) *populateFixture {
	f := &populateFixture{
		upserterFixture: setupUpserterTest(t),
		catalog:         &fakeCatalog{products: products},
		events:          &recordingPublisher{},
		locker:          &fakeLocker{},
	}
	f.runs = repository.NewIngestionRunRepository(f.db)
	f.service = NewPopulateService(
		f.catalog,
		NewTaxonomyReconciler(f.taxonomies, f.gates),
		f.upserter(DefaultUpserterConfig()),
		f.runs,
		WithLocker(f.locker, 0),
		WithEventPublisher(f.events),
	)
	return f
}

func TestPopulateService_Populate(t *testing.T) {
	f := setupPopulateTest(t,
		product("One", "one", "Acme"),
		product("Two", "two", "Acme"),
	)
	params := map[string]string{"limit": "48", "order": "desc:trending"}

	report, err := f.service.Populate(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, params, f.catalog.params)
	assert.Equal(t, model.IngestionCompleted, report.Status)
	assert.Equal(t, 2, report.ProductsFetched)
	assert.Equal(t, 2, report.GamesCreated)
	assert.Equal(t, 4, report.Taxonomies.Totals().Created)
	assert.Len(t, report.CreatedGames(), 2)
	assert.Equal(t, 2, report.AssetsUploaded)

	assert.Equal(t, 1, f.locker.released)
	assert.Equal(t, []EventType{EventBatchStarted, EventGameCreated, EventGameCreated, EventBatchFinished}, f.events.types())

	run, err := f.service.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.IngestionCompleted, run.Status)
	assert.Equal(t, 2, run.GamesCreated)
	assert.Equal(t, 4, run.TaxonomiesCreated)
	assert.NotNil(t, run.FinishedAt)

	var stored Report
	require.NoError(t, json.Unmarshal(run.Report, &stored))
	assert.Len(t, stored.Outcomes, 2)
}

func TestPopulateService_RerunSkipsExistingGames(t *testing.T) {
	f := setupPopulateTest(t, product("One", "one", "Acme"))

	_, err := f.service.Populate(context.Background(), nil)
	require.NoError(t, err)

	report, err := f.service.Populate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.GamesCreated)
	assert.Equal(t, 1, report.GamesSkipped)
	assert.Empty(t, report.CreatedGames())

	count, err := f.games.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	runs, err := f.service.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPopulateService_CatalogFailureIsAFailedReport(t *testing.T) {
	f := setupPopulateTest(t)
	f.catalog.err = &storefront.RemoteFetchError{URL: "https://catalog", StatusCode: 503, Err: storefront.ErrUnexpectedStatus}

	report, err := f.service.Populate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.IngestionFailed, report.Status)
	assert.NotEmpty(t, report.Error)
	assert.Zero(t, report.ProductsFetched)

	run, err := f.service.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.IngestionFailed, run.Status)
	assert.Equal(t, report.Error, run.Error)
}

func TestPopulateService_PartialStatus(t *testing.T) {
	f := setupPopulateTest(t, product("One", "one", "Acme"))
	f.uploader.fail = map[string]bool{"https://images.example.com/one/cover.jpg": true}

	report, err := f.service.Populate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.IngestionPartial, report.Status)
	assert.Equal(t, 1, report.AssetsFailed)
}

func TestPopulateService_BatchInProgress(t *testing.T) {
	f := setupPopulateTest(t, product("One", "one", "Acme"))
	f.locker.held = true

	report, err := f.service.Populate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.Nil(t, report)
	assert.Empty(t, f.events.types())
}

func TestPopulateService_LockBackendError(t *testing.T) {
	f := setupPopulateTest(t)
	f.locker.err = errors.New("redis down")

	_, err := f.service.Populate(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBatchInProgress)
}

func TestPopulateService_GetRunNotFound(t *testing.T) {
	f := setupPopulateTest(t)

	_, err := f.service.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
