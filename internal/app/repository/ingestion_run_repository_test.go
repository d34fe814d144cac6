package repository

import (
	"testing"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/db"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestIngestionRunRepository_Lifecycle(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewIngestionRunRepository(testDB)

	run := &model.IngestionRun{
		RunID:     "run-1",
		Status:    model.IngestionRunning,
		Params:    datatypes.JSONMap{"limit": "48"},
		StartedAt: time.Now(),
	}
	require.NoError(t, repo.Create(run))
	require.NotZero(t, run.ID)

	finished := time.Now()
	run.Status = model.IngestionPartial
	run.GamesCreated = 2
	run.GamesFailed = 1
	run.FinishedAt = &finished
	require.NoError(t, repo.Update(run))

	loaded, err := repo.FindByRunID("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.IngestionPartial, loaded.Status)
	assert.Equal(t, 2, loaded.GamesCreated)
	assert.Equal(t, "48", loaded.Params["limit"])
	assert.NotNil(t, loaded.FinishedAt)

	_, err = repo.FindByRunID("missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestIngestionRunRepository_FindRecent(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewIngestionRunRepository(testDB)
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Create(&model.IngestionRun{
			RunID:     id,
			Status:    model.IngestionCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.FindRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "mid", runs[1].RunID)
}
