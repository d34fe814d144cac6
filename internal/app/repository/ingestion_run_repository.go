package repository

import (
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"gorm.io/gorm"
)

type IngestionRunRepository interface {
	Create(run *model.IngestionRun) error
	Update(run *model.IngestionRun) error
	FindByRunID(runID string) (*model.IngestionRun, error)
	FindRecent(limit int) ([]model.IngestionRun, error)
}

type ingestionRunRepository struct {
	db *gorm.DB
}

func NewIngestionRunRepository(db *gorm.DB) IngestionRunRepository {
	return &ingestionRunRepository{db: db}
}

func (r *ingestionRunRepository) Create(run *model.IngestionRun) error {
	logger.Debug("Creating ingestion run in database", map[string]interface{}{
		"run_id": run.RunID,
	})

	if err := r.db.Create(run).Error; err != nil {
		logger.Error("Failed to create ingestion run in database", err, map[string]interface{}{
			"run_id": run.RunID,
		})
		return err
	}
	return nil
}

func (r *ingestionRunRepository) Update(run *model.IngestionRun) error {
	logger.Debug("Updating ingestion run in database", map[string]interface{}{
		"run_id": run.RunID,
		"status": run.Status,
	})

	if err := r.db.Save(run).Error; err != nil {
		logger.Error("Failed to update ingestion run in database", err, map[string]interface{}{
			"run_id": run.RunID,
		})
		return err
	}
	return nil
}

func (r *ingestionRunRepository) FindByRunID(runID string) (*model.IngestionRun, error) {
	var run model.IngestionRun
	if err := r.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		logger.Error("Failed to find ingestion run", err, map[string]interface{}{
			"run_id": runID,
		})
		return nil, err
	}
	return &run, nil
}

func (r *ingestionRunRepository) FindRecent(limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []model.IngestionRun
	if err := r.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error; err != nil {
		logger.Error("Failed to list ingestion runs", err, nil)
		return nil, err
	}
	return runs, nil
}
