package model

import (
	"time"

	"gorm.io/datatypes"
)

type IngestionStatus string

const (
	IngestionRunning   IngestionStatus = "running"
	IngestionCompleted IngestionStatus = "completed"
	IngestionPartial   IngestionStatus = "partial" // finished with per-item failures
	IngestionFailed    IngestionStatus = "failed"
)

// IngestionRun records the outcome of one populate batch
type IngestionRun struct {
	ID                uint              `gorm:"primarykey" json:"id"`
	RunID             string            `gorm:"type:varchar(36);uniqueIndex;not null" json:"run_id"`
	Status            IngestionStatus   `gorm:"type:varchar(20);index;not null" json:"status"`
	Params            datatypes.JSONMap `json:"params"`
	ProductsFetched   int               `json:"products_fetched"`
	GamesCreated      int               `json:"games_created"`
	GamesSkipped      int               `json:"games_skipped"`
	GamesFailed       int               `json:"games_failed"`
	TaxonomiesCreated int               `json:"taxonomies_created"`
	TaxonomiesFailed  int               `json:"taxonomies_failed"`
	AssetsUploaded    int               `json:"assets_uploaded"`
	AssetsFailed      int               `json:"assets_failed"`
	Error             string            `gorm:"type:text" json:"error,omitempty"`
	Report            datatypes.JSON    `json:"report,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        *time.Time        `json:"finished_at"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
