package repository

import (
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"gorm.io/gorm"
)

type AssetRepository interface {
	Create(asset *model.Asset) error
	FindByID(id uint) (*model.Asset, error)
	FindByRef(refType string, refID uint) ([]model.Asset, error)
	CountByField(refType string, refID uint, field model.AssetField) (int64, error)
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(asset *model.Asset) error {
	logger.Debug("Creating asset in database", map[string]interface{}{
		"ref":    asset.RefType,
		"ref_id": asset.RefID,
		"field":  asset.Field,
		"key":    asset.Key,
	})

	if err := r.db.Create(asset).Error; err != nil {
		logger.Error("Failed to create asset in database", err, map[string]interface{}{
			"ref":    asset.RefType,
			"ref_id": asset.RefID,
			"field":  asset.Field,
		})
		return err
	}

	logger.Debug("Asset created in database", map[string]interface{}{
		"asset_id": asset.ID,
		"ref_id":   asset.RefID,
	})
	return nil
}

func (r *assetRepository) FindByID(id uint) (*model.Asset, error) {
	var asset model.Asset
	if err := r.db.First(&asset, id).Error; err != nil {
		logger.Error("Failed to find asset by ID", err, map[string]interface{}{
			"asset_id": id,
		})
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) FindByRef(refType string, refID uint) ([]model.Asset, error) {
	var assets []model.Asset
	err := r.db.
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Order("id ASC").
		Find(&assets).Error
	if err != nil {
		logger.Error("Failed to find assets by ref", err, map[string]interface{}{
			"ref":    refType,
			"ref_id": refID,
		})
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) CountByField(refType string, refID uint, field model.AssetField) (int64, error) {
	var count int64
	err := r.db.Model(&model.Asset{}).
		Where("ref_type = ? AND ref_id = ? AND field = ?", refType, refID, field).
		Count(&count).Error
	return count, err
}
