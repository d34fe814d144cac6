package repository

import (
	"errors"
	"fmt"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownTaxonomyKind = errors.New("unknown taxonomy kind")

type TaxonomyRepository interface {
	// FindByName returns nil, nil when no row carries the name.
	FindByName(kind model.TaxonomyKind, name string) (*model.Taxonomy, error)
	// CreateOrGet inserts entity unless the name exists; in that case entity is
	// replaced by the stored row and created is false.
	CreateOrGet(kind model.TaxonomyKind, entity *model.Taxonomy) (created bool, err error)
	FindAll(kind model.TaxonomyKind) ([]model.Taxonomy, error)
	Count(kind model.TaxonomyKind) (int64, error)
}

type taxonomyRepository struct {
	db *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r *taxonomyRepository) table(kind model.TaxonomyKind) (*gorm.DB, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaxonomyKind, kind)
	}
	return r.db.Table(kind.TableName()), nil
}

func (r *taxonomyRepository) FindByName(kind model.TaxonomyKind, name string) (*model.Taxonomy, error) {
	logger.Debug("Finding taxonomy by name in database", map[string]interface{}{
		"kind": kind,
		"name": name,
	})

	query, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	var rows []model.Taxonomy
	if err := query.Where("name = ?", name).Limit(1).Find(&rows).Error; err != nil {
		logger.Error("Failed to find taxonomy by name in database", err, map[string]interface{}{
			"kind": kind,
			"name": name,
		})
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *taxonomyRepository) CreateOrGet(kind model.TaxonomyKind, entity *model.Taxonomy) (bool, error) {
	logger.Debug("Creating taxonomy in database", map[string]interface{}{
		"kind": kind,
		"name": entity.Name,
		"slug": entity.Slug,
	})

	query, err := r.table(kind)
	if err != nil {
		return false, err
	}

	result := query.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(entity)
	if result.Error != nil && !apperrors.IsDuplicateKey(result.Error) {
		logger.Error("Failed to create taxonomy in database", result.Error, map[string]interface{}{
			"kind": kind,
			"name": entity.Name,
		})
		return false, result.Error
	}

	if result.Error == nil && result.RowsAffected > 0 {
		logger.Debug("Taxonomy created in database", map[string]interface{}{
			"kind": kind,
			"id":   entity.ID,
			"name": entity.Name,
		})
		return true, nil
	}

	// Lost the race to a concurrent writer: adopt the stored row.
	existing, err := r.FindByName(kind, entity.Name)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("taxonomy %s %q conflicted but could not be read back", kind, entity.Name)
	}
	*entity = *existing

	logger.Debug("Taxonomy already existed in database", map[string]interface{}{
		"kind": kind,
		"id":   entity.ID,
		"name": entity.Name,
	})
	return false, nil
}

func (r *taxonomyRepository) FindAll(kind model.TaxonomyKind) ([]model.Taxonomy, error) {
	query, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	var rows []model.Taxonomy
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		logger.Error("Failed to list taxonomies", err, map[string]interface{}{
			"kind": kind,
		})
		return nil, err
	}
	return rows, nil
}

func (r *taxonomyRepository) Count(kind model.TaxonomyKind) (int64, error) {
	query, err := r.table(kind)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
