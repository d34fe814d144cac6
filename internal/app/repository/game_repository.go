package repository

import (
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"gorm.io/gorm"
)

type GameRepository interface {
	// FindByName returns nil, nil when no game carries the name.
	FindByName(name string) (*model.Game, error)
	FindByID(id uint) (*model.Game, error)
	FindBySlug(slug string) (*model.Game, error)
	// Create inserts the game and links its taxonomy references without
	// touching the referenced rows. A taken name surfaces as a duplicate key error.
	Create(game *model.Game) error
	List(limit, offset int) ([]model.Game, error)
	Count() (int64, error)
}

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) withRelations() *gorm.DB {
	return r.db.Model(&model.Game{}).
		Preload("Developers").
		Preload("Publishers").
		Preload("Categories").
		Preload("Platforms").
		Preload("Assets")
}

func (r *gameRepository) FindByName(name string) (*model.Game, error) {
	logger.Debug("Finding game by name in database", map[string]interface{}{
		"name": name,
	})

	var games []model.Game
	if err := r.db.Where("name = ?", name).Limit(1).Find(&games).Error; err != nil {
		logger.Error("Failed to find game by name in database", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}

	if len(games) == 0 {
		return nil, nil
	}
	return &games[0], nil
}

func (r *gameRepository) FindByID(id uint) (*model.Game, error) {
	logger.Debug("Finding game by ID in database", map[string]interface{}{
		"game_id": id,
	})

	var game model.Game
	if err := r.withRelations().First(&game, id).Error; err != nil {
		logger.Error("Failed to find game by ID in database", err, map[string]interface{}{
			"game_id": id,
		})
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) FindBySlug(slug string) (*model.Game, error) {
	var game model.Game
	if err := r.withRelations().Where("slug = ?", slug).First(&game).Error; err != nil {
		logger.Error("Failed to find game by slug in database", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) Create(game *model.Game) error {
	logger.Debug("Creating game in database", map[string]interface{}{
		"name":       game.Name,
		"slug":       game.Slug,
		"developers": len(game.Developers),
		"publishers": len(game.Publishers),
		"categories": len(game.Categories),
		"platforms":  len(game.Platforms),
	})

	err := r.db.
		Omit("Developers.*", "Publishers.*", "Categories.*", "Platforms.*", "Assets").
		Create(game).Error
	if err != nil {
		logger.Error("Failed to create game in database", err, map[string]interface{}{
			"name": game.Name,
			"slug": game.Slug,
		})
		return err
	}

	logger.Debug("Game created in database", map[string]interface{}{
		"game_id": game.ID,
		"name":    game.Name,
	})
	return nil
}

func (r *gameRepository) List(limit, offset int) ([]model.Game, error) {
	query := r.withRelations().Order("published_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var games []model.Game
	if err := query.Find(&games).Error; err != nil {
		logger.Error("Failed to list games", err, map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}
	return games, nil
}

func (r *gameRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Game{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
