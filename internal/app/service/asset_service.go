package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/internal/storage"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidAssetRef   = errors.New("unsupported asset target collection")
	ErrInvalidAssetField = errors.New("unsupported asset field")
	ErrAssetTargetAbsent = errors.New("asset target not found")
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file too large")
)

// MaxAssetSize is the largest file the asset endpoint accepts
const MaxAssetSize = 10 << 20

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// AssetUpload is one file posted to the asset endpoint
type AssetUpload struct {
	Ref      string
	RefID    uint
	Field    model.AssetField
	Filename string
	Data     []byte
}

type AssetService interface {
	// Attach stores the file and records it against the target row
	Attach(ctx context.Context, upload AssetUpload) (*model.Asset, error)
	ListForGame(gameID uint) ([]model.Asset, error)
}

type assetService struct {
	assets repository.AssetRepository
	games  repository.GameRepository
	store  storage.BlobStore
}

func NewAssetService(assets repository.AssetRepository, games repository.GameRepository, store storage.BlobStore) AssetService {
	return &assetService{assets: assets, games: games, store: store}
}

func (s *assetService) Attach(ctx context.Context, upload AssetUpload) (*model.Asset, error) {
	if upload.Ref != model.AssetRefGame {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssetRef, upload.Ref)
	}
	if !upload.Field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssetField, upload.Field)
	}
	if err := storage.ValidateFileSize(int64(len(upload.Data)), MaxAssetSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	}

	contentType := detectContentType(upload.Data)
	if err := storage.ValidateContentType(contentType, allowedImageTypes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}

	if _, err := s.games.FindByID(upload.RefID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Asset target game not found", map[string]interface{}{
				"ref_id": upload.RefID,
			})
			return nil, fmt.Errorf("%w: game %d", ErrAssetTargetAbsent, upload.RefID)
		}
		return nil, err
	}

	key := storage.AssetKey(upload.Ref, upload.RefID, string(upload.Field), upload.Filename)
	url, err := s.store.Put(ctx, key, contentType, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store asset: %w", err)
	}

	asset := &model.Asset{
		RefID:       upload.RefID,
		RefType:     upload.Ref,
		Field:       upload.Field,
		Filename:    upload.Filename,
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(upload.Data)),
	}
	if err := s.assets.Create(asset); err != nil {
		return nil, err
	}

	logger.Info("Asset attached", map[string]interface{}{
		"asset_id": asset.ID,
		"ref_id":   asset.RefID,
		"field":    asset.Field,
		"key":      key,
	})
	return asset, nil
}

func (s *assetService) ListForGame(gameID uint) ([]model.Asset, error) {
	return s.assets.FindByRef(model.AssetRefGame, gameID)
}

func detectContentType(data []byte) string {
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType
}
