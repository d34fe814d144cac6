package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
)

var (
	ErrImageDownloadFailed = errors.New("image download failed")
	ErrUploadRejected      = errors.New("upload rejected")
)

type AssetUploader interface {
	// UploadAsset downloads imageURL and attaches it to game in the given slot.
	// Failures come back as *apperrors.AssetUploadError and are already logged.
	UploadAsset(ctx context.Context, imageURL string, game *model.Game, field model.AssetField) error
}

type httpAssetUploader struct {
	client    *http.Client
	uploadURL string
	gates     *Gates
}

func NewAssetUploader(uploadURL string, gates *Gates, client *http.Client) AssetUploader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &httpAssetUploader{client: client, uploadURL: uploadURL, gates: gates}
}

// AssetFilename is the name every uploaded image of a game is sent under
func AssetFilename(slug string) string {
	return slug + ".jpg"
}

func (u *httpAssetUploader) UploadAsset(ctx context.Context, imageURL string, game *model.Game, field model.AssetField) error {
	filename := AssetFilename(game.Slug)

	logger.Info("Uploading image", map[string]interface{}{
		"game_id":  game.ID,
		"field":    field,
		"filename": filename,
	})

	err := u.upload(ctx, imageURL, game, field, filename)
	if err != nil {
		uploadErr := &apperrors.AssetUploadError{
			ImageURL: imageURL,
			Field:    string(field),
			GameID:   game.ID,
			Err:      err,
		}
		logger.Error("Failed to upload image", uploadErr, map[string]interface{}{
			"game_id":   game.ID,
			"slug":      game.Slug,
			"field":     field,
			"image_url": imageURL,
		})
		return uploadErr
	}
	return nil
}

func (u *httpAssetUploader) upload(ctx context.Context, imageURL string, game *model.Game, field model.AssetField, filename string) error {
	var image []byte
	err := withGate(ctx, u.gates.Asset, func() error {
		var err error
		image, err = u.download(ctx, imageURL)
		return err
	})
	if err != nil {
		return err
	}

	body, contentType, err := buildUploadForm(game.ID, field, filename, image)
	if err != nil {
		return err
	}

	return withGate(ctx, u.gates.Asset, func() error {
		return u.post(ctx, body, contentType)
	})
}

func (u *httpAssetUploader) download(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrImageDownloadFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownloadFailed, err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrImageDownloadFailed, resp.StatusCode)
	}

	// One byte past the limit tells a full image from an oversized one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownloadFailed, err)
	}
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrImageDownloadFailed, MaxAssetSize)
	}
	return data, nil
}

// buildUploadForm encodes the multipart payload accepted by the asset endpoint
func buildUploadForm(gameID uint, field model.AssetField, filename string, image []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"refId", strconv.FormatUint(uint64(gameID), 10)},
		{"ref", model.AssetRefGame},
		{"field", string(field)},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (u *httpAssetUploader) post(ctx context.Context, body *bytes.Buffer, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUploadRejected, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
