package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedUpload struct {
	refID    string
	ref      string
	field    string
	filename string
	data     []byte
}

func newUploadEndpoint(t *testing.T, status int) (*httptest.Server, chan receivedUpload) {
	received := make(chan receivedUpload, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		received <- receivedUpload{
			refID:    r.FormValue("refId"),
			ref:      r.FormValue("ref"),
			field:    r.FormValue("field"),
			filename: header.Filename,
			data:     data,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestAssetUploader_UploadAsset(t *testing.T) {
	images := newImageServer(t)
	endpoint, received := newUploadEndpoint(t, http.StatusCreated)

	uploader := NewAssetUploader(endpoint.URL, NewGates(DefaultLimits()), nil)
	game := &model.Game{ID: 42, Slug: "great-game"}

	err := uploader.UploadAsset(context.Background(), images.URL+"/cover.png", game, model.AssetFieldCover)
	require.NoError(t, err)

	got := <-received
	assert.Equal(t, "42", got.refID)
	assert.Equal(t, "game", got.ref)
	assert.Equal(t, "cover", got.field)
	assert.Equal(t, "great-game.jpg", got.filename)
	assert.Equal(t, pngBytes, got.data)
}

func TestAssetUploader_DownloadFailure(t *testing.T) {
	images := newImageServer(t)
	endpoint, received := newUploadEndpoint(t, http.StatusCreated)

	uploader := NewAssetUploader(endpoint.URL, NewGates(DefaultLimits()), nil)
	err := uploader.UploadAsset(context.Background(), images.URL+"/missing", &model.Game{ID: 1, Slug: "x"}, model.AssetFieldGallery)

	var uploadErr *apperrors.AssetUploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "gallery", uploadErr.Field)
	assert.Equal(t, uint(1), uploadErr.GameID)
	assert.ErrorIs(t, err, ErrImageDownloadFailed)
	assert.Empty(t, received)
}

func TestAssetUploader_UploadRejected(t *testing.T) {
	images := newImageServer(t)
	endpoint, _ := newUploadEndpoint(t, http.StatusBadRequest)

	uploader := NewAssetUploader(endpoint.URL, NewGates(DefaultLimits()), nil)
	err := uploader.UploadAsset(context.Background(), images.URL+"/a.png", &model.Game{ID: 1, Slug: "x"}, model.AssetFieldCover)

	assert.ErrorIs(t, err, ErrUploadRejected)
}

func newSizedImageServer(t *testing.T, size int) *httptest.Server {
	image := bytes.Repeat([]byte{0xff}, size)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(image)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAssetUploader_OversizedImage(t *testing.T) {
	images := newSizedImageServer(t, MaxAssetSize+1000)
	endpoint, received := newUploadEndpoint(t, http.StatusCreated)

	uploader := NewAssetUploader(endpoint.URL, NewGates(DefaultLimits()), nil)
	err := uploader.UploadAsset(context.Background(), images.URL+"/huge.jpg", &model.Game{ID: 3, Slug: "huge"}, model.AssetFieldCover)

	var uploadErr *apperrors.AssetUploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.ErrorIs(t, err, ErrImageDownloadFailed)
	assert.Contains(t, err.Error(), "exceeds")
	assert.Empty(t, received, "a truncated image must never be uploaded")
}

func TestAssetUploader_ImageAtSizeLimit(t *testing.T) {
	images := newSizedImageServer(t, MaxAssetSize)
	endpoint, received := newUploadEndpoint(t, http.StatusCreated)

	uploader := NewAssetUploader(endpoint.URL, NewGates(DefaultLimits()), nil)
	err := uploader.UploadAsset(context.Background(), images.URL+"/limit.jpg", &model.Game{ID: 4, Slug: "limit"}, model.AssetFieldCover)
	require.NoError(t, err)

	got := <-received
	assert.Len(t, got.data, MaxAssetSize)
}

func TestAssetFilename(t *testing.T) {
	assert.Equal(t, "the-witcher.jpg", AssetFilename("the-witcher"))
}
