package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
)

type UploadController struct {
	assetService service.AssetService
}

func NewUploadController(assetService service.AssetService) *UploadController {
	return &UploadController{assetService: assetService}
}

// Upload attaches the posted files to a row.
// Multipart fields: refId, ref, field, files (one or more).
// POST /api/upload
func (ctrl *UploadController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 6*service.MaxAssetSize)

	form, err := c.MultipartForm()
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Expected a multipart form")
		return
	}

	refID, err := strconv.ParseUint(c.PostForm("refId"), 10, 64)
	if err != nil || refID == 0 {
		apperrors.RespondWithValidationError(c, map[string]string{"refId": "must be a positive integer"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		apperrors.RespondWithValidationError(c, map[string]string{"files": "at least one file is required"})
		return
	}

	assets := make([]*model.Asset, 0, len(files))
	for _, header := range files {
		if header.Size > service.MaxAssetSize {
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File exceeds the maximum upload size")
			return
		}

		file, err := header.Open()
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Could not read uploaded file")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Could not read uploaded file")
			return
		}

		asset, err := ctrl.assetService.Attach(c.Request.Context(), service.AssetUpload{
			Ref:      c.PostForm("ref"),
			RefID:    uint(refID),
			Field:    model.AssetField(c.PostForm("field")),
			Filename: header.Filename,
			Data:     data,
		})
		if err != nil {
			respondUploadError(c, err)
			return
		}
		assets = append(assets, asset)
	}

	c.JSON(http.StatusCreated, assets)
}

func respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAssetRef), errors.Is(err, service.ErrInvalidAssetField):
		apperrors.BadRequest(c, apperrors.UploadInvalidTarget, err.Error())
	case errors.Is(err, service.ErrInvalidFileType):
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
	case errors.Is(err, service.ErrFileTooLarge):
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File exceeds the maximum upload size")
	case errors.Is(err, service.ErrAssetTargetAbsent):
		apperrors.NotFound(c, apperrors.ResourceNotFound, err.Error())
	default:
		logger.Error("Failed to attach upload", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to store upload")
	}
}
