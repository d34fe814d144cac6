package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/internal/middleware"
)

type PopulateController struct {
	populateService service.PopulateService
	defaultParams   map[string]string
}

func NewPopulateController(populateService service.PopulateService, defaultParams map[string]string) *PopulateController {
	return &PopulateController{
		populateService: populateService,
		defaultParams:   defaultParams,
	}
}

type PopulateRequest struct {
	Params map[string]string `json:"params"`
}

// Populate runs one ingestion batch synchronously and returns its report.
// Catalog params come from the JSON body, the query string, or the
// configured defaults, in that order of precedence.
// POST /api/v1/games/populate
func (ctrl *PopulateController) Populate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PopulateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid populate request", map[string]interface{}{
				"error": err.Error(),
			})
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
			return
		}
	}

	params := ctrl.resolveParams(c, req.Params)

	// A client disconnect must not cut a batch short.
	report, err := ctrl.populateService.Populate(context.WithoutCancel(c.Request.Context()), params)
	if err != nil {
		if errors.Is(err, service.ErrBatchInProgress) {
			apperrors.Conflict(c, apperrors.IngestBatchInProgress, "Another populate batch is running")
			return
		}
		log.Error("Populate batch could not start", err)
		apperrors.InternalError(c, "")
		return
	}

	if report.Status == model.IngestionFailed {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   apperrors.IngestRemoteFetchFailed,
			"message": "Failed to fetch the remote catalog",
			"report":  report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (ctrl *PopulateController) resolveParams(c *gin.Context, body map[string]string) map[string]string {
	if len(body) > 0 {
		return body
	}

	query := c.Request.URL.Query()
	if len(query) > 0 {
		params := make(map[string]string, len(query))
		for k := range query {
			params[k] = query.Get(k)
		}
		return params
	}

	params := make(map[string]string, len(ctrl.defaultParams))
	for k, v := range ctrl.defaultParams {
		params[k] = v
	}
	return params
}
