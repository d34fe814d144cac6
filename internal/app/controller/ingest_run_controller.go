package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
)

const maxRunListLimit = 100

type IngestRunController struct {
	populateService service.PopulateService
}

func NewIngestRunController(populateService service.PopulateService) *IngestRunController {
	return &IngestRunController{populateService: populateService}
}

// ListRuns returns the most recent ingestion runs
// GET /api/v1/ingest/runs?limit=20
func (ctrl *IngestRunController) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunListLimit)
	}

	runs, err := ctrl.populateService.ListRuns(limit)
	if err != nil {
		logger.Error("Failed to list ingestion runs", err)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list ingestion runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one ingestion run including its stored report
// GET /api/v1/ingest/runs/:run_id
func (ctrl *IngestRunController) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := ctrl.populateService.GetRun(runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			apperrors.NotFound(c, apperrors.IngestRunNotFound, "Ingestion run not found")
			return
		}
		logger.Error("Failed to fetch ingestion run", err, map[string]interface{}{
			"run_id": runID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "fetch ingestion run")
		return
	}

	c.JSON(http.StatusOK, run)
}
