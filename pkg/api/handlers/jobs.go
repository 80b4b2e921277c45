package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/appgrove/appgrove/pkg/cache"
	"github.com/appgrove/appgrove/pkg/jobs"
	"github.com/appgrove/appgrove/pkg/models"
	"github.com/labstack/echo/v4"
)

// JobsHandler handles admin job trigger endpoints
type JobsHandler struct {
	snapshot *jobs.SnapshotJob
	cache    *cache.Client
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(snapshot *jobs.SnapshotJob, cacheClient *cache.Client) *JobsHandler {
	return &JobsHandler{
		snapshot: snapshot,
		cache:    cacheClient,
	}
}

// TriggerSnapshotHandler godoc
// @Summary Trigger the LTV snapshot job
// @Description Runs the monthly LTV snapshot immediately instead of waiting for the nightly schedule. Requires admin role.
// @Tags Admin Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/admin/jobs/snapshot [post]
func (h *JobsHandler) TriggerSnapshotHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	if err := h.snapshot.Run(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "job_failed",
			Message: "Snapshot job failed. Check the server logs.",
		})
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "LTV snapshot completed",
	})
}

// TriggerWarmCacheHandler godoc
// @Summary Trigger the report cache warmer
// @Description Precomputes and caches the monthly reports immediately. Requires admin role.
// @Tags Admin Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/admin/jobs/warm-cache [post]
func (h *JobsHandler) TriggerWarmCacheHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	if err := h.snapshot.WarmReportCache(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "job_failed",
			Message: "Cache warm failed. Check the server logs.",
		})
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Report cache warmed",
	})
}

// InvalidateCacheHandler godoc
// @Summary Invalidate all cached reports
// @Description Deletes every cached analytics report so the next request recomputes. Requires admin role.
// @Tags Admin Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/admin/jobs/invalidate-cache [post]
func (h *JobsHandler) InvalidateCacheHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.cache.InvalidateReports(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "job_failed",
			Message: "Cache invalidation failed. Check the server logs.",
		})
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Report cache invalidated",
	})
}
