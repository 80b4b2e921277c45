package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/appgrove/appgrove/pkg/analytics"
	apierrors "github.com/appgrove/appgrove/pkg/api/errors"
	"github.com/appgrove/appgrove/pkg/cache"
	"github.com/appgrove/appgrove/pkg/domain"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/appgrove/appgrove/pkg/metrics"
	"github.com/appgrove/appgrove/pkg/models"
	"github.com/labstack/echo/v4"
)

const reportTimeout = 30 * time.Second

// AnalyticsHandler handles cohort analytics endpoints
type AnalyticsHandler struct {
	service *analytics.Service
	cache   *cache.Client
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewAnalyticsHandler creates a new cohort analytics handler. Cache and
// metrics are optional; a nil cache disables report caching.
func NewAnalyticsHandler(service *analytics.Service, cacheClient *cache.Client, m *metrics.Metrics, log logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		cache:   cacheClient,
		metrics: m,
		log:     log,
	}
}

// parseReportRequest reads the report parameters from the query string.
// Full validation happens in the service.
func parseReportRequest(c echo.Context) analytics.ReportRequest {
	period := c.QueryParam("period")
	if period == "" {
		period = string(analytics.PeriodMonthly)
	}

	return analytics.ReportRequest{
		AnalysisType: analytics.AnalysisType(c.QueryParam("analysis_type")),
		Period:       analytics.Period(period),
		ScopeID:      c.QueryParam("scope_id"),
	}
}

// reportError maps the domain error taxonomy onto HTTP responses
func (h *AnalyticsHandler) reportError(c echo.Context, req analytics.ReportRequest, err error) error {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return apierrors.InternalError(c, err)
	}

	if h.metrics != nil {
		h.metrics.RecordReportFailed(string(req.AnalysisType), de.Code)
	}

	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: de.Message,
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "analysis_failed",
			Message: de.Message,
		})
	}
}

// GetCohortAnalysis godoc
// @Summary Get cohort analysis report
// @Description Computes a cohort report (retention, revenue, engagement or ltv) over the trailing twelve periods
// @Tags Analytics
// @Produce json
// @Param analysis_type query string true "Analysis type (retention, revenue, ltv, engagement)"
// @Param period query string false "Cohort granularity (weekly, monthly)" default(monthly)
// @Param scope_id query string false "Developer UUID to scope the analysis to one app owner"
// @Success 200 {object} analytics.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/analytics/cohorts [get]
func (h *AnalyticsHandler) GetCohortAnalysis(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), reportTimeout)
	defer cancel()

	req := parseReportRequest(c)

	key := cache.ReportKey(string(req.AnalysisType), string(req.Period), req.ScopeID)
	if h.cache != nil {
		if body, err := h.cache.Get(ctx, key); err == nil {
			if h.metrics != nil {
				h.metrics.RecordCacheHit("report")
			}
			return c.JSONBlob(http.StatusOK, []byte(body))
		}
		if h.metrics != nil {
			h.metrics.RecordCacheMiss("report")
		}
	}

	start := time.Now()
	report, err := h.service.GenerateReport(ctx, req)
	if err != nil {
		return h.reportError(c, req, err)
	}

	if h.metrics != nil {
		h.metrics.RecordReportGenerated(string(req.AnalysisType), string(req.Period), time.Since(start))
	}

	body, err := json.Marshal(report)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, string(body), cache.DefaultReportTTL); err != nil {
			h.log.Warn("failed to cache report", "key", key, "error", err)
		}
	}

	return c.JSONBlob(http.StatusOK, body)
}

// ExportHandler serves cohort reports as Excel downloads
type ExportHandler struct {
	service  *analytics.Service
	exporter Exporter
	metrics  *metrics.Metrics
}

// Exporter renders reports to workbook bytes
type Exporter interface {
	RenderAndArchive(ctx context.Context, report *analytics.Report) ([]byte, string, error)
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *analytics.Service, exporter Exporter, m *metrics.Metrics) *ExportHandler {
	return &ExportHandler{
		service:  service,
		exporter: exporter,
		metrics:  m,
	}
}

// ExportCohortAnalysis godoc
// @Summary Export cohort analysis as Excel
// @Description Computes a cohort report and streams it as an .xlsx workbook
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param analysis_type query string true "Analysis type (retention, revenue, ltv, engagement)"
// @Param period query string false "Cohort granularity (weekly, monthly)" default(monthly)
// @Param scope_id query string false "Developer UUID to scope the analysis to one app owner"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/analytics/cohorts/export [get]
func (h *ExportHandler) ExportCohortAnalysis(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), reportTimeout)
	defer cancel()

	req := parseReportRequest(c)

	report, err := h.service.GenerateReport(ctx, req)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) && domain.IsValidation(err) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_error",
				Message: de.Message,
			})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "analysis_failed",
			Message: "failed to generate analysis",
		})
	}

	body, filename, err := h.exporter.RenderAndArchive(ctx, report)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "export_failed",
			Message: "failed to render export",
		})
	}

	if h.metrics != nil {
		h.metrics.RecordExportCreated()
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}
