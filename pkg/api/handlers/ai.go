package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/appgrove/appgrove/pkg/ai/agents"
	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/domain"
	"github.com/appgrove/appgrove/pkg/models"
	"github.com/labstack/echo/v4"
)

const narrativeTimeout = 60 * time.Second

// Narrator turns computed reports into prose analysis
type Narrator interface {
	Narrate(ctx context.Context, report *analytics.Report, scopeID string) (*agents.Narrative, error)
}

// AIHandler handles AI-powered endpoints
type AIHandler struct {
	service *analytics.Service
	analyst Narrator
}

// NewAIHandler creates a new AI handler. A nil analyst disables narration.
func NewAIHandler(service *analytics.Service, analyst Narrator) *AIHandler {
	return &AIHandler{
		service: service,
		analyst: analyst,
	}
}

// GetCohortNarrative godoc
// @Summary Get a narrative analysis of a cohort report
// @Description Computes a cohort report and narrates it with an LLM
// @Tags Analytics
// @Produce json
// @Param analysis_type query string true "Analysis type (retention, revenue, ltv, engagement)"
// @Param period query string false "Cohort granularity (weekly, monthly)" default(monthly)
// @Param scope_id query string false "Developer UUID to scope the analysis to one app owner"
// @Success 200 {object} agents.Narrative
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/analytics/cohorts/narrative [get]
func (h *AIHandler) GetCohortNarrative(c echo.Context) error {
	if h.analyst == nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "narrative_disabled",
			Message: "Narrative generation is not configured",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), narrativeTimeout)
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

	narrative, err := h.analyst.Narrate(ctx, report, req.ScopeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "narrative_failed",
			Message: "Failed to generate narrative",
		})
	}

	return c.JSON(http.StatusOK, narrative)
}
