package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/appgrove/appgrove/pkg/ai/llm"
	"github.com/appgrove/appgrove/pkg/analytics"
)

// AnalystAgent turns cohort reports into narrative analysis
type AnalystAgent struct {
	llm    llm.Client
	logger *log.Logger
}

// NewAnalystAgent creates a new analyst agent
func NewAnalystAgent(llmClient llm.Client, logger *log.Logger) *AnalystAgent {
	if logger == nil {
		logger = log.Default()
	}

	return &AnalystAgent{
		llm:    llmClient,
		logger: logger,
	}
}

// Narrative is the structured narration of a cohort report
type Narrative struct {
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"key_insights"`
	Recommendations []string `json:"recommendations"`
	RawAnalysis     string   `json:"raw_analysis,omitempty"`
}

// Narrate generates a prose analysis of a computed report. The scope ID,
// when present, is only used to label the prompt.
func (a *AnalystAgent) Narrate(ctx context.Context, report *analytics.Report, scopeID string) (*Narrative, error) {
	a.logger.Printf("🔍 Analyst: Narrating report (type: %s, period: %s)", report.Type, report.Period)

	dataSummary, err := a.summarizeData(report)
	if err != nil {
		return nil, err
	}

	scope := ""
	if scopeID != "" {
		scope = fmt.Sprintf("apps owned by developer %s", scopeID)
	}

	prompt := llm.NarrativePrompt(string(report.Type), string(report.Period), scope, dataSummary)

	analysis, err := a.llm.Complete(ctx, prompt, llm.AnalystSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("llm narration failed: %w", err)
	}

	narrative := a.parseAnalysis(analysis)

	a.logger.Printf("✅ Analyst: Narration completed (%d insights, %d recommendations)",
		len(narrative.KeyInsights), len(narrative.Recommendations))

	return narrative, nil
}

// summarizeData flattens the report tables into prompt text
func (a *AnalystAgent) summarizeData(report *analytics.Report) (string, error) {
	var b strings.Builder

	switch data := report.Data.(type) {
	case *analytics.RetentionData:
		b.WriteString(fmt.Sprintf("Cohorts: %d\n", data.TotalCohorts))
		for _, row := range data.Cohorts {
			b.WriteString(fmt.Sprintf("- %s (size %d):", row.Cohort, row.CohortSize))
			for _, offset := range data.Periods {
				if cell, ok := row.Periods[offset]; ok {
					b.WriteString(fmt.Sprintf(" p%d=%.1f%%", offset, cell.RetentionRate))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("Average retention by period:")
		for _, offset := range data.Periods {
			if avg, ok := data.AverageRetention[offset]; ok {
				b.WriteString(fmt.Sprintf(" p%d=%.1f%%", offset, avg))
			}
		}
		b.WriteString("\n")

	case *analytics.RevenueData:
		b.WriteString(fmt.Sprintf("Cohorts: %d\n", data.TotalCohorts))
		for _, row := range data.Cohorts {
			total := 0.0
			for _, cell := range row.Periods {
				total += cell.TotalRevenue
			}
			b.WriteString(fmt.Sprintf("- %s (size %d): total revenue $%.2f across %d active periods\n",
				row.Cohort, row.CohortSize, total, len(row.Periods)))
		}
		b.WriteString(fmt.Sprintf("Average revenue per cohort: $%.2f\n", data.AvgRevenuePerCohort))

	case *analytics.EngagementData:
		b.WriteString(fmt.Sprintf("Cohorts: %d\n", data.TotalCohorts))
		for _, row := range data.Cohorts {
			b.WriteString(fmt.Sprintf("- %s (size %d): engagement %.1f%%, high engagement %.1f%%, avg active days %.1f\n",
				row.Cohort, row.CohortSize, row.EngagementRate, row.HighEngagementRate, row.AvgActiveDays))
		}
		b.WriteString(fmt.Sprintf("Average engagement rate: %.1f%%\n", data.AvgEngagementRate))

	case *analytics.LTVData:
		b.WriteString(fmt.Sprintf("Users: %d, avg LTV $%.2f, median $%.2f, p90 $%.2f, max $%.2f\n",
			data.Summary.TotalUsers, data.Summary.AvgLTV, data.Summary.MedianLTV,
			data.Summary.P90LTV, data.Summary.MaxLTV))
		for _, row := range data.Cohorts {
			b.WriteString(fmt.Sprintf("- %s (size %d): avg LTV $%.2f, median $%.2f, avg annual value $%.2f, lifespan %.0f days\n",
				row.Cohort, row.CohortSize, row.AvgLTV, row.MedianLTV, row.AvgAnnualValue, row.AvgLifespanDays))
		}
		for _, insight := range data.Insights {
			b.WriteString(fmt.Sprintf("Detected signal (%s): %s [%s]\n", insight.Type, insight.Message, insight.Value))
		}

	default:
		return "", fmt.Errorf("unsupported report shape %T", report.Data)
	}

	return b.String(), nil
}

// parseAnalysis splits the LLM response into summary, insights and recommendations
func (a *AnalystAgent) parseAnalysis(analysis string) *Narrative {
	narrative := &Narrative{
		RawAnalysis:     analysis,
		KeyInsights:     []string{},
		Recommendations: []string{},
	}

	var summary []string
	inInsights := false
	inRecommendations := false
	inSummary := true

	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "insight") || strings.Contains(lower, "finding") || strings.Contains(lower, "trend") {
			if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") || strings.HasSuffix(line, ":") {
				inInsights = true
				inRecommendations = false
				inSummary = false
				continue
			}
		}
		if strings.Contains(lower, "recommendation") {
			if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") || strings.HasSuffix(line, ":") {
				inInsights = false
				inRecommendations = true
				inSummary = false
				continue
			}
		}

		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
			item := strings.TrimSpace(strings.TrimLeft(line, "-*• "))
			if item == "" {
				continue
			}
			switch {
			case inRecommendations:
				narrative.Recommendations = append(narrative.Recommendations, item)
			case inInsights:
				narrative.KeyInsights = append(narrative.KeyInsights, item)
			}
			continue
		}

		if inSummary {
			summary = append(summary, line)
		}
	}

	narrative.Summary = strings.Join(summary, " ")
	return narrative
}
