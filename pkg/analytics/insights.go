package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InsightType classifies a generated insight
type InsightType string

const (
	InsightPositive    InsightType = "positive"
	InsightWarning     InsightType = "warning"
	InsightOpportunity InsightType = "opportunity"
)

// Insight is a derived cross-cohort observation. Value carries the formatted
// magnitude the message refers to.
type Insight struct {
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
	Value   string      `json:"value"`
}

// Trend thresholds: recent average must move more than 10% off the older
// average in either direction before a trend insight is emitted.
const (
	trendWindow        = 3
	trendUpThreshold   = 1.1
	trendDownThreshold = 0.9
	opportunityRatio   = 3.0
)

var insightPrinter = message.NewPrinter(language.English)

// buildInsights derives trend and opportunity insights from the LTV cohort
// table and global summary. The cohort rows must already be ordered by
// ascending month; the windows are position-dependent and deliberately
// overlap when fewer than six cohorts exist.
func buildInsights(cohorts []CohortLTVRow, summary LTVSummary) []Insight {
	insights := []Insight{}

	if trend := trendInsight(cohorts); trend != nil {
		insights = append(insights, *trend)
	}
	if opp := opportunityInsight(summary); opp != nil {
		insights = append(insights, *opp)
	}

	return insights
}

// trendInsight compares the average LTV of the last three cohorts against
// the first three. Fewer than three cohorts yields no insight at all.
func trendInsight(cohorts []CohortLTVRow) *Insight {
	if len(cohorts) < trendWindow {
		return nil
	}

	recent := windowAvg(cohorts[len(cohorts)-trendWindow:])
	older := windowAvg(cohorts[:trendWindow])

	// A zero baseline has no meaningful percent change to report.
	if older <= 0 {
		return nil
	}

	switch {
	case recent > older*trendUpThreshold:
		pct := (recent - older) / older * 100
		return &Insight{
			Type:    InsightPositive,
			Message: "Customer lifetime value is trending upward across recent cohorts",
			Value:   insightPrinter.Sprintf("+%.1f%%", pct),
		}
	case recent < older*trendDownThreshold:
		pct := (older - recent) / older * 100
		return &Insight{
			Type:    InsightWarning,
			Message: "Customer lifetime value is declining across recent cohorts",
			Value:   insightPrinter.Sprintf("-%.1f%%", pct),
		}
	}
	return nil
}

// opportunityInsight fires when the 90th-percentile spender is worth strictly
// more than three times the average. Equality does not qualify.
func opportunityInsight(summary LTVSummary) *Insight {
	if summary.AvgLTV <= 0 || summary.P90LTV <= summary.AvgLTV*opportunityRatio {
		return nil
	}
	return &Insight{
		Type:    InsightOpportunity,
		Message: "Significant opportunity in high-value user segment",
		Value:   insightPrinter.Sprintf("%.1fx", summary.P90LTV/summary.AvgLTV),
	}
}

func windowAvg(rows []CohortLTVRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range rows {
		sum += row.AvgLTV
	}
	return sum / float64(len(rows))
}
