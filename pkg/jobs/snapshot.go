package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/cache"
	"github.com/appgrove/appgrove/pkg/metrics"
)

// SnapshotJob recomputes the global LTV rollup and publishes it to
// Prometheus gauges so dashboards don't need to hit the report endpoint.
// It also warms the report cache for the common unscoped queries.
type SnapshotJob struct {
	analytics *analytics.Service
	cache     *cache.Client
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// NewSnapshotJob creates a new LTV snapshot job
func NewSnapshotJob(svc *analytics.Service, cacheClient *cache.Client, m *metrics.Metrics, logger *log.Logger) *SnapshotJob {
	if logger == nil {
		logger = log.Default()
	}

	return &SnapshotJob{
		analytics: svc,
		cache:     cacheClient,
		metrics:   m,
		logger:    logger,
	}
}

// Run computes the LTV report and publishes its summary
func (j *SnapshotJob) Run(ctx context.Context) error {
	report, err := j.analytics.GenerateReport(ctx, analytics.ReportRequest{
		AnalysisType: analytics.AnalysisLTV,
		Period:       analytics.PeriodMonthly,
	})
	if err != nil {
		return fmt.Errorf("computing LTV snapshot: %w", err)
	}

	data, ok := report.Data.(*analytics.LTVData)
	if !ok {
		return fmt.Errorf("unexpected report shape %T", report.Data)
	}

	if j.metrics != nil {
		j.metrics.UpdateLTVSnapshot(data.Summary.AvgLTV, data.Summary.P90LTV, data.Summary.MaxLTV)
	}

	if j.cache != nil {
		key := cache.ReportKey(string(analytics.AnalysisLTV), string(analytics.PeriodMonthly), "")
		if err := j.cache.SetJSON(ctx, key, report, cache.DefaultReportTTL); err != nil {
			// Warming is best effort, the gauges already carry the snapshot
			j.logger.Printf("⚠️  Failed to warm report cache: %v", err)
		}
	}

	j.logger.Printf("📊 LTV snapshot: users=%d avg=%.2f p90=%.2f max=%.2f",
		data.Summary.TotalUsers, data.Summary.AvgLTV, data.Summary.P90LTV, data.Summary.MaxLTV)

	return nil
}

// WarmReportCache precomputes the unscoped cohort reports so first requests
// after a deploy don't pay the full computation cost.
func (j *SnapshotJob) WarmReportCache(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}

	requests := []analytics.ReportRequest{
		{AnalysisType: analytics.AnalysisRetention, Period: analytics.PeriodMonthly},
		{AnalysisType: analytics.AnalysisRevenue, Period: analytics.PeriodMonthly},
		{AnalysisType: analytics.AnalysisEngagement, Period: analytics.PeriodMonthly},
	}

	for _, req := range requests {
		report, err := j.analytics.GenerateReport(ctx, req)
		if err != nil {
			return fmt.Errorf("warming %s report: %w", req.AnalysisType, err)
		}

		key := cache.ReportKey(string(req.AnalysisType), string(req.Period), "")
		if err := j.cache.SetJSON(ctx, key, report, cache.DefaultReportTTL); err != nil {
			return fmt.Errorf("caching %s report: %w", req.AnalysisType, err)
		}
	}

	return nil
}

// jobTimeout bounds each scheduled run
const jobTimeout = 10 * time.Minute
