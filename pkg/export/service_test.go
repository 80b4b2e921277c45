package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var generatedAt = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func ltvReport() *analytics.Report {
	return &analytics.Report{
		Type:   analytics.AnalysisLTV,
		Period: analytics.PeriodMonthly,
		Data: &analytics.LTVData{
			Cohorts: []analytics.CohortLTVRow{
				{Cohort: "2026-01", CohortSize: 10, AvgLTV: 45.5, MedianLTV: 30, AvgLifespanDays: 120},
				{Cohort: "2026-02", CohortSize: 8, AvgLTV: 52.25, MedianLTV: 41, AvgLifespanDays: 90},
			},
			Summary: analytics.LTVSummary{
				TotalUsers: 18, AvgLTV: 48.5, MedianLTV: 35, P90LTV: 120, MaxLTV: 300,
			},
			Insights: []analytics.Insight{
				{Type: analytics.InsightPositive, Message: "Customer lifetime value is trending upward across recent cohorts", Value: "+14.8%"},
			},
		},
		GeneratedAt: generatedAt,
	}
}

func retentionReport() *analytics.Report {
	return &analytics.Report{
		Type:   analytics.AnalysisRetention,
		Period: analytics.PeriodWeekly,
		Data: &analytics.RetentionData{
			Periods: []int{0, 1},
			Cohorts: []analytics.CohortRetentionRow{
				{
					Cohort:     "2026-06-01",
					CohortSize: 4,
					Periods: map[int]analytics.RetentionCell{
						0: {Users: 4, RetentionRate: 100},
						1: {Users: 2, RetentionRate: 50},
					},
				},
			},
			AverageRetention: map[int]float64{0: 100, 1: 50},
			TotalCohorts:     1,
		},
		GeneratedAt: generatedAt,
	}
}

func openWorkbook(t *testing.T, body []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRenderLTVWorkbook(t *testing.T) {
	svc, err := NewService(Config{}, logger.Discard())
	require.NoError(t, err)

	body, filename, err := svc.Render(ltvReport())
	require.NoError(t, err)
	assert.Equal(t, "ltv-monthly-20260615-120000.xlsx", filename)

	f := openWorkbook(t, body)

	assert.Contains(t, f.GetSheetList(), "LTV")
	assert.Contains(t, f.GetSheetList(), "Insights")
	assert.Contains(t, f.GetSheetList(), "Report")
	assert.NotContains(t, f.GetSheetList(), "Sheet1")

	got, err := f.GetCellValue("LTV", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2026-01", got)

	got, err = f.GetCellValue("LTV", "C3")
	require.NoError(t, err)
	assert.Equal(t, "52.25", got)

	// Summary block sits two rows under the cohort table
	got, err = f.GetCellValue("LTV", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total Users", got)

	got, err = f.GetCellValue("Insights", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Customer lifetime value is trending upward across recent cohorts", got)
}

func TestRenderRetentionWorkbook(t *testing.T) {
	svc, err := NewService(Config{}, logger.Discard())
	require.NoError(t, err)

	body, filename, err := svc.Render(retentionReport())
	require.NoError(t, err)
	assert.Equal(t, "retention-weekly-20260615-120000.xlsx", filename)

	f := openWorkbook(t, body)

	got, err := f.GetCellValue("Retention", "C1")
	require.NoError(t, err)
	assert.Equal(t, "Period 0 (%)", got)

	got, err = f.GetCellValue("Retention", "D2")
	require.NoError(t, err)
	assert.Equal(t, "50", got)

	got, err = f.GetCellValue("Retention", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Average", got)
}

type fakePutter struct {
	calls []s3.PutObjectInput
	err   error
}

func (p *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.calls = append(p.calls, *params)
	if p.err != nil {
		return nil, p.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestRenderAndArchive(t *testing.T) {
	putter := &fakePutter{}
	svc := &Service{s3Client: putter, bucket: "appgrove-exports", log: logger.Discard()}

	body, filename, err := svc.RenderAndArchive(context.Background(), ltvReport())
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	require.Len(t, putter.calls, 1)
	assert.Equal(t, "appgrove-exports", *putter.calls[0].Bucket)
	assert.Equal(t, "exports/"+filename, *putter.calls[0].Key)
	assert.Equal(t, XLSXContentType, *putter.calls[0].ContentType)
}

func TestRenderAndArchive_UploadFailureStillReturnsBody(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	svc := &Service{s3Client: putter, bucket: "appgrove-exports", log: logger.Discard()}

	body, _, err := svc.RenderAndArchive(context.Background(), ltvReport())
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestRenderUnsupportedShape(t *testing.T) {
	svc, err := NewService(Config{}, logger.Discard())
	require.NoError(t, err)

	_, _, err = svc.Render(&analytics.Report{Type: analytics.AnalysisLTV, Data: nil, GeneratedAt: generatedAt})
	assert.Error(t, err)
}
