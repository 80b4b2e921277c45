package export

import (
	"fmt"
	"time"

	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/xuri/excelize/v2"
)

// Filename builds the attachment name for a rendered report
func Filename(report *analytics.Report) string {
	return fmt.Sprintf("%s-%s-%s.xlsx",
		report.Type, report.Period, report.GeneratedAt.UTC().Format("20060102-150405"))
}

// RenderWorkbook renders a generated report into an Excel workbook.
// Each analysis type gets its own sheet layout; the caller owns Close.
func RenderWorkbook(report *analytics.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	var err error
	switch data := report.Data.(type) {
	case *analytics.RetentionData:
		err = renderRetention(f, data)
	case *analytics.RevenueData:
		err = renderRevenue(f, data)
	case *analytics.EngagementData:
		err = renderEngagement(f, data)
	case *analytics.LTVData:
		err = renderLTV(f, data)
	default:
		err = fmt.Errorf("unsupported report shape %T", report.Data)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeMetaSheet(f, report); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
}

func newSheet(f *excelize.File, name string, headers []string) (int, error) {
	index, err := f.NewSheet(name)
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	style, err := headerStyle(f)
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return 0, err
		}
		f.SetCellValue(name, cell, header)
		f.SetCellStyle(name, cell, cell, style)
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return 0, err
		}
		f.SetColWidth(name, col, col, 18)
	}

	return index, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, v)
	}
	return nil
}

func renderRetention(f *excelize.File, data *analytics.RetentionData) error {
	headers := []string{"Cohort", "Cohort Size"}
	for _, offset := range data.Periods {
		headers = append(headers, fmt.Sprintf("Period %d (%%)", offset))
	}

	index, err := newSheet(f, "Retention", headers)
	if err != nil {
		return err
	}

	for i, row := range data.Cohorts {
		values := []interface{}{row.Cohort, row.CohortSize}
		for _, offset := range data.Periods {
			if cell, ok := row.Periods[offset]; ok {
				values = append(values, cell.RetentionRate)
			} else {
				values = append(values, "")
			}
		}
		if err := setRow(f, "Retention", i+2, values); err != nil {
			return err
		}
	}

	// Average row after a blank separator
	avgRow := len(data.Cohorts) + 3
	values := []interface{}{"Average", ""}
	for _, offset := range data.Periods {
		if avg, ok := data.AverageRetention[offset]; ok {
			values = append(values, avg)
		} else {
			values = append(values, "")
		}
	}
	if err := setRow(f, "Retention", avgRow, values); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	return nil
}

func renderRevenue(f *excelize.File, data *analytics.RevenueData) error {
	headers := []string{"Cohort", "Cohort Size", "Period", "Total Revenue", "Purchasing Users", "Avg Purchase Value", "Revenue Per User"}

	index, err := newSheet(f, "Revenue", headers)
	if err != nil {
		return err
	}

	row := 2
	for _, cohort := range data.Cohorts {
		for _, offset := range data.Periods {
			cell, ok := cohort.Periods[offset]
			if !ok {
				continue
			}
			values := []interface{}{
				cohort.Cohort, cohort.CohortSize, offset,
				cell.TotalRevenue, cell.PurchasingUsers, cell.AvgPurchaseValue, cell.RevenuePerUser,
			}
			if err := setRow(f, "Revenue", row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := setRow(f, "Revenue", row+1, []interface{}{"Avg Revenue Per Cohort", data.AvgRevenuePerCohort}); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	return nil
}

func renderEngagement(f *excelize.File, data *analytics.EngagementData) error {
	headers := []string{
		"Cohort", "Cohort Size", "Avg Active Days", "Avg Total Actions", "Avg Unique Actions",
		"Highly Engaged", "Engaged", "High Engagement Rate (%)", "Engagement Rate (%)",
	}

	index, err := newSheet(f, "Engagement", headers)
	if err != nil {
		return err
	}

	for i, row := range data.Cohorts {
		values := []interface{}{
			row.Cohort, row.CohortSize, row.AvgActiveDays, row.AvgTotalActions, row.AvgUniqueActions,
			row.HighlyEngagedUsers, row.EngagedUsers, row.HighEngagementRate, row.EngagementRate,
		}
		if err := setRow(f, "Engagement", i+2, values); err != nil {
			return err
		}
	}

	avgRow := len(data.Cohorts) + 3
	if err := setRow(f, "Engagement", avgRow, []interface{}{"Avg Engagement Rate", data.AvgEngagementRate}); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	return nil
}

func renderLTV(f *excelize.File, data *analytics.LTVData) error {
	headers := []string{
		"Cohort", "Cohort Size", "Avg LTV", "Median LTV", "Avg Annual Value",
		"Avg Order Value", "Avg Annual Frequency", "Avg Lifespan (days)",
	}

	index, err := newSheet(f, "LTV", headers)
	if err != nil {
		return err
	}

	for i, row := range data.Cohorts {
		values := []interface{}{
			row.Cohort, row.CohortSize, row.AvgLTV, row.MedianLTV, row.AvgAnnualValue,
			row.AvgOrderValue, row.AvgAnnualFrequency, row.AvgLifespanDays,
		}
		if err := setRow(f, "LTV", i+2, values); err != nil {
			return err
		}
	}

	summaryRow := len(data.Cohorts) + 3
	summary := [][]interface{}{
		{"Total Users", data.Summary.TotalUsers},
		{"Avg LTV", data.Summary.AvgLTV},
		{"Median LTV", data.Summary.MedianLTV},
		{"P90 LTV", data.Summary.P90LTV},
		{"Max LTV", data.Summary.MaxLTV},
	}
	for i, values := range summary {
		if err := setRow(f, "LTV", summaryRow+i, values); err != nil {
			return err
		}
	}

	if len(data.Insights) > 0 {
		if _, err := newSheet(f, "Insights", []string{"Type", "Message", "Value"}); err != nil {
			return err
		}
		for i, insight := range data.Insights {
			values := []interface{}{string(insight.Type), insight.Message, insight.Value}
			if err := setRow(f, "Insights", i+2, values); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(index)
	return nil
}

func writeMetaSheet(f *excelize.File, report *analytics.Report) error {
	if _, err := newSheet(f, "Report", []string{"Field", "Value"}); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Analysis Type", string(report.Type)},
		{"Period", string(report.Period)},
		{"Generated At", report.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for i, values := range rows {
		if err := setRow(f, "Report", i+2, values); err != nil {
			return err
		}
	}

	// Drop the default sheet excelize creates
	return f.DeleteSheet("Sheet1")
}
