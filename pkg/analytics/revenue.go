package analytics

import "sort"

// RevenueCell holds the aggregated purchase figures for one (cohort, offset) pair
type RevenueCell struct {
	TotalRevenue     float64 `json:"total_revenue"`
	PurchasingUsers  int     `json:"purchasing_users"`
	AvgPurchaseValue float64 `json:"avg_purchase_value"`
	RevenuePerUser   float64 `json:"revenue_per_user"`
}

// CohortRevenueRow is one cohort's revenue curve keyed by period offset
type CohortRevenueRow struct {
	Cohort     string              `json:"cohort"`
	CohortSize int                 `json:"cohort_size"`
	Periods    map[int]RevenueCell `json:"periods"`
}

// RevenueData is the revenue report shape
type RevenueData struct {
	Periods             []int              `json:"periods"`
	Cohorts             []CohortRevenueRow `json:"cohorts"`
	AvgRevenuePerCohort float64            `json:"avg_revenue_per_cohort"`
	TotalCohorts        int                `json:"total_cohorts"`
}

func (*RevenueData) isReportData() {}

func emptyRevenueData() *RevenueData {
	return &RevenueData{
		Periods: []int{},
		Cohorts: []CohortRevenueRow{},
	}
}

// buildRevenue sums completed purchases per cohort and period offset. Only
// purchases with completed status count; refunds and pending carts never
// reach a cell. Cells exist only where at least one completed purchase
// landed.
func buildRevenue(cohorts []Cohort, purchases []PurchaseRecord) *RevenueData {
	idx := memberCohortIndex(cohorts)

	type cellAccum struct {
		total  float64
		buyers map[string]struct{}
	}
	cells := make([]map[int]*cellAccum, len(cohorts))
	for i := range cells {
		cells[i] = make(map[int]*cellAccum)
	}

	for _, p := range purchases {
		if p.Status != PurchaseStatusCompleted {
			continue
		}
		ci, ok := idx[p.UserID]
		if !ok {
			continue
		}
		offset := periodOffset(cohorts[ci].Anchor, p.CreatedAt, cohorts[ci].Period)
		if offset < 0 || offset > maxPeriodOffset {
			continue
		}
		acc := cells[ci][offset]
		if acc == nil {
			acc = &cellAccum{buyers: make(map[string]struct{})}
			cells[ci][offset] = acc
		}
		acc.total += p.Amount
		acc.buyers[p.UserID] = struct{}{}
	}

	data := &RevenueData{
		Cohorts:      make([]CohortRevenueRow, 0, len(cohorts)),
		TotalCohorts: len(cohorts),
	}

	offsetSeen := make(map[int]struct{})
	totalAcrossCohorts := 0.0

	for i := range cohorts {
		row := CohortRevenueRow{
			Cohort:     cohorts[i].Label(),
			CohortSize: cohorts[i].Size,
			Periods:    make(map[int]RevenueCell),
		}
		for offset, acc := range cells[i] {
			cell := RevenueCell{
				TotalRevenue:    round2(acc.total),
				PurchasingUsers: len(acc.buyers),
				RevenuePerUser:  round2(acc.total / float64(cohorts[i].Size)),
			}
			if cell.PurchasingUsers > 0 {
				cell.AvgPurchaseValue = round2(acc.total / float64(cell.PurchasingUsers))
			}
			row.Periods[offset] = cell
			offsetSeen[offset] = struct{}{}
			totalAcrossCohorts += acc.total
		}
		data.Cohorts = append(data.Cohorts, row)
	}

	data.Periods = make([]int, 0, len(offsetSeen))
	for offset := range offsetSeen {
		data.Periods = append(data.Periods, offset)
	}
	sort.Ints(data.Periods)

	if len(cohorts) > 0 {
		data.AvgRevenuePerCohort = round2(totalAcrossCohorts / float64(len(cohorts)))
	}

	return data
}
