package analytics

import "sort"

// RetentionCell holds the aggregated activity for one (cohort, offset) pair
type RetentionCell struct {
	Users         int     `json:"users"`
	RetentionRate float64 `json:"retention_rate"`
}

// CohortRetentionRow is one cohort's retention curve keyed by period offset
type CohortRetentionRow struct {
	Cohort     string                `json:"cohort"`
	CohortSize int                   `json:"cohort_size"`
	Periods    map[int]RetentionCell `json:"periods"`
}

// RetentionData is the retention report shape
type RetentionData struct {
	Periods          []int                `json:"periods"`
	Cohorts          []CohortRetentionRow `json:"cohorts"`
	AverageRetention map[int]float64      `json:"average_retention"`
	TotalCohorts     int                  `json:"total_cohorts"`
}

func (*RetentionData) isReportData() {}

func emptyRetentionData() *RetentionData {
	return &RetentionData{
		Periods:          []int{},
		Cohorts:          []CohortRetentionRow{},
		AverageRetention: map[int]float64{},
	}
}

// buildRetention counts distinct active members per cohort and period offset.
// Events before a cohort's anchor period or beyond the tracking horizon are
// dropped. Cells only exist where at least one event landed; the per-offset
// cross-cohort average spans only cohorts that have a cell for that offset.
func buildRetention(cohorts []Cohort, activity []ActivityRecord) *RetentionData {
	idx := memberCohortIndex(cohorts)

	// distinct active users per (cohort, offset)
	active := make([]map[int]map[string]struct{}, len(cohorts))
	for i := range active {
		active[i] = make(map[int]map[string]struct{})
	}

	for _, ev := range activity {
		ci, ok := idx[ev.UserID]
		if !ok {
			continue
		}
		offset := periodOffset(cohorts[ci].Anchor, ev.CreatedAt, cohorts[ci].Period)
		if offset < 0 || offset > maxPeriodOffset {
			continue
		}
		if active[ci][offset] == nil {
			active[ci][offset] = make(map[string]struct{})
		}
		active[ci][offset][ev.UserID] = struct{}{}
	}

	data := &RetentionData{
		Cohorts:          make([]CohortRetentionRow, 0, len(cohorts)),
		AverageRetention: make(map[int]float64),
		TotalCohorts:     len(cohorts),
	}

	offsetSeen := make(map[int]struct{})
	rateSums := make(map[int]float64)
	rateCounts := make(map[int]int)

	for i := range cohorts {
		row := CohortRetentionRow{
			Cohort:     cohorts[i].Label(),
			CohortSize: cohorts[i].Size,
			Periods:    make(map[int]RetentionCell),
		}
		for offset, users := range active[i] {
			rate := round2(float64(len(users)) / float64(cohorts[i].Size) * 100)
			row.Periods[offset] = RetentionCell{
				Users:         len(users),
				RetentionRate: rate,
			}
			offsetSeen[offset] = struct{}{}
			rateSums[offset] += rate
			rateCounts[offset]++
		}
		data.Cohorts = append(data.Cohorts, row)
	}

	data.Periods = make([]int, 0, len(offsetSeen))
	for offset := range offsetSeen {
		data.Periods = append(data.Periods, offset)
	}
	sort.Ints(data.Periods)

	for offset, sum := range rateSums {
		data.AverageRetention[offset] = round2(sum / float64(rateCounts[offset]))
	}

	return data
}
