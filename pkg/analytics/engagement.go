package analytics

// Engagement tier thresholds, in distinct active calendar days
const (
	highlyEngagedDays = 7
	engagedDays       = 1
)

// CohortEngagementRow is one cohort's engagement rollup
type CohortEngagementRow struct {
	Cohort             string  `json:"cohort"`
	CohortSize         int     `json:"cohort_size"`
	AvgActiveDays      float64 `json:"avg_active_days"`
	AvgTotalActions    float64 `json:"avg_total_actions"`
	AvgUniqueActions   float64 `json:"avg_unique_actions"`
	HighlyEngagedUsers int     `json:"highly_engaged_users"`
	EngagedUsers       int     `json:"engaged_users"`
	HighEngagementRate float64 `json:"high_engagement_rate"`
	EngagementRate     float64 `json:"engagement_rate"`
}

// EngagementData is the engagement report shape
type EngagementData struct {
	Cohorts           []CohortEngagementRow `json:"cohorts"`
	AvgEngagementRate float64               `json:"avg_engagement_rate"`
	TotalCohorts      int                   `json:"total_cohorts"`
}

func (*EngagementData) isReportData() {}

func emptyEngagementData() *EngagementData {
	return &EngagementData{Cohorts: []CohortEngagementRow{}}
}

// userActivity accumulates one member's raw activity counts
type userActivity struct {
	days    map[string]struct{}
	actions map[string]struct{}
	total   int
}

// buildEngagement computes per-member activity-day and action counts, then
// averages them over every cohort member, zero-activity members included.
// total actions count raw events while retention deduplicates by user; that
// asymmetry is intentional.
func buildEngagement(cohorts []Cohort, activity []ActivityRecord) *EngagementData {
	idx := memberCohortIndex(cohorts)

	perUser := make(map[string]*userActivity)
	for _, ev := range activity {
		if _, ok := idx[ev.UserID]; !ok {
			continue
		}
		ua := perUser[ev.UserID]
		if ua == nil {
			ua = &userActivity{
				days:    make(map[string]struct{}),
				actions: make(map[string]struct{}),
			}
			perUser[ev.UserID] = ua
		}
		ua.days[ev.CreatedAt.UTC().Format("2006-01-02")] = struct{}{}
		ua.actions[ev.Action] = struct{}{}
		ua.total++
	}

	data := &EngagementData{
		Cohorts:      make([]CohortEngagementRow, 0, len(cohorts)),
		TotalCohorts: len(cohorts),
	}

	rateSum := 0.0
	for i := range cohorts {
		c := &cohorts[i]
		row := CohortEngagementRow{
			Cohort:     c.Label(),
			CohortSize: c.Size,
		}

		var sumDays, sumTotal, sumUnique int
		for _, id := range c.Members {
			ua := perUser[id]
			if ua == nil {
				continue
			}
			activeDays := len(ua.days)
			sumDays += activeDays
			sumTotal += ua.total
			sumUnique += len(ua.actions)

			if activeDays >= highlyEngagedDays {
				row.HighlyEngagedUsers++
			}
			if activeDays >= engagedDays {
				row.EngagedUsers++
			}
		}

		size := float64(c.Size)
		row.AvgActiveDays = round2(float64(sumDays) / size)
		row.AvgTotalActions = round2(float64(sumTotal) / size)
		row.AvgUniqueActions = round2(float64(sumUnique) / size)
		row.HighEngagementRate = round2(float64(row.HighlyEngagedUsers) / size * 100)
		row.EngagementRate = round2(float64(row.EngagedUsers) / size * 100)

		rateSum += row.EngagementRate
		data.Cohorts = append(data.Cohorts, row)
	}

	if len(cohorts) > 0 {
		data.AvgEngagementRate = round2(rateSum / float64(len(cohorts)))
	}

	return data
}
