package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activityOnDays emits one event per listed day for a user
func activityOnDays(userID, action string, days ...time.Time) []ActivityRecord {
	events := make([]ActivityRecord, 0, len(days))
	for _, day := range days {
		events = append(events, ActivityRecord{UserID: userID, Action: action, CreatedAt: day})
	}
	return events
}

func TestBuildEngagement(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Classifies engagement tiers by distinct active days", func(t *testing.T) {
		cohorts := monthlyTestCohorts(t, now, map[time.Month]int{time.March: 3})
		require.Len(t, cohorts, 1)

		var activity []ActivityRecord
		// u0: 7 distinct days - highly engaged
		for i := 0; i < 7; i++ {
			activity = append(activity, ActivityRecord{
				UserID:    "March-u0",
				Action:    "app_open",
				CreatedAt: time.Date(2026, 3, 10+i, 9, 0, 0, 0, time.UTC),
			})
		}
		// u1: 6 distinct days - engaged, not highly engaged
		for i := 0; i < 6; i++ {
			activity = append(activity, ActivityRecord{
				UserID:    "March-u1",
				Action:    "app_open",
				CreatedAt: time.Date(2026, 3, 10+i, 9, 0, 0, 0, time.UTC),
			})
		}
		// u2: no activity at all

		data := buildEngagement(cohorts, activity)

		require.Len(t, data.Cohorts, 1)
		row := data.Cohorts[0]
		assert.Equal(t, 1, row.HighlyEngagedUsers)
		assert.Equal(t, 2, row.EngagedUsers)
		assert.Equal(t, 33.33, row.HighEngagementRate)
		assert.Equal(t, 66.67, row.EngagementRate)
	})

	t.Run("Repeated events on one day count one active day", func(t *testing.T) {
		cohorts := monthlyTestCohorts(t, now, map[time.Month]int{time.April: 1})

		day := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
		activity := activityOnDays("April-u0", "app_open",
			day, day.Add(2*time.Hour), day.Add(5*time.Hour))

		data := buildEngagement(cohorts, activity)

		row := data.Cohorts[0]
		assert.Equal(t, 1.0, row.AvgActiveDays)
		// raw action count still multiplies
		assert.Equal(t, 3.0, row.AvgTotalActions)
		assert.Equal(t, 1.0, row.AvgUniqueActions)
	})

	t.Run("Averages span every member including the inactive", func(t *testing.T) {
		cohorts := monthlyTestCohorts(t, now, map[time.Month]int{time.May: 4})

		var activity []ActivityRecord
		activity = append(activity, activityOnDays("May-u0", "app_open",
			time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC))...)
		activity = append(activity, ActivityRecord{
			UserID:    "May-u0",
			Action:    "purchase_click",
			CreatedAt: time.Date(2026, 5, 11, 3, 0, 0, 0, time.UTC),
		})
		activity = append(activity, activityOnDays("May-u1", "browse",
			time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC))...)

		data := buildEngagement(cohorts, activity)

		row := data.Cohorts[0]
		// active days: u0=2, u1=1, u2=0, u3=0 over 4 members
		assert.Equal(t, 0.75, row.AvgActiveDays)
		// actions: u0=3, u1=1 over 4 members
		assert.Equal(t, 1.0, row.AvgTotalActions)
		// distinct labels: u0=2, u1=1 over 4 members
		assert.Equal(t, 0.75, row.AvgUniqueActions)
		assert.Equal(t, 2, row.EngagedUsers)
		assert.Equal(t, 50.0, row.EngagementRate)
	})

	t.Run("Cross-cohort average engagement rate", func(t *testing.T) {
		cohorts := monthlyTestCohorts(t, now, map[time.Month]int{
			time.January:  2,
			time.February: 2,
		})

		activity := []ActivityRecord{
			{UserID: "January-u0", Action: "app_open", CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			{UserID: "January-u1", Action: "app_open", CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
			{UserID: "February-u0", Action: "app_open", CreatedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		}

		data := buildEngagement(cohorts, activity)

		require.Len(t, data.Cohorts, 2)
		assert.Equal(t, 100.0, data.Cohorts[0].EngagementRate)
		assert.Equal(t, 50.0, data.Cohorts[1].EngagementRate)
		assert.Equal(t, 75.0, data.AvgEngagementRate)
	})

	t.Run("Boundary day counts", func(t *testing.T) {
		for _, tc := range []struct {
			days          int
			highlyEngaged bool
			engaged       bool
		}{
			{days: 0, highlyEngaged: false, engaged: false},
			{days: 1, highlyEngaged: false, engaged: true},
			{days: 6, highlyEngaged: false, engaged: true},
			{days: 7, highlyEngaged: true, engaged: true},
		} {
			t.Run(fmt.Sprintf("%d active days", tc.days), func(t *testing.T) {
				cohorts := monthlyTestCohorts(t, now, map[time.Month]int{time.March: 1})

				var activity []ActivityRecord
				for i := 0; i < tc.days; i++ {
					activity = append(activity, ActivityRecord{
						UserID:    "March-u0",
						Action:    "app_open",
						CreatedAt: time.Date(2026, 3, 10+i, 0, 0, 0, 0, time.UTC),
					})
				}

				data := buildEngagement(cohorts, activity)

				row := data.Cohorts[0]
				wantHigh, wantEngaged := 0, 0
				if tc.highlyEngaged {
					wantHigh = 1
				}
				if tc.engaged {
					wantEngaged = 1
				}
				assert.Equal(t, wantHigh, row.HighlyEngagedUsers)
				assert.Equal(t, wantEngaged, row.EngagedUsers)
			})
		}
	})
}
