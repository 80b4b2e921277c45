package analytics

import (
	"math"
	"sort"
	"time"
)

// Cohort groups users who registered within the same period. Cohorts only
// exist when at least one member exists, so Size is always > 0.
type Cohort struct {
	Anchor  time.Time `json:"anchor"`
	Period  Period    `json:"period"`
	Members []string  `json:"-"`
	Size    int       `json:"size"`

	memberSet map[string]struct{}
}

// Label renders the cohort anchor the way reports key it: "2006-01" for
// monthly cohorts, the week's start date for weekly ones.
func (c *Cohort) Label() string {
	if c.Period == PeriodWeekly {
		return c.Anchor.Format("2006-01-02")
	}
	return c.Anchor.Format("2006-01")
}

// Contains reports whether the user is a member of this cohort
func (c *Cohort) Contains(userID string) bool {
	_, ok := c.memberSet[userID]
	return ok
}

// BuildCohorts buckets a user population by registration period. Users
// registered before the trailing lookback window are excluded entirely.
// Cohorts come back ordered by ascending anchor so downstream comparison
// logic is reproducible.
func BuildCohorts(users []UserRecord, period Period, now time.Time) []Cohort {
	cutoff := lookbackStart(now)

	byAnchor := make(map[time.Time]*Cohort)
	for _, u := range users {
		if u.CreatedAt.Before(cutoff) {
			continue
		}
		anchor := periodStart(u.CreatedAt, period)
		c, ok := byAnchor[anchor]
		if !ok {
			c = &Cohort{
				Anchor:    anchor,
				Period:    period,
				memberSet: make(map[string]struct{}),
			}
			byAnchor[anchor] = c
		}
		if _, dup := c.memberSet[u.ID]; dup {
			continue
		}
		c.memberSet[u.ID] = struct{}{}
		c.Members = append(c.Members, u.ID)
	}

	cohorts := make([]Cohort, 0, len(byAnchor))
	for _, c := range byAnchor {
		sort.Strings(c.Members)
		c.Size = len(c.Members)
		cohorts = append(cohorts, *c)
	}
	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].Anchor.Before(cohorts[j].Anchor)
	})
	return cohorts
}

// periodStart truncates a timestamp to its period start in UTC. Weeks start
// on Monday; months on the 1st.
func periodStart(t time.Time, period Period) time.Time {
	t = t.UTC()
	if period == PeriodWeekly {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Monday-indexed weekday
		weekday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -weekday)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// periodOffset aligns an event timestamp onto the cohort's relative period
// axis. Both operands are truncated to period starts first, so the result is
// an exact integer period count. The result can be negative for events that
// precede the anchor (clock skew, backfilled data); callers drop those.
func periodOffset(anchor, eventTime time.Time, period Period) int {
	ep := periodStart(eventTime, period)
	if period == PeriodWeekly {
		days := int(math.Floor(ep.Sub(anchor).Hours() / 24))
		if days < 0 {
			// Floor division keeps negative offsets negative, never zero.
			return -((-days + 6) / 7)
		}
		return days / 7
	}
	return (ep.Year()-anchor.Year())*12 + int(ep.Month()) - int(anchor.Month())
}

// memberCohortIndex maps every cohort member to its cohort's position
func memberCohortIndex(cohorts []Cohort) map[string]int {
	idx := make(map[string]int)
	for i := range cohorts {
		for _, id := range cohorts[i].Members {
			idx[id] = i
		}
	}
	return idx
}

// round2 rounds to two decimal places, the precision every reported rate
// and currency figure carries.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
