package analytics

import (
	"sort"
	"time"
)

// LTVProfile is one user's lifetime-value rollup
type LTVProfile struct {
	UserID                   string  `json:"user_id"`
	TotalPurchases           int     `json:"total_purchases"`
	TotalSpent               float64 `json:"total_spent"`
	LifespanDays             int     `json:"lifespan_days"`
	EstimatedAnnualValue     float64 `json:"estimated_annual_value"`
	EstimatedAnnualFrequency float64 `json:"estimated_annual_frequency"`
	AvgOrderValue            float64 `json:"avg_order_value"`
}

// CohortLTVRow is the LTV rollup for one registration-month cohort
type CohortLTVRow struct {
	Cohort             string  `json:"cohort"`
	CohortSize         int     `json:"cohort_size"`
	AvgLTV             float64 `json:"avg_ltv"`
	MedianLTV          float64 `json:"median_ltv"`
	AvgAnnualValue     float64 `json:"avg_annual_value"`
	AvgOrderValue      float64 `json:"avg_order_value"`
	AvgAnnualFrequency float64 `json:"avg_annual_frequency"`
	AvgLifespanDays    float64 `json:"avg_lifespan_days"`
}

// LTVSummary is the full-population rollup
type LTVSummary struct {
	TotalUsers int     `json:"total_users"`
	AvgLTV     float64 `json:"avg_ltv"`
	MedianLTV  float64 `json:"median_ltv"`
	P90LTV     float64 `json:"p90_ltv"`
	MaxLTV     float64 `json:"max_ltv"`
}

// LTVData is the LTV report shape
type LTVData struct {
	Cohorts  []CohortLTVRow `json:"cohorts"`
	Summary  LTVSummary     `json:"summary"`
	Insights []Insight      `json:"insights"`
}

func (*LTVData) isReportData() {}

func emptyLTVData() *LTVData {
	return &LTVData{
		Cohorts:  []CohortLTVRow{},
		Insights: []Insight{},
	}
}

// buildLTVProfiles computes one profile per user. Only completed purchases
// contribute spend; a user with none still gets a profile with zero figures
// and a registration-to-now lifespan. Every derived ratio is guarded so a
// zero lifespan or zero purchase count yields 0, never a division.
func buildLTVProfiles(users []UserRecord, purchases []PurchaseRecord, now time.Time) []LTVProfile {
	type spendAccum struct {
		count int
		total float64
		last  time.Time
	}
	spend := make(map[string]*spendAccum)
	for _, p := range purchases {
		if p.Status != PurchaseStatusCompleted {
			continue
		}
		acc := spend[p.UserID]
		if acc == nil {
			acc = &spendAccum{}
			spend[p.UserID] = acc
		}
		acc.count++
		acc.total += p.Amount
		if p.CreatedAt.After(acc.last) {
			acc.last = p.CreatedAt
		}
	}

	profiles := make([]LTVProfile, 0, len(users))
	for _, u := range users {
		profile := LTVProfile{UserID: u.ID}

		lifespanEnd := now
		if acc := spend[u.ID]; acc != nil {
			profile.TotalPurchases = acc.count
			profile.TotalSpent = round2(acc.total)
			if acc.last.After(lifespanEnd) {
				lifespanEnd = acc.last
			}
		}
		profile.LifespanDays = daysBetween(u.CreatedAt, lifespanEnd)

		if profile.LifespanDays > 0 {
			days := float64(profile.LifespanDays)
			profile.EstimatedAnnualValue = round2(profile.TotalSpent / days * 365)
			profile.EstimatedAnnualFrequency = round2(float64(profile.TotalPurchases) / days * 365)
		}
		if profile.TotalPurchases > 0 {
			profile.AvgOrderValue = round2(profile.TotalSpent / float64(profile.TotalPurchases))
		}

		profiles = append(profiles, profile)
	}
	return profiles
}

// buildLTVCohorts groups profiles by registration month, trailing twelve
// months only, ordered by ascending month. The ordering matters: trend
// insights compare the first and last entries of this slice.
func buildLTVCohorts(users []UserRecord, profiles []LTVProfile, now time.Time) []CohortLTVRow {
	registered := make(map[string]time.Time, len(users))
	for _, u := range users {
		registered[u.ID] = u.CreatedAt
	}

	cutoff := lookbackStart(now)

	type monthAccum struct {
		month      time.Time
		spends     []float64
		sumSpent   float64
		sumAnnual  float64
		sumOrder   float64
		sumFreq    float64
		sumDays    int
		size       int
	}
	byMonth := make(map[time.Time]*monthAccum)

	for _, p := range profiles {
		reg, ok := registered[p.UserID]
		if !ok || reg.Before(cutoff) {
			continue
		}
		month := periodStart(reg, PeriodMonthly)
		acc := byMonth[month]
		if acc == nil {
			acc = &monthAccum{month: month}
			byMonth[month] = acc
		}
		acc.spends = append(acc.spends, p.TotalSpent)
		acc.sumSpent += p.TotalSpent
		acc.sumAnnual += p.EstimatedAnnualValue
		acc.sumOrder += p.AvgOrderValue
		acc.sumFreq += p.EstimatedAnnualFrequency
		acc.sumDays += p.LifespanDays
		acc.size++
	}

	months := make([]time.Time, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]CohortLTVRow, 0, len(months))
	for _, month := range months {
		acc := byMonth[month]
		size := float64(acc.size)
		median, _ := percentile(acc.spends, 0.5)
		rows = append(rows, CohortLTVRow{
			Cohort:             month.Format("2006-01"),
			CohortSize:         acc.size,
			AvgLTV:             round2(acc.sumSpent / size),
			MedianLTV:          round2(median),
			AvgAnnualValue:     round2(acc.sumAnnual / size),
			AvgOrderValue:      round2(acc.sumOrder / size),
			AvgAnnualFrequency: round2(acc.sumFreq / size),
			AvgLifespanDays:    round2(float64(acc.sumDays) / size),
		})
	}
	return rows
}

// buildLTVSummary rolls the whole population up, no month restriction
func buildLTVSummary(profiles []LTVProfile) LTVSummary {
	summary := LTVSummary{TotalUsers: len(profiles)}
	if len(profiles) == 0 {
		return summary
	}

	spends := make([]float64, 0, len(profiles))
	sum := 0.0
	maxSpent := 0.0
	for _, p := range profiles {
		spends = append(spends, p.TotalSpent)
		sum += p.TotalSpent
		if p.TotalSpent > maxSpent {
			maxSpent = p.TotalSpent
		}
	}

	median, _ := percentile(spends, 0.5)
	p90, _ := percentile(spends, 0.9)

	summary.AvgLTV = round2(sum / float64(len(profiles)))
	summary.MedianLTV = round2(median)
	summary.P90LTV = round2(p90)
	summary.MaxLTV = round2(maxSpent)
	return summary
}

// percentile computes the continuous rank-based percentile over the given
// values: sort ascending, position r = p*(n-1), then linear interpolation
// between the adjacent order statistics. The second return is false when no
// values were collected, which is distinct from a zero percentile.
func percentile(values []float64, p float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	r := p * float64(n-1)
	lo := int(r)
	hi := lo
	if float64(lo) < r {
		hi = lo + 1
	}
	frac := r - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), true
}

// daysBetween counts whole days from start to end, never negative
func daysBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}
