package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/appgrove/appgrove/pkg/domain"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// Period is the cohort bucketing granularity
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// AnalysisType selects which report shape is produced
type AnalysisType string

const (
	AnalysisRetention  AnalysisType = "retention"
	AnalysisRevenue    AnalysisType = "revenue"
	AnalysisLTV        AnalysisType = "ltv"
	AnalysisEngagement AnalysisType = "engagement"
)

// How far back the cohort population reaches, and how many relative periods
// a report tracks per cohort.
const (
	lookbackMonths  = 12
	maxPeriodOffset = 12
)

// PurchaseStatusCompleted is the only purchase status that counts toward
// revenue and LTV figures.
const PurchaseStatusCompleted = "completed"

// UserRecord is an immutable snapshot of a marketplace user
type UserRecord struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseRecord is an immutable snapshot of an app purchase
type PurchaseRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AppID     string    `json:"app_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityRecord is an immutable snapshot of a user activity event
type ActivityRecord struct {
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter is the structured query criteria passed to the data store.
// A zero From means unbounded history. ScopeID restricts all three sources
// to users transacting with one app owner.
type Filter struct {
	ScopeID string
	From    time.Time
	To      time.Time
}

// Store is the read-only data access collaborator. Implementations must
// honor context cancellation; the engine never retries.
type Store interface {
	FetchPopulation(ctx context.Context, f Filter) ([]UserRecord, error)
	FetchPurchases(ctx context.Context, f Filter) ([]PurchaseRecord, error)
	FetchActivity(ctx context.Context, f Filter) ([]ActivityRecord, error)
}

// ReportRequest is the caller's contract for one report computation
type ReportRequest struct {
	AnalysisType AnalysisType `json:"analysis_type" validate:"required,oneof=retention revenue ltv engagement"`
	Period       Period       `json:"period" validate:"required,oneof=weekly monthly"`
	ScopeID      string       `json:"scope_id,omitempty" validate:"omitempty,uuid4"`
}

var validate = validator.New()

// Service computes cohort analytics reports. It holds no mutable state;
// concurrent report computations are independent.
type Service struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

// NewService creates a new cohort analytics service
func NewService(store Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// GenerateReport runs the full pipeline for one report request. The request
// is validated before any data is fetched; a fetch failure or cancellation
// aborts the whole computation with no partial result.
func (s *Service) GenerateReport(ctx context.Context, req ReportRequest) (report *Report, err error) {
	if verr := validate.Struct(req); verr != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid report request: %v", verr))
	}

	// All aggregation arithmetic is guarded; a panic here means a guard was
	// missed, and the report must fail closed rather than carry a fabricated
	// figure.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("analysis computation panicked", "analysis_type", req.AnalysisType, "panic", r)
			report = nil
			err = domain.NewComputationError(fmt.Errorf("%v", r))
		}
	}()

	now := s.now().UTC()

	var data ReportData
	switch req.AnalysisType {
	case AnalysisRetention:
		data, err = s.retentionReport(ctx, req, now)
	case AnalysisRevenue:
		data, err = s.revenueReport(ctx, req, now)
	case AnalysisEngagement:
		data, err = s.engagementReport(ctx, req, now)
	case AnalysisLTV:
		data, err = s.ltvReport(ctx, req, now)
	default:
		// Unreachable behind the validator, kept for fail-fast clarity.
		return nil, domain.NewValidationError(fmt.Sprintf("unknown analysis type: %s", req.AnalysisType))
	}
	if err != nil {
		return nil, err
	}

	return assembleReport(req, data, now), nil
}

// retentionReport buckets the scoped population into cohorts and counts
// distinct active members per relative period.
func (s *Service) retentionReport(ctx context.Context, req ReportRequest, now time.Time) (ReportData, error) {
	cohorts, err := s.fetchCohorts(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if len(cohorts) == 0 {
		return emptyRetentionData(), nil
	}

	activity, err := s.store.FetchActivity(ctx, Filter{
		ScopeID: req.ScopeID,
		From:    lookbackStart(now),
		To:      now,
	})
	if err != nil {
		return nil, s.dataSourceError("activity", err)
	}

	return buildRetention(cohorts, activity), nil
}

// revenueReport sums completed purchases per cohort/period cell.
func (s *Service) revenueReport(ctx context.Context, req ReportRequest, now time.Time) (ReportData, error) {
	cohorts, err := s.fetchCohorts(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if len(cohorts) == 0 {
		return emptyRevenueData(), nil
	}

	purchases, err := s.store.FetchPurchases(ctx, Filter{
		ScopeID: req.ScopeID,
		From:    lookbackStart(now),
		To:      now,
	})
	if err != nil {
		return nil, s.dataSourceError("purchases", err)
	}

	return buildRevenue(cohorts, purchases), nil
}

// engagementReport computes per-user activity rollups and engagement tiers.
func (s *Service) engagementReport(ctx context.Context, req ReportRequest, now time.Time) (ReportData, error) {
	cohorts, err := s.fetchCohorts(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if len(cohorts) == 0 {
		return emptyEngagementData(), nil
	}

	activity, err := s.store.FetchActivity(ctx, Filter{
		ScopeID: req.ScopeID,
		From:    lookbackStart(now),
		To:      now,
	})
	if err != nil {
		return nil, s.dataSourceError("activity", err)
	}

	return buildEngagement(cohorts, activity), nil
}

// ltvReport rolls purchases up per user rather than per period cell. The
// global summary spans the full population; the cohort table is restricted
// to registration months inside the lookback window.
func (s *Service) ltvReport(ctx context.Context, req ReportRequest, now time.Time) (ReportData, error) {
	users, err := s.store.FetchPopulation(ctx, Filter{ScopeID: req.ScopeID, To: now})
	if err != nil {
		return nil, s.dataSourceError("population", err)
	}
	if len(users) == 0 {
		return emptyLTVData(), nil
	}

	purchases, err := s.store.FetchPurchases(ctx, Filter{ScopeID: req.ScopeID, To: now})
	if err != nil {
		return nil, s.dataSourceError("purchases", err)
	}

	profiles := buildLTVProfiles(users, purchases, now)
	cohortRows := buildLTVCohorts(users, profiles, now)
	summary := buildLTVSummary(profiles)
	insights := buildInsights(cohortRows, summary)

	return &LTVData{
		Cohorts:  cohortRows,
		Summary:  summary,
		Insights: insights,
	}, nil
}

// fetchCohorts fetches the lookback-scoped population and buckets it
func (s *Service) fetchCohorts(ctx context.Context, req ReportRequest, now time.Time) ([]Cohort, error) {
	users, err := s.store.FetchPopulation(ctx, Filter{
		ScopeID: req.ScopeID,
		From:    lookbackStart(now),
		To:      now,
	})
	if err != nil {
		return nil, s.dataSourceError("population", err)
	}
	return BuildCohorts(users, req.Period, now), nil
}

// dataSourceError logs the root cause and returns the generic failure the
// caller is allowed to see.
func (s *Service) dataSourceError(source string, err error) error {
	s.log.Error("data source fetch failed", "source", source, "error", err)
	return domain.NewDataSourceError(err)
}

// lookbackStart returns the lower population bound for cohort reports
func lookbackStart(now time.Time) time.Time {
	return now.AddDate(0, -lookbackMonths, 0)
}
