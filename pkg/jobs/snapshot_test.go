package jobs

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/cache"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/appgrove/appgrove/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMetrics is shared because promauto registers against the default
// registry and double registration panics.
var testMetrics = metrics.New()

type stubStore struct {
	users     []analytics.UserRecord
	purchases []analytics.PurchaseRecord
	err       error
}

func (s *stubStore) FetchPopulation(ctx context.Context, f analytics.Filter) ([]analytics.UserRecord, error) {
	return s.users, s.err
}

func (s *stubStore) FetchPurchases(ctx context.Context, f analytics.Filter) ([]analytics.PurchaseRecord, error) {
	return s.purchases, s.err
}

func (s *stubStore) FetchActivity(ctx context.Context, f analytics.Filter) ([]analytics.ActivityRecord, error) {
	return nil, s.err
}

func newTestCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	return cache.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestSnapshotJob_Run(t *testing.T) {
	reg := time.Now().UTC().AddDate(0, -2, 0)
	store := &stubStore{
		users: []analytics.UserRecord{
			{ID: "u1", CreatedAt: reg},
			{ID: "u2", CreatedAt: reg},
		},
		purchases: []analytics.PurchaseRecord{
			{ID: "p1", UserID: "u1", AppID: "a1", Amount: 100, Status: "completed", CreatedAt: reg.AddDate(0, 0, 10)},
		},
	}
	svc := analytics.NewService(store, logger.Discard())

	cacheClient, mr := newTestCache(t)
	defer mr.Close()

	job := NewSnapshotJob(svc, cacheClient, testMetrics, log.Default())

	err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50.0, testutil.ToFloat64(testMetrics.LTVAverage))
	assert.Equal(t, 100.0, testutil.ToFloat64(testMetrics.LTVMax))

	exists, err := cacheClient.Exists(context.Background(), cache.ReportKey("ltv", "monthly", ""))
	require.NoError(t, err)
	assert.True(t, exists, "snapshot should warm the LTV report cache")
}

func TestSnapshotJob_RunStoreFailure(t *testing.T) {
	store := &stubStore{err: errors.New("connection refused")}
	svc := analytics.NewService(store, logger.Discard())

	job := NewSnapshotJob(svc, nil, nil, nil)

	err := job.Run(context.Background())
	assert.Error(t, err)
}

func TestSnapshotJob_WarmReportCache(t *testing.T) {
	store := &stubStore{
		users: []analytics.UserRecord{
			{ID: "u1", CreatedAt: time.Now().UTC().AddDate(0, -1, 0)},
		},
	}
	svc := analytics.NewService(store, logger.Discard())

	cacheClient, mr := newTestCache(t)
	defer mr.Close()

	job := NewSnapshotJob(svc, cacheClient, nil, nil)

	err := job.WarmReportCache(context.Background())
	require.NoError(t, err)

	for _, analysisType := range []string{"retention", "revenue", "engagement"} {
		exists, err := cacheClient.Exists(context.Background(), cache.ReportKey(analysisType, "monthly", ""))
		require.NoError(t, err)
		assert.True(t, exists, "%s report should be cached", analysisType)
	}
}

func TestCronManager_SetupJobs(t *testing.T) {
	store := &stubStore{}
	svc := analytics.NewService(store, logger.Discard())
	job := NewSnapshotJob(svc, nil, nil, nil)

	cm := NewCronManager(job, nil)
	require.NoError(t, cm.SetupJobs())
	assert.Same(t, job, cm.GetSnapshot())

	cm.Start()
	cm.Stop()
}
