package internal

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/cache"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/db"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

// generatedSheet implements SheetSource over a synthetic CSV export
type generatedSheet struct {
	csv   string
	loads int32
}

func (s *generatedSheet) Name() string {
	return "generated"
}

func (s *generatedSheet) FetchTable(_ context.Context) (*entity.Table, error) {
	atomic.AddInt32(&s.loads, 1)
	return ingest.ReadCSV(strings.NewReader(s.csv))
}

func generateSheet(rows int) string {
	products := []string{"Aspirin", "Ibuprofen", "Vitamin C", "Zinc", "Paracetamol", "Cough Syrup"}
	locations := []string{"Downtown", "Uptown", "Airport", "Mall"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("Transaction_ID,Date,Product,Units_Sold,Inventory_After,Location,Expiry Date,Unit_Price,Revenue,Profit\n")
	for i := 0; i < rows; i++ {
		units := 1 + rand.Intn(10)
		price := 2 + rand.Intn(20)
		date := start.AddDate(0, 0, i%540)
		fmt.Fprintf(&b, "T%d,%s,%s,%d,%d,%s,%s,%d.50,%d.%02d,%d\n",
			i,
			date.Format("2006-01-02"),
			products[i%len(products)],
			units,
			rand.Intn(200),
			locations[i%len(locations)],
			date.AddDate(0, 6, 0).Format("2006-01-02"),
			price,
			units*price, rand.Intn(100),
			units,
		)
	}
	return b.String()
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	numRows := 20000
	concurrency := 10
	queriesPerWorker := 20

	sheet := &generatedSheet{csv: generateSheet(numRows)}
	repo := db.NewSheetSnapshotRepository(sheet, ingest.NewPipeline(ingest.DashboardSchema()), logger.NewNopLogger())
	policy, err := alerting.NewPolicy(alerting.DefaultConfig())
	require.NoError(t, err)
	dashboardService := service.NewDashboardService(repo, cache.NewSnapshotCache(time.Hour), policy, nil, logger.NewNopLogger())

	// Test the cold load through the ingest pipeline
	t.Run("Snapshot Load", func(t *testing.T) {
		startTime := time.Now()

		snap, err := dashboardService.Refresh(context.Background())
		require.NoError(t, err)

		duration := time.Since(startTime)
		assert.Equal(t, numRows, snap.Records.Len())
		t.Logf("Snapshot load: %d rows in %v (%.2f rows/sec)",
			numRows, duration, float64(numRows)/duration.Seconds())
	})

	// Test concurrent dashboard reads over one shared snapshot
	t.Run("Concurrent Dashboard", func(t *testing.T) {
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)
		var failures int32

		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				ctx := context.Background()
				reference := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, workerID)
				for j := 0; j < queriesPerWorker; j++ {
					if _, err := dashboardService.Dashboard(ctx, reference); err != nil {
						atomic.AddInt32(&failures, 1)
						t.Logf("Error computing dashboard: %v", err)
					}
				}
			}(i)
		}

		wg.Wait()
		duration := time.Since(startTime)

		total := concurrency * queriesPerWorker
		assert.Zero(t, atomic.LoadInt32(&failures))
		assert.Equal(t, int32(1), atomic.LoadInt32(&sheet.loads), "readers must share the cached snapshot")
		t.Logf("Dashboard: %d computations in %v (%.2f req/sec)",
			total, duration, float64(total)/duration.Seconds())
	})

	// Test the metrics a dashboard is built from
	t.Run("Metrics", func(t *testing.T) {
		snap, err := dashboardService.Snapshot(context.Background())
		require.NoError(t, err)
		rs := snap.Records

		startTime := time.Now()
		for _, key := range []metrics.GroupKey{metrics.ByProduct, metrics.ByLocation} {
			_, err := metrics.TopBy(rs, key, metrics.Revenue, 0)
			require.NoError(t, err)
		}
		trend, err := metrics.MonthlyTrend(rs, metrics.Revenue)
		require.NoError(t, err)
		duration := time.Since(startTime)

		assert.Len(t, trend, 18)
		t.Logf("Metrics: grouping and trend over %d rows in %v", rs.Len(), duration)
	})
}
