package regime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func seriesStart() time.Time {
	return time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)
}

// flatTotals fills every day of the series with the same amount.
func flatTotals(start time.Time, days int, amount float64) map[string]float64 {
	totals := make(map[string]float64, days)
	for i := 0; i < days; i++ {
		totals[core.DayKey(start.AddDate(0, 0, i))] = amount
	}
	return totals
}

func TestBuildDailySeries(t *testing.T) {
	start := seriesStart()
	totals := map[string]float64{
		core.DayKey(start):                  70,
		core.DayKey(start.AddDate(0, 0, 2)): 140,
	}

	series := BuildDailySeries(totals, start, 5)

	require.Len(t, series, 5)
	assert.Equal(t, 70.0, series[0].Amount)
	assert.Equal(t, 0.0, series[1].Amount, "missing days are zero-filled")
	assert.Equal(t, 140.0, series[2].Amount)

	// Partial windows average over the days available so far.
	assert.InDelta(t, 70.0, series[0].Rolling, 1e-9)
	assert.InDelta(t, 35.0, series[1].Rolling, 1e-9)
	assert.InDelta(t, 70.0, series[2].Rolling, 1e-9)
	assert.InDelta(t, 52.5, series[3].Rolling, 1e-9)
	assert.InDelta(t, 42.0, series[4].Rolling, 1e-9)
}

func TestDetectFlatSeries(t *testing.T) {
	series := BuildDailySeries(flatTotals(seriesStart(), chartDays, 100), seriesStart(), chartDays)

	report := Detect(series)

	assert.InDelta(t, 100.0, report.BaselineAvg, 1e-9)
	assert.InDelta(t, 100.0, report.RecentAvg, 1e-9)
	assert.InDelta(t, 0.0, report.ChangePct, 1e-9)
	assert.False(t, report.Detected)
	assert.Empty(t, report.ShiftStartDate)
}

func TestDetectRisingShift(t *testing.T) {
	start := seriesStart()
	totals := flatTotals(start, chartDays, 100)
	// The trailing 14 days double.
	for i := chartDays - recentDays; i < chartDays; i++ {
		totals[core.DayKey(start.AddDate(0, 0, i))] = 200
	}
	series := BuildDailySeries(totals, start, chartDays)

	report := Detect(series)

	require.True(t, report.Detected)
	assert.True(t, report.Rising)
	assert.InDelta(t, 100.0, report.BaselineAvg, 1e-9)
	assert.InDelta(t, 200.0, report.RecentAvg, 1e-9)
	assert.InDelta(t, 100.0, report.ChangePct, 1e-9)

	// The rolling mean first reaches 125 (baseline +25%) two days into the
	// doubled window: (5*100 + 2*200) / 7.
	wantStart := core.DayKey(start.AddDate(0, 0, chartDays-recentDays+1))
	assert.Equal(t, wantStart, report.ShiftStartDate)
}

func TestDetectFallingShift(t *testing.T) {
	start := seriesStart()
	totals := flatTotals(start, chartDays, 200)
	for i := chartDays - recentDays; i < chartDays; i++ {
		totals[core.DayKey(start.AddDate(0, 0, i))] = 50
	}
	series := BuildDailySeries(totals, start, chartDays)

	report := Detect(series)

	require.True(t, report.Detected)
	assert.False(t, report.Rising)
	assert.InDelta(t, -75.0, report.ChangePct, 1e-9)
	assert.NotEmpty(t, report.ShiftStartDate)
}

func TestDetectThresholdBoundary(t *testing.T) {
	start := seriesStart()

	t.Run("just below threshold", func(t *testing.T) {
		totals := flatTotals(start, chartDays, 100)
		for i := chartDays - recentDays; i < chartDays; i++ {
			totals[core.DayKey(start.AddDate(0, 0, i))] = 124
		}
		report := Detect(BuildDailySeries(totals, start, chartDays))
		assert.False(t, report.Detected)
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		totals := flatTotals(start, chartDays, 100)
		for i := chartDays - recentDays; i < chartDays; i++ {
			totals[core.DayKey(start.AddDate(0, 0, i))] = 125
		}
		report := Detect(BuildDailySeries(totals, start, chartDays))
		assert.True(t, report.Detected)
	})
}

func TestDetectZeroBaseline(t *testing.T) {
	start := seriesStart()
	totals := make(map[string]float64)
	for i := chartDays - recentDays; i < chartDays; i++ {
		totals[core.DayKey(start.AddDate(0, 0, i))] = 300
	}
	series := BuildDailySeries(totals, start, chartDays)

	report := Detect(series)

	assert.False(t, report.Detected, "a silent baseline never registers a shift")
	assert.InDelta(t, 0.0, report.ChangePct, 1e-9)
}

func TestAttributeDrivers(t *testing.T) {
	windows := []core.CategoryWindowTotal{
		{Name: "Dining", BaselineTotal: 560, RecentTotal: 280},    // 10/day -> 20/day
		{Name: "Transport", BaselineTotal: 280, RecentTotal: 28},  // 5/day -> 2/day
		{Name: "Steady", BaselineTotal: 56, RecentTotal: 14},      // 1/day -> 1/day
		{Name: "Groceries", BaselineTotal: 1120, RecentTotal: 70}, // 20/day -> 5/day
	}

	drivers := AttributeDrivers(windows)

	require.Len(t, drivers, 3, "unchanged categories are filtered out")
	assert.Equal(t, "Groceries", drivers[0].Name)
	assert.InDelta(t, -15.0, drivers[0].DeltaPerDay, 1e-9)
	assert.Equal(t, "Dining", drivers[1].Name)
	assert.InDelta(t, 10.0, drivers[1].DeltaPerDay, 1e-9)
	assert.Equal(t, "Transport", drivers[2].Name)
}

func TestAttributeDriversCap(t *testing.T) {
	var windows []core.CategoryWindowTotal
	for i := 0; i < 8; i++ {
		windows = append(windows, core.CategoryWindowTotal{
			Name:          string(rune('A' + i)),
			RecentTotal:   float64((i + 1) * recentDays),
			BaselineTotal: 0,
		})
	}

	drivers := AttributeDrivers(windows)

	require.Len(t, drivers, driverLimit)
	assert.Equal(t, "H", drivers[0].Name, "largest mover first")
}

type fakeStore struct {
	totals    map[string]float64
	windows   []core.CategoryWindowTotal
	recurring []core.RecurringMerchant

	gotSeriesFrom    string
	gotBaselineStart string
	gotRecentStart   string
	gotWindowStart   string
	gotRecurStart    string
}

func (f *fakeStore) DailyExpenseTotals(_ context.Context, fromDay string) (map[string]float64, error) {
	f.gotSeriesFrom = fromDay
	return f.totals, nil
}

func (f *fakeStore) CategoryWindowTotals(_ context.Context, baselineStart, recentStart string) ([]core.CategoryWindowTotal, error) {
	f.gotBaselineStart = baselineStart
	f.gotRecentStart = recentStart
	return f.windows, nil
}

func (f *fakeStore) NewRecurringMerchants(_ context.Context, windowStart, recentStart string, _ int) ([]core.RecurringMerchant, error) {
	f.gotWindowStart = windowStart
	f.gotRecurStart = recentStart
	return f.recurring, nil
}

func TestAnalyzeWindows(t *testing.T) {
	now := time.Date(2025, 9, 21, 15, 0, 0, 0, time.UTC)
	store := &fakeStore{
		totals: flatTotals(now.AddDate(0, 0, -(chartDays-1)), chartDays, 100),
		windows: []core.CategoryWindowTotal{
			{Name: "Dining", BaselineTotal: 560, RecentTotal: 280},
		},
		recurring: []core.RecurringMerchant{
			{Category: "Subscriptions", Comment: "StreamFlix", RecentCount: 4, RecentTotal: 60},
		},
	}

	report, err := NewDetector(store).Analyze(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, core.DayKey(now.AddDate(0, 0, -(chartDays-1))), store.gotSeriesFrom)
	assert.Equal(t, core.DayKey(now.AddDate(0, 0, -(recentDays+baselineDays-1))), store.gotBaselineStart)
	assert.Equal(t, core.DayKey(now.AddDate(0, 0, -(recentDays-1))), store.gotRecentStart)
	assert.Equal(t, core.DayKey(now.AddDate(0, 0, -(recurringWindowDays-1))), store.gotWindowStart)
	assert.Equal(t, core.DayKey(now.AddDate(0, 0, -(recurringRecentDays-1))), store.gotRecurStart)

	assert.False(t, report.Detected)
	assert.Len(t, report.DailySpend, chartDays)
	require.Len(t, report.Drivers, 1)
	assert.Equal(t, "Dining", report.Drivers[0].Name)
	require.Len(t, report.NewRecurring, 1)
	assert.Equal(t, "StreamFlix", report.NewRecurring[0].Comment)
}
