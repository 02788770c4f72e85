// Package regime detects spending regime shifts: it compares recent daily
// spending against a longer baseline window and, when the level moves by a
// quarter or more, localizes the shift start and attributes it to the
// categories driving the change. No prediction is involved; this is recent
// behavior versus baseline.
package regime

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"finboard/internal/core"
)

const (
	// chartDays is the length of the daily series, recentDays the trailing
	// comparison window, and baselineDays the window immediately before it.
	chartDays    = 90
	recentDays   = 14
	baselineDays = 56

	// shiftThresholdPct is the relative level change that counts as a shift.
	shiftThresholdPct = 25.0

	// shiftScanDays bounds the backward scan when localizing a shift start.
	shiftScanDays = 45

	// rollingWindow is the trailing mean window per day.
	rollingWindow = 7

	// driverMinDelta filters attribution noise below one cent per day.
	driverMinDelta = 0.01
	driverLimit    = 6

	// Recurring-merchant windows: pairs repeating in the last
	// recurringRecentDays with no history in the recurringWindowDays before.
	recurringRecentDays = 30
	recurringWindowDays = 120
	recurringLimit      = 6
)

// Store is the slice of the ledger the detector reads.
type Store interface {
	DailyExpenseTotals(ctx context.Context, fromDay string) (map[string]float64, error)
	CategoryWindowTotals(ctx context.Context, baselineStart, recentStart string) ([]core.CategoryWindowTotal, error)
	NewRecurringMerchants(ctx context.Context, windowStart, recentStart string, limit int) ([]core.RecurringMerchant, error)
}

type (
	// DailyPoint is one day of the zero-filled series with its trailing
	// rolling mean.
	DailyPoint struct {
		Date    string  `json:"date"`
		Amount  float64 `json:"amount"`
		Rolling float64 `json:"rolling7"`
	}

	// Driver attributes part of a shift to one category.
	Driver struct {
		Name           string  `json:"name"`
		BaselinePerDay float64 `json:"baselinePerDay"`
		RecentPerDay   float64 `json:"recentPerDay"`
		DeltaPerDay    float64 `json:"deltaPerDay"`
	}

	// Report is the full detector output for the analytics view.
	Report struct {
		DailySpend     []DailyPoint             `json:"dailySpend"`
		Detected       bool                     `json:"detected"`
		Rising         bool                     `json:"rising"`
		ShiftStartDate string                   `json:"shiftStartDate,omitempty"`
		BaselineAvg    float64                  `json:"baselineAvg"`
		RecentAvg      float64                  `json:"recentAvg"`
		ChangePct      float64                  `json:"changePct"`
		Drivers        []Driver                 `json:"drivers"`
		NewRecurring   []core.RecurringMerchant `json:"newRecurring"`
	}
)

// Detector runs the analysis against a ledger store.
type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Analyze builds the 90-day series ending at now and runs detection,
// attribution, and the new-recurring scan.
func (d *Detector) Analyze(ctx context.Context, now time.Time) (Report, error) {
	seriesStart := now.AddDate(0, 0, -(chartDays - 1))

	totals, err := d.store.DailyExpenseTotals(ctx, core.DayKey(seriesStart))
	if err != nil {
		return Report{}, fmt.Errorf("daily totals: %w", err)
	}
	series := BuildDailySeries(totals, seriesStart, chartDays)

	report := Detect(series)

	baselineStart := now.AddDate(0, 0, -(recentDays + baselineDays - 1))
	recentStart := now.AddDate(0, 0, -(recentDays - 1))
	windows, err := d.store.CategoryWindowTotals(ctx, core.DayKey(baselineStart), core.DayKey(recentStart))
	if err != nil {
		return Report{}, fmt.Errorf("category windows: %w", err)
	}
	report.Drivers = AttributeDrivers(windows)

	recurringWindowStart := now.AddDate(0, 0, -(recurringWindowDays - 1))
	recurringRecentStart := now.AddDate(0, 0, -(recurringRecentDays - 1))
	recurring, err := d.store.NewRecurringMerchants(ctx, core.DayKey(recurringWindowStart), core.DayKey(recurringRecentStart), recurringLimit)
	if err != nil {
		return Report{}, fmt.Errorf("new recurring merchants: %w", err)
	}
	report.NewRecurring = recurring

	return report, nil
}

// BuildDailySeries zero-fills days absent from totals and computes the
// trailing rolling mean. For the first days of the series the mean runs over
// however many days exist so far.
func BuildDailySeries(totals map[string]float64, start time.Time, days int) []DailyPoint {
	series := make([]DailyPoint, 0, days)
	for i := 0; i < days; i++ {
		day := core.DayKey(start.AddDate(0, 0, i))
		series = append(series, DailyPoint{Date: day, Amount: totals[day]})
	}
	for i := range series {
		from := i - (rollingWindow - 1)
		if from < 0 {
			from = 0
		}
		var acc float64
		for j := from; j <= i; j++ {
			acc += series[j].Amount
		}
		series[i].Rolling = acc / float64(i-from+1)
	}
	return series
}

// Detect compares the trailing recent window against the baseline window
// before it and, when a shift registers, scans backward for the first day the
// rolling mean crossed the threshold level in the detected direction.
func Detect(series []DailyPoint) Report {
	report := Report{DailySpend: series}

	baselineFrom := max0(len(series) - recentDays - baselineDays)
	baselineTo := max0(len(series) - recentDays)
	recentFrom := max0(len(series) - recentDays)

	report.BaselineAvg = meanAmount(series[baselineFrom:baselineTo])
	report.RecentAvg = meanAmount(series[recentFrom:])
	if report.BaselineAvg > 0 {
		report.ChangePct = (report.RecentAvg - report.BaselineAvg) / report.BaselineAvg * 100
	}

	report.Rising = report.RecentAvg >= report.BaselineAvg
	report.Detected = report.BaselineAvg > 0 && math.Abs(report.ChangePct) >= shiftThresholdPct
	if !report.Detected {
		return report
	}

	direction := -1.0
	if report.Rising {
		direction = 1.0
	}
	target := report.BaselineAvg * (1 + direction*shiftThresholdPct/100)

	for i := max0(len(series) - shiftScanDays); i < len(series); i++ {
		v := series[i].Rolling
		if (report.Rising && v >= target) || (!report.Rising && v <= target) {
			report.ShiftStartDate = series[i].Date
			break
		}
	}
	return report
}

// AttributeDrivers converts window totals into per-day deltas, drops noise,
// and keeps the largest movers.
func AttributeDrivers(windows []core.CategoryWindowTotal) []Driver {
	drivers := make([]Driver, 0, len(windows))
	for _, w := range windows {
		d := Driver{
			Name:           w.Name,
			BaselinePerDay: w.BaselineTotal / baselineDays,
			RecentPerDay:   w.RecentTotal / recentDays,
		}
		d.DeltaPerDay = d.RecentPerDay - d.BaselinePerDay
		if math.Abs(d.DeltaPerDay) > driverMinDelta {
			drivers = append(drivers, d)
		}
	}
	sort.Slice(drivers, func(i, j int) bool {
		return math.Abs(drivers[i].DeltaPerDay) > math.Abs(drivers[j].DeltaPerDay)
	})
	if len(drivers) > driverLimit {
		drivers = drivers[:driverLimit]
	}
	return drivers
}

func meanAmount(points []DailyPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Amount
	}
	return sum / float64(len(points))
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
