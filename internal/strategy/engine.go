// Package strategy implements the decision engine behind the command-center
// view: one pass over the current and prior month's ledger aggregates plus
// the static financial DNA, producing the full set of interdependent
// indicators (daily allowance, liquidity lockdown, recovery horizon,
// behavioral archetype, forecast, and letter grade).
//
// The computation is synchronous, request-scoped, and caches nothing between
// calls. Every shared sub-sum (fixed spend, flex spend, debt paid, carry-over
// deficit) is computed exactly once per request and handed to each dependent
// indicator so they cannot disagree with one another.
package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/dna"
)

const (
	// ironCoveredRatio marks a fixed obligation as covered once this share
	// of its budget has been paid.
	ironCoveredRatio = 0.9

	// weekendLeakMinFlex and weekendLeakShare gate the Weekend Leak
	// archetype: flex spend must exceed the floor and the weekend share of
	// it must exceed the ratio.
	weekendLeakMinFlex = 500.0
	weekendLeakShare   = 0.4

	// milestoneChunk is the step size for liquidity gap milestones.
	milestoneChunk = 500.0

	// lifestyleBonusRate is the share of lifestyle underspend credited as a
	// recovery bonus.
	lifestyleBonusRate = 0.05

	topLeakLimit       = 3
	unknownCommentsCap = 2
)

// Engine derives StrategicMetrics from the ledger and the financial DNA.
type Engine struct {
	ledger Ledger
	dna    *dna.DNA
}

func New(ledger Ledger, d *dna.DNA) *Engine {
	return &Engine{ledger: ledger, dna: d}
}

// Compute runs the full derivation for the month containing now. The
// reference timestamp is explicit so callers and tests can pin dates.
func (e *Engine) Compute(ctx context.Context, now time.Time) (core.StrategicMetrics, error) {
	month := core.MonthKey(now)
	lastMonth := core.PrevMonthKey(now)
	daysInMonth := core.DaysInMonth(now)
	dayOfMonth := now.Day()
	daysRemaining := core.DaysRemaining(now)

	// Each category's rollup is fetched once and memoized for the rest of
	// the request; the role sets overlap, so several indicators share rows.
	statCache := make(map[int64]core.CategoryStat)
	stats := func(id int64) (core.CategoryStat, error) {
		if s, ok := statCache[id]; ok {
			return s, nil
		}
		s, err := e.ledger.CategoryStats(ctx, id, month)
		if err != nil {
			return core.CategoryStat{}, fmt.Errorf("category %d stats: %w", id, err)
		}
		statCache[id] = s
		return s, nil
	}

	incomeStats, err := stats(e.dna.IncomeCategoryID)
	if err != nil {
		return core.StrategicMetrics{}, err
	}
	monthlyIncome := incomeStats.Budget

	var (
		ironBuffer         []core.IronBufferItem
		totalFixedBudget   float64
		totalFixedSpent    float64
		totalIronRemaining float64
	)
	for _, id := range e.dna.FixedCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		totalFixedBudget += s.Budget
		totalFixedSpent += s.Spent
		remaining := math.Max(0, s.Budget-s.Spent)
		totalIronRemaining += remaining
		ironBuffer = append(ironBuffer, core.IronBufferItem{
			ID:        id,
			Name:      s.Name,
			Budget:    s.Budget,
			Spent:     s.Spent,
			IsCovered: s.Spent >= s.Budget*ironCoveredRatio,
			Remaining: remaining,
		})
	}

	var totalFlexBudget, totalFlexSpent float64
	for _, id := range e.dna.FlexCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		totalFlexBudget += s.Budget
		totalFlexSpent += s.Spent
	}

	lastMonthIncome, err := e.ledger.MonthIncome(ctx, lastMonth)
	if err != nil {
		return core.StrategicMetrics{}, fmt.Errorf("last month income: %w", err)
	}
	lastMonthExpense, err := e.ledger.MonthExpense(ctx, lastMonth)
	if err != nil {
		return core.StrategicMetrics{}, fmt.Errorf("last month expense: %w", err)
	}
	deficitCarryOver := 0.0
	if net := lastMonthIncome - lastMonthExpense; net < 0 {
		deficitCarryOver = -net
	}

	ghostBufferAmount := monthlyIncome * e.dna.VolatilityReserveRate

	sideHustleStats, err := stats(e.dna.SideHustleCategoryID)
	if err != nil {
		return core.StrategicMetrics{}, err
	}
	sideHustleEarned := sideHustleStats.Earned

	var (
		debtItems       []core.DebtItem
		totalDebtBudget float64
		totalDebtPaid   float64
	)
	for _, id := range e.dna.DebtCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		totalDebtBudget += s.Budget
		totalDebtPaid += s.Spent
		debtItems = append(debtItems, core.DebtItem{Name: s.Name, Budget: s.Budget, Paid: s.Spent})
	}

	// Liquidity is an actual-cash check, not a budget check: income received
	// against money already out the door, compared with the fixed bills that
	// still have to be paid this month.
	totalSpentToDate := totalFixedSpent + totalFlexSpent + totalDebtPaid
	cashRemaining := (monthlyIncome + sideHustleEarned) - totalSpentToDate
	isHardLocked := cashRemaining < totalIronRemaining

	liquidityStatus := core.LiquiditySecure
	if isHardLocked {
		liquidityStatus = core.LiquidityLockdown
	}
	coverageRatio := 100.0
	if totalIronRemaining > 0 {
		coverageRatio = (cashRemaining / totalIronRemaining) * 100
	}

	effectiveDisposable := (monthlyIncome + sideHustleEarned) - totalFixedBudget - totalDebtBudget - ghostBufferAmount - deficitCarryOver
	ada := (effectiveDisposable - totalFlexSpent) / float64(daysRemaining)

	// A locked month never reports a spendable positive allowance. A
	// negative allowance stays as is; it already signals distress.
	if isHardLocked && ada > 0 {
		ada = 0
	}

	timePct := float64(dayOfMonth) / float64(daysInMonth) * 100
	moneyPct := 0.0
	if totalFlexBudget > 0 {
		moneyPct = totalFlexSpent / totalFlexBudget * 100
	}
	velocityStatus := core.VelocityAhead
	if moneyPct > timePct {
		velocityStatus = core.VelocityBehind
	}

	var theftTotal float64
	var leaks []core.CommentTotal
	for _, id := range e.dna.FlexCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		if s.Spent > s.Budget {
			excess := s.Spent - s.Budget
			theftTotal += excess
			leaks = append(leaks, core.CommentTotal{Comment: s.Name, Total: excess})
		}
	}
	sort.Slice(leaks, func(i, j int) bool { return leaks[i].Total > leaks[j].Total })

	currentMonthOverspend := 0.0
	if ada < 0 {
		currentMonthOverspend = math.Abs(ada * float64(daysRemaining))
	}
	totalDeficit := deficitCarryOver + currentMonthOverspend

	monthsToRecover := 0.0
	if totalDeficit > 0 && e.dna.RecoveryTargetIncome > 0 {
		monthsToRecover = totalDeficit / e.dna.RecoveryTargetIncome
	}
	// Days added to the recovery horizon per 100 DH of discretionary spend.
	// Derived from the recovery capacity alone, independent of the live
	// deficit.
	sensitivity := 0.0
	if e.dna.RecoveryTargetIncome > 0 {
		sensitivity = 100 / e.dna.RecoveryTargetIncome * 30
	}

	currentGap := math.Max(0, totalIronRemaining-cashRemaining)
	nextMilestone := 0.0
	milestoneProgress := 100.0
	if currentGap > 0 {
		nextMilestone = math.Floor(currentGap/milestoneChunk) * milestoneChunk
		remainder := math.Mod(currentGap, milestoneChunk)
		milestoneProgress = (1 - remainder/milestoneChunk) * 100
	}

	recoveryBonus := 0.0
	for _, id := range e.dna.LifestyleCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		if s.Spent < s.Budget {
			recoveryBonus += (s.Budget - s.Spent) * lifestyleBonusRate
		}
	}

	resources := monthlyIncome + sideHustleEarned - ghostBufferAmount - deficitCarryOver
	survivalNeutralDebt := math.Max(0, resources-totalFixedBudget-totalFlexSpent)
	sustainabilityScore := 100.0
	if totalDebtPaid > 0 {
		sustainabilityScore = survivalNeutralDebt / totalDebtPaid * 100
	}

	nextMonthReadiness := monthlyIncome - totalDeficit - totalFixedBudget
	var deferredBills []string
	if nextMonthReadiness < 0 {
		deferredBills, err = e.suggestDeferrals(stats, -nextMonthReadiness)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
	}
	forecastStatus := core.ForecastSecure
	if nextMonthReadiness < 0 {
		forecastStatus = core.ForecastDanger
	}

	behavior, err := e.classifyBehavior(ctx, month)
	if err != nil {
		return core.StrategicMetrics{}, err
	}

	trend := core.TrendWorsening
	if currentMonthOverspend < deficitCarryOver {
		trend = core.TrendImproving
	}

	impactDays := 0
	if dailyDebtCapacity := totalDebtBudget / 30; dailyDebtCapacity > 0 {
		impactDays = int(math.Round(theftTotal / dailyDebtCapacity))
	}

	unknowns, err := e.ledger.TopUnknownComments(ctx, e.dna.UnknownCategoryID, month, unknownCommentsCap)
	if err != nil {
		return core.StrategicMetrics{}, fmt.Errorf("unknown comments: %w", err)
	}
	topLeaks := mergeLeaks(leaks, unknowns, topLeakLimit)

	var essentialSpent, lifestyleSpent float64
	for _, id := range e.dna.EssentialCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		essentialSpent += s.Spent
	}
	for _, id := range e.dna.LifestyleCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return core.StrategicMetrics{}, err
		}
		lifestyleSpent += s.Spent
	}

	lifestyleRatio := 0.0
	if totalAllocated := essentialSpent + lifestyleSpent; totalAllocated > 0 {
		lifestyleRatio = lifestyleSpent / totalAllocated * 100
	}
	grade := gradeAllocation(lifestyleRatio, ada)

	adaStatus := core.ADAOptimal
	switch {
	case isHardLocked || ada < 0:
		adaStatus = core.ADACrisis
	case ada < e.dna.ADAThreshold:
		adaStatus = core.ADAWarning
	}

	recoveryStatus := core.RecoveryNeutral
	if deficitCarryOver > 0 {
		recoveryStatus = core.RecoveryRecovering
	}

	return core.StrategicMetrics{
		ADA:       ada,
		ADAStatus: adaStatus,
		Velocity: core.Velocity{
			TimePct:  timePct,
			MoneyPct: moneyPct,
			Status:   velocityStatus,
		},
		IronBuffer: ironBuffer,
		Theft: core.Theft{
			Total:           theftTotal,
			ImpactDays:      impactDays,
			ImpactNarrative: impactNarrative(theftTotal, dayOfMonth),
			DopamineSwap:    dopamineSwap(leaks, dayOfMonth),
		},
		Unknowns: topLeaks,
		Debt:     debtItems,
		Allocation: core.Allocation{
			Essential:   essentialSpent,
			Lifestyle:   lifestyleSpent,
			Score:       grade,
			Ratio:       lifestyleRatio,
			ADAModifier: ada < 0,
			Trend:       trend,
		},
		Freedom: core.Freedom{
			MonthlyDebtTarget:   totalDebtBudget,
			ActualDebtPaid:      totalDebtPaid,
			SurvivalNeutralDebt: survivalNeutralDebt,
			SustainabilityScore: sustainabilityScore,
		},
		Recovery: core.Recovery{
			DeficitCarryOver: deficitCarryOver,
			Status:           recoveryStatus,
			MonthsToRecover:  roundTo(monthsToRecover, 1),
			Sensitivity:      roundTo(sensitivity, 1),
			RecoveryTarget:   e.dna.RecoveryTargetIncome,
			RecoveryBonus:    roundTo(recoveryBonus, 2),
		},
		Revenue: core.Revenue{
			SideHustleEarned: sideHustleEarned,
			NextBoostValue:   roundTo(100/float64(daysRemaining), 2),
		},
		GhostBuffer: core.GhostBuffer{
			Amount: ghostBufferAmount,
			Rate:   e.dna.VolatilityReserveRate,
		},
		Liquidity: core.Liquidity{
			Status:            liquidityStatus,
			CashRemaining:     cashRemaining,
			IronRemaining:     totalIronRemaining,
			CoverageRatio:     coverageRatio,
			IsHardLocked:      isHardLocked,
			BufferReboundPct:  clamp(coverageRatio, -100, 100),
			NextMilestone:     nextMilestone,
			MilestoneProgress: roundTo(milestoneProgress, 0),
		},
		Forecast: core.Forecast{
			NextMonthReadiness: nextMonthReadiness,
			Status:             forecastStatus,
			DeferredBills:      deferredBills,
		},
		Behavior: behavior,
	}, nil
}

// suggestDeferrals greedily picks bills to push to next month, largest budget
// first, until the shortfall is covered. A sentinel entry is appended when
// the candidate pool cannot cover it.
func (e *Engine) suggestDeferrals(stats func(int64) (core.CategoryStat, error), shortfall float64) ([]string, error) {
	type candidate struct {
		name   string
		budget float64
	}
	candidates := make([]candidate, 0, len(e.dna.DeferrableCategoryIDs))
	for _, id := range e.dna.DeferrableCategoryIDs {
		s, err := stats(id)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{name: s.Name, budget: s.Budget})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].budget > candidates[j].budget })

	var suggestions []string
	needed := shortfall
	for _, c := range candidates {
		if needed <= 0 {
			break
		}
		suggestions = append(suggestions, c.name)
		needed -= c.budget
	}
	if needed > 0 {
		suggestions = append(suggestions, "Emergency Income Needed")
	}
	return suggestions, nil
}

// classifyBehavior buckets the month's flex spending by weekday and applies
// the single implemented archetype rule. The other archetypes in the schema
// are currently unreachable.
func (e *Engine) classifyBehavior(ctx context.Context, month string) (core.Behavior, error) {
	txs, err := e.ledger.FlexExpenses(ctx, e.dna.FlexCategoryIDs, month)
	if err != nil {
		return core.Behavior{}, fmt.Errorf("flex expenses: %w", err)
	}

	var buckets [7]float64
	var totalFlex float64
	for _, tx := range txs {
		amount := tx.AbsAmount()
		totalFlex += amount
		// A row with an unusable date still counts toward the total; it
		// just can't be attributed to a weekday.
		if day, err := tx.Weekday(); err == nil {
			buckets[day] += amount
		}
	}
	weekendSpend := buckets[time.Sunday] + buckets[time.Saturday]

	if totalFlex > weekendLeakMinFlex && weekendSpend/totalFlex > weekendLeakShare {
		return core.Behavior{
			Archetype:    core.ArchetypeWeekendLeak,
			HighRiskDays: []string{"Saturday", "Sunday"},
		}, nil
	}
	return core.Behavior{Archetype: core.ArchetypeNone, HighRiskDays: []string{}}, nil
}

// mergeLeaks unions flex overspend entries with the heaviest unknown-category
// comments, largest first, capped.
func mergeLeaks(leaks, unknowns []core.CommentTotal, limit int) []core.CommentTotal {
	combined := make([]core.CommentTotal, 0, len(leaks)+len(unknowns))
	for _, l := range leaks {
		combined = append(combined, core.CommentTotal{Comment: l.Comment, Total: l.Total})
	}
	for _, u := range unknowns {
		combined = append(combined, core.CommentTotal{Comment: u.Comment, Total: u.Total})
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].Total > combined[j].Total })
	if len(combined) > limit {
		combined = combined[:limit]
	}
	for i := range combined {
		if combined[i].Comment == "" {
			combined[i].Comment = "Unlabeled"
		}
	}
	return combined
}

// impactNarrative reframes the waste total in concrete terms. The pick
// rotates with the day of month so the view stays stable within a day.
func impactNarrative(theftTotal float64, dayOfMonth int) string {
	narratives := []string{
		fmt.Sprintf("You could have paid for %d months of School.", int(math.Floor(theftTotal/1150))),
		fmt.Sprintf("This waste is equal to %d full days of healthy food.", int(math.Round(theftTotal/45))),
		fmt.Sprintf("This could have funded %.1f doctor visits.", theftTotal/250),
		"You are trading your Future Security for temporary dopamine.",
	}
	return narratives[dayOfMonth%len(narratives)]
}

// dopamineSwap picks a replacement habit matched to the biggest leak, or
// rotates through the list when nothing leaks.
func dopamineSwap(leaks []core.CommentTotal, dayOfMonth int) string {
	swaps := []string{
		"Skip the delivery; try that complex recipe you've been eyeing. +40 DH win.",
		"Go for a 30-min run instead of browsing online stores. Dopamine is free.",
		"Organize your wardrobe; you'll find 'new' clothes you forgot you had.",
		"Read 10 pages of a book to kill the scroll-and-shop urge.",
		"Call a friend for 20 mins instead of stress-eating outside.",
	}
	if len(leaks) == 0 {
		return swaps[dayOfMonth%len(swaps)]
	}
	switch {
	case strings.Contains(leaks[0].Comment, "Food"):
		return swaps[0]
	case strings.Contains(leaks[0].Comment, "Shopping"):
		return swaps[2]
	default:
		return swaps[1]
	}
}

// gradeAllocation assigns the letter grade from the lifestyle share of
// allocated spend, with a failing override whenever the allowance is
// negative.
func gradeAllocation(lifestyleRatio, ada float64) string {
	grade := "A"
	if lifestyleRatio > 50 {
		grade = "C"
	} else if lifestyleRatio > 30 {
		grade = "B"
	}
	if ada < 0 {
		grade = "F"
	}
	return grade
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
