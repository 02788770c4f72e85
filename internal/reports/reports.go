// Package reports assembles the plain reporting aggregates behind the
// dashboard and analytics views: month totals, comparisons, patterns, and
// running balances. No derivation beyond ratios and folding happens here;
// the decision indicators live in the strategy package.
package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"finboard/internal/core"
)

const (
	recentExpenseLimit = 12
	topExpenseLimit    = 5
	overviewMonths     = 6
	balanceWindowDays  = 30

	// othersShare folds categories below this share of the month's spend
	// into a single "Others" slice.
	othersShare = 0.02
)

// Store is the slice of the ledger accessor the reports need.
type Store interface {
	TotalBalance(ctx context.Context) (float64, error)
	TotalIncome(ctx context.Context) (float64, error)
	TotalExpenses(ctx context.Context) (float64, error)
	TotalBudget(ctx context.Context) (float64, error)
	SpendingTrend(ctx context.Context, limit int) ([]core.DayAmount, error)
	MonthIncome(ctx context.Context, month string) (float64, error)
	MonthExpense(ctx context.Context, month string) (float64, error)
	MonthActivity(ctx context.Context, month string) (core.MonthActivity, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.Transaction, error)
	TopExpenses(ctx context.Context, month string, limit int) ([]core.Transaction, error)
	SpendingByCategory(ctx context.Context, month string) ([]core.NameAmount, error)
	CategoryBudgets(ctx context.Context, month string) ([]core.CategoryBudgetUsage, error)
	DailyNet(ctx context.Context) ([]core.DayAmount, error)
	WeekdayPattern(ctx context.Context) ([]core.WeekdaySlot, error)
	HourlyPattern(ctx context.Context) ([]core.HourSlot, error)
	Counts(ctx context.Context) (transactions, categories int, firstDate string, err error)
}

type (
	// MonthOverview is one month of the income/expense history.
	MonthOverview struct {
		Month    string  `json:"month"`
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
		Net      float64 `json:"net"`
	}

	// CategoryTrend compares one category's spend against the prior month.
	CategoryTrend struct {
		Name      string  `json:"name"`
		Current   float64 `json:"current"`
		Previous  float64 `json:"previous"`
		ChangePct int     `json:"change"`
	}

	// RunningBalance is a cumulative signed balance point.
	RunningBalance struct {
		Date    string  `json:"date"`
		Balance float64 `json:"balance"`
	}

	// DashboardStats is the flat record the dashboard view renders.
	DashboardStats struct {
		TotalBalance    float64 `json:"totalBalance"`
		MonthlySpending float64 `json:"monthlySpending"`
		MonthlyIncome   float64 `json:"monthlyIncome"`
		MonthlyBudget   float64 `json:"monthlyBudget"`

		LastMonthSpending float64 `json:"lastMonthSpending"`
		SpendingChangePct int     `json:"spendingChange"`
		DailyAverage      float64 `json:"dailyAverage"`
		SavingsRatePct    int     `json:"savingsRate"`

		AvgTransactionSize    float64 `json:"avgTransactionSize"`
		TransactionsThisMonth int     `json:"transactionsThisMonth"`
		DaysWithSpending      int     `json:"daysWithSpending"`
		ProjectedMonthlySpend float64 `json:"projectedMonthlySpend"`
		RemainingBudget       float64 `json:"remainingBudget"`
		LargestExpense        float64 `json:"largestExpense"`
		TotalIncome           float64 `json:"totalIncome"`
		TotalExpenses         float64 `json:"totalExpenses"`

		RecentExpenses     []core.Transaction         `json:"recentExpenses"`
		TopExpenses        []core.Transaction         `json:"topExpenses"`
		SpendingByCategory []core.NameAmount          `json:"spendingByCategory"`
		CategoryBudgets    []core.CategoryBudgetUsage `json:"categoryBudgets"`

		SpendingTrend   []core.DayAmount   `json:"spendingTrend"`
		MonthlyOverview []MonthOverview    `json:"monthlyOverview"`
		WeekdayPattern  []core.WeekdaySlot `json:"weekdayPattern"`
		HourlyPattern   []core.HourSlot    `json:"hourlyPattern"`
		CategoryTrends  []CategoryTrend    `json:"categoryTrends"`
		RunningBalance  []RunningBalance   `json:"runningBalance"`

		TransactionCount          int    `json:"transactionCount"`
		CategoryCount             int    `json:"categoryCount"`
		FirstTransactionDate      string `json:"firstTransactionDate"`
		DaysSinceFirstTransaction int    `json:"daysSinceFirstTransaction"`
	}
)

// Service builds dashboard reports from the ledger.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Build assembles the full dashboard record for the month containing now.
func (s *Service) Build(ctx context.Context, now time.Time) (DashboardStats, error) {
	month := core.MonthKey(now)
	lastMonth := core.PrevMonthKey(now)
	dayOfMonth := now.Day()
	daysInMonth := core.DaysInMonth(now)

	var stats DashboardStats
	var err error

	if stats.TotalBalance, err = s.store.TotalBalance(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("total balance: %w", err)
	}
	if stats.TotalIncome, err = s.store.TotalIncome(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("total income: %w", err)
	}
	if stats.TotalExpenses, err = s.store.TotalExpenses(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("total expenses: %w", err)
	}
	if stats.MonthlyBudget, err = s.store.TotalBudget(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("total budget: %w", err)
	}
	if stats.MonthlySpending, err = s.store.MonthExpense(ctx, month); err != nil {
		return DashboardStats{}, fmt.Errorf("month spending: %w", err)
	}
	if stats.MonthlyIncome, err = s.store.MonthIncome(ctx, month); err != nil {
		return DashboardStats{}, fmt.Errorf("month income: %w", err)
	}
	if stats.LastMonthSpending, err = s.store.MonthExpense(ctx, lastMonth); err != nil {
		return DashboardStats{}, fmt.Errorf("last month spending: %w", err)
	}

	activity, err := s.store.MonthActivity(ctx, month)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("month activity: %w", err)
	}
	stats.TransactionsThisMonth = activity.Transactions
	stats.DaysWithSpending = activity.ActiveDays
	stats.AvgTransactionSize = activity.AvgExpense
	stats.LargestExpense = activity.MaxExpense

	if stats.LastMonthSpending > 0 {
		stats.SpendingChangePct = int(math.Round((stats.MonthlySpending - stats.LastMonthSpending) / stats.LastMonthSpending * 100))
	}
	if dayOfMonth > 0 {
		stats.DailyAverage = math.Round(stats.MonthlySpending / float64(dayOfMonth))
		stats.ProjectedMonthlySpend = math.Round(stats.MonthlySpending / float64(dayOfMonth) * float64(daysInMonth))
	}
	if stats.MonthlyIncome > 0 {
		stats.SavingsRatePct = int(math.Round((stats.MonthlyIncome - stats.MonthlySpending) / stats.MonthlyIncome * 100))
	}
	stats.RemainingBudget = stats.MonthlyBudget - stats.MonthlySpending

	if stats.RecentExpenses, err = s.store.RecentExpenses(ctx, recentExpenseLimit); err != nil {
		return DashboardStats{}, fmt.Errorf("recent expenses: %w", err)
	}
	if stats.TopExpenses, err = s.store.TopExpenses(ctx, month, topExpenseLimit); err != nil {
		return DashboardStats{}, fmt.Errorf("top expenses: %w", err)
	}

	byCategory, err := s.store.SpendingByCategory(ctx, month)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("spending by category: %w", err)
	}
	stats.SpendingByCategory = foldSmallCategories(byCategory, stats.MonthlySpending)

	budgets, err := s.store.CategoryBudgets(ctx, month)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("category budgets: %w", err)
	}
	for i := range budgets {
		if budgets[i].Budget > 0 {
			budgets[i].Percentage = int(math.Round(budgets[i].Spent / budgets[i].Budget * 100))
		}
	}
	stats.CategoryBudgets = budgets

	if stats.SpendingTrend, err = s.store.SpendingTrend(ctx, balanceWindowDays); err != nil {
		return DashboardStats{}, fmt.Errorf("spending trend: %w", err)
	}
	if stats.MonthlyOverview, err = s.buildOverview(ctx, now); err != nil {
		return DashboardStats{}, err
	}
	if stats.CategoryTrends, err = s.buildTrends(ctx, month, lastMonth); err != nil {
		return DashboardStats{}, err
	}
	if stats.RunningBalance, err = s.buildRunningBalance(ctx); err != nil {
		return DashboardStats{}, err
	}

	if stats.WeekdayPattern, err = s.store.WeekdayPattern(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("weekday pattern: %w", err)
	}
	if stats.HourlyPattern, err = s.store.HourlyPattern(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("hourly pattern: %w", err)
	}

	if stats.TransactionCount, stats.CategoryCount, stats.FirstTransactionDate, err = s.store.Counts(ctx); err != nil {
		return DashboardStats{}, fmt.Errorf("counts: %w", err)
	}
	stats.DaysSinceFirstTransaction = daysSince(stats.FirstTransactionDate, now)

	return stats, nil
}

// daysSince counts whole days between the first recorded date and now.
// An empty or malformed first date yields 0.
func daysSince(firstDate string, now time.Time) int {
	if len(firstDate) < 10 {
		return 0
	}
	first, err := time.Parse("2006-01-02", firstDate[:10])
	if err != nil {
		return 0
	}
	days := int(now.Sub(first).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// buildOverview collects income/expense/net for the trailing months,
// oldest first.
func (s *Service) buildOverview(ctx context.Context, now time.Time) ([]MonthOverview, error) {
	overview := make([]MonthOverview, 0, overviewMonths)
	for i := overviewMonths - 1; i >= 0; i-- {
		monthDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		month := core.MonthKey(monthDate)

		income, err := s.store.MonthIncome(ctx, month)
		if err != nil {
			return nil, fmt.Errorf("overview income %s: %w", month, err)
		}
		expenses, err := s.store.MonthExpense(ctx, month)
		if err != nil {
			return nil, fmt.Errorf("overview expenses %s: %w", month, err)
		}
		overview = append(overview, MonthOverview{
			Month:    monthDate.Format("Jan"),
			Income:   income,
			Expenses: expenses,
			Net:      income - expenses,
		})
	}
	return overview, nil
}

// buildTrends compares per-category spend against the previous month. A
// category present only this month reports a 100% rise.
func (s *Service) buildTrends(ctx context.Context, month, lastMonth string) ([]CategoryTrend, error) {
	current, err := s.store.SpendingByCategory(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("current category spend: %w", err)
	}
	previous, err := s.store.SpendingByCategory(ctx, lastMonth)
	if err != nil {
		return nil, fmt.Errorf("previous category spend: %w", err)
	}

	prevByName := make(map[string]float64, len(previous))
	for _, p := range previous {
		prevByName[p.Name] = p.Amount
	}

	trends := make([]CategoryTrend, 0, len(current))
	for _, c := range current {
		prev := prevByName[c.Name]
		change := 0
		switch {
		case prev > 0:
			change = int(math.Round((c.Amount - prev) / prev * 100))
		case c.Amount > 0:
			change = 100
		}
		trends = append(trends, CategoryTrend{
			Name:      c.Name,
			Current:   c.Amount,
			Previous:  prev,
			ChangePct: change,
		})
	}
	return trends, nil
}

// buildRunningBalance accumulates the signed daily nets over the trailing
// window. The total starts at zero at the window's first day, so the series
// shows movement within the window rather than the all-time balance.
func (s *Service) buildRunningBalance(ctx context.Context) ([]RunningBalance, error) {
	days, err := s.store.DailyNet(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily net: %w", err)
	}
	if len(days) > balanceWindowDays {
		days = days[len(days)-balanceWindowDays:]
	}

	var running float64
	balances := make([]RunningBalance, 0, len(days))
	for _, d := range days {
		running += d.Amount
		balances = append(balances, RunningBalance{Date: d.Date, Balance: running})
	}
	return balances, nil
}

// foldSmallCategories merges slices below the share threshold into "Others",
// keeping the list sorted largest first.
func foldSmallCategories(byCategory []core.NameAmount, totalSpending float64) []core.NameAmount {
	if totalSpending <= 0 {
		return byCategory
	}

	folded := make([]core.NameAmount, 0, len(byCategory))
	var others float64
	for _, c := range byCategory {
		if c.Amount/totalSpending < othersShare {
			others += c.Amount
			continue
		}
		folded = append(folded, c)
	}
	if others > 0 {
		// Input arrives sorted descending; insert Others where it belongs.
		inserted := false
		for i, c := range folded {
			if others > c.Amount {
				folded = append(folded[:i], append([]core.NameAmount{{Name: "Others", Amount: others}}, folded[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			folded = append(folded, core.NameAmount{Name: "Others", Amount: others})
		}
	}
	return folded
}
