// Package storage is the ledger accessor: read-mostly aggregate queries over
// the transaction store. Every query is issued fresh per request; the
// repository keeps no cursors or per-request state.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// monthPattern turns a YYYY-MM key into the LIKE pattern used by month
// filters.
func monthPattern(month string) string {
	return month + "%"
}

// CategoryStats returns the month rollup for one category: budget as an
// absolute figure, spending and income split on amount sign. A category ID
// that resolves to nothing yields synthetic zero stats, not an error.
func (r *SQLiteRepository) CategoryStats(ctx context.Context, categoryID int64, month string) (core.CategoryStat, error) {
	stat := core.CategoryStat{Name: "Unknown"}

	var budget float64
	err := r.db.QueryRowContext(ctx,
		`SELECT Name, Budget FROM Category WHERE Id = ?`, categoryID,
	).Scan(&stat.Name, &budget)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stat.Name = "Unknown"
	case err != nil:
		return core.CategoryStat{}, fmt.Errorf("load category %d: %w", categoryID, err)
	default:
		if budget < 0 {
			budget = -budget
		}
		stat.Budget = budget
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(Amount)), 0) FROM Expense
		 WHERE CategoryId = ? AND Date LIKE ? AND Amount < 0`,
		categoryID, monthPattern(month),
	).Scan(&stat.Spent)
	if err != nil {
		return core.CategoryStat{}, fmt.Errorf("sum category %d spend: %w", categoryID, err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(Amount), 0) FROM Expense
		 WHERE CategoryId = ? AND Date LIKE ? AND Amount > 0`,
		categoryID, monthPattern(month),
	).Scan(&stat.Earned)
	if err != nil {
		return core.CategoryStat{}, fmt.Errorf("sum category %d income: %w", categoryID, err)
	}

	return stat, nil
}

// MonthIncome sums all positive amounts within a month.
func (r *SQLiteRepository) MonthIncome(ctx context.Context, month string) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(Amount), 0) FROM Expense WHERE Date LIKE ? AND Amount > 0`,
		monthPattern(month),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum income for %s: %w", month, err)
	}
	return total, nil
}

// MonthExpense sums the magnitude of all negative amounts within a month.
func (r *SQLiteRepository) MonthExpense(ctx context.Context, month string) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(Amount)), 0) FROM Expense WHERE Date LIKE ? AND Amount < 0`,
		monthPattern(month),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses for %s: %w", month, err)
	}
	return total, nil
}

// FlexExpenses lists the spending rows recorded against the given categories
// within a month. Used by the behavior classifier's weekday bucketing.
func (r *SQLiteRepository) FlexExpenses(ctx context.Context, categoryIDs []int64, month string) ([]core.Transaction, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(categoryIDs))
	args := make([]any, 0, len(categoryIDs)+1)
	for i, id := range categoryIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, monthPattern(month))

	query := fmt.Sprintf(
		`SELECT Id, Amount, Date, Comment, CategoryId FROM Expense
		 WHERE CategoryId IN (%s) AND Date LIKE ? AND Amount < 0`,
		strings.Join(placeholders, ","),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flex expenses for %s: %w", month, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.Date, &tx.Comment, &tx.CategoryID); err != nil {
			return nil, fmt.Errorf("scan flex expense: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// TopUnknownComments surfaces the heaviest distinct comments recorded against
// the catch-all category this month. Placeholder comments (two characters or
// fewer, ellipsis-prefixed, or a lone period) are filtered out.
func (r *SQLiteRepository) TopUnknownComments(ctx context.Context, categoryID int64, month string, limit int) ([]core.CommentTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT Comment, COUNT(*) as cnt, COALESCE(SUM(ABS(Amount)), 0) as total
		 FROM Expense
		 WHERE CategoryId = ? AND Date LIKE ?
		   AND LENGTH(Comment) > 2 AND Comment NOT LIKE '...%' AND Comment != '.'
		 GROUP BY Comment ORDER BY total DESC LIMIT ?`,
		categoryID, monthPattern(month), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top unknown comments for %s: %w", month, err)
	}
	defer rows.Close()

	var out []core.CommentTotal
	for rows.Next() {
		var ct core.CommentTotal
		if err := rows.Scan(&ct.Comment, &ct.Count, &ct.Total); err != nil {
			return nil, fmt.Errorf("scan unknown comment: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// DailyExpenseTotals returns per-day spend totals from fromDay (YYYY-MM-DD,
// inclusive) onward, keyed by day. Days without spending are absent; the
// regime detector zero-fills them.
func (r *SQLiteRepository) DailyExpenseTotals(ctx context.Context, fromDay string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT SUBSTR(Date, 1, 10) as day, COALESCE(SUM(ABS(Amount)), 0)
		 FROM Expense
		 WHERE Amount < 0 AND SUBSTR(Date, 1, 10) >= ?
		 GROUP BY day ORDER BY day`,
		fromDay,
	)
	if err != nil {
		return nil, fmt.Errorf("daily expense totals from %s: %w", fromDay, err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var day string
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals[day] = total
	}
	return totals, rows.Err()
}

// CategoryWindowTotals returns each category's spend inside the regime
// detector's baseline window [baselineStart, recentStart) and recent window
// [recentStart, now].
func (r *SQLiteRepository) CategoryWindowTotals(ctx context.Context, baselineStart, recentStart string) ([]core.CategoryWindowTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.Name,
		        SUM(CASE WHEN SUBSTR(e.Date, 1, 10) >= ? AND SUBSTR(e.Date, 1, 10) < ? THEN ABS(e.Amount) ELSE 0 END),
		        SUM(CASE WHEN SUBSTR(e.Date, 1, 10) >= ? THEN ABS(e.Amount) ELSE 0 END)
		 FROM Expense e
		 JOIN Category c ON e.CategoryId = c.Id
		 WHERE e.Amount < 0 AND SUBSTR(e.Date, 1, 10) >= ?
		 GROUP BY c.Name`,
		baselineStart, recentStart, recentStart, baselineStart,
	)
	if err != nil {
		return nil, fmt.Errorf("category window totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryWindowTotal
	for rows.Next() {
		var cw core.CategoryWindowTotal
		if err := rows.Scan(&cw.Name, &cw.BaselineTotal, &cw.RecentTotal); err != nil {
			return nil, fmt.Errorf("scan category window: %w", err)
		}
		out = append(out, cw)
	}
	return out, rows.Err()
}

// NewRecurringMerchants flags (category, trimmed comment) pairs seen at least
// three times since recentStart with zero occurrences between windowStart and
// recentStart.
func (r *SQLiteRepository) NewRecurringMerchants(ctx context.Context, windowStart, recentStart string, limit int) ([]core.RecurringMerchant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.Name,
		        TRIM(e.Comment) as comment,
		        SUM(CASE WHEN SUBSTR(e.Date, 1, 10) >= ? THEN 1 ELSE 0 END) as recentCount,
		        SUM(CASE WHEN SUBSTR(e.Date, 1, 10) >= ? THEN ABS(e.Amount) ELSE 0 END) as recentTotal,
		        SUM(CASE WHEN SUBSTR(e.Date, 1, 10) < ? THEN 1 ELSE 0 END) as priorCount,
		        MIN(SUBSTR(e.Date, 1, 10)) as firstSeen
		 FROM Expense e
		 JOIN Category c ON e.CategoryId = c.Id
		 WHERE e.Amount < 0
		   AND e.Comment IS NOT NULL
		   AND TRIM(e.Comment) != ''
		   AND LENGTH(TRIM(e.Comment)) > 1
		   AND SUBSTR(e.Date, 1, 10) >= ?
		 GROUP BY e.CategoryId, TRIM(e.Comment)
		 HAVING recentCount >= 3 AND priorCount = 0
		 ORDER BY recentTotal DESC
		 LIMIT ?`,
		recentStart, recentStart, recentStart, windowStart, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("new recurring merchants: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringMerchant
	for rows.Next() {
		var m core.RecurringMerchant
		var priorCount int
		if err := rows.Scan(&m.Category, &m.Comment, &m.RecentCount, &m.RecentTotal, &priorCount, &m.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan recurring merchant: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TotalBalance sums every signed amount ever recorded.
func (r *SQLiteRepository) TotalBalance(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(Amount), 0) FROM Expense`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total balance: %w", err)
	}
	return total, nil
}

// TotalIncome sums every positive amount across the whole ledger.
func (r *SQLiteRepository) TotalIncome(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(Amount), 0) FROM Expense WHERE Amount > 0`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total income: %w", err)
	}
	return total, nil
}

// TotalExpenses sums the magnitude of every negative amount across the
// whole ledger.
func (r *SQLiteRepository) TotalExpenses(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(Amount)), 0) FROM Expense WHERE Amount < 0`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total expenses: %w", err)
	}
	return total, nil
}

// TotalBudget sums the raw signed budgets across all categories.
func (r *SQLiteRepository) TotalBudget(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(Budget), 0) FROM Category`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total budget: %w", err)
	}
	return total, nil
}

// MonthActivity summarizes one month's spending rows: count, distinct active
// days, average and largest expense.
func (r *SQLiteRepository) MonthActivity(ctx context.Context, month string) (core.MonthActivity, error) {
	var a core.MonthActivity
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(DISTINCT SUBSTR(Date, 1, 10)),
		        COALESCE(AVG(ABS(Amount)), 0),
		        COALESCE(MAX(ABS(Amount)), 0)
		 FROM Expense WHERE Date LIKE ? AND Amount < 0`,
		monthPattern(month),
	).Scan(&a.Transactions, &a.ActiveDays, &a.AvgExpense, &a.MaxExpense)
	if err != nil {
		return core.MonthActivity{}, fmt.Errorf("month activity for %s: %w", month, err)
	}
	return a, nil
}

// RecentExpenses lists the latest ledger rows with category names attached.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.Id, e.Amount, e.Date, e.Comment, e.CreationDate, e.CategoryId, c.Name
		 FROM Expense e
		 JOIN Category c ON e.CategoryId = c.Id
		 ORDER BY e.Date DESC, e.CreationDate DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// TopExpenses lists the largest spending rows for a month.
func (r *SQLiteRepository) TopExpenses(ctx context.Context, month string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.Id, e.Amount, e.Date, e.Comment, e.CreationDate, e.CategoryId, c.Name
		 FROM Expense e
		 JOIN Category c ON e.CategoryId = c.Id
		 WHERE e.Date LIKE ? AND e.Amount < 0
		 ORDER BY ABS(e.Amount) DESC LIMIT ?`,
		monthPattern(month), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top expenses for %s: %w", month, err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.Date, &tx.Comment, &tx.CreationDate, &tx.CategoryID, &tx.CategoryName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SpendingByCategory returns per-category spend totals for a month, largest
// first.
func (r *SQLiteRepository) SpendingByCategory(ctx context.Context, month string) ([]core.NameAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.Name, SUM(ABS(e.Amount)) as total
		 FROM Expense e
		 JOIN Category c ON e.CategoryId = c.Id
		 WHERE e.Date LIKE ? AND e.Amount < 0
		 GROUP BY c.Name ORDER BY total DESC`,
		monthPattern(month),
	)
	if err != nil {
		return nil, fmt.Errorf("spending by category for %s: %w", month, err)
	}
	defer rows.Close()

	var out []core.NameAmount
	for rows.Next() {
		var na core.NameAmount
		if err := rows.Scan(&na.Name, &na.Amount); err != nil {
			return nil, fmt.Errorf("scan category spend: %w", err)
		}
		out = append(out, na)
	}
	return out, rows.Err()
}

// CategoryBudgets returns every category's budget with the month's spend,
// ordered by display order. Percentage is filled in by the reports layer.
func (r *SQLiteRepository) CategoryBudgets(ctx context.Context, month string) ([]core.CategoryBudgetUsage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.Name, c.Budget, COALESCE(SUM(ABS(e.Amount)), 0)
		 FROM Category c
		 LEFT JOIN Expense e ON c.Id = e.CategoryId AND e.Date LIKE ? AND e.Amount < 0
		 GROUP BY c.Id, c.Name, c.Budget
		 ORDER BY c.DisplayOrder`,
		monthPattern(month),
	)
	if err != nil {
		return nil, fmt.Errorf("category budgets for %s: %w", month, err)
	}
	defer rows.Close()

	var out []core.CategoryBudgetUsage
	for rows.Next() {
		var cb core.CategoryBudgetUsage
		if err := rows.Scan(&cb.Name, &cb.Budget, &cb.Spent); err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

// SpendingTrend returns per-day spending totals for the most recent days
// with activity, oldest first.
func (r *SQLiteRepository) SpendingTrend(ctx context.Context, limit int) ([]core.DayAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT SUBSTR(Date, 1, 10) as day, SUM(ABS(Amount))
		 FROM Expense WHERE Amount < 0 GROUP BY day ORDER BY day DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("spending trend: %w", err)
	}
	defer rows.Close()

	var out []core.DayAmount
	for rows.Next() {
		var da core.DayAmount
		if err := rows.Scan(&da.Date, &da.Amount); err != nil {
			return nil, fmt.Errorf("scan spending trend: %w", err)
		}
		out = append(out, da)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DailyNet returns the signed per-day net across the whole ledger in date
// order, used to build running balances.
func (r *SQLiteRepository) DailyNet(ctx context.Context) ([]core.DayAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT SUBSTR(Date, 1, 10) as day, SUM(Amount)
		 FROM Expense GROUP BY day ORDER BY day`,
	)
	if err != nil {
		return nil, fmt.Errorf("daily net: %w", err)
	}
	defer rows.Close()

	var out []core.DayAmount
	for rows.Next() {
		var da core.DayAmount
		if err := rows.Scan(&da.Date, &da.Amount); err != nil {
			return nil, fmt.Errorf("scan daily net: %w", err)
		}
		out = append(out, da)
	}
	return out, rows.Err()
}

// WeekdayPattern aggregates all-time spending per day of week (Sunday = 0).
// Only weekdays with at least one spending row are returned; consumers
// rendering a full week must zero-fill the missing slots.
func (r *SQLiteRepository) WeekdayPattern(ctx context.Context) ([]core.WeekdaySlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%w', Date) AS INTEGER), SUM(ABS(Amount)), COUNT(*)
		 FROM Expense WHERE Amount < 0 GROUP BY strftime('%w', Date)`,
	)
	if err != nil {
		return nil, fmt.Errorf("weekday pattern: %w", err)
	}
	defer rows.Close()

	var out []core.WeekdaySlot
	for rows.Next() {
		var ws core.WeekdaySlot
		if err := rows.Scan(&ws.Day, &ws.Amount, &ws.Count); err != nil {
			return nil, fmt.Errorf("scan weekday slot: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// HourlyPattern aggregates all-time spending per hour of the recording
// timestamp. As with WeekdayPattern, hours without spending are absent and
// consumers must zero-fill the 24 slots.
func (r *SQLiteRepository) HourlyPattern(ctx context.Context) ([]core.HourSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%H', CreationDate) AS INTEGER), SUM(ABS(Amount)), COUNT(*)
		 FROM Expense WHERE Amount < 0 GROUP BY strftime('%H', CreationDate)`,
	)
	if err != nil {
		return nil, fmt.Errorf("hourly pattern: %w", err)
	}
	defer rows.Close()

	var out []core.HourSlot
	for rows.Next() {
		var hs core.HourSlot
		if err := rows.Scan(&hs.Hour, &hs.Amount, &hs.Count); err != nil {
			return nil, fmt.Errorf("scan hour slot: %w", err)
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

// Counts returns ledger metadata: total transactions, categories, and the
// earliest recorded date (empty when the ledger is empty).
func (r *SQLiteRepository) Counts(ctx context.Context) (transactions, categories int, firstDate string, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Expense`).Scan(&transactions); err != nil {
		return 0, 0, "", fmt.Errorf("count transactions: %w", err)
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Category`).Scan(&categories); err != nil {
		return 0, 0, "", fmt.Errorf("count categories: %w", err)
	}
	var first sql.NullString
	if err = r.db.QueryRowContext(ctx, `SELECT MIN(Date) FROM Expense`).Scan(&first); err != nil {
		return 0, 0, "", fmt.Errorf("first transaction date: %w", err)
	}
	return transactions, categories, first.String, nil
}
