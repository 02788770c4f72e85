package strategy

import (
	"context"

	"finboard/internal/core"
)

// Ledger is the read-only slice of the transaction store the engine depends
// on. The sqlite repository satisfies it; tests provide fakes.
type Ledger interface {
	// CategoryStats returns the month rollup for one category. A category
	// that does not exist yields zero-valued stats, not an error.
	CategoryStats(ctx context.Context, categoryID int64, month string) (core.CategoryStat, error)

	// MonthIncome sums all positive amounts within a month.
	MonthIncome(ctx context.Context, month string) (float64, error)

	// MonthExpense sums the magnitude of all negative amounts within a month.
	MonthExpense(ctx context.Context, month string) (float64, error)

	// FlexExpenses lists spending rows for the given categories in a month.
	FlexExpenses(ctx context.Context, categoryIDs []int64, month string) ([]core.Transaction, error)

	// TopUnknownComments returns the heaviest distinct comments recorded
	// against the catch-all category this month, placeholder comments
	// filtered out.
	TopUnknownComments(ctx context.Context, categoryID int64, month string, limit int) ([]core.CommentTotal, error)
}
