package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Transaction is a single ledger row. The amount sign is the only
	// income/expense discriminator: positive amounts are income, negative
	// amounts are spending.
	Transaction struct {
		ID           int64
		Amount       float64
		Date         string // YYYY-MM-DD, optionally followed by a time part
		Comment      string
		CreationDate string
		CategoryID   int64
		CategoryName string
	}

	// Category is a budget line. Budget follows the amount sign convention:
	// a negative budget is a monthly spending allowance, a positive budget
	// an income target.
	Category struct {
		ID           int64
		Name         string
		Budget       float64
		DisplayOrder int64
	}

	// CategoryStat is the per-category month rollup: budget as an absolute
	// figure, spending and income split on amount sign. Recomputed fresh on
	// every request.
	CategoryStat struct {
		Name   string
		Budget float64
		Spent  float64
		Earned float64
	}

	// CommentTotal aggregates ledger rows sharing a comment string.
	CommentTotal struct {
		Comment string  `json:"comment"`
		Count   int     `json:"count"`
		Total   float64 `json:"total"`
	}
)

var (
	ErrEmptyDate    = errors.New("empty date")
	ErrInvalidDate  = errors.New("invalid date")
	ErrEmptyComment = errors.New("empty comment")
)

// Day extracts the YYYY-MM-DD prefix of a transaction date.
func (t Transaction) Day() string {
	if len(t.Date) < 10 {
		return t.Date
	}
	return t.Date[:10]
}

// Weekday parses the transaction date and returns its day of week.
// Sunday is 0, matching the weekday bucketing used by the behavior
// classifier. Unparseable dates report an error.
func (t Transaction) Weekday() (time.Weekday, error) {
	day := t.Day()
	if strings.TrimSpace(day) == "" {
		return 0, ErrEmptyDate
	}
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		return 0, ErrInvalidDate
	}
	return parsed.Weekday(), nil
}

// IsExpense reports whether the transaction is a spending row.
func (t Transaction) IsExpense() bool {
	return t.Amount < 0
}

// AbsAmount returns the magnitude of the transaction amount.
func (t Transaction) AbsAmount() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}
