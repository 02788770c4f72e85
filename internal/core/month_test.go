package core

import (
	"testing"
	"time"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "mid month",
			in:   time.Date(2025, 9, 21, 13, 30, 0, 0, time.UTC),
			want: "2025-09",
		},
		{
			name: "january is zero padded",
			in:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			want: "2025-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthKey(tt.in); got != tt.want {
				t.Errorf("MonthKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrevMonthKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "same year",
			in:   time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC),
			want: "2025-08",
		},
		{
			name: "january rolls back a year",
			in:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			want: "2024-12",
		},
		{
			name: "march 31 does not skip february",
			in:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			want: "2025-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrevMonthKey(tt.in); got != tt.want {
				t.Errorf("PrevMonthKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{name: "september", in: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), want: 30},
		{name: "december", in: time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), want: 31},
		{name: "february leap", in: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), want: 29},
		{name: "february non leap", in: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), want: 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysInMonth(tt.in); got != tt.want {
				t.Errorf("DaysInMonth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{
			name: "first of month counts whole month",
			in:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			want: 30,
		},
		{
			name: "inclusive of today",
			in:   time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC),
			want: 10,
		},
		{
			name: "last day floors at one",
			in:   time.Date(2025, 9, 30, 23, 59, 0, 0, time.UTC),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(tt.in); got != tt.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTransactionWeekday(t *testing.T) {
	tx := Transaction{Date: "2025-09-21 14:05"} // a Sunday
	day, err := tx.Weekday()
	if err != nil {
		t.Fatalf("Weekday() error = %v", err)
	}
	if day != time.Sunday {
		t.Errorf("Weekday() = %v, want Sunday", day)
	}

	if _, err := (Transaction{Date: ""}).Weekday(); err == nil {
		t.Error("Weekday() on empty date should error")
	}
	if _, err := (Transaction{Date: "not-a-date"}).Weekday(); err == nil {
		t.Error("Weekday() on garbage date should error")
	}
}

func TestTransactionAbsAmount(t *testing.T) {
	if got := (Transaction{Amount: -42.5}).AbsAmount(); got != 42.5 {
		t.Errorf("AbsAmount() = %v, want 42.5", got)
	}
	if got := (Transaction{Amount: 10}).AbsAmount(); got != 10 {
		t.Errorf("AbsAmount() = %v, want 10", got)
	}
	if !(Transaction{Amount: -1}).IsExpense() {
		t.Error("negative amount should be an expense")
	}
	if (Transaction{Amount: 1}).IsExpense() {
		t.Error("positive amount should not be an expense")
	}
}
