package core

// Aggregate row shapes returned by the ledger accessor. These are thin
// query results; all derivation happens in the consuming packages.

type (
	// NameAmount is a category name with an aggregated amount.
	NameAmount struct {
		Name   string  `json:"name"`
		Amount float64 `json:"value"`
	}

	// CategoryBudgetUsage pairs a category's monthly budget with the spend
	// recorded against it.
	CategoryBudgetUsage struct {
		Name       string  `json:"name"`
		Budget     float64 `json:"budget"`
		Spent      float64 `json:"spent"`
		Percentage int     `json:"percentage"`
	}

	// DayAmount is a per-day aggregate keyed by YYYY-MM-DD.
	DayAmount struct {
		Date   string  `json:"date"`
		Amount float64 `json:"amount"`
	}

	// WeekdaySlot aggregates spending per day of week, Sunday = 0.
	WeekdaySlot struct {
		Day    int     `json:"day"`
		Amount float64 `json:"amount"`
		Count  int     `json:"count"`
	}

	// HourSlot aggregates spending per hour of the recording timestamp.
	HourSlot struct {
		Hour   int     `json:"hour"`
		Amount float64 `json:"amount"`
		Count  int     `json:"count"`
	}

	// CategoryWindowTotal holds one category's spend totals over the regime
	// detector's baseline and recent windows.
	CategoryWindowTotal struct {
		Name          string
		BaselineTotal float64
		RecentTotal   float64
	}

	// MonthActivity summarizes spending activity within one month.
	MonthActivity struct {
		Transactions int     `json:"transactions"`
		ActiveDays   int     `json:"activeDays"`
		AvgExpense   float64 `json:"avgExpense"`
		MaxExpense   float64 `json:"maxExpense"`
	}

	// RecurringMerchant is a (category, comment) pair that started repeating
	// recently with no earlier history.
	RecurringMerchant struct {
		Category    string  `json:"category"`
		Comment     string  `json:"comment"`
		RecentCount int     `json:"recentCount"`
		RecentTotal float64 `json:"recentTotal"`
		FirstSeen   string  `json:"firstSeen"`
	}
)
