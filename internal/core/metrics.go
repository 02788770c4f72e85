package core

// Status values derived by the metrics engine. They are plain strings so the
// JSON payload matches what the decision view renders.
const (
	ADAOptimal = "optimal"
	ADAWarning = "warning"
	ADACrisis  = "crisis"

	VelocityAhead  = "ahead"
	VelocityBehind = "behind"

	LiquiditySecure   = "secure"
	LiquidityLockdown = "lockdown"

	ForecastSecure = "secure"
	ForecastDanger = "danger"

	RecoveryNeutral    = "neutral"
	RecoveryRecovering = "recovering"

	TrendImproving = "improving"
	TrendWorsening = "worsening"

	// Behavioral archetypes. Only WeekendLeak is currently detectable; the
	// others exist in the schema for the presentation layer.
	ArchetypeWeekendLeak  = "Weekend Leak"
	ArchetypeImpulseSpike = "Impulse Spike"
	ArchetypeSteady       = "Steady"
	ArchetypeNone         = "None"
)

type (
	Velocity struct {
		TimePct  float64 `json:"timePct"`
		MoneyPct float64 `json:"moneyPct"`
		Status   string  `json:"status"`
	}

	// IronBufferItem tracks one fixed obligation. IsCovered flips once 90%
	// of the budget has been paid.
	IronBufferItem struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		Budget    float64 `json:"budget"`
		Spent     float64 `json:"spent"`
		IsCovered bool    `json:"isCovered"`
		Remaining float64 `json:"remaining"`
	}

	Theft struct {
		Total           float64 `json:"total"`
		ImpactDays      int     `json:"impactDays"`
		ImpactNarrative string  `json:"impactNarrative"`
		DopamineSwap    string  `json:"dopamineSwap"`
	}

	DebtItem struct {
		Name   string  `json:"name"`
		Budget float64 `json:"budget"`
		Paid   float64 `json:"paid"`
	}

	Allocation struct {
		Essential   float64 `json:"essential"`
		Lifestyle   float64 `json:"lifestyle"`
		Score       string  `json:"score"`
		Ratio       float64 `json:"ratio"`
		ADAModifier bool    `json:"adaModifier"`
		Trend       string  `json:"trend"`
	}

	Freedom struct {
		MonthlyDebtTarget   float64 `json:"monthlyDebtTarget"`
		ActualDebtPaid      float64 `json:"actualDebtPaid"`
		SurvivalNeutralDebt float64 `json:"survivalNeutralDebt"`
		SustainabilityScore float64 `json:"sustainabilityScore"`
	}

	Recovery struct {
		DeficitCarryOver float64 `json:"deficitCarryOver"`
		Status           string  `json:"status"`
		MonthsToRecover  float64 `json:"monthsToRecover"`
		Sensitivity      float64 `json:"sensitivity"`
		RecoveryTarget   float64 `json:"recoveryTarget"`
		RecoveryBonus    float64 `json:"recoveryBonus"`
	}

	Revenue struct {
		SideHustleEarned float64 `json:"sideHustleEarned"`
		NextBoostValue   float64 `json:"nextBoostValue"`
	}

	GhostBuffer struct {
		Amount float64 `json:"amount"`
		Rate   float64 `json:"rate"`
	}

	// Liquidity carries the hard-lock state: when cash on hand cannot cover
	// the remaining fixed obligations, the month is locked down regardless
	// of what the allowance formula says.
	Liquidity struct {
		Status            string  `json:"status"`
		CashRemaining     float64 `json:"cashRemaining"`
		IronRemaining     float64 `json:"ironRemaining"`
		CoverageRatio     float64 `json:"coverageRatio"`
		IsHardLocked      bool    `json:"isHardLocked"`
		BufferReboundPct  float64 `json:"bufferReboundPct"`
		NextMilestone     float64 `json:"nextMilestone"`
		MilestoneProgress float64 `json:"milestoneProgress"`
	}

	Forecast struct {
		NextMonthReadiness float64  `json:"nextMonthReadiness"`
		Status             string   `json:"status"`
		DeferredBills      []string `json:"deferredBillsSuggestion"`
	}

	Behavior struct {
		Archetype    string   `json:"archetype"`
		HighRiskDays []string `json:"highRiskDays"`
	}

	// StrategicMetrics is the single record the decision view consumes.
	// It is assembled once per request and has no identity beyond it.
	StrategicMetrics struct {
		ADA         float64          `json:"ada"`
		ADAStatus   string           `json:"adaStatus"`
		Velocity    Velocity         `json:"velocity"`
		IronBuffer  []IronBufferItem `json:"ironBuffer"`
		Theft       Theft            `json:"theft"`
		Unknowns    []CommentTotal   `json:"unknowns"`
		Debt        []DebtItem       `json:"debt"`
		Allocation  Allocation       `json:"allocation"`
		Freedom     Freedom          `json:"freedom"`
		Recovery    Recovery         `json:"recovery"`
		Revenue     Revenue          `json:"revenue"`
		GhostBuffer GhostBuffer      `json:"ghostBuffer"`
		Liquidity   Liquidity        `json:"liquidity"`
		Forecast    Forecast         `json:"forecast"`
		Behavior    Behavior         `json:"behavior"`
	}
)
