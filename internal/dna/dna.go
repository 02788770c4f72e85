// Package dna loads the household's financial DNA: the static classification
// of ledger categories into roles (income, fixed, flex, debt, essential,
// lifestyle, side hustle, unknown) plus the tuning scalars the metrics engine
// runs on. The file is read once at startup and treated as immutable for the
// process lifetime.
package dna

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DNA classifies category IDs into roles. The fixed/flex/debt split and the
// essential/lifestyle split are independent tagging axes over the same
// category universe, so the sets are allowed to overlap across axes.
type DNA struct {
	IncomeCategoryID     int64   `json:"incomeCategoryId"`
	FixedCategoryIDs     []int64 `json:"fixedCategoryIds"`
	FlexCategoryIDs      []int64 `json:"flexCategoryIds"`
	DebtCategoryIDs      []int64 `json:"debtCategoryIds"`
	EssentialCategoryIDs []int64 `json:"essentialCategoryIds"`
	LifestyleCategoryIDs []int64 `json:"lifestyleCategoryIds"`
	SideHustleCategoryID int64   `json:"sideHustleCategoryId"`
	UnknownCategoryID    int64   `json:"unknownCategoryId"`

	// DeferrableCategoryIDs is the candidate pool for the bill-deferral
	// suggestion when next month's readiness goes negative.
	DeferrableCategoryIDs []int64 `json:"deferrableCategoryIds"`

	// VolatilityReserveRate is the income fraction set aside as a buffer
	// before disposable funds are computed.
	VolatilityReserveRate float64 `json:"volatilityReserveRate"`

	// RecoveryTargetIncome is the DH/month assumed recoverable via effort.
	RecoveryTargetIncome float64 `json:"recoveryTargetIncome"`

	// ADAThreshold is the warning cutoff for the daily allowance.
	ADAThreshold float64 `json:"adaThreshold"`
}

// Load reads and validates a DNA file.
func Load(path string) (*DNA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dna file: %w", err)
	}

	var d DNA
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dna file: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validate dna file %s: %w", path, err)
	}

	return &d, nil
}

// Validate checks the scalar ranges and required role assignments. Category
// IDs themselves are not checked against the ledger: an ID that resolves to
// no category degrades to zero-valued stats downstream, it is not a startup
// failure.
func (d *DNA) Validate() error {
	var problems []string

	if d.IncomeCategoryID <= 0 {
		problems = append(problems, "incomeCategoryId must be set")
	}
	if d.VolatilityReserveRate < 0 || d.VolatilityReserveRate > 1 {
		problems = append(problems, fmt.Sprintf("volatilityReserveRate %v out of range [0,1]", d.VolatilityReserveRate))
	}
	if d.RecoveryTargetIncome < 0 {
		problems = append(problems, fmt.Sprintf("recoveryTargetIncome %v must not be negative", d.RecoveryTargetIncome))
	}
	if d.ADAThreshold < 0 {
		problems = append(problems, fmt.Sprintf("adaThreshold %v must not be negative", d.ADAThreshold))
	}

	for _, set := range []struct {
		name string
		ids  []int64
	}{
		{"fixedCategoryIds", d.FixedCategoryIDs},
		{"flexCategoryIds", d.FlexCategoryIDs},
		{"debtCategoryIds", d.DebtCategoryIDs},
		{"essentialCategoryIds", d.EssentialCategoryIDs},
		{"lifestyleCategoryIds", d.LifestyleCategoryIDs},
		{"deferrableCategoryIds", d.DeferrableCategoryIDs},
	} {
		seen := make(map[int64]bool, len(set.ids))
		for _, id := range set.ids {
			if id <= 0 {
				problems = append(problems, fmt.Sprintf("%s contains non-positive id %d", set.name, id))
				continue
			}
			if seen[id] {
				problems = append(problems, fmt.Sprintf("%s contains duplicate id %d", set.name, id))
			}
			seen[id] = true
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid dna configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
