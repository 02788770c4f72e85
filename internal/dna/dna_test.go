package dna

import (
	"os"
	"path/filepath"
	"testing"
)

func validDNA() DNA {
	return DNA{
		IncomeCategoryID:      1,
		FixedCategoryIDs:      []int64{2, 3, 4},
		FlexCategoryIDs:       []int64{5, 6},
		DebtCategoryIDs:       []int64{7},
		EssentialCategoryIDs:  []int64{2, 5},
		LifestyleCategoryIDs:  []int64{6},
		SideHustleCategoryID:  8,
		UnknownCategoryID:     9,
		DeferrableCategoryIDs: []int64{3, 4},
		VolatilityReserveRate: 0.1,
		RecoveryTargetIncome:  1500,
		ADAThreshold:          150,
	}
}

func TestDNA_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DNA)
		wantErr bool
	}{
		{
			name:    "valid configuration",
			mutate:  func(*DNA) {},
			wantErr: false,
		},
		{
			name:    "missing income category",
			mutate:  func(d *DNA) { d.IncomeCategoryID = 0 },
			wantErr: true,
		},
		{
			name:    "reserve rate above one",
			mutate:  func(d *DNA) { d.VolatilityReserveRate = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative recovery target",
			mutate:  func(d *DNA) { d.RecoveryTargetIncome = -1 },
			wantErr: true,
		},
		{
			name:    "negative ada threshold",
			mutate:  func(d *DNA) { d.ADAThreshold = -10 },
			wantErr: true,
		},
		{
			name:    "duplicate id within a set",
			mutate:  func(d *DNA) { d.FlexCategoryIDs = []int64{5, 5} },
			wantErr: true,
		},
		{
			name:    "non-positive id within a set",
			mutate:  func(d *DNA) { d.DebtCategoryIDs = []int64{0} },
			wantErr: true,
		},
		{
			// Essential/lifestyle and fixed/flex/debt are independent axes.
			name: "overlap across role axes is allowed",
			mutate: func(d *DNA) {
				d.EssentialCategoryIDs = []int64{2, 3}
				d.FixedCategoryIDs = []int64{2, 3}
			},
			wantErr: false,
		},
		{
			name:    "zero recovery target is allowed",
			mutate:  func(d *DNA) { d.RecoveryTargetIncome = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDNA()
			tt.mutate(&d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "dna.json")
		content := `{
			"incomeCategoryId": 1,
			"fixedCategoryIds": [2, 3],
			"flexCategoryIds": [5],
			"debtCategoryIds": [7],
			"essentialCategoryIds": [2],
			"lifestyleCategoryIds": [5],
			"sideHustleCategoryId": 8,
			"unknownCategoryId": 9,
			"deferrableCategoryIds": [3],
			"volatilityReserveRate": 0.1,
			"recoveryTargetIncome": 1500,
			"adaThreshold": 150
		}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		d, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if d.IncomeCategoryID != 1 {
			t.Errorf("IncomeCategoryID = %d, want 1", d.IncomeCategoryID)
		}
		if d.VolatilityReserveRate != 0.1 {
			t.Errorf("VolatilityReserveRate = %v, want 0.1", d.VolatilityReserveRate)
		}
		if len(d.FixedCategoryIDs) != 2 {
			t.Errorf("FixedCategoryIDs = %v, want two entries", d.FixedCategoryIDs)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("Load() on missing file should error")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() on malformed file should error")
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		if err := os.WriteFile(path, []byte(`{"incomeCategoryId": 0}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() on invalid configuration should error")
		}
	})
}
