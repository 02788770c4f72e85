// finboardctl inspects the ledger from the command line, printing the same
// JSON records the API serves.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"finboard/internal/dna"
	"finboard/internal/regime"
	"finboard/internal/reports"
	"finboard/internal/storage"
	"finboard/internal/strategy"
)

var (
	dbPath   string
	dnaPath  string
	dateFlag string
)

func main() {
	root := &cobra.Command{
		Use:           "finboardctl",
		Short:         "Inspect the finboard ledger from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "./data/finboard.db", "path to the SQLite ledger")
	root.PersistentFlags().StringVar(&dnaPath, "dna", "./data/financial-dna.json", "path to the financial DNA profile")
	root.PersistentFlags().StringVar(&dateFlag, "date", "", "reference date (YYYY-MM-DD, default today)")

	root.AddCommand(decisionCmd(), regimeCmd(), dashboardCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func decisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decision",
		Short: "Print the strategic decision record for the month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := referenceTime()
			if err != nil {
				return err
			}
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			profile, err := dna.Load(dnaPath)
			if err != nil {
				return fmt.Errorf("load financial DNA: %w", err)
			}

			metrics, err := strategy.New(repo, profile).Compute(cmd.Context(), now)
			if err != nil {
				return err
			}
			return printJSON(metrics)
		},
	}
}

func regimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regime",
		Short: "Print the spending regime report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := referenceTime()
			if err != nil {
				return err
			}
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			report, err := regime.NewDetector(repo).Analyze(cmd.Context(), now)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard aggregates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := referenceTime()
			if err != nil {
				return err
			}
			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			stats, err := reports.NewService(repo).Build(cmd.Context(), now)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func openRepo() (*storage.SQLiteRepository, error) {
	_ = godotenv.Load()
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return repo, nil
}

func referenceTime() (time.Time, error) {
	if dateFlag == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", dateFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", dateFlag)
	}
	return t, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
