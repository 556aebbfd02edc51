package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"transfer-reconciliation-service/cmd/reconciler/config"
	"transfer-reconciliation-service/internal/parsers"
	"transfer-reconciliation-service/internal/reconciler"
	"transfer-reconciliation-service/internal/reporter"
	"transfer-reconciliation-service/internal/store"
	apperrors "transfer-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	dbPath          string
	extractFile     string
	payersFile      string
	obligationsFile string
	outputFormat    string
	outputFile      string

	dryRun    bool
	overwrite bool

	similarityThreshold float64
	amountTolerance     string
	requireDateMatch    bool
	maxGroupObligations int
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Attribute extract entries to payers and obligations",
	Long: `Reconcile runs one matching pass over the unresolved extract entries.

Records come either from a SQLite database (--db) or from three CSV files
(--extract-file, --payers-file, --obligations-file). With CSV sources the
run is implicitly a dry run since the files are never modified.

Examples:
  # Preview what a run would change
  reconciler reconcile --db records.db --dry-run

  # Apply resolutions, re-examining entries resolved earlier
  reconciler reconcile --db records.db --overwrite

  # File-based run with relaxed matching
  reconciler reconcile --extract-file extract.csv --payers-file payers.csv \
    --obligations-file obligations.csv --similarity-threshold 0.6

  # Machine-readable report
  reconciler reconcile --db records.db --output-format json --output-file report.json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Source flags
	reconcileCmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite record store")
	reconcileCmd.Flags().StringVar(&extractFile, "extract-file", "", "path to the extract CSV file")
	reconcileCmd.Flags().StringVar(&payersFile, "payers-file", "", "path to the payers CSV file")
	reconcileCmd.Flags().StringVar(&obligationsFile, "obligations-file", "", "path to the obligations CSV file")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Run mode flags
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute outcomes without persisting anything")
	reconcileCmd.Flags().BoolVar(&overwrite, "overwrite", false, "re-examine entries already resolved")

	// Matching policy flags
	reconcileCmd.Flags().Float64VarP(&similarityThreshold, "similarity-threshold", "t", 0.7, "minimum name similarity to accept a match (0.0-1.0)")
	reconcileCmd.Flags().StringVarP(&amountTolerance, "amount-tolerance", "a", "0.01", "absolute amount tolerance")
	reconcileCmd.Flags().BoolVar(&requireDateMatch, "require-date-match", true, "require entry and obligation dates on the same day")
	reconcileCmd.Flags().IntVar(&maxGroupObligations, "max-group-obligations", 16, "largest open obligation set considered for grouping")

	viper.BindPFlag("db", reconcileCmd.Flags().Lookup("db"))
	viper.BindPFlag("extract-file", reconcileCmd.Flags().Lookup("extract-file"))
	viper.BindPFlag("payers-file", reconcileCmd.Flags().Lookup("payers-file"))
	viper.BindPFlag("obligations-file", reconcileCmd.Flags().Lookup("obligations-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("dry-run", reconcileCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("overwrite", reconcileCmd.Flags().Lookup("overwrite"))
	viper.BindPFlag("similarity-threshold", reconcileCmd.Flags().Lookup("similarity-threshold"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("require-date-match", reconcileCmd.Flags().Lookup("require-date-match"))
	viper.BindPFlag("max-group-obligations", reconcileCmd.Flags().Lookup("max-group-obligations"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Viper values win so the config file and environment can override flags
	dbPath = viper.GetString("db")
	extractFile = viper.GetString("extract-file")
	payersFile = viper.GetString("payers-file")
	obligationsFile = viper.GetString("obligations-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	dryRun = viper.GetBool("dry-run")
	overwrite = viper.GetBool("overwrite")
	similarityThreshold = viper.GetFloat64("similarity-threshold")
	amountTolerance = viper.GetString("amount-tolerance")
	requireDateMatch = viper.GetBool("require-date-match")
	maxGroupObligations = viper.GetInt("max-group-obligations")

	usingFiles := extractFile != "" || payersFile != "" || obligationsFile != ""

	if dbPath == "" && !usingFiles {
		return fmt.Errorf("either --db or the three CSV file flags are required")
	}
	if dbPath != "" && usingFiles {
		return fmt.Errorf("--db and CSV file flags are mutually exclusive")
	}

	if usingFiles {
		if extractFile == "" || payersFile == "" || obligationsFile == "" {
			return fmt.Errorf("file-based runs need --extract-file, --payers-file and --obligations-file")
		}
		for _, source := range []struct{ path, label string }{
			{extractFile, "extract file"},
			{payersFile, "payers file"},
			{obligationsFile, "obligations file"},
		} {
			if err := validateFileExists(source.path, source.label); err != nil {
				return err
			}
		}
	} else if err := validateFileExists(dbPath, "record store"); err != nil {
		return err
	}

	if _, err := reporter.ParseOutputFormat(outputFormat); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	matching, err := config.CreateMatchingConfig(similarityThreshold, amountTolerance, requireDateMatch, maxGroupObligations)
	if err != nil {
		return err
	}

	usingFiles := dbPath == ""

	var repo store.Repository
	if usingFiles {
		memory, err := parsers.LoadFiles(extractFile, payersFile, obligationsFile, config.CreateParseConfig())
		if err != nil {
			return apperrors.SourceUnavailable("source files", err)
		}
		repo = memory
	} else {
		sqlite, err := store.OpenSQLiteStore(dbPath)
		if err != nil {
			return apperrors.SourceUnavailable(dbPath, err)
		}
		repo = sqlite
	}
	defer repo.Close()

	// File sources are never written back, so resolutions only matter as report
	// content
	runConfig := config.CreateRunnerConfig(dryRun || usingFiles, overwrite)

	runner, err := reconciler.NewRunner(repo, matching, runConfig)
	if err != nil {
		return err
	}

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	return renderReport(report)
}

func renderReport(report *reconciler.RunReport) error {
	reportConfig, err := config.CreateReportConfig(outputFormat, viper.GetBool("verbose"))
	if err != nil {
		return err
	}

	rep, err := reporter.NewReporter(reportConfig)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", outputFile, err)
		}
		defer file.Close()
		out = file
	}

	return rep.Render(report, out)
}

func validateFileExists(path, label string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", label, path)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s %s: %w", label, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", label, path)
	}
	return nil
}
