// Package config assembles component configurations from CLI flag values
package config

import (
	"fmt"

	"transfer-reconciliation-service/internal/matcher"
	"transfer-reconciliation-service/internal/parsers"
	"transfer-reconciliation-service/internal/reconciler"
	"transfer-reconciliation-service/internal/reporter"
	apperrors "transfer-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// CreateParseConfig creates a parser configuration covering the column
// namings seen in real exports
func CreateParseConfig() *parsers.ParseConfig {
	config := parsers.DefaultParseConfig()
	config.ColumnAliases = map[string]string{
		// Extract columns
		"sender":   "sender_name",
		"payer":    "sender_name",
		"origin":   "sender_name",
		"value":    "amount",
		"amt":      "amount",
		"tx_date":  "date",
		"datetime": "date",

		// Payer columns
		"full_name": "name",
		"cpf":       "document",
		"cnpj":      "document",
		"verified":  "confirmed",

		// Obligation columns
		"due":       "amount_due",
		"reference": "period",
		"month":     "period",
		"deadline":  "due_date",
	}
	return config
}

// CreateMatchingConfig creates a matching configuration from CLI flag values
func CreateMatchingConfig(threshold float64, tolerance string, requireDate bool, maxGroup int) (*matcher.Config, error) {
	toleranceDecimal, err := decimal.NewFromString(tolerance)
	if err != nil {
		return nil, apperrors.ConfigurationError("amount-tolerance", tolerance,
			fmt.Errorf("must be a decimal amount: %w", err))
	}

	config := matcher.DefaultConfig()
	config.AcceptanceThreshold = threshold
	config.AmountTolerance = toleranceDecimal
	config.RequireDateMatch = requireDate
	config.MaxGroupObligations = maxGroup

	if err := config.Validate(); err != nil {
		return nil, apperrors.ConfigurationError("matching", config.String(), err)
	}

	return config, nil
}

// CreateRunnerConfig creates a runner configuration from CLI flag values
func CreateRunnerConfig(dryRun, overwrite bool) *reconciler.Config {
	config := reconciler.DefaultConfig()
	config.DryRun = dryRun
	config.Overwrite = overwrite
	return config
}

// CreateReportConfig creates a report configuration from CLI flag values
func CreateReportConfig(format string, verbose bool) (*reporter.ReportConfig, error) {
	parsed, err := reporter.ParseOutputFormat(format)
	if err != nil {
		return nil, apperrors.ConfigurationError("output-format", format, err)
	}

	config := reporter.DefaultReportConfig()
	if verbose {
		config = reporter.VerboseReportConfig()
	}
	config.Format = parsed
	return config, nil
}
