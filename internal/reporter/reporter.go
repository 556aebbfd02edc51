// Package reporter renders run reports for operators.
//
// Three formats are supported:
//   - Console: human-readable tabular output for terminal display
//   - JSON: the report structure marshaled verbatim for programmatic use
//   - CSV: one row per entry outcome for spreadsheet review
//
// Rendering is a pure function of the report, so a dry run and a live run
// over identical input produce byte-identical output in every format.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"transfer-reconciliation-service/internal/matcher"
	"transfer-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseOutputFormat parses and validates an output format from string
func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format == "" {
		return FormatConsole, nil
	}
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format '%s': must be console, json or csv", s)
	}
	return format, nil
}

// ReportConfig holds configuration options for report rendering
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeMatched adds matched entries to console output; ambiguous and
	// unresolved entries are always shown because they need operator action
	IncludeMatched bool `json:"include_matched"`

	// IncludeMutations adds the intended-mutations section to console output
	// of dry runs
	IncludeMutations bool `json:"include_mutations"`

	// CSVHeaders emits a header row before the outcome rows
	CSVHeaders bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeMatched:   false,
		IncludeMutations: true,
		CSVHeaders:       true,
	}
}

// VerboseReportConfig returns a configuration that includes every outcome
func VerboseReportConfig() *ReportConfig {
	config := DefaultReportConfig()
	config.IncludeMatched = true
	return config
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Reporter renders run reports in the configured format
type Reporter struct {
	config *ReportConfig
}

// NewReporter creates a reporter with the given configuration, falling back
// to the default configuration when nil
func NewReporter(config *ReportConfig) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Reporter{config: config}, nil
}

// Render writes the report to the given writer in the configured format
func (r *Reporter) Render(report *reconciler.RunReport, w io.Writer) error {
	switch r.config.Format {
	case FormatJSON:
		return r.renderJSON(report, w)
	case FormatCSV:
		return r.renderCSV(report, w)
	default:
		return r.renderConsole(report, w)
	}
}

func (r *Reporter) renderJSON(report *reconciler.RunReport, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (r *Reporter) renderCSV(report *reconciler.RunReport, w io.Writer) error {
	writer := csv.NewWriter(w)

	if r.config.CSVHeaders {
		header := []string{"entry_id", "sender_name", "amount", "date", "outcome",
			"payer_id", "obligation_id", "score", "reason", "tie_break", "grouped", "write_error"}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, outcome := range report.Outcomes {
		record := []string{
			outcome.EntryID,
			outcome.SenderName,
			outcome.Amount.String(),
			outcome.Date.Format("2006-01-02"),
			string(outcome.Kind),
			outcome.PayerID,
			outcome.ObligationID,
			formatScore(outcome),
			string(outcome.Reason),
			outcome.TieBreak,
			strconv.FormatBool(outcome.Grouped),
			outcome.WriteError,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (r *Reporter) renderConsole(report *reconciler.RunReport, w io.Writer) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION RUN REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")

	mode := "live"
	if report.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(&b, "Mode:                 %s\n", mode)
	fmt.Fprintf(&b, "Overwrite:            %t\n", report.Overwrite)
	fmt.Fprintf(&b, "Entries processed:    %d\n", report.TotalEntries)
	if report.SkippedResolved > 0 {
		fmt.Fprintf(&b, "Skipped (resolved):   %d\n", report.SkippedResolved)
	}
	fmt.Fprintf(&b, "Matched:              %d (%d via grouping)\n", report.MatchedCount, report.GroupedMatches)
	fmt.Fprintf(&b, "Ambiguous:            %d\n", report.AmbiguousCount)
	fmt.Fprintf(&b, "Unresolved:           %d\n", report.UnresolvedCount)
	fmt.Fprintf(&b, "Matched amount:       %s\n", report.TotalMatchedAmount.StringFixed(2))
	if report.WriteFailures > 0 {
		fmt.Fprintf(&b, "Write failures:       %d\n", report.WriteFailures)
	}

	if r.config.IncludeMatched {
		r.writeOutcomeSection(&b, "MATCHED ENTRIES", report, matcher.OutcomeMatched)
	}
	r.writeOutcomeSection(&b, "AMBIGUOUS ENTRIES", report, matcher.OutcomeAmbiguous)
	r.writeOutcomeSection(&b, "UNRESOLVED ENTRIES", report, matcher.OutcomeUnresolved)

	if report.DryRun && r.config.IncludeMutations && len(report.IntendedMutations) > 0 {
		b.WriteString("\nINTENDED MUTATIONS (not applied)\n")
		b.WriteString(strings.Repeat("-", 60) + "\n")
		for _, mutation := range report.IntendedMutations {
			if mutation.SetAmbiguous {
				fmt.Fprintf(&b, "  %s -> mark ambiguous\n", mutation.EntryID)
			} else {
				fmt.Fprintf(&b, "  %s -> payer %s, obligation %s (score %.3f)\n",
					mutation.EntryID, mutation.PayerID, orDash(mutation.ObligationID), mutation.Score)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Reporter) writeOutcomeSection(b *strings.Builder, title string, report *reconciler.RunReport, kind matcher.OutcomeKind) {
	var selected []*reconciler.EntryOutcome
	for _, outcome := range report.Outcomes {
		if outcome.Kind == kind {
			selected = append(selected, outcome)
		}
	}
	if len(selected) == 0 {
		return
	}

	fmt.Fprintf(b, "\n%s (%d)\n", title, len(selected))
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, outcome := range selected {
		line := fmt.Sprintf("  %-14s %-24s %10s  %s",
			outcome.EntryID, truncate(outcome.SenderName, 24),
			outcome.Amount.StringFixed(2), outcome.Date.Format("2006-01-02"))

		switch kind {
		case matcher.OutcomeMatched:
			line += fmt.Sprintf("  -> %s/%s (%.3f)", outcome.PayerID, orDash(outcome.ObligationID), outcome.Score)
			if outcome.Grouped {
				line += " [grouped]"
			}
			if outcome.TieBreak != "" {
				line += fmt.Sprintf(" [%s]", outcome.TieBreak)
			}
		case matcher.OutcomeUnresolved:
			line += fmt.Sprintf("  (%s)", outcome.Reason)
		}

		if outcome.WriteError != "" {
			line += fmt.Sprintf("  WRITE FAILED: %s", outcome.WriteError)
		}

		b.WriteString(line + "\n")
	}
}

// formatScore renders the similarity score of outcomes that carry one. The
// empty cell means no score was computed, never a score of zero.
func formatScore(outcome *reconciler.EntryOutcome) string {
	if outcome.Kind != matcher.OutcomeMatched {
		return ""
	}
	return strconv.FormatFloat(outcome.Score, 'f', 3, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
