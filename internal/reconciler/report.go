package reconciler

import (
	"time"

	"transfer-reconciliation-service/internal/matcher"

	"github.com/shopspring/decimal"
)

// EntryOutcome is one entry's line in the run report: what the engine decided
// and, when persistence was attempted, whether the write succeeded. The report
// is the sole mechanism for an operator to audit or reverse automatic
// decisions, so every field the decision rested on is carried here.
type EntryOutcome struct {
	EntryID      string                   `json:"entry_id"`
	SenderName   string                   `json:"sender_name"`
	Amount       decimal.Decimal          `json:"amount"`
	Date         time.Time                `json:"date"`
	Kind         matcher.OutcomeKind      `json:"kind"`
	PayerID      string                   `json:"payer_id,omitempty"`
	ObligationID string                   `json:"obligation_id,omitempty"`
	Score        float64                  `json:"score,omitempty"`
	Reason       matcher.UnresolvedReason `json:"reason,omitempty"`
	TieBreak     string                   `json:"tie_break,omitempty"`
	Grouped      bool                     `json:"grouped,omitempty"`
	WriteError   string                   `json:"write_error,omitempty"`
}

// Mutation describes one intended store update. In dry-run mode these are
// appended to the report instead of being applied.
type Mutation struct {
	EntryID      string  `json:"entry_id"`
	PayerID      string  `json:"payer_id,omitempty"`
	ObligationID string  `json:"obligation_id,omitempty"`
	Score        float64 `json:"score,omitempty"`
	SetAmbiguous bool    `json:"set_ambiguous,omitempty"`
}

// RunReport is the structured output of one reconciliation pass. It carries
// no wall-clock timestamps so two runs over identical input produce identical
// reports.
type RunReport struct {
	DryRun    bool `json:"dry_run"`
	Overwrite bool `json:"overwrite"`

	TotalEntries    int `json:"total_entries"`
	SkippedResolved int `json:"skipped_resolved"`

	MatchedCount    int `json:"matched_count"`
	AmbiguousCount  int `json:"ambiguous_count"`
	UnresolvedCount int `json:"unresolved_count"`
	GroupedMatches  int `json:"grouped_matches"`
	WriteFailures   int `json:"write_failures"`

	TotalMatchedAmount decimal.Decimal `json:"total_matched_amount"`

	Outcomes          []*EntryOutcome `json:"outcomes"`
	IntendedMutations []*Mutation     `json:"intended_mutations,omitempty"`
}

// NewRunReport creates an empty report for a pass with the given modes
func NewRunReport(dryRun, overwrite bool) *RunReport {
	return &RunReport{
		DryRun:             dryRun,
		Overwrite:          overwrite,
		TotalMatchedAmount: decimal.Zero,
	}
}

// Record appends one entry's outcome and updates the aggregate counters
func (r *RunReport) Record(outcome *EntryOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)

	switch outcome.Kind {
	case matcher.OutcomeMatched:
		r.MatchedCount++
		r.TotalMatchedAmount = r.TotalMatchedAmount.Add(outcome.Amount)
		if outcome.Grouped {
			r.GroupedMatches++
		}
	case matcher.OutcomeAmbiguous:
		r.AmbiguousCount++
	default:
		r.UnresolvedCount++
	}
}
