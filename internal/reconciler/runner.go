// Package reconciler orchestrates one batch reconciliation pass over the
// unresolved extract entries.
//
// A pass is a strictly sequential state machine:
//
//	Loaded → Normalizing → Matching → Grouping → Reporting → Done
//
// Loading failures are the only fatal condition and abort the run before any
// mutation is issued. Everything after loading is per-entry: an entry the
// pipeline cannot settle, or a write the store rejects, is recorded in the
// run report and the pass continues. The engine is a single-threaded batch
// processor by design; correctness of attribution is easier to guarantee
// without concurrent writers, and the record volumes involved do not call
// for more.
package reconciler

import (
	"context"
	"fmt"

	"transfer-reconciliation-service/internal/matcher"
	"transfer-reconciliation-service/internal/models"
	"transfer-reconciliation-service/internal/names"
	"transfer-reconciliation-service/internal/store"
	apperrors "transfer-reconciliation-service/pkg/errors"
	"transfer-reconciliation-service/pkg/logger"
)

// State identifies a phase of the reconciliation pass
type State string

const (
	StateLoaded      State = "loaded"
	StateNormalizing State = "normalizing"
	StateMatching    State = "matching"
	StateGrouping    State = "grouping"
	StateReporting   State = "reporting"
	StateDone        State = "done"
)

// Config holds the runner's behavioral options
type Config struct {
	// DryRun computes every outcome but persists nothing; intended mutations
	// are appended to the report instead
	DryRun bool

	// Overwrite allows re-resolving entries already marked resolved. Off by
	// default: a prior manual correction must never be silently undone.
	Overwrite bool

	// MarkAmbiguous persists the ambiguous status on entries with several
	// equally plausible payers so they surface in operator queues
	MarkAmbiguous bool
}

// DefaultConfig returns the default runner configuration
func DefaultConfig() *Config {
	return &Config{
		DryRun:        false,
		Overwrite:     false,
		MarkAmbiguous: true,
	}
}

// Runner executes reconciliation passes against an injected repository
type Runner struct {
	repo       store.Repository
	config     *Config
	constraint *matcher.ConstraintMatcher
	resolver   *matcher.Resolver
	aggregator *matcher.GroupingAggregator
	log        logger.Logger

	state State
}

// NewRunner creates a runner over the given repository and matching policy
func NewRunner(repo store.Repository, matching *matcher.Config, config *Config) (*Runner, error) {
	if repo == nil {
		return nil, apperrors.ValidationError(apperrors.CodeMissingField, "repository", nil, nil).
			WithSuggestion("provide a store.Repository implementation")
	}

	if matching == nil {
		matching = matcher.DefaultConfig()
	}
	if err := matching.Validate(); err != nil {
		return nil, apperrors.ConfigurationError("matching", matching, err)
	}

	if config == nil {
		config = DefaultConfig()
	}

	return &Runner{
		repo:       repo,
		config:     config,
		constraint: matcher.NewConstraintMatcher(matching),
		resolver:   matcher.NewResolver(matching),
		aggregator: matcher.NewGroupingAggregator(matching),
		log:        logger.GetGlobalLogger().WithComponent("runner"),
		state:      StateLoaded,
	}, nil
}

// State returns the phase the runner is currently in
func (r *Runner) State() State {
	return r.state
}

// loadedData holds everything a pass reads before its first decision
type loadedData struct {
	entries            []*models.ExtractEntry
	skippedResolved    int
	payers             []*models.Payer
	obligationsByPayer map[string][]*models.Obligation
}

// Run executes one reconciliation pass and returns its report. The context
// is checked between entries; cancellation before the reporting phase aborts
// with no writes issued, and cancellation during reporting stops further
// writes while keeping the report consistent up to the last completed entry.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := NewRunReport(r.config.DryRun, r.config.Overwrite)

	r.state = StateLoaded
	data, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	report.TotalEntries = len(data.entries)
	report.SkippedResolved = data.skippedResolved

	r.state = StateNormalizing
	idx := r.buildNameIndex(data)

	r.state = StateMatching
	outcomes, err := r.matchIndividually(ctx, data, idx)
	if err != nil {
		return nil, err
	}

	r.state = StateGrouping
	if err := r.matchGroups(ctx, data, idx, outcomes); err != nil {
		return nil, err
	}

	r.state = StateReporting
	r.report(ctx, data, outcomes, report)

	r.state = StateDone
	r.log.WithFields(logger.Fields{
		"entries":    report.TotalEntries,
		"matched":    report.MatchedCount,
		"ambiguous":  report.AmbiguousCount,
		"unresolved": report.UnresolvedCount,
		"dry_run":    report.DryRun,
	}).Info("reconciliation pass finished")

	return report, nil
}

// load reads every record the pass needs. Any failure here is fatal and
// guaranteed to happen before the first write.
func (r *Runner) load(ctx context.Context) (*loadedData, error) {
	data := &loadedData{}

	all, err := r.repo.ListEntries(ctx)
	if err != nil {
		return nil, apperrors.SourceUnavailable("extract source", err)
	}

	// Obligations claimed by entries resolved in earlier runs are settled for
	// this pass too. Under Overwrite the claiming entries are re-examined, so
	// their claims are released along with them.
	settled := make(map[string]bool)
	if r.config.Overwrite {
		data.entries = all
	} else {
		for _, entry := range all {
			if entry.IsResolved() {
				data.skippedResolved++
				if entry.ObligationID != "" {
					settled[entry.ObligationID] = true
				}
			} else {
				data.entries = append(data.entries, entry)
			}
		}
	}

	data.payers, err = r.repo.ListPayers(ctx)
	if err != nil {
		return nil, apperrors.SourceUnavailable("payer directory", err)
	}

	obligations, err := r.repo.ListObligations(ctx, "")
	if err != nil {
		return nil, apperrors.SourceUnavailable("obligation directory", err)
	}

	data.obligationsByPayer = make(map[string][]*models.Obligation)
	for _, obligation := range obligations {
		if settled[obligation.ID] {
			obligation.Status = models.SettlementSettled
		}
		data.obligationsByPayer[obligation.PayerID] = append(data.obligationsByPayer[obligation.PayerID], obligation)
	}

	r.log.WithFields(logger.Fields{
		"entries":     len(data.entries),
		"payers":      len(data.payers),
		"obligations": len(obligations),
	}).Debug("sources loaded")

	return data, nil
}

// buildNameIndex normalizes every payer and sender name once up front
func (r *Runner) buildNameIndex(data *loadedData) matcher.NameIndex {
	idx := make(matcher.NameIndex, len(data.payers)+len(data.entries))
	for _, payer := range data.payers {
		idx[payer.ID] = names.Normalize(payer.Name)
	}
	for _, entry := range data.entries {
		idx[entry.ID] = names.Normalize(entry.SenderName)
	}
	return idx
}

// matchIndividually runs the constraint matcher and resolver over each entry
// in turn. A matched obligation is marked settled on the loaded copy so no
// later entry in the same pass can claim it; linking is monotonic within a
// pass.
func (r *Runner) matchIndividually(
	ctx context.Context,
	data *loadedData,
	idx matcher.NameIndex,
) (map[string]*matcher.Outcome, error) {
	outcomes := make(map[string]*matcher.Outcome, len(data.entries))

	for _, entry := range data.entries {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryInternal, apperrors.CodeUnexpectedError,
				"reconciliation pass cancelled during matching")
		}

		candidates := r.constraint.CandidatesFor(entry, idx[entry.ID], data.payers, data.obligationsByPayer, idx)
		outcome := r.resolver.Resolve(candidates)
		outcomes[entry.ID] = outcome

		if outcome.Matched() && outcome.ObligationID != "" {
			r.consumeObligation(data, outcome.PayerID, outcome.ObligationID)
		}

		r.log.WithFields(logger.Fields{
			"entry":   entry.ID,
			"outcome": outcome.String(),
		}).Debug("entry resolved individually")
	}

	return outcomes, nil
}

// matchGroups retries the entries individual resolution left unresolved.
// Ambiguous entries are excluded: several payers were plausible and picking
// one through an aggregate would just hide the ambiguity from the operator.
func (r *Runner) matchGroups(
	ctx context.Context,
	data *loadedData,
	idx matcher.NameIndex,
	outcomes map[string]*matcher.Outcome,
) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryInternal, apperrors.CodeUnexpectedError,
			"reconciliation pass cancelled during grouping")
	}

	var unresolved []*models.ExtractEntry
	for _, entry := range data.entries {
		if outcomes[entry.ID].Kind == matcher.OutcomeUnresolved {
			unresolved = append(unresolved, entry)
		}
	}

	if len(unresolved) == 0 {
		return nil
	}

	groupOutcomes := r.aggregator.ResolveGroups(unresolved, data.payers, data.obligationsByPayer, idx)
	for entryID, outcome := range groupOutcomes {
		outcomes[entryID] = outcome
	}

	r.log.WithFields(logger.Fields{
		"retried":  len(unresolved),
		"resolved": len(groupOutcomes),
	}).Debug("group aggregation finished")

	return nil
}

// report classifies every outcome and persists the decisions. In dry-run
// mode the writes become intended mutations on the report; classification is
// identical either way.
func (r *Runner) report(
	ctx context.Context,
	data *loadedData,
	outcomes map[string]*matcher.Outcome,
	report *RunReport,
) {
	cancelled := false

	for _, entry := range data.entries {
		outcome := outcomes[entry.ID]

		entryOutcome := &EntryOutcome{
			EntryID:      entry.ID,
			SenderName:   entry.SenderName,
			Amount:       entry.Amount,
			Date:         entry.Date,
			Kind:         outcome.Kind,
			PayerID:      outcome.PayerID,
			ObligationID: outcome.ObligationID,
			Score:        outcome.Score,
			Reason:       outcome.Reason,
			TieBreak:     outcome.TieBreak,
			Grouped:      outcome.Grouped,
		}

		mutation := r.mutationFor(entry, outcome)
		if mutation != nil {
			if r.config.DryRun {
				report.IntendedMutations = append(report.IntendedMutations, mutation)
			} else if cancelled {
				entryOutcome.WriteError = "skipped: run cancelled"
				report.WriteFailures++
			} else if err := ctx.Err(); err != nil {
				cancelled = true
				entryOutcome.WriteError = "skipped: run cancelled"
				report.WriteFailures++
			} else if err := r.applyMutation(ctx, mutation); err != nil {
				writeErr := apperrors.WriteFailure(entry.ID, err)
				r.log.WithError(writeErr).Warn("store rejected mutation")
				entryOutcome.WriteError = writeErr.Message
				report.WriteFailures++
			}
		}

		report.Record(entryOutcome)
	}
}

// mutationFor maps an outcome to the store update it implies, or nil when the
// entry stays untouched
func (r *Runner) mutationFor(entry *models.ExtractEntry, outcome *matcher.Outcome) *Mutation {
	switch outcome.Kind {
	case matcher.OutcomeMatched:
		return &Mutation{
			EntryID:      entry.ID,
			PayerID:      outcome.PayerID,
			ObligationID: outcome.ObligationID,
			Score:        outcome.Score,
		}
	case matcher.OutcomeAmbiguous:
		if r.config.MarkAmbiguous && entry.Status != models.StatusAmbiguous {
			return &Mutation{EntryID: entry.ID, SetAmbiguous: true}
		}
		return nil
	default:
		return nil
	}
}

func (r *Runner) applyMutation(ctx context.Context, mutation *Mutation) error {
	if mutation.SetAmbiguous {
		return r.repo.MarkAmbiguous(ctx, mutation.EntryID)
	}
	return r.repo.MarkResolved(ctx, mutation.EntryID, mutation.PayerID, mutation.ObligationID, mutation.Score)
}

// consumeObligation marks the matched obligation settled on the loaded copy
// so it cannot be claimed again within this pass
func (r *Runner) consumeObligation(data *loadedData, payerID, obligationID string) {
	for _, obligation := range data.obligationsByPayer[payerID] {
		if obligation.ID == obligationID {
			obligation.Status = models.SettlementSettled
			return
		}
	}
}

// Describe returns a one-line summary of the runner's configuration
func (r *Runner) Describe() string {
	return fmt.Sprintf("Runner{DryRun: %t, Overwrite: %t, MarkAmbiguous: %t}",
		r.config.DryRun, r.config.Overwrite, r.config.MarkAmbiguous)
}
