package matcher

import (
	"fmt"
)

// OutcomeKind classifies the result of resolving one extract entry
type OutcomeKind string

const (
	// OutcomeMatched means exactly one payer (and possibly one obligation)
	// was selected for the entry
	OutcomeMatched OutcomeKind = "matched"
	// OutcomeAmbiguous means multiple payers remained equally plausible after
	// every tie-break rule
	OutcomeAmbiguous OutcomeKind = "ambiguous"
	// OutcomeUnresolved means no candidate survived constraints and scoring
	OutcomeUnresolved OutcomeKind = "unresolved"
)

// UnresolvedReason explains why an entry could not be resolved
type UnresolvedReason string

const (
	// ReasonNoCandidate means no pair passed the hard constraints
	ReasonNoCandidate UnresolvedReason = "no-candidate"
	// ReasonLowSimilarity means the only candidate scored below the threshold
	ReasonLowSimilarity UnresolvedReason = "low-similarity"
	// ReasonAmbiguousGroup means group aggregation found zero or several
	// obligation sets summing to the group total
	ReasonAmbiguousGroup UnresolvedReason = "ambiguous-group"
)

// Outcome is the tagged result of resolving one extract entry. It is returned
// to the runner and recorded in the run report; it is never persisted as-is.
type Outcome struct {
	Kind         OutcomeKind
	PayerID      string
	ObligationID string
	Score        float64
	Reason       UnresolvedReason
	TieBreak     string
	Grouped      bool
	Candidates   []*Candidate
}

// Matched reports whether the outcome selected a payer
func (o *Outcome) Matched() bool {
	return o.Kind == OutcomeMatched
}

// String returns a short description of the outcome
func (o *Outcome) String() string {
	switch o.Kind {
	case OutcomeMatched:
		return fmt.Sprintf("Matched{Payer: %s, Obligation: %s, Score: %.3f}", o.PayerID, o.ObligationID, o.Score)
	case OutcomeAmbiguous:
		return fmt.Sprintf("Ambiguous{Candidates: %d}", len(o.Candidates))
	default:
		return fmt.Sprintf("Unresolved{Reason: %s}", o.Reason)
	}
}

// Resolver picks at most one match from the constraint-passing candidates.
// It is a pure computation with no side effects, which keeps it directly
// unit-testable.
type Resolver struct {
	config *Config
}

// NewResolver creates a resolver with the given configuration, falling back
// to the default policy when nil
func NewResolver(config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{config: config}
}

// Resolve decides the outcome for one entry given its scored candidates:
//
//   - zero candidates yield Unresolved(no-candidate)
//   - a single candidate is accepted only at or above the threshold,
//     otherwise Unresolved(low-similarity)
//   - with several candidates above the threshold, ties break in order:
//     confirmed payers beat unconfirmed ones, then strictly higher similarity
//     wins, then the first candidate in the caller's stable order is selected
//     and the tie is reported in the outcome metadata
//
// The stable-order default only applies within a single payer; when distinct
// payers remain tied after every rule the entry is declared Ambiguous rather
// than silently attributed to either of them.
func (r *Resolver) Resolve(candidates []*Candidate) *Outcome {
	if len(candidates) == 0 {
		return &Outcome{Kind: OutcomeUnresolved, Reason: ReasonNoCandidate}
	}

	accepted := make([]*Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Similarity >= r.config.AcceptanceThreshold {
			accepted = append(accepted, candidate)
		}
	}

	if len(accepted) == 0 {
		return &Outcome{Kind: OutcomeUnresolved, Reason: ReasonLowSimilarity}
	}

	if len(accepted) == 1 {
		return matchedOutcome(accepted[0], "")
	}

	// Tie-break (a): confirmed payers over unconfirmed
	confirmed := filterConfirmed(accepted)
	pool := accepted
	tieBreak := ""
	if len(confirmed) > 0 && len(confirmed) < len(accepted) {
		pool = confirmed
		tieBreak = "confirmed-payer"
	}

	if len(pool) == 1 {
		return matchedOutcome(pool[0], tieBreak)
	}

	// Tie-break (b): strictly higher similarity
	best := bestSimilarity(pool)
	top := make([]*Candidate, 0, len(pool))
	for _, candidate := range pool {
		if candidate.Similarity == best {
			top = append(top, candidate)
		}
	}

	if len(top) == 1 {
		if tieBreak == "" {
			tieBreak = "higher-similarity"
		}
		return matchedOutcome(top[0], tieBreak)
	}

	// Tie-break (c): the stable-order default, only defensible when every
	// remaining candidate points at the same payer
	if samePayer(top) {
		return matchedOutcome(top[0], "stable-order")
	}

	return &Outcome{
		Kind:       OutcomeAmbiguous,
		Score:      best,
		Candidates: top,
	}
}

func matchedOutcome(candidate *Candidate, tieBreak string) *Outcome {
	outcome := &Outcome{
		Kind:     OutcomeMatched,
		PayerID:  candidate.Payer.ID,
		Score:    candidate.Similarity,
		TieBreak: tieBreak,
	}
	if candidate.Obligation != nil {
		outcome.ObligationID = candidate.Obligation.ID
	}
	return outcome
}

func filterConfirmed(candidates []*Candidate) []*Candidate {
	var confirmed []*Candidate
	for _, candidate := range candidates {
		if candidate.Payer.Confirmed {
			confirmed = append(confirmed, candidate)
		}
	}
	return confirmed
}

func bestSimilarity(candidates []*Candidate) float64 {
	best := 0.0
	for _, candidate := range candidates {
		if candidate.Similarity > best {
			best = candidate.Similarity
		}
	}
	return best
}

func samePayer(candidates []*Candidate) bool {
	for _, candidate := range candidates[1:] {
		if candidate.Payer.ID != candidates[0].Payer.ID {
			return false
		}
	}
	return true
}
