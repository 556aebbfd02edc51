package matcher

import (
	"transfer-reconciliation-service/internal/models"
	"transfer-reconciliation-service/internal/names"
)

// NameIndex maps record identifiers to their normalized names. It is built
// once per run during the normalization phase so the matching stages never
// re-normalize the same name twice.
type NameIndex map[string]string

// NormalizedName returns the normalized name for an identifier, falling back
// to normalizing the raw value when the index has no entry
func (idx NameIndex) NormalizedName(id, raw string) string {
	if normalized, ok := idx[id]; ok {
		return normalized
	}
	return names.Normalize(raw)
}

// Candidate is a transient pairing of an extract entry with a payer and
// obligation, annotated with the similarity score and its position in the
// caller-determined candidate order. Candidates are never persisted; they
// exist only within one resolution pass.
type Candidate struct {
	Payer      *models.Payer
	Obligation *models.Obligation
	Similarity float64
	Order      int
}

// ConstraintMatcher filters entry/obligation pairs by hard constraints before
// any similarity ranking happens. A candidate failing a hard constraint is
// silently discarded; that is expected filtering, not an error.
type ConstraintMatcher struct {
	config *Config
}

// NewConstraintMatcher creates a constraint matcher with the given
// configuration, falling back to the default policy when nil
func NewConstraintMatcher(config *Config) *ConstraintMatcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &ConstraintMatcher{config: config}
}

// CandidatesFor returns every payer/obligation pair passing the hard
// constraints for the entry, scored by sender-name similarity. The hard
// constraints are:
//   - the obligation is still open
//   - the obligation belongs to the payer under consideration
//   - the amount due equals the transfer amount within the absolute tolerance
//   - the due date falls on the transfer's calendar day (when required)
//
// When the entry already carries a payer back-reference from a prior manual
// assignment, only that payer's obligations are considered. Candidate order
// follows the caller's payer and obligation order and is stable across runs.
func (cm *ConstraintMatcher) CandidatesFor(
	entry *models.ExtractEntry,
	entryName string,
	payers []*models.Payer,
	obligationsByPayer map[string][]*models.Obligation,
	idx NameIndex,
) []*Candidate {
	var candidates []*Candidate
	order := 0

	for _, payer := range payers {
		if entry.PayerID != "" && entry.PayerID != payer.ID {
			continue
		}

		for _, obligation := range obligationsByPayer[payer.ID] {
			if !cm.PassesConstraints(entry, obligation) {
				continue
			}

			candidates = append(candidates, &Candidate{
				Payer:      payer,
				Obligation: obligation,
				Similarity: names.Similarity(entryName, idx.NormalizedName(payer.ID, payer.Name)),
				Order:      order,
			})
			order++
		}
	}

	return candidates
}

// PassesConstraints reports whether one entry/obligation pair satisfies every
// hard constraint
func (cm *ConstraintMatcher) PassesConstraints(entry *models.ExtractEntry, obligation *models.Obligation) bool {
	if !obligation.IsOpen() {
		return false
	}

	if !models.AmountsWithinTolerance(entry.Amount, obligation.AmountDue, cm.config.AmountTolerance) {
		return false
	}

	if cm.config.RequireDateMatch && !obligation.DueDate.IsZero() {
		if !models.SameCalendarDay(entry.Date, obligation.DueDate) {
			return false
		}
	}

	return true
}

// PayerCandidatesFor scores every payer against the entry's sender name
// without obligation constraints. The grouping aggregator uses this to find
// the payer a group of transfers most plausibly belongs to. A payer
// back-reference on the entry again restricts the search.
func (cm *ConstraintMatcher) PayerCandidatesFor(
	entry *models.ExtractEntry,
	entryName string,
	payers []*models.Payer,
	idx NameIndex,
) []*Candidate {
	var candidates []*Candidate
	order := 0

	for _, payer := range payers {
		if entry.PayerID != "" && entry.PayerID != payer.ID {
			continue
		}

		candidates = append(candidates, &Candidate{
			Payer:      payer,
			Similarity: names.Similarity(entryName, idx.NormalizedName(payer.ID, payer.Name)),
			Order:      order,
		})
		order++
	}

	return candidates
}
