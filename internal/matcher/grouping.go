package matcher

import (
	"sort"

	"transfer-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// GroupingAggregator covers payments that individual resolution cannot
// settle: one payer covering several obligations with separate transfers, or
// one obligation paid in several smaller transfers. Entries are grouped by
// their most plausible payer and transfer date, and the group's aggregate
// amount is matched against sums of the payer's open obligations.
//
// The aggregator only ever runs on entries the resolver left unresolved, so a
// confident single match is never reclassified by a group.
type GroupingAggregator struct {
	config     *Config
	constraint *ConstraintMatcher
}

// NewGroupingAggregator creates a grouping aggregator with the given
// configuration, falling back to the default policy when nil
func NewGroupingAggregator(config *Config) *GroupingAggregator {
	if config == nil {
		config = DefaultConfig()
	}
	return &GroupingAggregator{
		config:     config,
		constraint: NewConstraintMatcher(config),
	}
}

// entryGroup collects unresolved entries sharing a candidate payer and date
type entryGroup struct {
	payer   *models.Payer
	entries []*models.ExtractEntry
	scores  map[string]float64
}

// ResolveGroups attempts group resolution for the given unresolved entries
// and returns outcomes keyed by entry identifier. Entries without a payer
// candidate at or above the acceptance threshold are skipped entirely and
// keep their individual outcome. For each group, exactly one obligation
// subset summing to the group total within tolerance resolves every entry in
// the group; zero or several matching subsets leave the whole group
// unresolved with the ambiguous-group reason, so nothing is ever
// double-counted.
func (ga *GroupingAggregator) ResolveGroups(
	entries []*models.ExtractEntry,
	payers []*models.Payer,
	obligationsByPayer map[string][]*models.Obligation,
	idx NameIndex,
) map[string]*Outcome {
	outcomes := make(map[string]*Outcome)

	// Obligations attributed by an earlier group must not be reused by a
	// later group of the same payer within this pass
	consumed := make(map[string]bool)

	groups := make(map[string]*entryGroup)
	var groupOrder []string

	for _, entry := range entries {
		entryName := idx.NormalizedName(entry.ID, entry.SenderName)
		candidates := ga.constraint.PayerCandidatesFor(entry, entryName, payers, idx)

		best := ga.bestPayerCandidate(candidates)
		if best == nil {
			continue
		}

		key := best.Payer.ID + "|" + entry.Date.Format("2006-01-02")
		group, ok := groups[key]
		if !ok {
			group = &entryGroup{
				payer:  best.Payer,
				scores: make(map[string]float64),
			}
			groups[key] = group
			groupOrder = append(groupOrder, key)
		}
		group.entries = append(group.entries, entry)
		group.scores[entry.ID] = best.Similarity
	}

	for _, key := range groupOrder {
		ga.resolveGroup(groups[key], obligationsByPayer, consumed, outcomes)
	}

	return outcomes
}

// bestPayerCandidate picks the most plausible payer for one entry: highest
// similarity at or above the threshold, with confirmed payers winning equal
// scores and the stable candidate order deciding what remains.
func (ga *GroupingAggregator) bestPayerCandidate(candidates []*Candidate) *Candidate {
	var best *Candidate
	for _, candidate := range candidates {
		if candidate.Similarity < ga.config.AcceptanceThreshold {
			continue
		}

		switch {
		case best == nil:
			best = candidate
		case candidate.Similarity > best.Similarity:
			best = candidate
		case candidate.Similarity == best.Similarity && candidate.Payer.Confirmed && !best.Payer.Confirmed:
			best = candidate
		}
	}
	return best
}

// resolveGroup matches one group's aggregate amount against subsets of the
// payer's open obligations and records the outcome for each member entry
func (ga *GroupingAggregator) resolveGroup(
	group *entryGroup,
	obligationsByPayer map[string][]*models.Obligation,
	consumed map[string]bool,
	outcomes map[string]*Outcome,
) {
	open := openObligations(obligationsByPayer[group.payer.ID], consumed)

	total := decimal.Zero
	for _, entry := range group.entries {
		total = total.Add(entry.Amount)
	}

	// An oversized obligation set cannot certify a unique sum; treat it the
	// same as several matching subsets
	if len(open) == 0 || len(open) > ga.config.MaxGroupObligations {
		ga.markGroupUnresolved(group, outcomes)
		return
	}

	match, unique := ga.findUniqueSubsetSum(open, total)
	if !unique {
		ga.markGroupUnresolved(group, outcomes)
		return
	}

	assignments := pairEntriesToObligations(group.entries, match, ga.config.AmountTolerance)

	for _, obligation := range match {
		consumed[obligation.ID] = true
	}

	for _, entry := range group.entries {
		outcomes[entry.ID] = &Outcome{
			Kind:         OutcomeMatched,
			PayerID:      group.payer.ID,
			ObligationID: assignments[entry.ID],
			Score:        group.scores[entry.ID],
			Grouped:      true,
		}
	}
}

func (ga *GroupingAggregator) markGroupUnresolved(group *entryGroup, outcomes map[string]*Outcome) {
	for _, entry := range group.entries {
		outcomes[entry.ID] = &Outcome{
			Kind:    OutcomeUnresolved,
			Reason:  ReasonAmbiguousGroup,
			Grouped: true,
		}
	}
}

// findUniqueSubsetSum searches every non-empty subset of the obligations for
// one whose amounts sum to the target within tolerance. It returns the subset
// only if exactly one exists.
func (ga *GroupingAggregator) findUniqueSubsetSum(
	obligations []*models.Obligation,
	target decimal.Decimal,
) ([]*models.Obligation, bool) {
	n := len(obligations)

	// sums[mask] builds incrementally from the mask with its lowest bit cleared
	sums := make([]decimal.Decimal, 1<<uint(n))
	sums[0] = decimal.Zero

	matchMask := -1
	matches := 0

	for mask := 1; mask < 1<<uint(n); mask++ {
		low := mask & (-mask)
		sums[mask] = sums[mask^low].Add(obligations[bitIndex(low)].AmountDue)

		if models.AmountsWithinTolerance(sums[mask], target, ga.config.AmountTolerance) {
			matches++
			if matches > 1 {
				return nil, false
			}
			matchMask = mask
		}
	}

	if matches != 1 {
		return nil, false
	}

	var subset []*models.Obligation
	for i := 0; i < n; i++ {
		if matchMask&(1<<uint(i)) != 0 {
			subset = append(subset, obligations[i])
		}
	}
	return subset, true
}

// pairEntriesToObligations distributes the obligation linkage across the
// group's entries. Entries and obligations are walked in descending amount
// order and paired one-to-one where amounts agree within tolerance; entries
// left over keep the payer link without a specific obligation.
func pairEntriesToObligations(
	entries []*models.ExtractEntry,
	obligations []*models.Obligation,
	tolerance decimal.Decimal,
) map[string]string {
	sortedEntries := make([]*models.ExtractEntry, len(entries))
	copy(sortedEntries, entries)
	sort.SliceStable(sortedEntries, func(i, j int) bool {
		return sortedEntries[i].Amount.GreaterThan(sortedEntries[j].Amount)
	})

	sortedObligations := make([]*models.Obligation, len(obligations))
	copy(sortedObligations, obligations)
	sort.SliceStable(sortedObligations, func(i, j int) bool {
		return sortedObligations[i].AmountDue.GreaterThan(sortedObligations[j].AmountDue)
	})

	assignments := make(map[string]string, len(entries))
	used := make(map[string]bool, len(obligations))

	for _, entry := range sortedEntries {
		for _, obligation := range sortedObligations {
			if used[obligation.ID] {
				continue
			}
			if models.AmountsWithinTolerance(entry.Amount, obligation.AmountDue, tolerance) {
				assignments[entry.ID] = obligation.ID
				used[obligation.ID] = true
				break
			}
		}
	}

	return assignments
}

func openObligations(obligations []*models.Obligation, consumed map[string]bool) []*models.Obligation {
	var open []*models.Obligation
	for _, obligation := range obligations {
		if obligation.IsOpen() && !consumed[obligation.ID] {
			open = append(open, obligation)
		}
	}
	return open
}

func bitIndex(bit int) int {
	index := 0
	for bit > 1 {
		bit >>= 1
		index++
	}
	return index
}
