package matcher

import (
	"testing"
	"time"

	"transfer-reconciliation-service/internal/models"
	"transfer-reconciliation-service/internal/names"

	"github.com/shopspring/decimal"
)

func testDate() time.Time {
	return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
}

func testEntry(id, sender string, amount float64) *models.ExtractEntry {
	return models.NewExtractEntry(id, sender, decimal.NewFromFloat(amount), testDate())
}

func testObligation(id, payerID string, amount float64) *models.Obligation {
	return models.NewObligation(id, payerID, decimal.NewFromFloat(amount), "2024-01", testDate())
}

func buildIndex(payers []*models.Payer, entries ...*models.ExtractEntry) NameIndex {
	idx := make(NameIndex)
	for _, payer := range payers {
		idx[payer.ID] = names.Normalize(payer.Name)
	}
	for _, entry := range entries {
		idx[entry.ID] = names.Normalize(entry.SenderName)
	}
	return idx
}

func TestNewConstraintMatcherDefaults(t *testing.T) {
	cm := NewConstraintMatcher(nil)
	if cm.config == nil {
		t.Fatal("expected default config to be set")
	}
	if cm.config.AcceptanceThreshold != 0.7 {
		t.Errorf("default threshold = %f, expected 0.7", cm.config.AcceptanceThreshold)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"strict is valid", func(c *Config) { *c = *StrictConfig() }, false},
		{"relaxed is valid", func(c *Config) { *c = *RelaxedConfig() }, false},
		{"threshold above one", func(c *Config) { c.AcceptanceThreshold = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.AcceptanceThreshold = -0.1 }, true},
		{"negative tolerance", func(c *Config) { c.AmountTolerance = decimal.NewFromFloat(-0.01) }, true},
		{"zero group bound", func(c *Config) { c.MaxGroupObligations = 0 }, true},
		{"intractable group bound", func(c *Config) { c.MaxGroupObligations = 30 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestPassesConstraints(t *testing.T) {
	cm := NewConstraintMatcher(DefaultConfig())
	entry := testEntry("ENT_1", "João Silva", 350.00)

	tests := []struct {
		name       string
		obligation *models.Obligation
		expected   bool
	}{
		{
			name:       "exact amount and date",
			obligation: testObligation("OBL_1", "PAY_1", 350.00),
			expected:   true,
		},
		{
			name:       "amount off by two cents",
			obligation: testObligation("OBL_2", "PAY_1", 350.02),
			expected:   false,
		},
		{
			name: "wrong due date",
			obligation: models.NewObligation("OBL_3", "PAY_1", decimal.NewFromFloat(350.00), "2024-01",
				time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)),
			expected: false,
		},
		{
			name: "settled obligation",
			obligation: func() *models.Obligation {
				o := testObligation("OBL_4", "PAY_1", 350.00)
				o.Status = models.SettlementSettled
				return o
			}(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cm.PassesConstraints(entry, tt.obligation); got != tt.expected {
				t.Errorf("PassesConstraints = %t, expected %t", got, tt.expected)
			}
		})
	}
}

func TestPassesConstraintsWithoutDateRequirement(t *testing.T) {
	config := DefaultConfig()
	config.RequireDateMatch = false
	cm := NewConstraintMatcher(config)

	entry := testEntry("ENT_1", "João Silva", 350.00)
	obligation := models.NewObligation("OBL_1", "PAY_1", decimal.NewFromFloat(350.00), "2024-01",
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	if !cm.PassesConstraints(entry, obligation) {
		t.Error("date mismatch should pass when date matching is disabled")
	}
}

func TestCandidatesForFilterCorrectness(t *testing.T) {
	cm := NewConstraintMatcher(DefaultConfig())

	payers := []*models.Payer{
		{ID: "PAY_1", Name: "João da Silva"},
		{ID: "PAY_2", Name: "Maria Souza"},
	}
	obligations := map[string][]*models.Obligation{
		"PAY_1": {
			testObligation("OBL_1", "PAY_1", 350.00),
			testObligation("OBL_2", "PAY_1", 500.00), // amount mismatch
		},
		"PAY_2": {
			testObligation("OBL_3", "PAY_2", 350.00),
		},
	}

	entry := testEntry("ENT_1", "João Silva", 350.00)
	idx := buildIndex(payers, entry)

	candidates := cm.CandidatesFor(entry, idx["ENT_1"], payers, obligations, idx)

	for _, candidate := range candidates {
		if candidate.Obligation.ID == "OBL_2" {
			t.Error("constraint-failing obligation appeared in the candidate set")
		}
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	// Candidate order follows the caller's payer order
	if candidates[0].Order >= candidates[1].Order {
		t.Error("candidate order is not stable")
	}
}

func TestCandidatesForHonorsPayerHint(t *testing.T) {
	cm := NewConstraintMatcher(DefaultConfig())

	payers := []*models.Payer{
		{ID: "PAY_1", Name: "João da Silva"},
		{ID: "PAY_2", Name: "João Silva"},
	}
	obligations := map[string][]*models.Obligation{
		"PAY_1": {testObligation("OBL_1", "PAY_1", 350.00)},
		"PAY_2": {testObligation("OBL_2", "PAY_2", 350.00)},
	}

	entry := testEntry("ENT_1", "João Silva", 350.00)
	entry.PayerID = "PAY_2"
	idx := buildIndex(payers, entry)

	candidates := cm.CandidatesFor(entry, idx["ENT_1"], payers, obligations, idx)

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate with payer hint, got %d", len(candidates))
	}
	if candidates[0].Payer.ID != "PAY_2" {
		t.Errorf("candidate payer = %s, expected PAY_2", candidates[0].Payer.ID)
	}
}

func TestResolveSingleMatch(t *testing.T) {
	// One entry of 350.00 with exactly one pair matching date and amount at
	// high similarity resolves to Matched
	cm := NewConstraintMatcher(DefaultConfig())
	resolver := NewResolver(DefaultConfig())

	payers := []*models.Payer{{ID: "PAY_1", Name: "João da Silva"}}
	obligations := map[string][]*models.Obligation{
		"PAY_1": {testObligation("OBL_1", "PAY_1", 350.00)},
	}

	entry := testEntry("ENT_1", "João Silva", 350.00)
	idx := buildIndex(payers, entry)

	outcome := resolver.Resolve(cm.CandidatesFor(entry, idx["ENT_1"], payers, obligations, idx))

	if outcome.Kind != OutcomeMatched {
		t.Fatalf("outcome = %s, expected matched", outcome.Kind)
	}
	if outcome.PayerID != "PAY_1" || outcome.ObligationID != "OBL_1" {
		t.Errorf("matched %s/%s, expected PAY_1/OBL_1", outcome.PayerID, outcome.ObligationID)
	}
	if outcome.Score < 0.7 {
		t.Errorf("score = %f, expected at least the acceptance threshold", outcome.Score)
	}
}

func TestResolveNoCandidates(t *testing.T) {
	resolver := NewResolver(DefaultConfig())

	outcome := resolver.Resolve(nil)
	if outcome.Kind != OutcomeUnresolved || outcome.Reason != ReasonNoCandidate {
		t.Errorf("outcome = %s/%s, expected unresolved/no-candidate", outcome.Kind, outcome.Reason)
	}
}

func TestResolveLowSimilarity(t *testing.T) {
	resolver := NewResolver(DefaultConfig())

	candidates := []*Candidate{
		{Payer: &models.Payer{ID: "PAY_1", Name: "Beatriz Rocha"}, Similarity: 0.3},
	}

	outcome := resolver.Resolve(candidates)
	if outcome.Kind != OutcomeUnresolved || outcome.Reason != ReasonLowSimilarity {
		t.Errorf("outcome = %s/%s, expected unresolved/low-similarity", outcome.Kind, outcome.Reason)
	}
}

func TestResolveConfirmedTieBreak(t *testing.T) {
	// Two equally scoring candidates; the confirmed payer wins
	resolver := NewResolver(DefaultConfig())

	candidates := []*Candidate{
		{Payer: &models.Payer{ID: "PAY_1", Name: "João Silva"}, Similarity: 0.95, Order: 0},
		{Payer: &models.Payer{ID: "PAY_2", Name: "João Silva", Confirmed: true}, Similarity: 0.95, Order: 1},
	}

	outcome := resolver.Resolve(candidates)
	if outcome.Kind != OutcomeMatched {
		t.Fatalf("outcome = %s, expected matched", outcome.Kind)
	}
	if outcome.PayerID != "PAY_2" {
		t.Errorf("matched payer = %s, expected confirmed PAY_2", outcome.PayerID)
	}
	if outcome.TieBreak != "confirmed-payer" {
		t.Errorf("tie-break = %q, expected confirmed-payer", outcome.TieBreak)
	}
}

func TestResolveHigherSimilarityTieBreak(t *testing.T) {
	resolver := NewResolver(DefaultConfig())

	candidates := []*Candidate{
		{Payer: &models.Payer{ID: "PAY_1", Name: "João Silva"}, Similarity: 0.80, Order: 0},
		{Payer: &models.Payer{ID: "PAY_2", Name: "João da Silva"}, Similarity: 0.95, Order: 1},
	}

	outcome := resolver.Resolve(candidates)
	if outcome.Kind != OutcomeMatched || outcome.PayerID != "PAY_2" {
		t.Fatalf("expected PAY_2 to win on similarity, got %s", outcome.String())
	}
	if outcome.TieBreak != "higher-similarity" {
		t.Errorf("tie-break = %q, expected higher-similarity", outcome.TieBreak)
	}
}

func TestResolveStableOrderWithinPayer(t *testing.T) {
	// Two obligations of the same payer tie on every rule; the first in the
	// caller's order wins and the tie is reported
	resolver := NewResolver(DefaultConfig())
	payer := &models.Payer{ID: "PAY_1", Name: "João Silva", Confirmed: true}

	candidates := []*Candidate{
		{Payer: payer, Obligation: testObligation("OBL_1", "PAY_1", 350.00), Similarity: 0.95, Order: 0},
		{Payer: payer, Obligation: testObligation("OBL_2", "PAY_1", 350.00), Similarity: 0.95, Order: 1},
	}

	outcome := resolver.Resolve(candidates)
	if outcome.Kind != OutcomeMatched {
		t.Fatalf("outcome = %s, expected matched", outcome.Kind)
	}
	if outcome.ObligationID != "OBL_1" {
		t.Errorf("matched obligation = %s, expected first-in-order OBL_1", outcome.ObligationID)
	}
	if outcome.TieBreak != "stable-order" {
		t.Errorf("tie-break = %q, expected stable-order", outcome.TieBreak)
	}
}

func TestResolveAmbiguousAcrossPayers(t *testing.T) {
	// Distinct payers tied after every rule must surface as ambiguous instead
	// of being silently attributed
	resolver := NewResolver(DefaultConfig())

	candidates := []*Candidate{
		{Payer: &models.Payer{ID: "PAY_1", Name: "João Silva"}, Similarity: 0.95, Order: 0},
		{Payer: &models.Payer{ID: "PAY_2", Name: "João Silva"}, Similarity: 0.95, Order: 1},
	}

	outcome := resolver.Resolve(candidates)
	if outcome.Kind != OutcomeAmbiguous {
		t.Fatalf("outcome = %s, expected ambiguous", outcome.Kind)
	}
	if len(outcome.Candidates) != 2 {
		t.Errorf("ambiguous outcome carries %d candidates, expected 2", len(outcome.Candidates))
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.AcceptanceThreshold = 0.9
	if original.AcceptanceThreshold == 0.9 {
		t.Error("mutating the clone changed the original")
	}
}
