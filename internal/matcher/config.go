// Package matcher implements the candidate-matching core of the
// reconciliation engine: hard-constraint filtering, similarity ranking with
// deterministic tie-breaking, and same-group aggregation for payments split
// across several transfers.
//
// The pipeline runs in a fixed order for every extract entry:
//  1. Constraint filtering narrows payer/obligation pairs by date and amount
//  2. Similarity scoring ranks the surviving candidates by sender name
//  3. The resolver picks at most one match or declares the entry unresolved
//  4. The grouping aggregator retries entries the resolver could not settle,
//     matching aggregate amounts per payer and date
//
// Example usage:
//
//	cfg := matcher.DefaultConfig()
//	cm := matcher.NewConstraintMatcher(cfg)
//	resolver := matcher.NewResolver(cfg)
//
//	candidates := cm.CandidatesFor(entry, entryName, payers, obligations, idx)
//	outcome := resolver.Resolve(candidates)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tunable parameters of the matching pipeline. The threshold
// and tolerance values are deliberately configuration, not constants: the
// acceptance policies in use before this engine disagreed with each other, and
// operators need to tune them without a rebuild.
type Config struct {
	// AcceptanceThreshold is the minimum name similarity for a match
	AcceptanceThreshold float64 `json:"acceptance_threshold"`

	// AmountTolerance is the absolute amount tolerance in currency units.
	// Always absolute, never a percentage: rounding errors live in minor units.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// RequireDateMatch requires the obligation due date to fall on the same
	// calendar day as the transfer
	RequireDateMatch bool `json:"require_date_match"`

	// MaxGroupObligations bounds the subset search during group aggregation;
	// a payer with more open obligations than this is never group-resolved
	MaxGroupObligations int `json:"max_group_obligations"`
}

// DefaultConfig returns the reference matching policy
func DefaultConfig() *Config {
	return &Config{
		AcceptanceThreshold: 0.7,
		AmountTolerance:     decimal.NewFromFloat(0.01),
		RequireDateMatch:    true,
		MaxGroupObligations: 16,
	}
}

// StrictConfig returns a policy with a higher acceptance bar, for runs where
// a missed match is preferable to a wrong one
func StrictConfig() *Config {
	return &Config{
		AcceptanceThreshold: 0.8,
		AmountTolerance:     decimal.NewFromFloat(0.01),
		RequireDateMatch:    true,
		MaxGroupObligations: 12,
	}
}

// RelaxedConfig returns a policy for exploratory runs over dirty data
func RelaxedConfig() *Config {
	return &Config{
		AcceptanceThreshold: 0.6,
		AmountTolerance:     decimal.NewFromFloat(0.05),
		RequireDateMatch:    false,
		MaxGroupObligations: 20,
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.AcceptanceThreshold < 0.0 || c.AcceptanceThreshold > 1.0 {
		return fmt.Errorf("acceptance threshold must be between 0.0 and 1.0: %f", c.AcceptanceThreshold)
	}

	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance.String())
	}

	if c.MaxGroupObligations <= 0 {
		return fmt.Errorf("max group obligations must be positive: %d", c.MaxGroupObligations)
	}

	if c.MaxGroupObligations > 24 {
		return fmt.Errorf("max group obligations above 24 makes the subset search intractable: %d", c.MaxGroupObligations)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Threshold: %.2f, AmountTolerance: %s, RequireDateMatch: %t, MaxGroupObligations: %d}",
		c.AcceptanceThreshold, c.AmountTolerance.String(), c.RequireDateMatch, c.MaxGroupObligations)
}
