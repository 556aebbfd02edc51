package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ResolutionStatus represents the reconciliation state of an extract entry
type ResolutionStatus string

const (
	// StatusUnresolved marks an entry that has not been attributed to a payer yet
	StatusUnresolved ResolutionStatus = "unresolved"
	// StatusResolved marks an entry linked to a payer (and optionally an obligation)
	StatusResolved ResolutionStatus = "resolved"
	// StatusAmbiguous marks an entry with multiple equally plausible payers
	StatusAmbiguous ResolutionStatus = "ambiguous"
)

// String returns the string representation of ResolutionStatus
func (s ResolutionStatus) String() string {
	return string(s)
}

// IsValid checks if the resolution status is valid
func (s ResolutionStatus) IsValid() bool {
	return s == StatusUnresolved || s == StatusResolved || s == StatusAmbiguous
}

// ParseResolutionStatus parses and validates a resolution status from string
func ParseResolutionStatus(s string) (ResolutionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unresolved", "new", "":
		return StatusUnresolved, nil
	case "resolved", "linked":
		return StatusResolved, nil
	case "ambiguous":
		return StatusAmbiguous, nil
	default:
		return "", fmt.Errorf("invalid resolution status '%s': must be unresolved, resolved or ambiguous", s)
	}
}

// ExtractEntry represents one incoming bank transfer awaiting reconciliation.
// Entries are created by the import collaborator; the engine only ever updates
// their resolution status and back-references.
type ExtractEntry struct {
	ID           string           `json:"id" csv:"id"`
	SenderName   string           `json:"sender_name" csv:"sender_name"`
	Amount       decimal.Decimal  `json:"amount" csv:"amount"`
	Date         time.Time        `json:"date" csv:"date"`
	Status       ResolutionStatus `json:"status" csv:"status"`
	PayerID      string           `json:"payer_id,omitempty" csv:"payer_id"`
	ObligationID string           `json:"obligation_id,omitempty" csv:"obligation_id"`
}

// NewExtractEntry creates a new unresolved ExtractEntry
func NewExtractEntry(id, senderName string, amount decimal.Decimal, date time.Time) *ExtractEntry {
	return &ExtractEntry{
		ID:         id,
		SenderName: senderName,
		Amount:     amount,
		Date:       date,
		Status:     StatusUnresolved,
	}
}

// Validate performs basic validation on the ExtractEntry
func (e *ExtractEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("extract entry ID cannot be empty")
	}

	if !e.Amount.IsPositive() {
		return fmt.Errorf("extract entry amount must be positive, got %s", e.Amount.String())
	}

	if e.Date.IsZero() {
		return fmt.Errorf("extract entry date cannot be zero")
	}

	if !e.Status.IsValid() {
		return fmt.Errorf("invalid resolution status: %s", e.Status)
	}

	return nil
}

// IsResolved returns true if the entry has already been attributed
func (e *ExtractEntry) IsResolved() bool {
	return e.Status == StatusResolved
}

// String returns a string representation of the ExtractEntry
func (e *ExtractEntry) String() string {
	return fmt.Sprintf("ExtractEntry{ID: %s, Sender: %s, Amount: %s, Date: %s, Status: %s}",
		e.ID, e.SenderName, e.Amount.String(), e.Date.Format("2006-01-02"), e.Status)
}

// MarshalJSON implements custom JSON marshaling for ExtractEntry
func (e *ExtractEntry) MarshalJSON() ([]byte, error) {
	type Alias ExtractEntry
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: e.Amount.String(),
		Date:   e.Date.Format("2006-01-02"),
		Alias:  (*Alias)(e),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for ExtractEntry
func (e *ExtractEntry) UnmarshalJSON(data []byte) error {
	type Alias ExtractEntry
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	e.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	e.Date, err = ParseDateWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	if e.Status == "" {
		e.Status = StatusUnresolved
	}

	return nil
}

// Payer represents a registered responsible party who may owe obligations.
// Immutable from the engine's perspective.
type Payer struct {
	ID        string `json:"id" csv:"id"`
	Name      string `json:"name" csv:"name"`
	Document  string `json:"document,omitempty" csv:"document"`
	Confirmed bool   `json:"confirmed" csv:"confirmed"`
}

// NewPayer creates a new Payer instance
func NewPayer(id, name string) *Payer {
	return &Payer{
		ID:   id,
		Name: name,
	}
}

// Validate performs basic validation on the Payer
func (p *Payer) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("payer ID cannot be empty")
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("payer name cannot be empty")
	}

	return nil
}

// String returns a string representation of the Payer
func (p *Payer) String() string {
	return fmt.Sprintf("Payer{ID: %s, Name: %s, Confirmed: %t}", p.ID, p.Name, p.Confirmed)
}

// SettlementStatus represents the payment state of an obligation
type SettlementStatus string

const (
	// SettlementOpen marks an obligation still awaiting payment
	SettlementOpen SettlementStatus = "open"
	// SettlementSettled marks an obligation covered by one or more transfers
	SettlementSettled SettlementStatus = "settled"
	// SettlementCancelled marks an obligation voided by the operator
	SettlementCancelled SettlementStatus = "cancelled"
)

// IsValid checks if the settlement status is valid
func (s SettlementStatus) IsValid() bool {
	return s == SettlementOpen || s == SettlementSettled || s == SettlementCancelled
}

// Obligation represents an amount owed by a payer for a reference period
type Obligation struct {
	ID        string           `json:"id" csv:"id"`
	PayerID   string           `json:"payer_id" csv:"payer_id"`
	AmountDue decimal.Decimal  `json:"amount_due" csv:"amount_due"`
	Period    string           `json:"period" csv:"period"`
	DueDate   time.Time        `json:"due_date" csv:"due_date"`
	Status    SettlementStatus `json:"status" csv:"status"`
}

// NewObligation creates a new open Obligation
func NewObligation(id, payerID string, amountDue decimal.Decimal, period string, dueDate time.Time) *Obligation {
	return &Obligation{
		ID:        id,
		PayerID:   payerID,
		AmountDue: amountDue,
		Period:    period,
		DueDate:   dueDate,
		Status:    SettlementOpen,
	}
}

// Validate performs basic validation on the Obligation
func (o *Obligation) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("obligation ID cannot be empty")
	}

	if strings.TrimSpace(o.PayerID) == "" {
		return fmt.Errorf("obligation payer ID cannot be empty")
	}

	if !o.AmountDue.IsPositive() {
		return fmt.Errorf("obligation amount due must be positive, got %s", o.AmountDue.String())
	}

	if !o.Status.IsValid() {
		return fmt.Errorf("invalid settlement status: %s", o.Status)
	}

	return nil
}

// IsOpen returns true if the obligation still awaits payment
func (o *Obligation) IsOpen() bool {
	return o.Status == SettlementOpen
}

// String returns a string representation of the Obligation
func (o *Obligation) String() string {
	return fmt.Sprintf("Obligation{ID: %s, Payer: %s, AmountDue: %s, Period: %s, Status: %s}",
		o.ID, o.PayerID, o.AmountDue.String(), o.Period, o.Status)
}

// Utility functions shared across the engine

// ParseDecimalFromString parses a decimal amount from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip currency symbols and thousand separators; accept both decimal conventions
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDateWithFormats attempts to parse a date from string using common formats
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"02/01/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// AmountsWithinTolerance compares two decimal amounts with an absolute
// tolerance. The comparison is strict: a difference of exactly the tolerance
// is outside it, so the default 0.01 accepts only cent-exact amounts.
func AmountsWithinTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.IsZero() || diff.LessThan(tolerance)
}

// SameCalendarDay checks whether two timestamps fall on the same calendar day
func SameCalendarDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
