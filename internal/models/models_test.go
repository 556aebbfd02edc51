package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testDate() time.Time {
	return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
}

func TestExtractEntryValidate(t *testing.T) {
	tests := []struct {
		name      string
		entry     *ExtractEntry
		expectErr bool
	}{
		{
			name:      "valid entry",
			entry:     NewExtractEntry("ENT_1", "João Silva", decimal.NewFromFloat(350.00), testDate()),
			expectErr: false,
		},
		{
			name:      "empty ID",
			entry:     NewExtractEntry("", "João Silva", decimal.NewFromFloat(350.00), testDate()),
			expectErr: true,
		},
		{
			name:      "zero amount",
			entry:     NewExtractEntry("ENT_1", "João Silva", decimal.Zero, testDate()),
			expectErr: true,
		},
		{
			name:      "negative amount",
			entry:     NewExtractEntry("ENT_1", "João Silva", decimal.NewFromFloat(-10), testDate()),
			expectErr: true,
		},
		{
			name:      "zero date",
			entry:     NewExtractEntry("ENT_1", "João Silva", decimal.NewFromFloat(350.00), time.Time{}),
			expectErr: true,
		},
		{
			name: "invalid status",
			entry: &ExtractEntry{
				ID:         "ENT_1",
				SenderName: "João Silva",
				Amount:     decimal.NewFromFloat(350.00),
				Date:       testDate(),
				Status:     ResolutionStatus("bogus"),
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestParseResolutionStatus(t *testing.T) {
	tests := []struct {
		input     string
		expected  ResolutionStatus
		expectErr bool
	}{
		{"unresolved", StatusUnresolved, false},
		{"RESOLVED", StatusResolved, false},
		{"  ambiguous  ", StatusAmbiguous, false},
		{"new", StatusUnresolved, false},
		{"linked", StatusResolved, false},
		{"", StatusUnresolved, false},
		{"settled", "", true},
	}

	for _, tt := range tests {
		status, err := ParseResolutionStatus(tt.input)
		if tt.expectErr {
			if err == nil {
				t.Errorf("ParseResolutionStatus(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseResolutionStatus(%q): unexpected error %v", tt.input, err)
			continue
		}
		if status != tt.expected {
			t.Errorf("ParseResolutionStatus(%q) = %s, expected %s", tt.input, status, tt.expected)
		}
	}
}

func TestObligationValidate(t *testing.T) {
	valid := NewObligation("OBL_1", "PAY_1", decimal.NewFromFloat(350.00), "2024-01", testDate())
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
	if !valid.IsOpen() {
		t.Error("new obligation should be open")
	}

	missingPayer := NewObligation("OBL_1", "", decimal.NewFromFloat(350.00), "2024-01", testDate())
	if err := missingPayer.Validate(); err == nil {
		t.Error("expected validation error for missing payer ID")
	}

	settled := NewObligation("OBL_1", "PAY_1", decimal.NewFromFloat(350.00), "2024-01", testDate())
	settled.Status = SettlementSettled
	if settled.IsOpen() {
		t.Error("settled obligation should not be open")
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input     string
		expected  string
		expectErr bool
	}{
		{"350.00", "350", false},
		{"R$ 350,00", "350", false},
		{"1.234,56", "1234.56", false},
		{"1234,56", "1234.56", false},
		{"$ 99.90", "99.9", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		result, err := ParseDecimalFromString(tt.input)
		if tt.expectErr {
			if err == nil {
				t.Errorf("ParseDecimalFromString(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalFromString(%q): unexpected error %v", tt.input, err)
			continue
		}
		if result.String() != tt.expected {
			t.Errorf("ParseDecimalFromString(%q) = %s, expected %s", tt.input, result.String(), tt.expected)
		}
	}
}

func TestParseDateWithFormats(t *testing.T) {
	inputs := []string{
		"2024-01-15",
		"15/01/2024",
		"2024/01/15",
		"2024-01-15 10:30:00",
	}

	for _, input := range inputs {
		parsed, err := ParseDateWithFormats(input)
		if err != nil {
			t.Errorf("ParseDateWithFormats(%q): unexpected error %v", input, err)
			continue
		}
		if parsed.Year() != 2024 || parsed.Month() != time.January || parsed.Day() != 15 {
			t.Errorf("ParseDateWithFormats(%q) = %s, expected 2024-01-15", input, parsed)
		}
	}

	if _, err := ParseDateWithFormats("not-a-date"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestAmountsWithinTolerance(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	tests := []struct {
		name     string
		a        float64
		b        float64
		expected bool
	}{
		{"exact match", 350.00, 350.00, true},
		{"sub-cent difference", 350.000, 350.005, true},
		{"exactly one cent apart is outside", 750.00, 749.99, false},
		{"two cents apart", 350.00, 350.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountsWithinTolerance(decimal.NewFromFloat(tt.a), decimal.NewFromFloat(tt.b), tolerance)
			if got != tt.expected {
				t.Errorf("AmountsWithinTolerance(%.3f, %.3f) = %t, expected %t", tt.a, tt.b, got, tt.expected)
			}
		})
	}

	// Zero tolerance still accepts exact equality
	if !AmountsWithinTolerance(decimal.NewFromFloat(100), decimal.NewFromFloat(100), decimal.Zero) {
		t.Error("equal amounts should match under zero tolerance")
	}
}

func TestSameCalendarDay(t *testing.T) {
	morning := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 15, 22, 30, 0, 0, time.UTC)
	nextDay := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	if !SameCalendarDay(morning, evening) {
		t.Error("same day with different times should match")
	}
	if SameCalendarDay(evening, nextDay) {
		t.Error("different days should not match")
	}
}

func TestExtractEntryJSONRoundTrip(t *testing.T) {
	entry := NewExtractEntry("ENT_1", "João Silva", decimal.NewFromFloat(350.00), testDate())

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ExtractEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.ID != entry.ID || decoded.SenderName != entry.SenderName {
		t.Error("identity fields did not survive the round trip")
	}
	if !decoded.Amount.Equal(entry.Amount) {
		t.Errorf("amount %s != %s", decoded.Amount, entry.Amount)
	}
	if !SameCalendarDay(decoded.Date, entry.Date) {
		t.Errorf("date %s != %s", decoded.Date, entry.Date)
	}
	if decoded.Status != StatusUnresolved {
		t.Errorf("status = %s, expected unresolved", decoded.Status)
	}
}
