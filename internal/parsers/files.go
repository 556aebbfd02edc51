package parsers

import (
	"strconv"
	"strings"

	"transfer-reconciliation-service/internal/models"
	"transfer-reconciliation-service/internal/store"
)

// ExtractParser reads bank extract entries from CSV
type ExtractParser struct {
	baseParser
}

// NewExtractParser creates an extract parser with the given configuration
func NewExtractParser(config *ParseConfig) *ExtractParser {
	return &ExtractParser{baseParser: newBaseParser(config, "extract_parser")}
}

// ParseFile parses the extract file and returns its entries.
//
// Expected columns: sender_name, amount, date. Optional: id, status,
// payer_id, obligation_id. Missing identifiers are generated.
func (p *ExtractParser) ParseFile(path string) ([]*models.ExtractEntry, *ParseStats, error) {
	var entries []*models.ExtractEntry
	stats := &ParseStats{}

	err := p.readRows(path, stats, func(line int, h header, record []string) error {
		sender, err := p.requireField(h, record, "sender_name", line)
		if err != nil {
			return err
		}

		amountRaw, err := p.requireField(h, record, "amount", line)
		if err != nil {
			return err
		}
		amount, err := models.ParseDecimalFromString(amountRaw)
		if err != nil {
			return &ParseError{Line: line, Field: "amount", Value: amountRaw, Message: "invalid amount", Err: err}
		}

		dateRaw, err := p.requireField(h, record, "date", line)
		if err != nil {
			return err
		}
		date, err := models.ParseDateWithFormats(dateRaw)
		if err != nil {
			return &ParseError{Line: line, Field: "date", Value: dateRaw, Message: "invalid date", Err: err}
		}

		status, err := models.ParseResolutionStatus(p.field(h, record, "status"))
		if err != nil {
			return &ParseError{Line: line, Field: "status", Value: p.field(h, record, "status"), Message: "invalid status", Err: err}
		}

		id := p.field(h, record, "id")
		if id == "" {
			id = store.NewRecordID(store.EntryIDPrefix)
		}

		entries = append(entries, &models.ExtractEntry{
			ID:           id,
			SenderName:   sender,
			Amount:       amount,
			Date:         date,
			Status:       status,
			PayerID:      p.field(h, record, "payer_id"),
			ObligationID: p.field(h, record, "obligation_id"),
		})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	return entries, stats, nil
}

// PayerParser reads registered payers from CSV
type PayerParser struct {
	baseParser
}

// NewPayerParser creates a payer parser with the given configuration
func NewPayerParser(config *ParseConfig) *PayerParser {
	return &PayerParser{baseParser: newBaseParser(config, "payer_parser")}
}

// ParseFile parses the payer file.
//
// Expected columns: name. Optional: id, document, confirmed.
func (p *PayerParser) ParseFile(path string) ([]*models.Payer, *ParseStats, error) {
	var payers []*models.Payer
	stats := &ParseStats{}

	err := p.readRows(path, stats, func(line int, h header, record []string) error {
		name, err := p.requireField(h, record, "name", line)
		if err != nil {
			return err
		}

		id := p.field(h, record, "id")
		if id == "" {
			id = store.NewRecordID(store.PayerIDPrefix)
		}

		payers = append(payers, &models.Payer{
			ID:        id,
			Name:      name,
			Document:  p.field(h, record, "document"),
			Confirmed: parseBool(p.field(h, record, "confirmed")),
		})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	return payers, stats, nil
}

// ObligationParser reads obligations from CSV
type ObligationParser struct {
	baseParser
}

// NewObligationParser creates an obligation parser with the given configuration
func NewObligationParser(config *ParseConfig) *ObligationParser {
	return &ObligationParser{baseParser: newBaseParser(config, "obligation_parser")}
}

// ParseFile parses the obligation file.
//
// Expected columns: payer_id, amount_due. Optional: id, period, due_date,
// status. Obligations without a status default to open.
func (p *ObligationParser) ParseFile(path string) ([]*models.Obligation, *ParseStats, error) {
	var obligations []*models.Obligation
	stats := &ParseStats{}

	err := p.readRows(path, stats, func(line int, h header, record []string) error {
		payerID, err := p.requireField(h, record, "payer_id", line)
		if err != nil {
			return err
		}

		amountRaw, err := p.requireField(h, record, "amount_due", line)
		if err != nil {
			return err
		}
		amount, err := models.ParseDecimalFromString(amountRaw)
		if err != nil {
			return &ParseError{Line: line, Field: "amount_due", Value: amountRaw, Message: "invalid amount", Err: err}
		}

		obligation := &models.Obligation{
			ID:        p.field(h, record, "id"),
			PayerID:   payerID,
			AmountDue: amount,
			Period:    p.field(h, record, "period"),
			Status:    models.SettlementOpen,
		}
		if obligation.ID == "" {
			obligation.ID = store.NewRecordID(store.ObligationIDPrefix)
		}

		if raw := p.field(h, record, "due_date"); raw != "" {
			obligation.DueDate, err = models.ParseDateWithFormats(raw)
			if err != nil {
				return &ParseError{Line: line, Field: "due_date", Value: raw, Message: "invalid date", Err: err}
			}
		}

		if raw := p.field(h, record, "status"); raw != "" {
			status := models.SettlementStatus(strings.ToLower(raw))
			if !status.IsValid() {
				return &ParseError{Line: line, Field: "status", Value: raw, Message: "invalid settlement status"}
			}
			obligation.Status = status
		}

		obligations = append(obligations, obligation)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	return obligations, stats, nil
}

// LoadFiles parses the three source files and loads them into a fresh
// in-memory store ready for a reconciliation run
func LoadFiles(extractPath, payersPath, obligationsPath string, config *ParseConfig) (*store.MemoryStore, error) {
	memory := store.NewMemoryStore()

	payers, _, err := NewPayerParser(config).ParseFile(payersPath)
	if err != nil {
		return nil, err
	}
	for _, payer := range payers {
		if err := memory.AddPayer(payer); err != nil {
			return nil, err
		}
	}

	obligations, _, err := NewObligationParser(config).ParseFile(obligationsPath)
	if err != nil {
		return nil, err
	}
	for _, obligation := range obligations {
		if err := memory.AddObligation(obligation); err != nil {
			return nil, err
		}
	}

	entries, _, err := NewExtractParser(config).ParseFile(extractPath)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := memory.AddEntry(entry); err != nil {
			return nil, err
		}
	}

	return memory, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "sim":
		return true
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return false
}
