package store

import (
	"context"
	"fmt"
	"sync"

	"transfer-reconciliation-service/internal/models"
)

// MemoryStore is an in-memory Repository. It backs file-based reconciliation
// runs, where the sources are parsed CSV files, and serves as the fake for
// engine tests. Access is serialized with a mutex even though the engine is
// single-threaded, so the store stays safe if a caller ever shares it.
type MemoryStore struct {
	mu          sync.Mutex
	entries     []*models.ExtractEntry
	payers      []*models.Payer
	obligations []*models.Obligation
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddEntry inserts an extract entry, generating an identifier when missing
func (s *MemoryStore) AddEntry(entry *models.ExtractEntry) error {
	if entry.ID == "" {
		entry.ID = NewRecordID(EntryIDPrefix)
	}
	if entry.Status == "" {
		entry.Status = models.StatusUnresolved
	}

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid extract entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// AddPayer inserts a payer, generating an identifier when missing
func (s *MemoryStore) AddPayer(payer *models.Payer) error {
	if payer.ID == "" {
		payer.ID = NewRecordID(PayerIDPrefix)
	}

	if err := payer.Validate(); err != nil {
		return fmt.Errorf("invalid payer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payers = append(s.payers, payer)
	return nil
}

// AddObligation inserts an obligation, generating an identifier when missing
func (s *MemoryStore) AddObligation(obligation *models.Obligation) error {
	if obligation.ID == "" {
		obligation.ID = NewRecordID(ObligationIDPrefix)
	}
	if obligation.Status == "" {
		obligation.Status = models.SettlementOpen
	}

	if err := obligation.Validate(); err != nil {
		return fmt.Errorf("invalid obligation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations = append(s.obligations, obligation)
	return nil
}

// ListEntries returns every extract entry in insertion order
func (s *MemoryStore) ListEntries(ctx context.Context) ([]*models.ExtractEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*models.ExtractEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	return entries, nil
}

// ListUnresolvedEntries returns entries still awaiting attribution
func (s *MemoryStore) ListUnresolvedEntries(ctx context.Context) ([]*models.ExtractEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.ExtractEntry
	for _, entry := range s.entries {
		if entry.Status != models.StatusResolved {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

// MarkResolved links an entry to a payer and optionally an obligation
func (s *MemoryStore) MarkResolved(ctx context.Context, entryID, payerID, obligationID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.findEntry(entryID)
	if entry == nil {
		return fmt.Errorf("extract entry not found: %s", entryID)
	}

	entry.Status = models.StatusResolved
	entry.PayerID = payerID
	entry.ObligationID = obligationID
	return nil
}

// MarkAmbiguous flags an entry that needs operator review
func (s *MemoryStore) MarkAmbiguous(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.findEntry(entryID)
	if entry == nil {
		return fmt.Errorf("extract entry not found: %s", entryID)
	}

	entry.Status = models.StatusAmbiguous
	return nil
}

// ListPayers returns every registered payer in insertion order
func (s *MemoryStore) ListPayers(ctx context.Context) ([]*models.Payer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payers := make([]*models.Payer, 0, len(s.payers))
	for _, payer := range s.payers {
		copied := *payer
		payers = append(payers, &copied)
	}
	return payers, nil
}

// ListObligations returns obligations, optionally filtered by payer
func (s *MemoryStore) ListObligations(ctx context.Context, payerID string) ([]*models.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var obligations []*models.Obligation
	for _, obligation := range s.obligations {
		if payerID != "" && obligation.PayerID != payerID {
			continue
		}
		copied := *obligation
		obligations = append(obligations, &copied)
	}
	return obligations, nil
}

// Close releases nothing for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) findEntry(entryID string) *models.ExtractEntry {
	for _, entry := range s.entries {
		if entry.ID == entryID {
			return entry
		}
	}
	return nil
}
