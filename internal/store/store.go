// Package store defines the narrow collaborator interfaces through which the
// reconciliation engine reads and writes records, together with two
// implementations: an in-memory store used for file-based runs and tests, and
// a SQLite store for a persistent ledger.
//
// The engine never talks to a store directly; the runner receives a
// Repository and is therefore testable with fakes and independent of where
// the records actually live.
package store

import (
	"context"
	"fmt"
	"strings"

	"transfer-reconciliation-service/internal/models"

	"github.com/google/uuid"
)

// ExtractSource provides read access to extract entries and the single
// mutation the engine performs: marking an entry resolved.
type ExtractSource interface {
	// ListEntries returns every extract entry in stable insertion order
	ListEntries(ctx context.Context) ([]*models.ExtractEntry, error)

	// ListUnresolvedEntries returns entries still awaiting attribution
	ListUnresolvedEntries(ctx context.Context) ([]*models.ExtractEntry, error)

	// MarkResolved links an entry to a payer and optionally an obligation
	MarkResolved(ctx context.Context, entryID, payerID, obligationID string, score float64) error

	// MarkAmbiguous flags an entry that needs operator review
	MarkAmbiguous(ctx context.Context, entryID string) error
}

// Directory provides read access to the payer and obligation registry
type Directory interface {
	// ListPayers returns every registered payer in stable insertion order
	ListPayers(ctx context.Context) ([]*models.Payer, error)

	// ListObligations returns obligations, optionally filtered by payer;
	// an empty payerID returns all
	ListObligations(ctx context.Context, payerID string) ([]*models.Obligation, error)
}

// Repository combines both collaborator interfaces behind one handle
type Repository interface {
	ExtractSource
	Directory
	Close() error
}

// NewRecordID generates a prefixed record identifier, e.g. ENT_3F6A9B2C
func NewRecordID(prefix string) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s_%s", prefix, raw[:8])
}

// Record ID prefixes
const (
	EntryIDPrefix      = "ENT"
	PayerIDPrefix      = "PAY"
	ObligationIDPrefix = "OBL"
)
