/*
store.go - Persistence interface for the billing records

PURPOSE:
  Defines the boundary between the engine's callers and durable storage.
  The engine never touches a Store; the Service loads a Snapshot from it,
  runs the engine, and writes the resulting invoice back.

KEY INTERFACES:
  DirectoryStore: clients and projects (plain CRUD)
  LedgerStore:    ledger entries (plain CRUD)
  InvoiceStore:   invoices (insert once, then status only)
  Store:          all of the above

INVOICE IMMUTABILITY:
  SaveInvoice inserts; there is no method to rewrite an invoice's lines.
  UpdateInvoiceStatus is the only mutation.

NUMBER UNIQUENESS:
  SaveInvoice must return ErrDuplicateInvoiceNumber when the number is
  already taken. This is the guard against two issuers computing the same
  sequence number from stale histories. A reused invoice id is a
  different failure and returns ErrDuplicateInvoiceID.

NOT FOUND:
  Get* methods return the matching Err*NotFound sentinel.

IMPLEMENTATIONS:
  - billing/store/memory.go: in-memory, for tests and demo mode
  - store/sqlite/sqlite.go: SQLite
*/
package billing

import "context"

// DirectoryStore persists clients and projects.
type DirectoryStore interface {
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id ClientID) error

	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject does not cascade; the project's entries become
	// Unassigned.
	DeleteProject(ctx context.Context, id ProjectID) error
}

// LedgerStore persists ledger entries.
type LedgerStore interface {
	SaveEntry(ctx context.Context, e LedgerEntry) error
	GetEntry(ctx context.Context, id EntryID) (*LedgerEntry, error)
	// ListEntries returns entries newest first by creation time.
	ListEntries(ctx context.Context) ([]LedgerEntry, error)
	DeleteEntry(ctx context.Context, id EntryID) error
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	// ListInvoices returns the client's invoices, newest first. An empty
	// clientID lists every invoice.
	ListInvoices(ctx context.Context, clientID ClientID) ([]Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id InvoiceID, status InvoiceStatus) error
}

// Store is the full persistence collaborator.
type Store interface {
	DirectoryStore
	LedgerStore
	InvoiceStore
}

// LoadSnapshot reads everything the engine needs in one pass.
func LoadSnapshot(ctx context.Context, s Store) (Snapshot, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	invoices, err := s.ListInvoices(ctx, "")
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Clients: clients, Projects: projects, Entries: entries, Invoices: invoices}, nil
}
