/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists the directory (clients, projects), the ledger and issued
  invoices. The engine itself never sees this package; billing.Service
  loads a snapshot from it and saves what the engine builds.

KEY TABLES:
  clients:        billed customers
  projects:       client projects with their fallback hourly rate
  ledger_entries: one row per entry; the type-specific payload is JSON
  invoices:       issued invoices; line items are JSON, frozen at issue

INVOICE NUMBERS:
  idx_invoices_number is UNIQUE. An insert that collides returns
  billing.ErrDuplicateInvoiceNumber so the service can renumber. A reused
  id returns billing.ErrDuplicateInvoiceID instead.

IMMUTABILITY:
  Invoices are inserted once. The only UPDATE on the invoices table
  touches status.

MONEY:
  Amounts are stored as decimal strings, never REAL, so values read back
  are exactly what was written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL so
  readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := billing.NewService(store, engine, log)

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		contact_person TEXT,
		email TEXT,
		phone TEXT,
		default_rate TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at TEXT NOT NULL
	);

	-- No foreign key to clients: deleting a client leaves its projects
	-- and entries in place, they show up as Unassigned.
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		client_id TEXT NOT NULL,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		start_date TEXT,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_client
		ON projects(client_id);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT,
		entry_type TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_project_date
		ON ledger_entries(project_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_created
		ON ledger_entries(created_at DESC);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL,
		client_id TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		terms TEXT NOT NULL,
		items_json TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number
		ON invoices(invoice_number);
	CREATE INDEX IF NOT EXISTS idx_invoices_client
		ON invoices(client_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLIENTS
// =============================================================================

const clientColumns = "id, name, address, contact_person, email, phone, default_rate, status, created_at"

// SaveClient inserts or updates a client.
func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			contact_person = excluded.contact_person,
			email = excluded.email,
			phone = excluded.phone,
			default_rate = excluded.default_rate,
			status = excluded.status
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, nullString(c.Address), nullString(c.ContactPerson),
		nullString(c.Email), nullString(c.Phone), c.DefaultRate.String(),
		defaultString(string(c.Status), string(billing.ClientActive)), formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client. Its projects are kept.
func (s *Store) DeleteClient(ctx context.Context, id billing.ClientID) error {
	return s.deleteByID(ctx, "clients", string(id), billing.ErrClientNotFound)
}

func scanClient(sc scanner) (billing.Client, error) {
	var c billing.Client
	var address, contact, email, phone sql.NullString
	var rate, createdAt string
	if err := sc.Scan(&c.ID, &c.Name, &address, &contact, &email, &phone, &rate, &c.Status, &createdAt); err != nil {
		return c, err
	}
	c.Address, c.ContactPerson, c.Email, c.Phone = address.String, contact.String, email.String, phone.String
	c.DefaultRate = parseDecimal(rate)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

const projectColumns = "id, name, client_id, hourly_rate, start_date, status, created_at"

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p billing.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			client_id = excluded.client_id,
			hourly_rate = excluded.hourly_rate,
			start_date = excluded.start_date,
			status = excluded.status
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.ClientID, p.HourlyRate.String(), nullString(string(p.StartDate)),
		defaultString(string(p.Status), string(billing.ProjectActive)), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id billing.ProjectID) (*billing.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]billing.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []billing.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project. Its ledger entries are kept.
func (s *Store) DeleteProject(ctx context.Context, id billing.ProjectID) error {
	return s.deleteByID(ctx, "projects", string(id), billing.ErrProjectNotFound)
}

func scanProject(sc scanner) (billing.Project, error) {
	var p billing.Project
	var start sql.NullString
	var rate, createdAt string
	if err := sc.Scan(&p.ID, &p.Name, &p.ClientID, &rate, &start, &p.Status, &createdAt); err != nil {
		return p, err
	}
	p.HourlyRate = parseDecimal(rate)
	p.StartDate = billing.Date(start.String)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

const entryColumns = "id, project_id, date, description, entry_type, payload_json, payment_status, created_at"

// SaveEntry inserts or updates a ledger entry.
func (s *Store) SaveEntry(ctx context.Context, e billing.LedgerEntry) error {
	payload, err := billing.EncodePayload(e.Payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			date = excluded.date,
			description = excluded.description,
			entry_type = excluded.entry_type,
			payload_json = excluded.payload_json,
			payment_status = excluded.payment_status
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.ProjectID, string(e.Date), nullString(e.Description), string(e.Type()), string(payload),
		defaultString(string(e.PaymentStatus), string(billing.PaymentPending)), formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a ledger entry by ID.
func (s *Store) GetEntry(ctx context.Context, id billing.EntryID) (*billing.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns every entry, newest first.
func (s *Store) ListEntries(ctx context.Context) ([]billing.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []billing.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes a ledger entry.
func (s *Store) DeleteEntry(ctx context.Context, id billing.EntryID) error {
	return s.deleteByID(ctx, "ledger_entries", string(id), billing.ErrEntryNotFound)
}

func scanEntry(sc scanner) (billing.LedgerEntry, error) {
	var e billing.LedgerEntry
	var desc sql.NullString
	var entryType, payload, date, createdAt string
	if err := sc.Scan(&e.ID, &e.ProjectID, &date, &desc, &entryType, &payload, &e.PaymentStatus, &createdAt); err != nil {
		return e, err
	}
	p, err := billing.DecodePayload(billing.EntryType(entryType), []byte(payload))
	if err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Payload = p
	e.Date = billing.Date(date)
	e.Description = desc.String
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// INVOICES
// =============================================================================

const invoiceColumns = "id, invoice_number, client_id, issue_date, due_date, terms, items_json, subtotal, tax, total, status, created_at"

// SaveInvoice inserts a new invoice. It never overwrites an existing one.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	items, err := billing.EncodeLineItems(inv.Items)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.ClientID, string(inv.IssueDate), string(inv.DueDate), string(inv.Terms),
		string(items), inv.Subtotal.String(), inv.Tax.String(), inv.Total.String(),
		string(inv.Status), formatTime(inv.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return invoiceConflict(err)
		}
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID.
func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, billing.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvoices returns a client's invoices newest first, or all invoices
// when clientID is empty.
func (s *Store) ListInvoices(ctx context.Context, clientID billing.ClientID) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + invoiceColumns + " FROM invoices"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC, invoice_number DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoiceStatus sets an invoice's status. Transition rules are the
// caller's concern.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id billing.InvoiceID, status billing.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE invoices SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

func scanInvoice(sc scanner) (billing.Invoice, error) {
	var inv billing.Invoice
	var issue, due, terms, items, subtotal, tax, total, createdAt string
	err := sc.Scan(&inv.ID, &inv.Number, &inv.ClientID, &issue, &due, &terms, &items,
		&subtotal, &tax, &total, &inv.Status, &createdAt)
	if err != nil {
		return inv, err
	}
	inv.Items, err = billing.DecodeLineItems([]byte(items))
	if err != nil {
		return inv, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	inv.IssueDate, inv.DueDate = billing.Date(issue), billing.Date(due)
	inv.Terms = billing.Terms(terms)
	inv.Subtotal, inv.Tax, inv.Total = parseDecimal(subtotal), parseDecimal(tax), parseDecimal(total)
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"invoices", "ledger_entries", "projects", "clients"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string, notFound error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// timeLayout is fixed width so that ORDER BY created_at sorts by time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// invoiceConflict tells a reused invoice id apart from a taken number.
func invoiceConflict(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return billing.ErrDuplicateInvoiceID
	}
	if strings.Contains(err.Error(), "invoices.id") {
		return billing.ErrDuplicateInvoiceID
	}
	return billing.ErrDuplicateInvoiceNumber
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
