package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultIssueAttempts bounds how often Issue renumbers after a collision.
const DefaultIssueAttempts = 3

// Recorder receives service events, e.g. for metrics.
type Recorder interface {
	PreviewBuilt()
	InvoiceIssued()
	NumberCollision()
}

type nopRecorder struct{}

func (nopRecorder) PreviewBuilt()    {}
func (nopRecorder) InvoiceIssued()   {}
func (nopRecorder) NumberCollision() {}

// Service drives the engine against a Store: it loads snapshots, builds
// invoices and persists them.
type Service struct {
	Store    Store
	Engine   Engine
	Log      *zap.Logger
	Recorder Recorder
	Clock    func() time.Time
	Attempts int
}

// NewService returns a Service with a system clock and no-op recorder.
func NewService(store Store, engine Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:    store,
		Engine:   engine,
		Log:      log,
		Recorder: nopRecorder{},
		Clock:    time.Now,
		Attempts: DefaultIssueAttempts,
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *Service) recorder() Recorder {
	if s.Recorder == nil {
		return nopRecorder{}
	}
	return s.Recorder
}

// NewID returns a fresh random identifier.
func NewID() string { return uuid.NewString() }

// =============================================================================
// INVOICES
// =============================================================================

// Snapshot reads the current books.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return LoadSnapshot(ctx, s.Store)
}

// Preview builds an invoice from the current books without saving it.
func (s *Service) Preview(ctx context.Context, req Request) (Preview, error) {
	snap, err := LoadSnapshot(ctx, s.Store)
	if err != nil {
		return Preview{}, fmt.Errorf("load snapshot: %w", err)
	}
	if req.Now.IsZero() {
		req.Now = s.now()
	}
	s.recorder().PreviewBuilt()
	return s.Engine.Build(snap, req), nil
}

// Issue builds and saves an invoice. If the number was taken in the
// meantime the books are reloaded and the invoice renumbered, up to
// Attempts times.
func (s *Service) Issue(ctx context.Context, req Request) (Preview, error) {
	if req.ClientID == "" {
		return Preview{}, ErrNoClient
	}
	if req.InvoiceID == "" {
		req.InvoiceID = InvoiceID(NewID())
	}
	if req.Now.IsZero() {
		req.Now = s.now()
	}

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = DefaultIssueAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := LoadSnapshot(ctx, s.Store)
		if err != nil {
			return Preview{}, fmt.Errorf("load snapshot: %w", err)
		}
		preview := s.Engine.Build(snap, req)
		if len(preview.Entries) == 0 {
			return Preview{}, ErrNothingToInvoice
		}

		err = s.Store.SaveInvoice(ctx, preview.Invoice)
		if err == nil {
			s.recorder().InvoiceIssued()
			s.Log.Info("invoice issued",
				zap.String("invoice_id", string(preview.Invoice.ID)),
				zap.String("number", preview.Invoice.Number),
				zap.String("client_id", string(req.ClientID)),
				zap.String("total", preview.Invoice.Total.StringFixed(2)),
				zap.Int("lines", len(preview.Invoice.Items)),
				zap.Int("warnings", len(preview.Warnings)),
			)
			return preview, nil
		}
		if !errors.Is(err, ErrDuplicateInvoiceNumber) {
			return Preview{}, fmt.Errorf("save invoice: %w", err)
		}

		lastErr = err
		s.recorder().NumberCollision()
		s.Log.Warn("invoice number taken, renumbering",
			zap.String("number", preview.Invoice.Number),
			zap.Int("attempt", attempt),
		)
	}
	return Preview{}, fmt.Errorf("issue invoice after %d attempts: %w", attempts, lastErr)
}

// SetInvoiceStatus moves an invoice to a new status.
func (s *Service) SetInvoiceStatus(ctx context.Context, id InvoiceID, status InvoiceStatus) (Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	next, err := inv.WithStatus(status)
	if err != nil {
		return Invoice{}, err
	}
	if next.Status == inv.Status {
		return next, nil
	}
	if err := s.Store.UpdateInvoiceStatus(ctx, id, next.Status); err != nil {
		return Invoice{}, fmt.Errorf("update invoice status: %w", err)
	}
	s.Log.Info("invoice status changed",
		zap.String("invoice_id", string(id)),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(next.Status)),
	)
	return next, nil
}

// InvoiceView is an invoice as listed in the history, with its overdue age.
type InvoiceView struct {
	Invoice     Invoice
	OverdueDays int
}

// History lists a client's invoices (all when clientID is empty). PAID
// invoices are never reported overdue.
func (s *Service) History(ctx context.Context, clientID ClientID) ([]InvoiceView, error) {
	invoices, err := s.Store.ListInvoices(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]InvoiceView, len(invoices))
	for i, inv := range invoices {
		views[i] = InvoiceView{Invoice: inv}
		if inv.Status != InvoicePaid {
			views[i].OverdueDays = OverdueDays(inv.DueDate, now)
		}
	}
	return views, nil
}

// =============================================================================
// LEDGER
// =============================================================================

// RecordEntry validates and saves an entry, filling in a missing id and
// creation time.
func (s *Service) RecordEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error) {
	if e.ID == "" {
		e.ID = EntryID(NewID())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.PaymentStatus == "" {
		e.PaymentStatus = PaymentPending
	}
	if err := ValidateEntry(e); err != nil {
		return LedgerEntry{}, err
	}
	if _, err := s.Store.GetProject(ctx, e.ProjectID); err != nil {
		return LedgerEntry{}, err
	}
	if err := s.Store.SaveEntry(ctx, e); err != nil {
		return LedgerEntry{}, fmt.Errorf("save entry: %w", err)
	}
	return e, nil
}

// ImportCandidates records accepted extraction candidates as EXPENSE
// entries for one project. It stops at the first invalid candidate; the
// entries saved before it stay saved.
func (s *Service) ImportCandidates(ctx context.Context, projectID ProjectID, markup *decimal.Decimal, candidates []Candidate) ([]LedgerEntry, error) {
	var saved []LedgerEntry
	for _, c := range candidates {
		e, err := ExpenseFromCandidate(EntryID(NewID()), c, projectID, markup, s.now())
		if err != nil {
			return saved, err
		}
		e, err = s.RecordEntry(ctx, e)
		if err != nil {
			return saved, err
		}
		saved = append(saved, e)
	}
	s.Log.Info("statement candidates imported",
		zap.String("project_id", string(projectID)),
		zap.Int("count", len(saved)),
	)
	return saved, nil
}

// Summary rolls up the whole ledger for the dashboard.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return Summary{}, err
	}
	entries, err := s.Store.ListEntries(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(entries, projects), nil
}
