/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing service via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to billing.Service.

ENDPOINTS:
  Clients:
    GET    /api/clients                 List clients
    POST   /api/clients                 Create client
    GET    /api/clients/{id}            Get client
    PUT    /api/clients/{id}            Replace client
    DELETE /api/clients/{id}            Delete client (projects are kept)

  Projects:
    GET    /api/projects                List projects (?client_id=)
    POST   /api/projects                Create project
    GET    /api/projects/{id}           Get project
    PUT    /api/projects/{id}           Replace project
    DELETE /api/projects/{id}           Delete project (entries become Unassigned)

  Ledger:
    GET    /api/entries                 List priced entries
                                        (?client_id=&project_id=&month=&start_date=&end_date=)
    POST   /api/entries                 Record entry
    GET    /api/entries/{id}            Get priced entry
    PUT    /api/entries/{id}            Replace entry
    DELETE /api/entries/{id}            Delete entry

  Invoices:
    GET    /api/invoices                History with overdue days (?client_id=)
    POST   /api/invoices                Issue (persist) an invoice
    POST   /api/invoices/preview        Build without saving
    GET    /api/invoices/next-number    Next number for a client (?client_id=)
    GET    /api/invoices/{id}           Get invoice
    PUT    /api/invoices/{id}/status    Move invoice status forward

  Other:
    GET    /api/dashboard/summary       Revenue/hours rollup
    GET    /api/dashboard/receivables   Open and overdue invoice rollup
    POST   /api/statements/import       Accepted statement lines -> expenses
    POST   /api/demo/load               Reset and seed demo data
    GET    /api/scenarios               List demo scenarios
    GET    /api/scenarios/current       Currently loaded scenario
    POST   /api/scenarios/load          Reset and load a scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (invoice number taken, backwards status change)
  - 500: Internal errors (logged)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo data loader
  - scenarios.go: Demo scenarios
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *billing.Service
	Log     *zap.Logger
	Metrics *Metrics

	// DefaultTerms applies when an invoice request names none.
	DefaultTerms billing.Terms
	// StatementMarkup applies when an import request names none.
	StatementMarkup decimal.Decimal

	validate *validator.Validate

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler around svc. A nil logger discards output.
func NewHandler(svc *billing.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Service:         svc,
		Log:             log,
		DefaultTerms:    billing.TermsDueOnReceipt,
		StatementMarkup: billing.DefaultStatementMarkup,
		validate:        newValidator(),
	}
}

func (h *Handler) store() billing.Store { return h.Service.Store }

func (h *Handler) now() time.Time {
	if h.Service.Clock != nil {
		return h.Service.Clock()
	}
	return time.Now()
}

// directory loads the client/project lookup used to name things in
// responses.
func (h *Handler) directory(r *http.Request) (*billing.Directory, error) {
	clients, err := h.store().ListClients(r.Context())
	if err != nil {
		return nil, err
	}
	projects, err := h.store().ListProjects(r.Context())
	if err != nil {
		return nil, err
	}
	return billing.NewDirectory(clients, projects), nil
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store().ListClients(r.Context())
	if err != nil {
		h.fail(w, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient adds a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	h.saveClient(w, r, req, http.StatusCreated)
}

// GetClient returns one client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.store().GetClient(r.Context(), billing.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*c))
}

// UpdateClient replaces a client, keeping its creation time.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store().GetClient(r.Context(), billing.ClientID(id)); err != nil {
		h.fail(w, "Failed to update client", err)
		return
	}
	var req ClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.ID = id
	h.saveClient(w, r, req, http.StatusOK)
}

func (h *Handler) saveClient(w http.ResponseWriter, r *http.Request, req ClientRequest, status int) {
	c := req.toDomain(h.now())
	if c.DefaultRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid client", errors.New("default_rate must not be negative"))
		return
	}
	if err := h.store().SaveClient(r.Context(), c); err != nil {
		h.fail(w, "Failed to save client", err)
		return
	}
	saved, err := h.store().GetClient(r.Context(), c.ID)
	if err != nil {
		h.fail(w, "Failed to save client", err)
		return
	}
	writeJSON(w, status, toClientDTO(*saved))
}

// DeleteClient removes a client.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.store().DeleteClient(r.Context(), billing.ClientID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects, or one client's with ?client_id=.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to list projects", err)
		return
	}
	projects, err := h.store().ListProjects(r.Context())
	if err != nil {
		h.fail(w, "Failed to list projects", err)
		return
	}
	clientID := billing.ClientID(r.URL.Query().Get("client_id"))

	dtos := []ProjectDTO{}
	for _, p := range projects {
		if clientID != "" && p.ClientID != clientID {
			continue
		}
		dtos = append(dtos, toProjectDTO(p, dir))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject adds a project to an existing client.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	h.saveProject(w, r, req, http.StatusCreated)
}

// GetProject returns one project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.store().GetProject(r.Context(), billing.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get project", err)
		return
	}
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p, dir))
}

// UpdateProject replaces a project.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store().GetProject(r.Context(), billing.ProjectID(id)); err != nil {
		h.fail(w, "Failed to update project", err)
		return
	}
	var req ProjectRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.ID = id
	h.saveProject(w, r, req, http.StatusOK)
}

func (h *Handler) saveProject(w http.ResponseWriter, r *http.Request, req ProjectRequest, status int) {
	p := req.toDomain(h.now())
	if p.HourlyRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid project", errors.New("hourly_rate must not be negative"))
		return
	}
	if _, err := h.store().GetClient(r.Context(), p.ClientID); err != nil {
		h.fail(w, "Invalid project", err)
		return
	}
	if err := h.store().SaveProject(r.Context(), p); err != nil {
		h.fail(w, "Failed to save project", err)
		return
	}
	saved, err := h.store().GetProject(r.Context(), p.ID)
	if err != nil {
		h.fail(w, "Failed to save project", err)
		return
	}
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to save project", err)
		return
	}
	writeJSON(w, status, toProjectDTO(*saved, dir))
}

// DeleteProject removes a project. Its entries stay, shown as Unassigned.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.store().DeleteProject(r.Context(), billing.ProjectID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListEntries returns priced entries. With ?client_id= the ledger filter
// applies and entries come back in invoice order; without it, every entry
// is returned newest first.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.fail(w, "Failed to list entries", err)
		return
	}
	dir := snap.Directory()
	q := r.URL.Query()

	entries := snap.Entries
	clientID := billing.ClientID(q.Get("client_id"))
	if clientID != "" {
		window := windowOf(q.Get("month"), q.Get("start_date"), q.Get("end_date"))
		entries = billing.Filter(entries, dir, clientID, billing.ProjectID(q.Get("project_id")), window)
	}
	priced := billing.Price(entries, dir)
	if clientID != "" {
		priced = billing.OrderPriced(priced)
	}

	dtos := make([]EntryDTO, len(priced))
	for i, pe := range priced {
		dtos[i] = h.entryDTO(pe, dir, snap.Entries)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry records a ledger entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	h.recordEntry(w, r, req.toDomain(), http.StatusCreated)
}

// GetEntry returns one priced entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.store().GetEntry(r.Context(), billing.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get entry", err)
		return
	}
	h.writeEntry(w, r, *e, http.StatusOK)
}

// UpdateEntry replaces an entry. Invoices already issued from it keep
// their own copy of the line.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := billing.EntryID(chi.URLParam(r, "id"))
	existing, err := h.store().GetEntry(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to update entry", err)
		return
	}
	var req EntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	e := req.toDomain()
	e.ID = id
	e.CreatedAt = existing.CreatedAt
	h.recordEntry(w, r, e, http.StatusOK)
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request, e billing.LedgerEntry, status int) {
	saved, err := h.Service.RecordEntry(r.Context(), e)
	if err != nil {
		h.fail(w, "Failed to record entry", err)
		return
	}
	h.writeEntry(w, r, saved, status)
}

func (h *Handler) writeEntry(w http.ResponseWriter, r *http.Request, e billing.LedgerEntry, status int) {
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.fail(w, "Failed to load entry", err)
		return
	}
	dir := snap.Directory()
	pe := billing.Price([]billing.LedgerEntry{e}, dir)[0]
	writeJSON(w, status, h.entryDTO(pe, dir, snap.Entries))
}

// entryDTO adds the running annual media total to MEDIA_SPEND entries.
func (h *Handler) entryDTO(pe billing.PricedEntry, dir *billing.Directory, all []billing.LedgerEntry) EntryDTO {
	dto := toEntryDTO(pe, dir)
	if p, ok := pe.Entry.Payload.(billing.MediaSpendPayload); ok {
		others := billing.AnnualMediaSpend(all, pe.Entry.ProjectID, pe.Entry.Date.Year(), pe.Entry.ID)
		dto.AnnualMediaSpend = billing.Dec(others.Add(p.Spend()))
	}
	return dto
}

// DeleteEntry removes a ledger entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.store().DeleteEntry(r.Context(), billing.EntryID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// PreviewInvoice builds an invoice without saving it.
func (h *Handler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	preview, err := h.Service.Preview(r.Context(), req.toDomain(h.DefaultTerms))
	if err != nil {
		h.fail(w, "Failed to build invoice", err)
		return
	}
	h.writePreview(w, r, preview, http.StatusOK)
}

// IssueInvoice builds and saves an invoice.
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if _, err := h.store().GetClient(r.Context(), billing.ClientID(req.ClientID)); err != nil {
		h.fail(w, "Failed to issue invoice", err)
		return
	}
	preview, err := h.Service.Issue(r.Context(), req.toDomain(h.DefaultTerms))
	if err != nil {
		h.fail(w, "Failed to issue invoice", err)
		return
	}
	h.writePreview(w, r, preview, http.StatusCreated)
}

func (h *Handler) writePreview(w http.ResponseWriter, r *http.Request, p billing.Preview, status int) {
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to build invoice", err)
		return
	}
	writeJSON(w, status, toPreviewDTO(p, dir))
}

// ListInvoices returns invoice history, newest first, with overdue days.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.History(r.Context(), billing.ClientID(r.URL.Query().Get("client_id")))
	if err != nil {
		h.fail(w, "Failed to list invoices", err)
		return
	}
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to list invoices", err)
		return
	}
	dtos := make([]InvoiceDTO, len(views))
	for i, v := range views {
		dtos[i] = toInvoiceDTO(v.Invoice, dir.ClientName(v.Invoice.ClientID))
		dtos[i].OverdueDays = v.OverdueDays
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.store().GetInvoice(r.Context(), billing.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get invoice", err)
		return
	}
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to get invoice", err)
		return
	}
	dto := toInvoiceDTO(*inv, dir.ClientName(inv.ClientID))
	if inv.Status != billing.InvoicePaid {
		dto.OverdueDays = billing.OverdueDays(inv.DueDate, h.now())
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateInvoiceStatus moves an invoice's status forward.
func (h *Handler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req InvoiceStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.Service.SetInvoiceStatus(r.Context(),
		billing.InvoiceID(chi.URLParam(r, "id")),
		billing.InvoiceStatus(strings.ToUpper(req.Status)),
	)
	if err != nil {
		h.fail(w, "Failed to update invoice status", err)
		return
	}
	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to update invoice status", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv, dir.ClientName(inv.ClientID)))
}

// NextInvoiceNumber shows the number an invoice issued now would get.
func (h *Handler) NextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	clientID := billing.ClientID(r.URL.Query().Get("client_id"))
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.fail(w, "Failed to compute invoice number", err)
		return
	}
	numbering := h.Service.Engine.Numbering
	number := numbering.Draft()
	if clientID != "" {
		number = numbering.Next(snap.Directory().ClientName(clientID), snap.Invoices, h.now())
	}
	writeJSON(w, http.StatusOK, NextNumberDTO{ClientID: string(clientID), InvoiceNumber: number})
}

// =============================================================================
// DASHBOARD & STATEMENTS
// =============================================================================

// GetSummary returns the dashboard rollup.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Summary(r.Context())
	if err != nil {
		h.fail(w, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// GetReceivables rolls up open and overdue invoices as of now.
func (h *Handler) GetReceivables(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Receivables(r.Context())
	if err != nil {
		h.fail(w, "Failed to build receivables", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ObserveReceivables(rec)
	}
	writeJSON(w, http.StatusOK, toReceivablesDTO(rec))
}

// ImportStatement records accepted statement lines as EXPENSE entries.
// Lines before the first invalid one stay recorded; the reply lists them.
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	var req ImportCandidatesRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	markup := req.MarkupPercent
	if markup == nil {
		markup = billing.Dec(h.StatementMarkup)
	}
	if markup.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid import", errors.New("markup_percent must not be negative"))
		return
	}
	candidates := make([]billing.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = billing.Candidate{Date: c.Date, Description: c.Description, Amount: c.Amount}
	}

	saved, err := h.Service.ImportCandidates(r.Context(), billing.ProjectID(req.ProjectID), markup, candidates)
	if err != nil {
		h.fail(w, fmt.Sprintf("Imported %d of %d lines", len(saved), len(candidates)), err)
		return
	}

	dir, err := h.directory(r)
	if err != nil {
		h.fail(w, "Failed to import statement", err)
		return
	}
	dtos := make([]EntryDTO, len(saved))
	for i, pe := range billing.Price(saved, dir) {
		dtos[i] = toEntryDTO(pe, dir)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a billing error to its HTTP status. Unexpected errors are
// logged; their details still go back to the caller.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case billing.IsNotFound(err):
		return http.StatusNotFound
	case billing.IsConflict(err):
		return http.StatusConflict
	case billing.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 itself and reports false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Request validation failed", err)
			return false
		}
		resp := ErrorResponse{Error: "Request validation failed"}
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, FieldErrorDTO{Field: fe.Field(), Message: validationMessage(fe)})
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "required_if":
		return "This field is required when " + fe.Param()
	case "email":
		return "Invalid email format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "datetime":
		return "Must match layout " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "min":
		return "Must have at least " + fe.Param() + " item(s)"
	}
	return "Invalid value"
}
