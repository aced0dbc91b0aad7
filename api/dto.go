/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication and the conversions
  to and from billing types. Handlers never put domain structs on the wire.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are shopspring decimals. They are written as JSON strings
  ("240.00" stays exact); requests accept either strings or numbers.

VALIDATION:
  Shape checks (required fields, enums, date layouts) are validator/v10
  struct tags, checked by decodeAndValidate in handlers.go. Business rules
  (non-negative quantities, valid payloads) are billing.ValidateEntry's.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

// FieldErrorDTO names one request field that failed validation.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENTS
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Address       string          `json:"address,omitempty"`
	ContactPerson string          `json:"contact_person,omitempty"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	DefaultRate   decimal.Decimal `json:"default_rate"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

// ClientRequest creates or replaces a client. ID is generated when empty.
type ClientRequest struct {
	ID            string           `json:"id"`
	Name          string           `json:"name" validate:"required,max=200"`
	Address       string           `json:"address"`
	ContactPerson string           `json:"contact_person"`
	Email         string           `json:"email" validate:"omitempty,email"`
	Phone         string           `json:"phone"`
	DefaultRate   *decimal.Decimal `json:"default_rate"`
	Status        string           `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED"`
}

func (r ClientRequest) toDomain(now time.Time) billing.Client {
	c := billing.Client{
		ID:            billing.ClientID(r.ID),
		Name:          r.Name,
		Address:       r.Address,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		DefaultRate:   decimal.Zero,
		Status:        billing.ClientStatus(r.Status),
		CreatedAt:     now,
	}
	if r.DefaultRate != nil {
		c.DefaultRate = *r.DefaultRate
	}
	if c.Status == "" {
		c.Status = billing.ClientActive
	}
	return c
}

func toClientDTO(c billing.Client) ClientDTO {
	return ClientDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Address:       c.Address,
		ContactPerson: c.ContactPerson,
		Email:         c.Email,
		Phone:         c.Phone,
		DefaultRate:   c.DefaultRate,
		Status:        string(c.Status),
		CreatedAt:     formatTimestamp(c.CreatedAt),
	}
}

// =============================================================================
// PROJECTS
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name,omitempty"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	StartDate  string          `json:"start_date,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

// ProjectRequest creates or replaces a project.
type ProjectRequest struct {
	ID         string           `json:"id"`
	Name       string           `json:"name" validate:"required,max=200"`
	ClientID   string           `json:"client_id" validate:"required"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	StartDate  string           `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Status     string           `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ARCHIVED"`
}

func (r ProjectRequest) toDomain(now time.Time) billing.Project {
	p := billing.Project{
		ID:         billing.ProjectID(r.ID),
		Name:       r.Name,
		ClientID:   billing.ClientID(r.ClientID),
		HourlyRate: decimal.Zero,
		StartDate:  billing.Date(r.StartDate),
		Status:     billing.ProjectStatus(r.Status),
		CreatedAt:  now,
	}
	if r.HourlyRate != nil {
		p.HourlyRate = *r.HourlyRate
	}
	if p.Status == "" {
		p.Status = billing.ProjectActive
	}
	return p
}

func toProjectDTO(p billing.Project, dir *billing.Directory) ProjectDTO {
	return ProjectDTO{
		ID:         string(p.ID),
		Name:       p.Name,
		ClientID:   string(p.ClientID),
		ClientName: dir.ClientName(p.ClientID),
		HourlyRate: p.HourlyRate,
		StartDate:  string(p.StartDate),
		Status:     string(p.Status),
		CreatedAt:  formatTimestamp(p.CreatedAt),
	}
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

// EntryRequest creates or replaces a ledger entry. Only the payload fields
// of the given type are read; the main figure of a TIME, EXPENSE or
// FIXED_FEE entry must be present.
type EntryRequest struct {
	ID            string `json:"id"`
	ProjectID     string `json:"project_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string `json:"description" validate:"max=500"`
	Type          string `json:"type" validate:"required,oneof=TIME EXPENSE FIXED_FEE MEDIA_SPEND"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=PENDING PAID"`

	// TIME
	Hours          *decimal.Decimal `json:"hours" validate:"required_if=Type TIME"`
	Rate           *decimal.Decimal `json:"rate"`
	RateMultiplier *decimal.Decimal `json:"rate_multiplier"`
	// EXPENSE
	Cost          *decimal.Decimal `json:"cost" validate:"required_if=Type EXPENSE"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
	// FIXED_FEE
	Amount *decimal.Decimal `json:"amount" validate:"required_if=Type FIXED_FEE"`
	// MEDIA_SPEND
	GoogleSpend  *decimal.Decimal `json:"google_spend"`
	MetaSpend    *decimal.Decimal `json:"meta_spend"`
	BillingMonth string           `json:"billing_month" validate:"omitempty,datetime=2006-01"`
}

func (r EntryRequest) toDomain() billing.LedgerEntry {
	e := billing.LedgerEntry{
		ID:            billing.EntryID(r.ID),
		ProjectID:     billing.ProjectID(r.ProjectID),
		Date:          billing.Date(r.Date),
		Description:   r.Description,
		PaymentStatus: billing.PaymentStatus(r.PaymentStatus),
	}
	orZero := func(d *decimal.Decimal) decimal.Decimal {
		if d == nil {
			return decimal.Zero
		}
		return *d
	}
	switch billing.EntryType(r.Type) {
	case billing.EntryTime:
		e.Payload = billing.TimePayload{Hours: orZero(r.Hours), Rate: r.Rate, RateMultiplier: r.RateMultiplier}
	case billing.EntryExpense:
		e.Payload = billing.ExpensePayload{Cost: orZero(r.Cost), MarkupPercent: r.MarkupPercent}
	case billing.EntryFixedFee:
		e.Payload = billing.FixedFeePayload{Amount: orZero(r.Amount)}
	case billing.EntryMediaSpend:
		month := r.BillingMonth
		if month == "" {
			month = billing.Date(r.Date).MonthKey()
		}
		e.Payload = billing.MediaSpendPayload{GoogleSpend: r.GoogleSpend, MetaSpend: r.MetaSpend, BillingMonth: month}
	}
	return e
}

// EntryDTO represents a priced ledger entry in API responses.
type EntryDTO struct {
	ID            string `json:"id"`
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	PaymentStatus string `json:"payment_status"`
	CreatedAt     string `json:"created_at,omitempty"`

	Hours          *decimal.Decimal `json:"hours,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	RateMultiplier *decimal.Decimal `json:"rate_multiplier,omitempty"`
	Cost           *decimal.Decimal `json:"cost,omitempty"`
	MarkupPercent  *decimal.Decimal `json:"markup_percent,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	GoogleSpend    *decimal.Decimal `json:"google_spend,omitempty"`
	MetaSpend      *decimal.Decimal `json:"meta_spend,omitempty"`
	BillingMonth   string           `json:"billing_month,omitempty"`

	// Resolved values
	BillableAmount   decimal.Decimal  `json:"billable_amount"`
	Profit           *decimal.Decimal `json:"profit,omitempty"`
	MediaFees        *MediaFeesDTO    `json:"media_fees,omitempty"`
	AnnualMediaSpend *decimal.Decimal `json:"annual_media_spend,omitempty"`
	Flags            []string         `json:"flags,omitempty"`
}

// MediaFeesDTO breaks a MEDIA_SPEND entry's amount into its tiers.
type MediaFeesDTO struct {
	Spend       decimal.Decimal `json:"spend"`
	Management  decimal.Decimal `json:"management"`
	Operations  decimal.Decimal `json:"operations"`
	Performance decimal.Decimal `json:"performance"`
}

func toEntryDTO(pe billing.PricedEntry, dir *billing.Directory) EntryDTO {
	e := pe.Entry
	dto := EntryDTO{
		ID:             string(e.ID),
		ProjectID:      string(e.ProjectID),
		ProjectName:    dir.ProjectName(e.ProjectID),
		Date:           string(e.Date),
		Description:    e.Description,
		Type:           string(e.Type()),
		PaymentStatus:  string(e.PaymentStatus),
		CreatedAt:      formatTimestamp(e.CreatedAt),
		BillableAmount: pe.Resolution.Amount,
		Flags:          flagStrings(billing.LineItemFor(pe, nil).Flags),
	}
	if dto.PaymentStatus == "" {
		dto.PaymentStatus = string(billing.PaymentPending)
	}
	if pe.Resolution.Profit.Valid {
		dto.Profit = billing.Dec(pe.Resolution.Profit.Decimal)
	}
	switch p := e.Payload.(type) {
	case billing.TimePayload:
		dto.Hours, dto.Rate, dto.RateMultiplier = billing.Dec(p.Hours), p.Rate, p.RateMultiplier
	case billing.ExpensePayload:
		dto.Cost, dto.MarkupPercent = billing.Dec(p.Cost), p.MarkupPercent
	case billing.FixedFeePayload:
		dto.Amount = billing.Dec(p.Amount)
	case billing.MediaSpendPayload:
		dto.GoogleSpend, dto.MetaSpend, dto.BillingMonth = p.GoogleSpend, p.MetaSpend, p.BillingMonth
	}
	if f := pe.Resolution.Fees; f != nil {
		dto.MediaFees = &MediaFeesDTO{Spend: f.Spend, Management: f.Management, Operations: f.Operations, Performance: f.Performance}
	}
	return dto
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceRequest selects what to bill. Month (YYYY-MM) takes precedence
// over a StartDate/EndDate range; neither means all dates.
type InvoiceRequest struct {
	ClientID       string           `json:"client_id" validate:"required"`
	ProjectID      string           `json:"project_id"`
	Month          string           `json:"month" validate:"omitempty,datetime=2006-01"`
	StartDate      string           `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string           `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Terms          string           `json:"terms" validate:"omitempty,oneof=DUE_ON_RECEIPT NET_15 NET_30 CUSTOM"`
	CustomDueDate  string           `json:"custom_due_date" validate:"omitempty,datetime=2006-01-02"`
	WriteOffExcess bool             `json:"write_off_excess"`
	PaidAmount     *decimal.Decimal `json:"paid_amount"`
}

func (r InvoiceRequest) toDomain(defaultTerms billing.Terms) billing.Request {
	req := billing.Request{
		ClientID:       billing.ClientID(r.ClientID),
		ProjectID:      billing.ProjectID(r.ProjectID),
		Window:         windowOf(r.Month, r.StartDate, r.EndDate),
		Terms:          billing.Terms(r.Terms),
		CustomDueDate:  billing.Date(r.CustomDueDate),
		WriteOffExcess: r.WriteOffExcess,
	}
	if req.Terms == "" {
		req.Terms = defaultTerms
	}
	if r.PaidAmount != nil {
		req.PaidAmount = decimal.NewNullDecimal(*r.PaidAmount)
	}
	return req
}

func windowOf(month, start, end string) billing.DateWindow {
	switch {
	case month != "":
		return billing.InMonth(month)
	case start != "" || end != "":
		return billing.Between(billing.Date(start), billing.Date(end))
	}
	return billing.AllTime()
}

// LineItemDTO is one invoice line.
type LineItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	EntryID     string          `json:"entry_id,omitempty"`
	Flags       []string        `json:"flags,omitempty"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      string          `json:"client_id"`
	ClientName    string          `json:"client_name,omitempty"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	Terms         string          `json:"terms"`
	Items         []LineItemDTO   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at,omitempty"`
	OverdueDays   int             `json:"overdue_days"`
}

func toInvoiceDTO(inv billing.Invoice, clientName string) InvoiceDTO {
	items := make([]LineItemDTO, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = LineItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Amount:      it.Amount,
			Type:        string(it.Type),
			EntryID:     string(it.EntryID),
			Flags:       flagStrings(it.Flags),
		}
	}
	return InvoiceDTO{
		ID:            string(inv.ID),
		InvoiceNumber: inv.Number,
		ClientID:      string(inv.ClientID),
		ClientName:    clientName,
		IssueDate:     string(inv.IssueDate),
		DueDate:       string(inv.DueDate),
		Terms:         string(inv.Terms),
		Items:         items,
		Subtotal:      inv.Subtotal,
		Tax:           inv.Tax,
		Total:         inv.Total,
		Status:        string(inv.Status),
		CreatedAt:     formatTimestamp(inv.CreatedAt),
	}
}

// TotalsDTO carries the totals and write-off figures of a preview.
type TotalsDTO struct {
	TimeTotal    decimal.Decimal `json:"time_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Discount     decimal.Decimal `json:"discount"`
	BalanceDue   decimal.Decimal `json:"balance_due"`
}

// ProjectGroupDTO is one project section of an invoice preview.
type ProjectGroupDTO struct {
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name"`
	Entries   []EntryDTO      `json:"entries"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// WarningDTO reports a flagged line.
type WarningDTO struct {
	EntryID string `json:"entry_id"`
	Flag    string `json:"flag"`
}

// PreviewDTO is the response to preview and issue requests.
type PreviewDTO struct {
	Invoice    InvoiceDTO        `json:"invoice"`
	TermsLabel string            `json:"terms_label"`
	Groups     []ProjectGroupDTO `json:"groups"`
	Totals     TotalsDTO         `json:"totals"`
	Warnings   []WarningDTO      `json:"warnings"`
}

func toPreviewDTO(p billing.Preview, dir *billing.Directory) PreviewDTO {
	groups := make([]ProjectGroupDTO, len(p.Groups))
	for i, g := range p.Groups {
		entries := make([]EntryDTO, len(g.Entries))
		for j, pe := range g.Entries {
			entries[j] = toEntryDTO(pe, dir)
		}
		groups[i] = ProjectGroupDTO{ProjectID: string(g.ProjectID), Name: g.Name, Entries: entries, Subtotal: g.Subtotal}
	}
	warnings := make([]WarningDTO, len(p.Warnings))
	for i, w := range p.Warnings {
		warnings[i] = WarningDTO{EntryID: string(w.EntryID), Flag: string(w.Flag)}
	}
	t := p.Totals
	return PreviewDTO{
		Invoice:    toInvoiceDTO(p.Invoice, dir.ClientName(p.Invoice.ClientID)),
		TermsLabel: p.TermsLabel,
		Groups:     groups,
		Totals: TotalsDTO{
			TimeTotal:    t.TimeTotal,
			ExpenseTotal: t.ExpenseTotal,
			Subtotal:     t.Subtotal,
			Tax:          t.Tax,
			Total:        t.Total,
			PaidAmount:   t.PaidAmount,
			Discount:     t.Discount,
			BalanceDue:   t.BalanceDue,
		},
		Warnings: warnings,
	}
}

// InvoiceStatusRequest changes an invoice's status. The value itself is
// checked by the billing package so unknown statuses get its error.
type InvoiceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// NextNumberDTO previews the number the next invoice would get.
type NextNumberDTO struct {
	ClientID      string `json:"client_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// =============================================================================
// DASHBOARD & STATEMENTS
// =============================================================================

// SummaryDTO is the dashboard rollup.
type SummaryDTO struct {
	TotalRevenue     decimal.Decimal     `json:"total_revenue"`
	TotalHours       decimal.Decimal     `json:"total_hours"`
	ActiveProjects   int                 `json:"active_projects"`
	RevenueByProject []ProjectRevenueDTO `json:"revenue_by_project"`
}

// ProjectRevenueDTO is one bar of the revenue-by-project chart.
type ProjectRevenueDTO struct {
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func toSummaryDTO(s billing.Summary) SummaryDTO {
	bars := make([]ProjectRevenueDTO, len(s.RevenueByProject))
	for i, r := range s.RevenueByProject {
		bars[i] = ProjectRevenueDTO{ProjectID: string(r.ProjectID), Name: r.Name, Revenue: r.Revenue}
	}
	return SummaryDTO{
		TotalRevenue:     s.TotalRevenue,
		TotalHours:       s.TotalHours,
		ActiveProjects:   s.ActiveProjects,
		RevenueByProject: bars,
	}
}

// ReceivablesDTO is the open/overdue invoice rollup.
type ReceivablesDTO struct {
	CheckedAt     string          `json:"checked_at"`
	Open          int             `json:"open"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	Overdue       int             `json:"overdue"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	OldestOverdue int             `json:"oldest_overdue_days"`
}

func toReceivablesDTO(r billing.Receivables) ReceivablesDTO {
	return ReceivablesDTO{
		CheckedAt:     formatTimestamp(r.CheckedAt),
		Open:          r.Open,
		OpenAmount:    r.OpenAmount,
		Overdue:       r.Overdue,
		OverdueAmount: r.OverdueAmount,
		OldestOverdue: r.OldestOverdue,
	}
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "ledger" or "invoicing"
}

// LoadScenarioRequest names the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// CandidateDTO is one statement line proposed by the extraction service.
type CandidateDTO struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount"`
}

// ImportCandidatesRequest records accepted candidates as expenses.
type ImportCandidatesRequest struct {
	ProjectID     string           `json:"project_id" validate:"required"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
	Candidates    []CandidateDTO   `json:"candidates" validate:"required,min=1,dive"`
}

// =============================================================================
// SNAPSHOT (offline tooling)
// =============================================================================

// SnapshotDTO is a full export of the books, as read by invoicectl.
type SnapshotDTO struct {
	Clients  []ClientRequest  `json:"clients"`
	Projects []ProjectRequest `json:"projects"`
	Entries  []EntryRequest   `json:"entries"`
	Invoices []InvoiceDTO     `json:"invoices"`
	Licenses []LicenseDTO     `json:"licenses,omitempty"`
}

// LicenseDTO is a per-unit catalog item carried in an export.
type LicenseDTO struct {
	Label string          `json:"label"`
	Cost  decimal.Decimal `json:"cost"`
}

// Catalog returns the export's license catalog.
func (s SnapshotDTO) Catalog() billing.LicenseCatalog {
	catalog := make(billing.LicenseCatalog, 0, len(s.Licenses))
	for _, l := range s.Licenses {
		catalog = append(catalog, billing.LicenseFee{Label: l.Label, Cost: l.Cost})
	}
	return catalog
}

// ToSnapshot converts the export into the engine's input.
func (s SnapshotDTO) ToSnapshot(now time.Time) billing.Snapshot {
	var snap billing.Snapshot
	for _, c := range s.Clients {
		snap.Clients = append(snap.Clients, c.toDomain(now))
	}
	for _, p := range s.Projects {
		snap.Projects = append(snap.Projects, p.toDomain(now))
	}
	for _, e := range s.Entries {
		entry := e.toDomain()
		entry.CreatedAt = now
		snap.Entries = append(snap.Entries, entry)
	}
	// Only the numbers matter for numbering history.
	for _, inv := range s.Invoices {
		snap.Invoices = append(snap.Invoices, billing.Invoice{
			ID:       billing.InvoiceID(inv.ID),
			Number:   inv.InvoiceNumber,
			ClientID: billing.ClientID(inv.ClientID),
			Status:   billing.InvoiceStatus(inv.Status),
		})
	}
	return snap
}

// PreviewFor renders an engine preview as the API does.
func PreviewFor(p billing.Preview, snap billing.Snapshot) PreviewDTO {
	return toPreviewDTO(p, snap.Directory())
}

// =============================================================================
// HELPERS
// =============================================================================

func flagStrings(flags []billing.LineFlag) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
