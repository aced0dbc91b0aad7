/*
handlers_test.go - Tests for API handlers

Tests for:
- Client/project/entry CRUD and request validation
- Invoice preview, issue, numbering and history
- Status transitions and error mapping
- Statement import, dashboard summary, demo data and metrics
- Receivables rollup and its scheduler
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/billing/store"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	router  http.Handler
	store   *store.Memory
	svc     *billing.Service
	metrics *Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	metrics := NewMetrics()

	svc := billing.NewService(mem, billing.Engine{Numbering: billing.Numbering{Prefix: "T"}}, zap.NewNop())
	svc.Clock = func() time.Time { return testNow }
	svc.Recorder = metrics

	h := NewHandler(svc, zap.NewNop())
	h.Metrics = metrics
	return &testServer{t: t, router: NewRouter(h), store: mem, svc: svc, metrics: metrics}
}

// withDemo seeds the demo books: Acme Corp (c1) has 4h at 150 and a 200
// expense at 20% markup, Global Tech (c2) has 6h at 175.
func (s *testServer) withDemo() *testServer {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/demo/load", nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return s
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestDemoLoad_SeedsDirectory(t *testing.T) {
	// GIVEN: demo data
	s := newTestServer(t).withDemo()

	// WHEN
	rec := s.do(http.MethodGet, "/api/clients", nil)

	// THEN: three clients, sorted by name
	require.Equal(t, http.StatusOK, rec.Code)
	clients := decode[[]ClientDTO](t, rec)
	require.Len(t, clients, 3)
	assert.Equal(t, "Acme Corp", clients[0].Name)
	assert.Equal(t, "Global Tech", clients[1].Name)
	assert.Equal(t, "StartupX", clients[2].Name)
}

func TestDemoLoad_Resets(t *testing.T) {
	// GIVEN: demo data plus an extra client
	s := newTestServer(t).withDemo()
	rec := s.do(http.MethodPost, "/api/clients", ClientRequest{Name: "Extra"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: loading again
	s.withDemo()

	// THEN: the extra client is gone
	clients := decode[[]ClientDTO](t, s.do(http.MethodGet, "/api/clients", nil))
	assert.Len(t, clients, 3)
}

func TestCreateClient_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing name", ClientRequest{Email: "a@b.example"}, "name"},
		{"bad email", ClientRequest{Name: "Acme", Email: "not-an-email"}, "email"},
		{"bad status", ClientRequest{Name: "Acme", Status: "DELETED"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/clients", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			require.Len(t, resp.Fields, 1)
			assert.Equal(t, tt.field, resp.Fields[0].Field)
		})
	}
}

func TestCreateClient_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientLifecycle(t *testing.T) {
	s := newTestServer(t)

	// Create with generated id
	rec := s.do(http.MethodPost, "/api/clients", ClientRequest{Name: "Acme Corp", Email: "ap@acme.example"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ClientDTO](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "ACTIVE", created.Status)

	// Update
	rec = s.do(http.MethodPut, "/api/clients/"+created.ID, ClientRequest{Name: "Acme Corporation", Status: "ARCHIVED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Acme Corporation", decode[ClientDTO](t, rec).Name)

	// Delete
	rec = s.do(http.MethodDelete, "/api/clients/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Gone
	rec = s.do(http.MethodGet, "/api/clients/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProject_UnknownClient(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/projects", ProjectRequest{Name: "Orphan", ClientID: "nobody"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjects_FilterByClient(t *testing.T) {
	s := newTestServer(t).withDemo()

	rec := s.do(http.MethodGet, "/api/projects?client_id=c2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[[]ProjectDTO](t, rec)
	require.Len(t, projects, 1)
	assert.Equal(t, "Q3 Campaign", projects[0].Name)
	assert.Equal(t, "Global Tech", projects[0].ClientName)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestCreateEntry_PricesIt(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN: 2h of overtime on Brand Refresh (150/h)
	one5 := billing.DecFloat(1.5)
	rec := s.do(http.MethodPost, "/api/entries", EntryRequest{
		ProjectID:      "p1",
		Date:           "2026-10-14",
		Description:    "Launch weekend",
		Type:           "TIME",
		Hours:          billing.DecFloat(2),
		RateMultiplier: one5,
	})

	// THEN
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[EntryDTO](t, rec)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "450", entry.BillableAmount.String())
	assert.Equal(t, "PENDING", entry.PaymentStatus)
	assert.Equal(t, "Brand Refresh", entry.ProjectName)
}

func TestCreateEntry_MediaSpend(t *testing.T) {
	s := newTestServer(t).withDemo()

	// GIVEN: an earlier media entry this year
	rec := s.do(http.MethodPost, "/api/entries", EntryRequest{
		ProjectID: "p2", Date: "2026-09-30", Type: "MEDIA_SPEND", GoogleSpend: billing.DecFloat(1000),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: recording October spend without a billing month
	rec = s.do(http.MethodPost, "/api/entries", EntryRequest{
		ProjectID: "p2", Date: "2026-10-01", Type: "MEDIA_SPEND",
		GoogleSpend: billing.DecFloat(1000), MetaSpend: billing.DecFloat(1000),
	})

	// THEN: fees are 19.5% of spend, month comes from the date, and the
	// annual total includes September
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[EntryDTO](t, rec)
	assert.Equal(t, "390", entry.BillableAmount.String())
	assert.Equal(t, "2026-10", entry.BillingMonth)
	require.NotNil(t, entry.MediaFees)
	assert.Equal(t, "250", entry.MediaFees.Management.String())
	require.NotNil(t, entry.AnnualMediaSpend)
	assert.Equal(t, "3000", entry.AnnualMediaSpend.String())
}

func TestCreateEntry_Invalid(t *testing.T) {
	s := newTestServer(t).withDemo()

	tests := []struct {
		name   string
		body   EntryRequest
		status int
	}{
		{"unknown type", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "BARTER"}, http.StatusBadRequest},
		{"bad date", EntryRequest{ProjectID: "p1", Date: "01/10/2026", Type: "TIME"}, http.StatusBadRequest},
		{"negative cost", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "EXPENSE", Cost: billing.DecFloat(-1)}, http.StatusBadRequest},
		{"unknown project", EntryRequest{ProjectID: "p9", Date: "2026-10-01", Type: "FIXED_FEE", Amount: billing.DecFloat(10)}, http.StatusNotFound},
		{"time without hours", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "TIME", Rate: billing.DecFloat(100)}, http.StatusBadRequest},
		{"expense without cost", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "EXPENSE", MarkupPercent: billing.DecFloat(20)}, http.StatusBadRequest},
		{"fixed fee without amount", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "FIXED_FEE"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/entries", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateEntry_MissingFigureNamesField(t *testing.T) {
	s := newTestServer(t).withDemo()

	rec := s.do(http.MethodPost, "/api/entries", EntryRequest{ProjectID: "p1", Date: "2026-10-01", Type: "TIME"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "hours", resp.Fields[0].Field)
}

func TestCreateEntry_ExplicitZeroIsAccepted(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN: hours are given, just zero
	rec := s.do(http.MethodPost, "/api/entries", EntryRequest{
		ProjectID: "p1", Date: "2026-10-01", Type: "TIME", Hours: billing.DecFloat(0),
	})

	// THEN
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "0", decode[EntryDTO](t, rec).BillableAmount.String())
}

func TestListEntries_ClientFilterAndOrder(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN: listing Acme's October entries
	rec := s.do(http.MethodGet, "/api/entries?client_id=c1&month=2026-10", nil)

	// THEN: only Acme's two entries, same weight and date so by id
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "l1", entries[0].ID)
	assert.Equal(t, "600", entries[0].BillableAmount.String())
	assert.Equal(t, "l2", entries[1].ID)
	assert.Equal(t, "240", entries[1].BillableAmount.String())
	require.NotNil(t, entries[1].Profit)
	assert.Equal(t, "40", entries[1].Profit.String())
}

func TestDeleteProject_OrphansShowUnassigned(t *testing.T) {
	s := newTestServer(t).withDemo()

	rec := s.do(http.MethodDelete, "/api/projects/p2", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/entries/l3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[EntryDTO](t, rec)
	assert.Equal(t, billing.UnassignedName, entry.ProjectName)
	assert.Contains(t, entry.Flags, string(billing.FlagUnassignedProject))
}

func TestUpdateEntry_KeepsIssuedInvoice(t *testing.T) {
	s := newTestServer(t).withDemo()

	// GIVEN: an issued invoice for Acme
	rec := s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	issued := decode[PreviewDTO](t, rec)

	// WHEN: the time entry is edited afterwards
	rec = s.do(http.MethodPut, "/api/entries/l1", EntryRequest{
		ProjectID: "p1", Date: "2026-10-15", Type: "TIME", Hours: billing.DecFloat(10),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the stored invoice is unchanged
	rec = s.do(http.MethodGet, "/api/invoices/"+issued.Invoice.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "840", decode[InvoiceDTO](t, rec).Total.String())
}

// =============================================================================
// INVOICES
// =============================================================================

func TestPreviewInvoice(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN
	rec := s.do(http.MethodPost, "/api/invoices/preview", InvoiceRequest{ClientID: "c1", Terms: "NET_15"})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[PreviewDTO](t, rec)
	assert.Equal(t, "T-ACM-2610-01", p.Invoice.InvoiceNumber)
	assert.Equal(t, "2026-10-15", p.Invoice.IssueDate)
	assert.Equal(t, "2026-10-30", p.Invoice.DueDate)
	assert.Equal(t, "Net 15", p.TermsLabel)
	assert.Equal(t, "840", p.Totals.Total.String())
	assert.Equal(t, "600", p.Totals.TimeTotal.String())
	assert.Equal(t, "240", p.Totals.ExpenseTotal.String())
	assert.Equal(t, "0", p.Totals.Tax.String())
	require.Len(t, p.Invoice.Items, 2)

	// AND: nothing was saved
	invoices := decode[[]InvoiceDTO](t, s.do(http.MethodGet, "/api/invoices", nil))
	assert.Empty(t, invoices)
}

func TestPreviewInvoice_WriteOff(t *testing.T) {
	s := newTestServer(t).withDemo()
	paid := billing.DecFloat(500)

	rec := s.do(http.MethodPost, "/api/invoices/preview", InvoiceRequest{
		ClientID: "c1", WriteOffExcess: true, PaidAmount: paid,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	totals := decode[PreviewDTO](t, rec).Totals
	assert.Equal(t, "100", totals.Discount.String())
	assert.Equal(t, "240", totals.BalanceDue.String())
}

func TestIssueInvoice_NumbersSequentially(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN: issuing twice in the same month
	first := s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"})
	second := s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"})

	// THEN
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, "T-ACM-2610-01", decode[PreviewDTO](t, first).Invoice.InvoiceNumber)
	assert.Equal(t, "T-ACM-2610-02", decode[PreviewDTO](t, second).Invoice.InvoiceNumber)

	// AND: history is newest first with the client's name
	rec := s.do(http.MethodGet, "/api/invoices?client_id=c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]InvoiceDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "T-ACM-2610-02", history[0].InvoiceNumber)
	assert.Equal(t, "Acme Corp", history[0].ClientName)
	assert.Equal(t, "SENT", history[0].Status)
	// due on receipt at midnight; ten hours later counts as a day
	assert.Equal(t, 1, history[0].OverdueDays)

	// AND: the next number moves on
	rec = s.do(http.MethodGet, "/api/invoices/next-number?client_id=c1", nil)
	assert.Equal(t, "T-ACM-2610-03", decode[NextNumberDTO](t, rec).InvoiceNumber)
}

func TestIssueInvoice_Errors(t *testing.T) {
	s := newTestServer(t).withDemo()

	tests := []struct {
		name   string
		body   InvoiceRequest
		status int
	}{
		{"no client", InvoiceRequest{}, http.StatusBadRequest},
		{"unknown client", InvoiceRequest{ClientID: "c9"}, http.StatusNotFound},
		{"nothing to invoice", InvoiceRequest{ClientID: "c3"}, http.StatusBadRequest},
		{"bad terms", InvoiceRequest{ClientID: "c1", Terms: "NET_45"}, http.StatusBadRequest},
		{"bad month", InvoiceRequest{ClientID: "c1", Month: "October"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/invoices", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestNextInvoiceNumber_DraftWithoutClient(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/invoices/next-number", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T-DRAFT", decode[NextNumberDTO](t, rec).InvoiceNumber)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	s := newTestServer(t).withDemo()
	rec := s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[PreviewDTO](t, rec).Invoice.ID
	path := "/api/invoices/" + id + "/status"

	// SENT -> PAID
	rec = s.do(http.MethodPut, path, InvoiceStatusRequest{Status: "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PAID", decode[InvoiceDTO](t, rec).Status)

	// PAID -> SENT is refused
	rec = s.do(http.MethodPut, path, InvoiceStatusRequest{Status: "SENT"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown status
	rec = s.do(http.MethodPut, path, InvoiceStatusRequest{Status: "LOST"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown invoice
	rec = s.do(http.MethodPut, "/api/invoices/nope/status", InvoiceStatusRequest{Status: "PAID"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInvoice_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/invoices/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Failed to get invoice", decode[ErrorResponse](t, rec).Error)
}

// =============================================================================
// DASHBOARD, STATEMENTS, METRICS
// =============================================================================

func TestSummary(t *testing.T) {
	s := newTestServer(t).withDemo()

	rec := s.do(http.MethodGet, "/api/dashboard/summary", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[SummaryDTO](t, rec)
	// 600 + 240 for Acme, 6h at 175 for Global Tech
	assert.Equal(t, "1890", sum.TotalRevenue.String())
	assert.Equal(t, "10", sum.TotalHours.String())
	assert.Equal(t, 3, sum.ActiveProjects)
	require.Len(t, sum.RevenueByProject, 2)
}

func TestImportStatement(t *testing.T) {
	s := newTestServer(t).withDemo()

	// WHEN: importing two lines with the default markup
	rec := s.do(http.MethodPost, "/api/statements/import", ImportCandidatesRequest{
		ProjectID: "p3",
		Candidates: []CandidateDTO{
			{Date: "2026-10-05", Description: "Stock photos", Amount: 100},
			{Date: "2026-10-06", Description: "Hosting", Amount: 50},
		},
	})

	// THEN: both become marked-up expenses
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "EXPENSE", entries[0].Type)
	assert.Equal(t, "120", entries[0].BillableAmount.String())
	assert.Equal(t, "60", entries[1].BillableAmount.String())
}

func TestImportStatement_StopsAtInvalidLine(t *testing.T) {
	s := newTestServer(t).withDemo()

	rec := s.do(http.MethodPost, "/api/statements/import", ImportCandidatesRequest{
		ProjectID: "p3",
		Candidates: []CandidateDTO{
			{Date: "2026-10-05", Description: "Stock photos", Amount: 100},
			{Date: "2026-10-06", Description: "Refund", Amount: -50},
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Imported 1 of 2 lines", decode[ErrorResponse](t, rec).Error)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t).withDemo()
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"}).Code)

	rec := s.do(http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "billing_invoices_issued_total 1")
	assert.Contains(t, body, "billing_http_request_duration_seconds_count")
	assert.Contains(t, body, `status="201"`)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteIndex(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var index map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &index))
	assert.Equal(t, "/api/invoices", index["invoices"])
	assert.Equal(t, "/api/dashboard/receivables", index["receivables"])
}

// =============================================================================
// RECEIVABLES
// =============================================================================

func TestGetReceivables(t *testing.T) {
	// GIVEN: an Acme invoice due on receipt, issued this morning
	s := newTestServer(t).withDemo()
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"}).Code)

	// WHEN
	rec := s.do(http.MethodGet, "/api/dashboard/receivables", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[ReceivablesDTO](t, rec)
	assert.Equal(t, 1, dto.Open)
	assert.Equal(t, 1, dto.Overdue)
	assert.Equal(t, "840", dto.OverdueAmount.String())
	assert.Equal(t, "2026-10-15T10:00:00Z", dto.CheckedAt)

	metrics := s.do(http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, metrics, "billing_invoices_overdue 1")
	assert.Contains(t, metrics, "billing_receivables_overdue_amount 840")
}

func TestReceivablesScheduler_RunNow(t *testing.T) {
	// GIVEN: a paid invoice and an unpaid one
	s := newTestServer(t).withDemo()
	first := decode[PreviewDTO](t, s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c1"}))
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/invoices/"+first.Invoice.ID+"/status",
		InvoiceStatusRequest{Status: "PAID"}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/invoices", InvoiceRequest{ClientID: "c2"}).Code)

	sched := NewReceivablesScheduler(s.svc, s.metrics, zap.NewNop())
	_, ok := sched.Last()
	assert.False(t, ok)

	// WHEN
	r, err := sched.RunNow(context.Background())

	// THEN: only Global Tech's 1050 is outstanding
	require.NoError(t, err)
	assert.Equal(t, 1, r.Open)
	assert.Equal(t, 1, r.Overdue)
	assert.Equal(t, "1050", r.OverdueAmount.String())

	last, ok := sched.Last()
	assert.True(t, ok)
	assert.Equal(t, r.Overdue, last.Overdue)
	assert.Contains(t, s.do(http.MethodGet, "/metrics", nil).Body.String(), "billing_invoices_open 1")
}

func TestReceivablesScheduler_StartStop(t *testing.T) {
	s := newTestServer(t).withDemo()

	t.Run("disabled", func(t *testing.T) {
		sched := NewReceivablesScheduler(s.svc, nil, nil)
		sched.Enabled = false

		sched.Start()
		sched.Stop()

		_, ok := sched.Last()
		assert.False(t, ok)
	})

	t.Run("checks once on start", func(t *testing.T) {
		sched := NewReceivablesScheduler(s.svc, nil, nil)
		sched.CheckInterval = time.Hour

		sched.Start()
		sched.Stop()

		_, ok := sched.Last()
		assert.True(t, ok)
		sched.Stop()
	})
}
