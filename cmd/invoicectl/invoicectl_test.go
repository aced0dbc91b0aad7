package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/api"
)

const books = `{
  "clients": [{"id": "c1", "name": "Acme Corp"}],
  "projects": [{"id": "p1", "name": "Brand Refresh", "client_id": "c1", "hourly_rate": "150"}],
  "entries": [
    {"id": "l1", "project_id": "p1", "date": "2026-10-02", "description": "Initial Moodboarding", "type": "TIME", "hours": "4"},
    {"id": "l2", "project_id": "p1", "date": "2026-10-03", "description": "Font Licenses", "type": "EXPENSE", "cost": "200", "markup_percent": "20"},
    {"id": "l3", "project_id": "p1", "date": "2026-09-20", "description": "Kickoff", "type": "TIME", "hours": "1"}
  ],
  "invoices": [{"id": "i1", "invoice_number": "T-ACM-2610-01", "client_id": "c1", "status": "SENT"}]
}`

func writeBooks(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNextNumber_CountsHistory(t *testing.T) {
	// GIVEN: one October invoice already issued to Acme
	path := writeBooks(t, books)

	// WHEN
	out, err := execute(t, "next-number", "-s", path, "-c", "c1", "--date", "2026-10-15")

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "T-ACM-2610-02\n", out)
}

func TestNextNumber_DraftWithoutClient(t *testing.T) {
	path := writeBooks(t, books)

	out, err := execute(t, "next-number", "-s", path, "--prefix", "AG")

	require.NoError(t, err)
	assert.Equal(t, "AG-DRAFT\n", out)
}

func TestPreview_JSON(t *testing.T) {
	// GIVEN: two October entries and one September entry
	path := writeBooks(t, books)

	// WHEN: previewing October on NET_30
	out, err := execute(t, "preview", "-s", path, "-c", "c1", "-m", "2026-10",
		"-t", "NET_30", "--date", "2026-10-15", "-f", "json")

	// THEN
	require.NoError(t, err)
	var dto api.PreviewDTO
	require.NoError(t, json.Unmarshal([]byte(out), &dto))

	assert.Equal(t, "T-ACM-2610-02", dto.Invoice.InvoiceNumber)
	assert.Equal(t, "2026-11-14", dto.Invoice.DueDate)
	assert.Equal(t, "840", dto.Totals.Total.String())
	assert.Equal(t, "840", dto.Totals.BalanceDue.String())
	require.Len(t, dto.Groups, 1)
	require.Len(t, dto.Groups[0].Entries, 2)
	// same weight, so newest first
	assert.Equal(t, "l2", dto.Groups[0].Entries[0].ID)
	assert.Equal(t, "l1", dto.Groups[0].Entries[1].ID)
}

func lineFor(t *testing.T, dto api.PreviewDTO, entryID string) api.LineItemDTO {
	t.Helper()
	for _, item := range dto.Invoice.Items {
		if item.EntryID == entryID {
			return item
		}
	}
	t.Fatalf("no line for entry %s", entryID)
	return api.LineItemDTO{}
}

func TestPreview_LicenseQuantity(t *testing.T) {
	withCatalog := strings.Replace(books, `"invoices":`, `"licenses": [{"label": "Font Licenses", "cost": "25"}],
  "invoices":`, 1)

	tests := []struct {
		name     string
		content  string
		extra    []string
		quantity string
		rate     string
	}{
		{"no catalog", books, nil, "1", "240"},
		{"catalog in the export", withCatalog, nil, "8", "30"},
		{"flag", books, []string{"--license", "Font Licenses=50"}, "4", "60"},
		{"flag wins over the export", withCatalog, []string{"--license", "Font Licenses=50"}, "4", "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: a 200 font license expense at 20% markup
			path := writeBooks(t, tt.content)

			// WHEN
			args := append([]string{"preview", "-s", path, "-c", "c1", "-m", "2026-10",
				"--date", "2026-10-15", "-f", "json"}, tt.extra...)
			out, err := execute(t, args...)

			// THEN: the 240 line is split into units of the catalog cost
			require.NoError(t, err)
			var dto api.PreviewDTO
			require.NoError(t, json.Unmarshal([]byte(out), &dto))
			line := lineFor(t, dto, "l2")
			assert.Equal(t, tt.quantity, line.Quantity.String())
			assert.Equal(t, tt.rate, line.Rate.String())
			assert.Equal(t, "240", line.Amount.String())
		})
	}
}

func TestPreview_TextWithWriteOff(t *testing.T) {
	// GIVEN: a 500 retainer against 600 of October time
	path := writeBooks(t, books)

	// WHEN
	out, err := execute(t, "preview", "-s", path, "-c", "c1", "-m", "2026-10",
		"--paid", "500", "--write-off", "--date", "2026-10-15")

	// THEN: 840 - 500 paid leaves 340, of which 100 is time above the
	// expenses and gets written off
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice T-ACM-2610-02 for Acme Corp")
	assert.Contains(t, out, "Brand Refresh")
	assert.Contains(t, out, "Written off")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "240.00")
}

func TestPreview_Errors(t *testing.T) {
	path := writeBooks(t, books)

	tests := []struct {
		name string
		args []string
	}{
		{"missing client", []string{"preview", "-s", path}},
		{"unknown terms", []string{"preview", "-s", path, "-c", "c1", "-t", "NET_45"}},
		{"nothing to invoice", []string{"preview", "-s", path, "-c", "c1", "-m", "2020-01"}},
		{"bad paid amount", []string{"preview", "-s", path, "-c", "c1", "--paid", "lots"}},
		{"missing file", []string{"preview", "-s", filepath.Join(t.TempDir(), "none.json"), "-c", "c1"}},
		{"bad date", []string{"preview", "-s", path, "-c", "c1", "--date", "15/10/2026"}},
		{"license without cost", []string{"preview", "-s", path, "-c", "c1", "--license", "Font Licenses"}},
		{"free license", []string{"preview", "-s", path, "-c", "c1", "--license", "Font Licenses=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestPreview_RejectsInvalidEntries(t *testing.T) {
	// GIVEN: an export with a negative expense
	path := writeBooks(t, `{
  "clients": [{"id": "c1", "name": "Acme Corp"}],
  "projects": [{"id": "p1", "name": "Brand Refresh", "client_id": "c1"}],
  "entries": [{"id": "l1", "project_id": "p1", "date": "2026-10-02", "type": "EXPENSE", "cost": "-5"}]
}`)

	_, err := execute(t, "preview", "-s", path, "-c", "c1")

	assert.Error(t, err)
}
