// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	clients  map[billing.ClientID]billing.Client
	projects map[billing.ProjectID]billing.Project
	entries  map[billing.EntryID]billing.LedgerEntry
	invoices map[billing.InvoiceID]billing.Invoice
	numbers  map[string]billing.InvoiceID
}

var _ billing.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.clients = make(map[billing.ClientID]billing.Client)
	m.projects = make(map[billing.ProjectID]billing.Project)
	m.entries = make(map[billing.EntryID]billing.LedgerEntry)
	m.invoices = make(map[billing.InvoiceID]billing.Invoice)
	m.numbers = make(map[string]billing.InvoiceID)
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SaveClient(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) GetClient(_ context.Context, id billing.ClientID) (*billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, billing.ErrClientNotFound
	}
	return &c, nil
}

// ListClients returns clients ordered by name.
func (m *Memory) ListClients(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteClient(_ context.Context, id billing.ClientID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return billing.ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *Memory) SaveProject(_ context.Context, p billing.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id billing.ProjectID) (*billing.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, billing.ErrProjectNotFound
	}
	return &p, nil
}

// ListProjects returns projects ordered by name.
func (m *Memory) ListProjects(_ context.Context) ([]billing.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteProject(_ context.Context, id billing.ProjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return billing.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) SaveEntry(_ context.Context, e billing.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id billing.EntryID) (*billing.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, billing.ErrEntryNotFound
	}
	return &e, nil
}

func (m *Memory) ListEntries(_ context.Context) ([]billing.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteEntry(_ context.Context, id billing.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return billing.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

// SaveInvoice inserts an invoice. Numbers are unique, like the SQLite
// store's index.
func (m *Memory) SaveInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.invoices[inv.ID]; exists {
		return billing.ErrDuplicateInvoiceID
	}
	if _, taken := m.numbers[inv.Number]; taken {
		return billing.ErrDuplicateInvoiceNumber
	}
	inv.Items = append([]billing.InvoiceLineItem(nil), inv.Items...)
	m.invoices[inv.ID] = inv
	m.numbers[inv.Number] = inv.ID
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (m *Memory) ListInvoices(_ context.Context, clientID billing.ClientID) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Invoice
	for _, inv := range m.invoices {
		if clientID != "" && inv.ClientID != clientID {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func (m *Memory) UpdateInvoiceStatus(_ context.Context, id billing.InvoiceID, status billing.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return billing.ErrInvoiceNotFound
	}
	inv.Status = status
	m.invoices[id] = inv
	return nil
}
