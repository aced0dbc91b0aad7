package billing

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInvoicePrefix is the company prefix used when none is configured.
const DefaultInvoicePrefix = "T"

// Numbering derives invoice numbers of the form
// {Prefix}-{clientCode}-{yymm}-{seq}, e.g. T-ACM-2405-01.
//
// Next is deterministic in its inputs. Uniqueness holds only when every
// call sees all previously saved invoices; two callers numbering the same
// client and month concurrently get the same number. The Store rejects the
// second save with ErrDuplicateInvoiceNumber.
type Numbering struct {
	Prefix string
}

func (n Numbering) prefix() string {
	if n.Prefix == "" {
		return DefaultInvoicePrefix
	}
	return n.Prefix
}

// Draft is the placeholder number shown before a client is chosen.
func (n Numbering) Draft() string {
	return n.prefix() + "-DRAFT"
}

// Next returns the next number for clientName in the month of now.
func (n Numbering) Next(clientName string, history []Invoice, now time.Time) string {
	if clientName == "" {
		return n.Draft()
	}
	base := n.Base(clientName, now)
	count := 0
	for _, inv := range history {
		if inv.Number != "" && strings.HasPrefix(inv.Number, base) {
			count++
		}
	}
	return fmt.Sprintf("%s-%02d", base, count+1)
}

// Base returns the "{prefix}-{clientCode}-{yymm}" part shared by all of a
// client's invoices in a month.
func (n Numbering) Base(clientName string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%02d%02d", n.prefix(), ClientCode(clientName), now.Year()%100, int(now.Month()))
}

// ClientCode keeps the ASCII letters of name, uppercased, up to three.
// A name without letters yields an empty code.
func ClientCode(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == 3 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}
