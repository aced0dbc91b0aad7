package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// payloadJSON is the stored form of every payload variant. Which fields
// are meaningful depends on the entry type stored next to it.
type payloadJSON struct {
	Hours          *decimal.Decimal `json:"hours,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	RateMultiplier *decimal.Decimal `json:"rate_multiplier,omitempty"`
	Cost           *decimal.Decimal `json:"cost,omitempty"`
	MarkupPercent  *decimal.Decimal `json:"markup_percent,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	GoogleSpend    *decimal.Decimal `json:"google_spend,omitempty"`
	MetaSpend      *decimal.Decimal `json:"meta_spend,omitempty"`
	BillingMonth   string           `json:"billing_month,omitempty"`
}

// EncodePayload serializes a payload. A nil payload encodes as "{}".
func EncodePayload(p Payload) ([]byte, error) {
	var rec payloadJSON
	switch v := p.(type) {
	case nil:
	case TimePayload:
		rec.Hours, rec.Rate, rec.RateMultiplier = Dec(v.Hours), v.Rate, v.RateMultiplier
	case ExpensePayload:
		rec.Cost, rec.MarkupPercent = Dec(v.Cost), v.MarkupPercent
	case FixedFeePayload:
		rec.Amount = Dec(v.Amount)
	case MediaSpendPayload:
		rec.GoogleSpend, rec.MetaSpend, rec.BillingMonth = v.GoogleSpend, v.MetaSpend, v.BillingMonth
	}
	return json.Marshal(rec)
}

// DecodePayload rebuilds the payload for an entry of type t. An empty type
// yields a nil payload.
func DecodePayload(t EntryType, data []byte) (Payload, error) {
	if t == "" {
		return nil, nil
	}
	var rec payloadJSON
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	switch t {
	case EntryTime:
		return TimePayload{Hours: valueOr(rec.Hours, decimal.Zero), Rate: rec.Rate, RateMultiplier: rec.RateMultiplier}, nil
	case EntryExpense:
		return ExpensePayload{Cost: valueOr(rec.Cost, decimal.Zero), MarkupPercent: rec.MarkupPercent}, nil
	case EntryFixedFee:
		return FixedFeePayload{Amount: valueOr(rec.Amount, decimal.Zero)}, nil
	case EntryMediaSpend:
		return MediaSpendPayload{GoogleSpend: rec.GoogleSpend, MetaSpend: rec.MetaSpend, BillingMonth: rec.BillingMonth}, nil
	}
	return nil, &EntryError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", t)}
}

type lineItemJSON struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Type        EntryType       `json:"type"`
	EntryID     EntryID         `json:"entry_id,omitempty"`
	Flags       []LineFlag      `json:"flags,omitempty"`
}

// EncodeLineItems serializes an invoice's lines for storage.
func EncodeLineItems(items []InvoiceLineItem) ([]byte, error) {
	recs := make([]lineItemJSON, len(items))
	for i, it := range items {
		recs[i] = lineItemJSON(it)
	}
	return json.Marshal(recs)
}

// DecodeLineItems is the inverse of EncodeLineItems.
func DecodeLineItems(data []byte) ([]InvoiceLineItem, error) {
	var recs []lineItemJSON
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	items := make([]InvoiceLineItem, len(recs))
	for i, r := range recs {
		items[i] = InvoiceLineItem(r)
	}
	return items, nil
}
