package service

import (
	"github.com/shopspring/decimal"

	"partnerledger/internal/models"
)

// FilterAll is the sentinel partner filter matching every record.
const FilterAll = "all"

// Totals are the summed shares over a visible record set.
type Totals struct {
	PartnerTotal      decimal.Decimal `json:"partner_total"`
	CounterpartyTotal decimal.Decimal `json:"counterparty_total"`
}

// Aggregate sums both parties' shares across the given records. It is
// recomputed from scratch on every feed refresh, never cached apart from
// the records it derives from.
func Aggregate(records []models.Transaction) Totals {
	totals := Totals{
		PartnerTotal:      decimal.Zero,
		CounterpartyTotal: decimal.Zero,
	}
	for _, r := range records {
		totals.PartnerTotal = totals.PartnerTotal.Add(r.PartnerShare)
		totals.CounterpartyTotal = totals.CounterpartyTotal.Add(r.CounterpartyShare)
	}
	return totals
}

// FilterByPartner returns the records owned by partnerID. FilterAll (or
// an empty filter) returns the input unchanged.
func FilterByPartner(records []models.Transaction, partnerID string) []models.Transaction {
	if partnerID == "" || partnerID == FilterAll {
		return records
	}
	var out []models.Transaction
	for _, r := range records {
		if r.PartnerID == partnerID {
			out = append(out, r)
		}
	}
	return out
}

// PartnerRef is a distinct partner observed in a record set, as cached on
// the records themselves. Used to build the boss's filter control.
type PartnerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UniquePartners returns the distinct (id, name) pairs in first-seen
// order.
func UniquePartners(records []models.Transaction) []PartnerRef {
	seen := make(map[string]bool, len(records))
	var out []PartnerRef
	for _, r := range records {
		if seen[r.PartnerID] {
			continue
		}
		seen[r.PartnerID] = true
		out = append(out, PartnerRef{ID: r.PartnerID, Name: r.PartnerName})
	}
	return out
}
