package models

import "github.com/shopspring/decimal"

// LegacyRecord is the shape of transaction exports from early revisions of
// the calculator, where the two parties were hardcoded people rather than
// roster references and several fields went by different names. It is
// normalized to the canonical Transaction exactly once, at the import
// boundary; nothing downstream ever branches on the old names.
type LegacyRecord struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	Date         string          `json:"date"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	Expenses     []ExpenseItem   `json:"expenses"`

	// Canonical party fields, present in later exports only.
	PartnerID        string `json:"partnerId"`
	PartnerName      string `json:"partnerName"`
	CounterpartyID   string `json:"counterpartyId"`
	CounterpartyName string `json:"counterpartyName"`

	PartnerPercentage      *int64           `json:"partnerPercentage"`
	CounterpartyPercentage *int64           `json:"counterpartyPercentage"`
	PartnerShare           *decimal.Decimal `json:"partnerShare"`
	CounterpartyShare      *decimal.Decimal `json:"counterpartyShare"`

	// Aliases from the first revisions, when the split was between two
	// named individuals. The "eli" side maps to the partner, the
	// "shimon" side to the counterparty.
	EliPercentage    *int64           `json:"eliPercentage"`
	ShimonPercentage *int64           `json:"shimonPercentage"`
	EliShare         *decimal.Decimal `json:"eliShare"`
	ShimonShare      *decimal.Decimal `json:"shimonShare"`

	IsPaidToPartner *bool `json:"isPaidToPartner"`
	// Paid is the old name of the settlement flag.
	Paid *bool `json:"paid"`

	CreatedAt int64 `json:"createdAt"`
}

// Normalize produces the canonical Transaction for the legacy record.
// Canonical fields win over their aliases when both are present. Derived
// fields are recomputed rather than trusted from the export, so records
// saved with float drift come out consistent.
func (l LegacyRecord) Normalize() *Transaction {
	t := &Transaction{
		ID:               l.ID,
		PartnerID:        l.PartnerID,
		PartnerName:      l.PartnerName,
		CounterpartyID:   l.CounterpartyID,
		CounterpartyName: l.CounterpartyName,
		CustomerName:     l.CustomerName,
		Date:             l.Date,
		TotalRevenue:     l.TotalRevenue,
		Expenses:         append([]ExpenseItem(nil), l.Expenses...),
		CreatedAt:        l.CreatedAt,
	}

	switch {
	case l.PartnerPercentage != nil:
		t.PartnerPercentage = clampPercent(*l.PartnerPercentage)
	case l.EliPercentage != nil:
		t.PartnerPercentage = clampPercent(*l.EliPercentage)
	case l.CounterpartyPercentage != nil:
		t.PartnerPercentage = 100 - clampPercent(*l.CounterpartyPercentage)
	case l.ShimonPercentage != nil:
		t.PartnerPercentage = 100 - clampPercent(*l.ShimonPercentage)
	}
	t.CounterpartyPercentage = 100 - t.PartnerPercentage

	switch {
	case l.IsPaidToPartner != nil:
		t.IsPaidToPartner = *l.IsPaidToPartner
	case l.Paid != nil:
		t.IsPaidToPartner = *l.Paid
	}

	t.Recompute()
	return t
}

func clampPercent(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
