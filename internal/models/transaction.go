package models

import (
	"time"

	"github.com/shopspring/decimal"

	"partnerledger/internal/errs"
)

// DateLayout is the calendar-date format used by Transaction.Date.
const DateLayout = "2006-01-02"

// DefaultCustomerName is substituted when a transaction is saved with a
// blank customer name.
const DefaultCustomerName = "walk-in customer"

// ExpenseItem is a single named deduction on a transaction. Once the
// transaction is saved the expense list is a frozen snapshot until the
// record itself is edited.
type ExpenseItem struct {
	// ID is an opaque unique identifier assigned at creation.
	ID string `json:"id"`

	// Name is the display label. Must be non-empty.
	Name string `json:"name"`

	// Amount is the non-negative deduction value.
	Amount decimal.Decimal `json:"amount"`
}

// Validate checks the expense item's input constraints.
func (e ExpenseItem) Validate() error {
	if e.Name == "" {
		return errs.Validationf("expense name must not be empty")
	}
	if e.Amount.IsNegative() {
		return errs.Validationf("expense amount must not be negative: %s", e.Amount)
	}
	return nil
}

// SumExpenses returns the total of the given amounts. Zero for an empty
// list. The result is independent of item order.
func SumExpenses(items []ExpenseItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// Transaction is the persisted unit of the ledger: customer and date
// metadata, the expense snapshot, the split outcome, the two party
// identities, and the payment-status flag.
type Transaction struct {
	// ID is assigned by the store on first persist; empty for a draft.
	// Immutable once assigned.
	ID string `json:"id"`

	// PartnerID references the roster entry earning the revenue.
	PartnerID string `json:"partner_id"`

	// PartnerName is the partner's display name cached at creation/edit
	// time. See the package doc on denormalized names.
	PartnerName string `json:"partner_name"`

	// CounterpartyID references the boss-side roster entry.
	CounterpartyID string `json:"counterparty_id"`

	// CounterpartyName is the counterparty's cached display name.
	CounterpartyName string `json:"counterparty_name"`

	// CustomerName is free text; defaults to DefaultCustomerName.
	CustomerName string `json:"customer_name"`

	// Date is the calendar date of the transaction (DateLayout).
	// Defaults to the creation date.
	Date string `json:"date"`

	// TotalRevenue is the gross input value. Non-negative.
	TotalRevenue decimal.Decimal `json:"total_revenue"`

	// Expenses is the ordered expense snapshot. Insertion order matters
	// for display only.
	Expenses []ExpenseItem `json:"expenses"`

	// TotalExpenses is derived: always the sum of Expenses amounts.
	TotalExpenses decimal.Decimal `json:"total_expenses"`

	// NetProfit is derived: TotalRevenue - TotalExpenses. May be
	// negative; a loss is still splittable.
	NetProfit decimal.Decimal `json:"net_profit"`

	// PartnerPercentage and CounterpartyPercentage always sum to 100.
	PartnerPercentage      int64 `json:"partner_percentage"`
	CounterpartyPercentage int64 `json:"counterparty_percentage"`

	// PartnerShare and CounterpartyShare are derived from NetProfit and
	// the percentages; together they equal NetProfit.
	PartnerShare      decimal.Decimal `json:"partner_share"`
	CounterpartyShare decimal.Decimal `json:"counterparty_share"`

	// IsPaidToPartner is a boss-settable settlement flag.
	IsPaidToPartner bool `json:"is_paid_to_partner"`

	// CreatedAt is the Unix timestamp (milliseconds) assigned once at
	// first persist. Edits preserve it.
	CreatedAt int64 `json:"created_at"`
}

var oneHundred = decimal.NewFromInt(100)

// Recompute refreshes every derived field from its inputs. Call after any
// change to revenue, expenses, or percentages.
func (t *Transaction) Recompute() {
	t.TotalExpenses = SumExpenses(t.Expenses)
	t.NetProfit = t.TotalRevenue.Sub(t.TotalExpenses)
	t.PartnerShare = t.NetProfit.Mul(decimal.NewFromInt(t.PartnerPercentage)).Div(oneHundred)
	t.CounterpartyShare = t.NetProfit.Sub(t.PartnerShare)
}

// ApplyDefaults fills the blank-input defaults before first persist.
func (t *Transaction) ApplyDefaults(now time.Time) {
	if t.CustomerName == "" {
		t.CustomerName = DefaultCustomerName
	}
	if t.Date == "" {
		t.Date = now.Format(DateLayout)
	}
}

// Validate checks input constraints and the record's invariants.
func (t *Transaction) Validate() error {
	if t.PartnerID == "" {
		return errs.Validationf("partner id must be set")
	}
	if t.CounterpartyID == "" {
		return errs.Validationf("counterparty id must be set")
	}
	if t.TotalRevenue.IsNegative() {
		return errs.Validationf("total revenue must not be negative: %s", t.TotalRevenue)
	}
	if t.PartnerPercentage < 0 || t.PartnerPercentage > 100 {
		return errs.Validationf("partner percentage out of range: %d", t.PartnerPercentage)
	}
	if t.PartnerPercentage+t.CounterpartyPercentage != 100 {
		return errs.Validationf("percentages must sum to 100, got %d + %d",
			t.PartnerPercentage, t.CounterpartyPercentage)
	}
	if t.Date != "" {
		if _, err := time.Parse(DateLayout, t.Date); err != nil {
			return errs.Validationf("date must be %s formatted: %q", DateLayout, t.Date)
		}
	}
	for _, e := range t.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if !t.TotalExpenses.Equal(SumExpenses(t.Expenses)) {
		return errs.Validationf("total expenses out of sync with expense list")
	}
	if !t.NetProfit.Equal(t.TotalRevenue.Sub(t.TotalExpenses)) {
		return errs.Validationf("net profit out of sync with revenue and expenses")
	}
	return nil
}

// Clone returns a deep copy, safe to mutate independently.
func (t *Transaction) Clone() *Transaction {
	dup := *t
	dup.Expenses = make([]ExpenseItem, len(t.Expenses))
	copy(dup.Expenses, t.Expenses)
	return &dup
}

// TransactionPatch is a partial update to an existing transaction. Only
// non-nil fields are written, which bounds lost updates between concurrent
// editors to field granularity (last write wins per field). ID and
// CreatedAt are not patchable.
type TransactionPatch struct {
	PartnerID        *string
	PartnerName      *string
	CounterpartyID   *string
	CounterpartyName *string
	CustomerName     *string
	Date             *string

	TotalRevenue *decimal.Decimal
	Expenses     *[]ExpenseItem

	PartnerPercentage      *int64
	CounterpartyPercentage *int64

	// Derived fields, filled by the service layer from the merged record.
	TotalExpenses     *decimal.Decimal
	NetProfit         *decimal.Decimal
	PartnerShare      *decimal.Decimal
	CounterpartyShare *decimal.Decimal

	IsPaidToPartner *bool
}

// IsZero reports whether the patch specifies no fields.
func (p TransactionPatch) IsZero() bool {
	return p == TransactionPatch{}
}

// TouchesFinancials reports whether applying the patch requires the
// derived fields to be recomputed.
func (p TransactionPatch) TouchesFinancials() bool {
	return p.TotalRevenue != nil || p.Expenses != nil ||
		p.PartnerPercentage != nil || p.CounterpartyPercentage != nil
}

// TouchesRestricted reports whether the patch changes anything beyond the
// party-assignment fields. Used by the reassign-only edit variant.
func (p TransactionPatch) TouchesRestricted() bool {
	trimmed := p
	trimmed.PartnerID = nil
	trimmed.PartnerName = nil
	trimmed.CounterpartyID = nil
	trimmed.CounterpartyName = nil
	return !trimmed.IsZero()
}

// ApplyTo merges the patch's input fields onto the record in place.
// Derived fields are not copied; the caller recomputes them.
func (p TransactionPatch) ApplyTo(t *Transaction) {
	if p.PartnerID != nil {
		t.PartnerID = *p.PartnerID
	}
	if p.PartnerName != nil {
		t.PartnerName = *p.PartnerName
	}
	if p.CounterpartyID != nil {
		t.CounterpartyID = *p.CounterpartyID
	}
	if p.CounterpartyName != nil {
		t.CounterpartyName = *p.CounterpartyName
	}
	if p.CustomerName != nil {
		t.CustomerName = *p.CustomerName
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.TotalRevenue != nil {
		t.TotalRevenue = *p.TotalRevenue
	}
	if p.Expenses != nil {
		t.Expenses = make([]ExpenseItem, len(*p.Expenses))
		copy(t.Expenses, *p.Expenses)
	}
	if p.PartnerPercentage != nil {
		t.PartnerPercentage = *p.PartnerPercentage
	}
	if p.CounterpartyPercentage != nil {
		t.CounterpartyPercentage = *p.CounterpartyPercentage
	}
	if p.IsPaidToPartner != nil {
		t.IsPaidToPartner = *p.IsPaidToPartner
	}
}
