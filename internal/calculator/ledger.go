package calculator

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"partnerledger/internal/models"
)

// ExpenseLedger is the ordered, mutable expense list of a transaction
// being edited. It lives only during the editing session; on save its
// items become the transaction's frozen snapshot.
type ExpenseLedger struct {
	items []models.ExpenseItem
}

// NewExpenseLedger returns an empty ledger.
func NewExpenseLedger() *ExpenseLedger {
	return &ExpenseLedger{}
}

// Add appends a new line item with a fresh id. Rejects an empty name or a
// negative amount, leaving the ledger unchanged.
func (l *ExpenseLedger) Add(name string, amount decimal.Decimal) (models.ExpenseItem, error) {
	item := models.ExpenseItem{
		ID:     uuid.New().String(),
		Name:   name,
		Amount: amount,
	}
	if err := item.Validate(); err != nil {
		return models.ExpenseItem{}, err
	}
	l.items = append(l.items, item)
	return item, nil
}

// Remove deletes the item with the given id. Removing an absent id is a
// no-op, not an error.
func (l *ExpenseLedger) Remove(id string) {
	for i, item := range l.items {
		if item.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Total returns the sum of current amounts; zero for an empty ledger.
func (l *ExpenseLedger) Total() decimal.Decimal {
	return models.SumExpenses(l.items)
}

// Items returns a copy of the current line items in insertion order.
func (l *ExpenseLedger) Items() []models.ExpenseItem {
	out := make([]models.ExpenseItem, len(l.items))
	copy(out, l.items)
	return out
}
