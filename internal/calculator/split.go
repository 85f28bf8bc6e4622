// Package calculator implements the pure split computation and the
// pre-save expense ledger.
package calculator

import (
	"github.com/shopspring/decimal"

	"partnerledger/internal/models"
)

// SplitResult is the outcome of dividing net profit between the two
// parties. PartnerShare + CounterpartyShare always equals NetProfit.
type SplitResult struct {
	NetProfit         decimal.Decimal
	PartnerShare      decimal.Decimal
	CounterpartyShare decimal.Decimal
	PartnerPct        int64
	CounterpartyPct   int64
}

// ClampPercent bounds v to [0, 100].
func ClampPercent(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MirrorPercent clamps one side of the split and derives the other, so
// the pair sums to 100 by construction. Setting either side goes through
// here; setting the same value twice is a no-op.
func MirrorPercent(v int64) (pct, complement int64) {
	pct = ClampPercent(v)
	return pct, 100 - pct
}

// Compute derives net profit and both shares from a revenue figure, an
// expense list, and the partner's percentage. It is deterministic, has no
// side effects, and tolerates zero revenue and negative net profit: a
// loss splits into negative shares, not an error.
func Compute(revenue decimal.Decimal, expenses []models.ExpenseItem, partnerPct int64) SplitResult {
	pct, complement := MirrorPercent(partnerPct)
	net := revenue.Sub(models.SumExpenses(expenses))
	partnerShare := net.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
	return SplitResult{
		NetProfit:         net,
		PartnerShare:      partnerShare,
		CounterpartyShare: net.Sub(partnerShare),
		PartnerPct:        pct,
		CounterpartyPct:   complement,
	}
}
