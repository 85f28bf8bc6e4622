package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"partnerledger/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(name, amount string) models.ExpenseItem {
	return models.ExpenseItem{ID: name, Name: name, Amount: dec(amount)}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name            string
		revenue         string
		expenses        []models.ExpenseItem
		partnerPct      int64
		wantNet         string
		wantPartner     string
		wantCounter     string
		wantPartnerPct  int64
		wantCounterPct  int64
	}{
		{
			name:    "revenue with expenses at 20 percent",
			revenue: "1000",
			expenses: []models.ExpenseItem{
				expense("fuel", "100"),
				expense("tools", "50"),
			},
			partnerPct:     20,
			wantNet:        "850",
			wantPartner:    "170",
			wantCounter:    "680",
			wantPartnerPct: 20,
			wantCounterPct: 80,
		},
		{
			name:           "zero percent sends everything to the counterparty",
			revenue:        "500",
			partnerPct:     0,
			wantNet:        "500",
			wantPartner:    "0",
			wantCounter:    "500",
			wantPartnerPct: 0,
			wantCounterPct: 100,
		},
		{
			name:    "loss splits into negative shares",
			revenue: "200",
			expenses: []models.ExpenseItem{
				expense("x", "300"),
			},
			partnerPct:     50,
			wantNet:        "-100",
			wantPartner:    "-50",
			wantCounter:    "-50",
			wantPartnerPct: 50,
			wantCounterPct: 50,
		},
		{
			name:           "zero revenue no expenses",
			revenue:        "0",
			partnerPct:     30,
			wantNet:        "0",
			wantPartner:    "0",
			wantCounter:    "0",
			wantPartnerPct: 30,
			wantCounterPct: 70,
		},
		{
			name:           "percentage above range clamps to 100",
			revenue:        "100",
			partnerPct:     130,
			wantNet:        "100",
			wantPartner:    "100",
			wantCounter:    "0",
			wantPartnerPct: 100,
			wantCounterPct: 0,
		},
		{
			name:           "percentage below range clamps to 0",
			revenue:        "100",
			partnerPct:     -10,
			wantNet:        "100",
			wantPartner:    "0",
			wantCounter:    "100",
			wantPartnerPct: 0,
			wantCounterPct: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(dec(tt.revenue), tt.expenses, tt.partnerPct)

			if !got.NetProfit.Equal(dec(tt.wantNet)) {
				t.Errorf("NetProfit = %s, want %s", got.NetProfit, tt.wantNet)
			}
			if !got.PartnerShare.Equal(dec(tt.wantPartner)) {
				t.Errorf("PartnerShare = %s, want %s", got.PartnerShare, tt.wantPartner)
			}
			if !got.CounterpartyShare.Equal(dec(tt.wantCounter)) {
				t.Errorf("CounterpartyShare = %s, want %s", got.CounterpartyShare, tt.wantCounter)
			}
			if got.PartnerPct != tt.wantPartnerPct {
				t.Errorf("PartnerPct = %d, want %d", got.PartnerPct, tt.wantPartnerPct)
			}
			if got.CounterpartyPct != tt.wantCounterPct {
				t.Errorf("CounterpartyPct = %d, want %d", got.CounterpartyPct, tt.wantCounterPct)
			}

			// Shares must always reassemble into net profit exactly.
			if sum := got.PartnerShare.Add(got.CounterpartyShare); !sum.Equal(got.NetProfit) {
				t.Errorf("shares sum to %s, want %s", sum, got.NetProfit)
			}
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	expenses := []models.ExpenseItem{expense("fuel", "100"), expense("tools", "50")}

	first := Compute(dec("1000"), expenses, 20)
	second := Compute(dec("1000"), expenses, 20)

	if !first.PartnerShare.Equal(second.PartnerShare) ||
		!first.CounterpartyShare.Equal(second.CounterpartyShare) ||
		!first.NetProfit.Equal(second.NetProfit) {
		t.Errorf("repeated Compute diverged: first %+v, second %+v", first, second)
	}
}

func TestComputeSplitsFullRevenueWithoutExpenses(t *testing.T) {
	for pct := int64(0); pct <= 100; pct += 5 {
		got := Compute(dec("1234.56"), nil, pct)
		if sum := got.PartnerShare.Add(got.CounterpartyShare); !sum.Equal(dec("1234.56")) {
			t.Errorf("pct %d: shares sum to %s, want full revenue", pct, sum)
		}
	}
}

func TestMirrorPercent(t *testing.T) {
	tests := []struct {
		in             int64
		wantPct        int64
		wantComplement int64
	}{
		{0, 0, 100},
		{20, 20, 80},
		{50, 50, 50},
		{100, 100, 0},
		{-5, 0, 100},
		{150, 100, 0},
	}

	for _, tt := range tests {
		pct, complement := MirrorPercent(tt.in)
		if pct != tt.wantPct || complement != tt.wantComplement {
			t.Errorf("MirrorPercent(%d) = (%d, %d), want (%d, %d)",
				tt.in, pct, complement, tt.wantPct, tt.wantComplement)
		}

		// Round-trip: setting the same value again must not drift.
		again, complementAgain := MirrorPercent(pct)
		if again != pct || complementAgain != complement {
			t.Errorf("MirrorPercent round-trip drifted for %d", tt.in)
		}
	}
}
