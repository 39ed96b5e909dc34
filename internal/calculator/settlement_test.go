package calculator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

const tolerance = 1e-9

func approx(d decimal.Decimal, want float64) bool {
	return math.Abs(d.InexactFloat64()-want) < tolerance
}

func TestComputeSettlement(t *testing.T) {
	tests := []struct {
		name         string
		bill         BillForSettlement
		payments     []Payment
		wantErr      error
		validateFunc func(t *testing.T, s *Settlement)
	}{
		{
			name:     "single payer covers the whole bill",
			bill:     BillForSettlement{Total: 300, Participants: []string{"A", "B", "C"}},
			payments: []Payment{{PayerID: "A", Amount: 300}},
			validateFunc: func(t *testing.T, s *Settlement) {
				// shouldPay = 100 each; A paid 300 so is owed 200
				want := map[string][3]float64{
					"A": {300, 100, 200},
					"B": {0, 100, -100},
					"C": {0, 100, -100},
				}
				for id, w := range want {
					e := s.Entries[id]
					if e == nil {
						t.Fatalf("missing entry for %s", id)
					}
					if !approx(e.Paid, w[0]) || !approx(e.ShouldPay, w[1]) || !approx(e.Balance, w[2]) {
						t.Errorf("%s = {paid %s, shouldPay %s, balance %s}, want %v", id, e.Paid, e.ShouldPay, e.Balance, w)
					}
				}
				if !approx(s.PerPerson, 100) {
					t.Errorf("PerPerson = %s, want 100", s.PerPerson)
				}
			},
		},
		{
			name: "no expenses leaves everyone owing their share",
			bill: BillForSettlement{Total: 90, Participants: []string{"Alice", "Bob", "Charlie"}},
			validateFunc: func(t *testing.T, s *Settlement) {
				for id, e := range s.Entries {
					if !approx(e.ShouldPay, 30) {
						t.Errorf("%s shouldPay = %s, want 30", id, e.ShouldPay)
					}
					if !e.Paid.IsZero() {
						t.Errorf("%s paid = %s, want 0", id, e.Paid)
					}
					if !e.Balance.Equal(e.ShouldPay.Neg()) {
						t.Errorf("%s balance = %s, want %s", id, e.Balance, e.ShouldPay.Neg())
					}
				}
			},
		},
		{
			name: "several payers",
			bill: BillForSettlement{Total: 90, Participants: []string{"Alice", "Bob", "Charlie"}},
			payments: []Payment{
				{PayerID: "Alice", Amount: 50},
				{PayerID: "Bob", Amount: 25},
				{PayerID: "Alice", Amount: 15},
			},
			validateFunc: func(t *testing.T, s *Settlement) {
				// 30 each: Alice +35, Bob -5, Charlie -30
				if !approx(s.Entries["Alice"].Balance, 35) {
					t.Errorf("Alice balance = %s, want 35", s.Entries["Alice"].Balance)
				}
				if !approx(s.Entries["Bob"].Balance, -5) {
					t.Errorf("Bob balance = %s, want -5", s.Entries["Bob"].Balance)
				}
				if !approx(s.Entries["Charlie"].Balance, -30) {
					t.Errorf("Charlie balance = %s, want -30", s.Entries["Charlie"].Balance)
				}
			},
		},
		{
			name: "repeated participant IDs count once",
			bill: BillForSettlement{Total: 20, Participants: []string{"Alice", "Bob", "Alice"}},
			payments: []Payment{
				{PayerID: "Bob", Amount: 20},
			},
			validateFunc: func(t *testing.T, s *Settlement) {
				if len(s.Entries) != 2 {
					t.Errorf("expected 2 entries, got %d", len(s.Entries))
				}
				if !approx(s.PerPerson, 10) {
					t.Errorf("PerPerson = %s, want 10", s.PerPerson)
				}
			},
		},
		{
			name:    "no participants is an invalid state",
			bill:    BillForSettlement{Total: 10, Participants: []string{}},
			wantErr: ErrInvalidState,
		},
		{
			name:    "negative total is an invalid state",
			bill:    BillForSettlement{Total: -1, Participants: []string{"Alice"}},
			wantErr: ErrInvalidState,
		},
		{
			name:     "payer outside the bill is rejected",
			bill:     BillForSettlement{Total: 10, Participants: []string{"Alice"}},
			payments: []Payment{{PayerID: "Mallory", Amount: 10}},
			wantErr:  ErrDataIntegrity,
		},
		{
			name:     "non-positive payment is rejected",
			bill:     BillForSettlement{Total: 0, Participants: []string{"Alice"}},
			payments: []Payment{{PayerID: "Alice", Amount: 0}},
			wantErr:  ErrDataIntegrity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ComputeSettlement(tt.bill, tt.payments)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ComputeSettlement() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeSettlement() unexpected error: %v", err)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, s)
			}
		})
	}
}

func TestComputeSettlement_DoesNotMutateInputs(t *testing.T) {
	participants := []string{"A", "B", "A"}
	payments := []Payment{{PayerID: "A", Amount: 12.5}}

	if _, err := ComputeSettlement(BillForSettlement{Total: 12.5, Participants: participants}, payments); err != nil {
		t.Fatalf("ComputeSettlement failed: %v", err)
	}

	if len(participants) != 3 || participants[2] != "A" {
		t.Errorf("participants modified: %v", participants)
	}
	if payments[0].Amount != 12.5 {
		t.Errorf("payments modified: %v", payments)
	}
}

// Random bills must always conserve money and split the total evenly.
func TestComputeSettlement_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(8)
		participants := make([]string, n)
		for i := range participants {
			participants[i] = fmt.Sprintf("p%d", i)
		}

		var payments []Payment
		total := 0.0
		for k := rng.Intn(12); k > 0; k-- {
			amount := float64(1+rng.Intn(100000)) / 100
			payments = append(payments, Payment{PayerID: participants[rng.Intn(n)], Amount: amount})
			total += amount
		}

		s, err := ComputeSettlement(BillForSettlement{Total: total, Participants: participants}, payments)
		if err != nil {
			t.Fatalf("round %d: ComputeSettlement failed: %v", round, err)
		}

		want := total / float64(n)
		balanceSum := decimal.Zero
		for id, e := range s.Entries {
			if math.Abs(e.ShouldPay.InexactFloat64()-want) > 1e-6 {
				t.Errorf("round %d: %s shouldPay = %s, want %v", round, id, e.ShouldPay, want)
			}
			balanceSum = balanceSum.Add(e.Balance)
		}
		if math.Abs(balanceSum.InexactFloat64()) > 1e-6 {
			t.Errorf("round %d: balances sum to %s, want 0", round, balanceSum)
		}
	}
}

func TestComputeSettlement_SinglePayerFormula(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 7} {
		participants := make([]string, n)
		for i := range participants {
			participants[i] = fmt.Sprintf("p%d", i)
		}
		total := 123.45

		s, err := ComputeSettlement(
			BillForSettlement{Total: total, Participants: participants},
			[]Payment{{PayerID: "p0", Amount: total}},
		)
		if err != nil {
			t.Fatalf("n=%d: ComputeSettlement failed: %v", n, err)
		}

		wantPayer := total * float64(n-1) / float64(n)
		if math.Abs(s.Entries["p0"].Balance.InexactFloat64()-wantPayer) > 1e-6 {
			t.Errorf("n=%d: payer balance = %s, want %v", n, s.Entries["p0"].Balance, wantPayer)
		}
		for _, p := range participants[1:] {
			if math.Abs(s.Entries[p].Balance.InexactFloat64()+total/float64(n)) > 1e-6 {
				t.Errorf("n=%d: %s balance = %s, want %v", n, p, s.Entries[p].Balance, -total/float64(n))
			}
		}
	}
}

func TestVerifyTotal(t *testing.T) {
	payments := []Payment{{PayerID: "A", Amount: 0.1}, {PayerID: "B", Amount: 0.2}}

	if err := VerifyTotal(0.1+0.2, payments); err != nil {
		t.Errorf("VerifyTotal() with matching total: %v", err)
	}
	if err := VerifyTotal(0.31, payments); !errors.Is(err, ErrDataIntegrity) {
		t.Errorf("VerifyTotal() with drifted total = %v, want ErrDataIntegrity", err)
	}
	if err := VerifyTotal(0, nil); err != nil {
		t.Errorf("VerifyTotal() on empty bill: %v", err)
	}
}

func TestVerifyTotal_LargeAmounts(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		payments []Payment
		wantErr  bool
	}{
		{
			name:     "float64 absorbs the smaller payment",
			total:    1e16 + 1, // rounds to 1e16
			payments: []Payment{{PayerID: "A", Amount: 1e16}, {PayerID: "B", Amount: 1}},
		},
		{
			name:  "accumulated cent rounding",
			total: 999999999999.99 + 999999999999.99 + 0.01 + 0.01 + 0.01,
			payments: []Payment{
				{PayerID: "A", Amount: 999999999999.99},
				{PayerID: "A", Amount: 999999999999.99},
				{PayerID: "B", Amount: 0.01},
				{PayerID: "B", Amount: 0.01},
				{PayerID: "B", Amount: 0.01},
			},
		},
		{
			name:     "missing payment is still caught",
			total:    2e16,
			payments: []Payment{{PayerID: "A", Amount: 1e16}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyTotal(tt.total, tt.payments)
			if tt.wantErr {
				if !errors.Is(err, ErrDataIntegrity) {
					t.Errorf("VerifyTotal() = %v, want ErrDataIntegrity", err)
				}
				return
			}
			if err != nil {
				t.Errorf("VerifyTotal() = %v, want nil", err)
			}
		})
	}
}
