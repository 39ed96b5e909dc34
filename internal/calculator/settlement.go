package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidState is returned when a bill cannot be settled at all,
	// e.g. it has no participants to divide the total between.
	ErrInvalidState = errors.New("invalid bill state")

	// ErrDataIntegrity is returned when the recorded expenses contradict the
	// bill they belong to (unknown payer, impossible amount, drifted total).
	ErrDataIntegrity = errors.New("bill data integrity violation")
)

// The stored bill total may drift from the sum of its expenses by half a
// cent, or by one part in 10^12 of the total when that is larger. Large
// totals lose more than a cent to float64 rounding of REAL/DOUBLE columns.
var (
	totalTolerance    = decimal.New(5, -3)
	relativeTolerance = decimal.New(1, -12)
)

// BillForSettlement holds the minimal bill snapshot needed to settle it.
type BillForSettlement struct {
	Total        float64
	Participants []string
}

// Payment is one recorded expense reduced to who paid and how much.
type Payment struct {
	PayerID string
	Amount  float64
}

// Entry is one participant's position under the equal-split policy.
type Entry struct {
	Paid      decimal.Decimal // Sum of expenses this participant paid
	ShouldPay decimal.Decimal // Equal share of the bill total
	Balance   decimal.Decimal // Positive = is owed money, Negative = owes money
}

// Settlement is the derived, never persisted, result of settling a bill.
// Entries is keyed by participant ID; its iteration order means nothing.
type Settlement struct {
	Total     decimal.Decimal
	PerPerson decimal.Decimal
	Entries   map[string]*Entry
}

// ComputeSettlement settles a bill by equal division.
//
// Every participant owes total/len(participants). What each participant paid
// is summed from the payments, and balance = paid - shouldPay. A payer that
// is not a participant is rejected with ErrDataIntegrity instead of being
// dropped. A bill without participants fails with ErrInvalidState.
//
// The inputs are not modified and a fresh result is allocated on every call,
// so concurrent calls need no coordination.
func ComputeSettlement(bill BillForSettlement, payments []Payment) (*Settlement, error) {
	participants := uniqueParticipants(bill.Participants)
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: bill has no participants", ErrInvalidState)
	}
	if !isFinite(bill.Total) || bill.Total < 0 {
		return nil, fmt.Errorf("%w: total amount %v", ErrInvalidState, bill.Total)
	}

	total := decimal.NewFromFloat(bill.Total)
	shouldPay := total.Div(decimal.NewFromInt(int64(len(participants))))

	entries := make(map[string]*Entry, len(participants))
	for _, p := range participants {
		entries[p] = &Entry{
			Paid:      decimal.Zero,
			ShouldPay: shouldPay,
		}
	}

	for _, payment := range payments {
		entry, ok := entries[payment.PayerID]
		if !ok {
			return nil, fmt.Errorf("%w: payer %q is not a participant", ErrDataIntegrity, payment.PayerID)
		}
		amount, err := paymentAmount(payment)
		if err != nil {
			return nil, err
		}
		entry.Paid = entry.Paid.Add(amount)
	}

	for _, entry := range entries {
		entry.Balance = entry.Paid.Sub(entry.ShouldPay)
	}

	return &Settlement{
		Total:     total,
		PerPerson: shouldPay,
		Entries:   entries,
	}, nil
}

// VerifyTotal checks that a stored bill total still equals the sum of its
// payments. Bills only grow through expense creation, so any difference means
// the total was mutated some other way.
func VerifyTotal(total float64, payments []Payment) error {
	if !isFinite(total) {
		return fmt.Errorf("%w: total amount %v", ErrDataIntegrity, total)
	}
	sum := decimal.Zero
	for _, payment := range payments {
		amount, err := paymentAmount(payment)
		if err != nil {
			return err
		}
		sum = sum.Add(amount)
	}
	stored := decimal.NewFromFloat(total)
	allowed := decimal.Max(totalTolerance, stored.Abs().Mul(relativeTolerance))
	if sum.Sub(stored).Abs().GreaterThan(allowed) {
		return fmt.Errorf("%w: expenses sum to %s but bill total is %s", ErrDataIntegrity, sum, stored)
	}
	return nil
}

func paymentAmount(p Payment) (decimal.Decimal, error) {
	if !isFinite(p.Amount) || p.Amount <= 0 {
		return decimal.Zero, fmt.Errorf("%w: payment of %v by %q", ErrDataIntegrity, p.Amount, p.PayerID)
	}
	return decimal.NewFromFloat(p.Amount), nil
}

// uniqueParticipants drops empty and repeated IDs; a participant set never
// counts anyone twice.
func uniqueParticipants(participants []string) []string {
	seen := make(map[string]bool, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
