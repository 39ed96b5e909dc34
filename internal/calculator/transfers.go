package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// settleThreshold is the smallest amount worth asking someone to transfer.
var settleThreshold = decimal.New(1, -2)

// Transfer is a suggested payment from a debtor to a creditor.
type Transfer struct {
	From   string // Participant who owes
	To     string // Participant who is owed
	Amount decimal.Decimal
}

type position struct {
	id     string
	amount decimal.Decimal // always positive
}

// SuggestTransfers turns settlement balances into a short list of payments
// that brings every balance to zero.
//
// Algorithm:
//   - split participants into debtors (balance < 0) and creditors (balance > 0)
//   - order both by amount descending, ties by ID, so output is deterministic
//   - greedily match the current debtor with the current creditor for the
//     smaller of the two amounts, advancing whichever side is settled
//
// This yields at most len(debtors)+len(creditors)-1 transfers.
func SuggestTransfers(s *Settlement) []Transfer {
	if s == nil {
		return nil
	}

	var debtors, creditors []position
	for id, entry := range s.Entries {
		switch {
		case entry.Balance.IsNegative():
			debtors = append(debtors, position{id: id, amount: entry.Balance.Neg()})
		case entry.Balance.IsPositive():
			creditors = append(creditors, position{id: id, amount: entry.Balance})
		}
	}
	sortPositions(debtors)
	sortPositions(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.amount, creditor.amount)
		if amount.GreaterThanOrEqual(settleThreshold) {
			transfers = append(transfers, Transfer{
				From:   debtor.id,
				To:     creditor.id,
				Amount: amount,
			})
		}

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if debtor.amount.LessThan(settleThreshold) {
			i++
		}
		if creditor.amount.LessThan(settleThreshold) {
			j++
		}
	}

	return transfers
}

func sortPositions(ps []position) {
	sort.Slice(ps, func(a, b int) bool {
		if c := ps[a].amount.Cmp(ps[b].amount); c != 0 {
			return c > 0
		}
		return ps[a].id < ps[b].id
	})
}
