package models

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	// BillActive bills accept new participants and expenses.
	BillActive BillStatus = "active"
	// BillClosed bills are read-only.
	BillClosed BillStatus = "closed"
)

// DefaultCurrency is used when a bill is created without a currency code.
const DefaultCurrency = "TWD"

// DefaultExpenseCategory is used when an expense is recorded without one.
const DefaultExpenseCategory = "other"

// MaxExpenseAmount is the largest single expense a bill accepts.
const MaxExpenseAmount = 1e12

// Bill is a shared expense group settled by equal division.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// Title is the human-readable name for the bill.
	Title string

	// Description is optional free text.
	Description string

	// Currency is the ISO-like currency code all expenses are recorded in.
	Currency string

	// CreatorID is the user who created the bill. The creator is always a participant.
	CreatorID string

	// TotalAmount is the sum of all expense amounts on the bill.
	// It only changes when an expense is added, and the store applies that
	// increment in the same transaction as the insert.
	TotalAmount float64

	// Participants is the set of user IDs splitting the bill.
	Participants []string

	// Status is either BillActive or BillClosed.
	Status BillStatus

	// CreatedVia records which surface created the bill (e.g. "line_bot").
	CreatedVia string

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64
}

// HasParticipant reports whether userID is one of the bill's participants.
func (b *Bill) HasParticipant(userID string) bool {
	for _, p := range b.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Expense is one payment recorded against a bill. Expenses are immutable.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// BillID is the bill this expense belongs to.
	BillID string

	// PayerID is the participant who paid. Must be a participant of the bill.
	PayerID string

	// Amount is the positive amount paid, in the bill's currency.
	Amount float64

	// Description is what the money was spent on.
	Description string

	// Category groups expenses (e.g. "food", "transport", "other").
	Category string

	// Date is the day the expense occurred ("YYYY-MM-DD").
	Date string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}
