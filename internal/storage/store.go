// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tripmate/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrBillClosed is returned when a closed bill is asked to accept changes.
var ErrBillClosed = errors.New("bill is closed")

// UserStore finds and creates website users.
type UserStore interface {
	// GetOrCreateUserByLineID returns the user linked to lineUserID, creating
	// it when it does not exist yet. Concurrent calls for the same ID return
	// the same user.
	GetOrCreateUserByLineID(ctx context.Context, lineUserID string) (*models.User, error)
}

// BillStore defines the bill and expense operations.
type BillStore interface {
	// CreateBill persists a new bill with its creator as the only participant.
	// ID, CreatedAt, Status and Currency are filled in when empty; TotalAmount is forced to 0.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill with its participants.
	// Returns an error wrapping ErrNotFound if the bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBillsByParticipant returns the bills userID participates in, newest first.
	ListBillsByParticipant(ctx context.Context, userID string, limit int) ([]*models.Bill, error)

	// AddParticipant adds userID to the bill. It is idempotent and reports
	// whether the user was newly added.
	AddParticipant(ctx context.Context, billID, userID string) (bool, error)

	// SetBillStatus changes a bill's status.
	SetBillStatus(ctx context.Context, billID string, status models.BillStatus) error

	// AddExpense inserts the expense and increases the bill total by its
	// amount in one transaction, returning the new total.
	AddExpense(ctx context.Context, expense *models.Expense) (float64, error)

	// ListExpenses returns a bill's expenses in creation order.
	ListExpenses(ctx context.Context, billID string) ([]*models.Expense, error)
}

// TripStore defines the trip operations.
type TripStore interface {
	// CreateTrip persists a new trip, generating ID and timestamps.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip by ID (ErrNotFound if missing).
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// ListTripsByOwner returns ownerID's trips, newest first.
	ListTripsByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Trip, error)

	// UpdateTrip applies a partial update to a trip owned by ownerID and
	// returns the updated trip. ErrNotFound if missing or not owned.
	UpdateTrip(ctx context.Context, tripID, ownerID string, update models.TripUpdate) (*models.Trip, error)

	// DeleteTrip removes a trip owned by ownerID. ErrNotFound if missing or not owned.
	DeleteTrip(ctx context.Context, tripID, ownerID string) error

	// ListTrips returns one page of trips matching the query plus the total
	// number of matching trips.
	ListTrips(ctx context.Context, q models.TripQuery) ([]*models.Trip, int64, error)

	// TripFilters returns the distinct areas and distinct tags, both sorted.
	TripFilters(ctx context.Context) (areas []string, tags []string, err error)

	// IncrementViewCount adds one view to a trip (ErrNotFound if missing).
	IncrementViewCount(ctx context.Context, tripID string) error

	// RankTrips returns up to limit trips ranked by kind.
	RankTrips(ctx context.Context, kind models.RankingKind, limit int) ([]*models.RankedTrip, error)
}

// Store is everything the server needs from a storage backend.
type Store interface {
	UserStore
	BillStore
	TripStore

	// Close releases any resources held by the store.
	Close() error
}
