package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripmate/internal/models"
	"github.com/mmynk/tripmate/internal/storage"
)

const billColumns = "id, title, description, currency, creator_id, total_amount, status, created_via, created_at"

// CreateBill persists a new bill and makes its creator the first participant.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.CreatorID == "" {
		return fmt.Errorf("bill creator is required")
	}
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Currency == "" {
		bill.Currency = models.DefaultCurrency
	}
	if bill.Status == "" {
		bill.Status = models.BillActive
	}
	bill.TotalAmount = 0
	bill.Participants = []string{bill.CreatorID}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO bills (`+billColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), bill.ID, bill.Title, bill.Description, bill.Currency, bill.CreatorID,
		bill.TotalAmount, string(bill.Status), bill.CreatedVia, bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		"INSERT INTO bill_participants (bill_id, user_id, joined_at) VALUES (?, ?, ?)",
	), bill.ID, bill.CreatorID, bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including its participants.
func (s *Store) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx, s.rebind(
		"SELECT "+billColumns+" FROM bills WHERE id = ?",
	), billID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("bill", billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if bill.Participants, err = s.participants(ctx, s.db, billID); err != nil {
		return nil, err
	}

	return bill, nil
}

// ListBillsByParticipant returns the bills a user participates in, newest first.
func (s *Store) ListBillsByParticipant(ctx context.Context, userID string, limit int) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT b.id, b.title, b.description, b.currency, b.creator_id, b.total_amount, b.status, b.created_via, b.created_at
		FROM bills b
		JOIN bill_participants p ON p.bill_id = b.id
		WHERE p.user_id = ?
		ORDER BY b.created_at DESC, b.id
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills by participant: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	rows.Close()

	for _, bill := range bills {
		if bill.Participants, err = s.participants(ctx, s.db, bill.ID); err != nil {
			return nil, err
		}
	}

	return bills, nil
}

// AddParticipant adds a user to an active bill. Adding an existing
// participant is a no-op.
//
// The status check is part of the insert, so a join racing CloseBill either
// lands before the close or is rejected.
func (s *Store) AddParticipant(ctx context.Context, billID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO bill_participants (bill_id, user_id, joined_at)
		SELECT id, ?, ? FROM bills WHERE id = ? AND status = ?
		ON CONFLICT (bill_id, user_id) DO NOTHING
	`), userID, time.Now().Unix(), billID, string(models.BillActive))
	if err != nil {
		return false, fmt.Errorf("failed to insert participant: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check inserted participant: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// Nothing inserted: missing bill, closed bill, or already a participant.
	status, err := s.billStatus(ctx, s.db, billID)
	if err != nil {
		return false, err
	}
	if status == models.BillClosed {
		return false, fmt.Errorf("bill %s: %w", billID, storage.ErrBillClosed)
	}
	return false, nil
}

// SetBillStatus changes a bill's status.
func (s *Store) SetBillStatus(ctx context.Context, billID string, status models.BillStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE bills SET status = ? WHERE id = ?"), string(status), billID)
	if err != nil {
		return fmt.Errorf("failed to update bill status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated bill: %w", err)
	}
	if n == 0 {
		return notFound("bill", billID)
	}
	return nil
}

// AddExpense records an expense and increases the bill total by its amount.
//
// The total is incremented in SQL inside the same transaction as the insert,
// so concurrent expenses never overwrite each other's increments. The update
// runs first so that SQLite takes the write lock before any read.
func (s *Store) AddExpense(ctx context.Context, expense *models.Expense) (float64, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Category == "" {
		expense.Category = models.DefaultExpenseCategory
	}
	if expense.Date == "" {
		expense.Date = time.Unix(expense.CreatedAt, 0).Format(time.DateOnly)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE bills SET total_amount = total_amount + ?
		WHERE id = ? AND status = ?
	`), expense.Amount, expense.BillID, string(models.BillActive))
	if err != nil {
		return 0, fmt.Errorf("failed to update bill total: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check updated bill: %w", err)
	}
	if n == 0 {
		// Either missing or closed; billStatus tells which.
		if _, err := s.billStatus(ctx, tx, expense.BillID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("bill %s: %w", expense.BillID, storage.ErrBillClosed)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO expenses (id, bill_id, payer_id, amount, description, category, expense_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), expense.ID, expense.BillID, expense.PayerID, expense.Amount,
		expense.Description, expense.Category, expense.Date, expense.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert expense: %w", err)
	}

	var total float64
	if err := tx.QueryRowContext(ctx, s.rebind("SELECT total_amount FROM bills WHERE id = ?"), expense.BillID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read bill total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return total, nil
}

// ListExpenses returns a bill's expenses, oldest first.
func (s *Store) ListExpenses(ctx context.Context, billID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, bill_id, payer_id, amount, description, category, expense_date, created_at
		FROM expenses
		WHERE bill_id = ?
		ORDER BY created_at, id
	`), billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e := &models.Expense{}
		if err := rows.Scan(&e.ID, &e.BillID, &e.PayerID, &e.Amount,
			&e.Description, &e.Category, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

func (s *Store) participants(ctx context.Context, q querier, billID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.rebind(
		"SELECT user_id FROM bill_participants WHERE bill_id = ? ORDER BY joined_at, user_id",
	), billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func (s *Store) billStatus(ctx context.Context, q querier, billID string) (models.BillStatus, error) {
	var status string
	err := q.QueryRowContext(ctx, s.rebind("SELECT status FROM bills WHERE id = ?"), billID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("bill", billID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get bill status: %w", err)
	}
	return models.BillStatus(status), nil
}

func scanBill(row rowScanner) (*models.Bill, error) {
	bill := &models.Bill{}
	var status string
	if err := row.Scan(&bill.ID, &bill.Title, &bill.Description, &bill.Currency, &bill.CreatorID,
		&bill.TotalAmount, &status, &bill.CreatedVia, &bill.CreatedAt); err != nil {
		return nil, err
	}
	bill.Status = models.BillStatus(status)
	return bill, nil
}
