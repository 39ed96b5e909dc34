package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripmate/internal/models"
)

// GetOrCreateUserByLineID returns the user linked to lineUserID, creating it
// on first contact. The insert is a no-op when the user already exists, so
// racing first requests converge on one row.
func (s *Store) GetOrCreateUserByLineID(ctx context.Context, lineUserID string) (*models.User, error) {
	if lineUserID == "" {
		return nil, fmt.Errorf("line user id is required")
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, line_user_id, created_via, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (line_user_id) DO NOTHING
	`), uuid.New().String(), lineUserID, models.CreatedViaLineBot, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user := &models.User{}
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, line_user_id, created_via, created_at
		FROM users
		WHERE line_user_id = ?
	`), lineUserID).Scan(&user.ID, &user.LineUserID, &user.CreatedVia, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by line id: %w", err)
	}

	return user, nil
}
