package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type usersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsersRepository creates a new instance of the UserRepository interface
func NewUsersRepository(db *sql.DB, logger *zap.Logger) *usersRepository {
	return &usersRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a user's display fields, (nil, nil) when absent
func (r *usersRepository) FindByID(ctx context.Context, userID int) (*models.User, error) {
	query := `SELECT id, display_name FROM users WHERE id = ?`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &user.DisplayName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query user", zap.Error(err), zap.Int("user_id", userID))
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
