package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// UserRepository reads the user directory. Accounts are maintained by the identity system.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, display_name, role, locale, active
FROM users
WHERE id = $1
`, userID)

	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.DisplayName, &role, &u.Locale, &u.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get user", fmt.Errorf("user %s", userID))
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *UserRepository) ListActiveUserIDsByRole(ctx context.Context, role domain.Role) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id
FROM users
WHERE role = $1 AND active
ORDER BY id
`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}
