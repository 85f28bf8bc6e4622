package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
)

// CreateUser inserts a new directory account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return errs.Persistencef("create user", err)
	}
	return nil
}

// GetUserByEmail retrieves an account by its login email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByID retrieves an account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("user %v", arg)
	}
	if err != nil {
		return nil, errs.Persistencef("get user", err)
	}
	return user, nil
}

// ListUsersByRole returns all accounts holding the given role.
func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE role = ?",
		role,
	)
	if err != nil {
		return nil, errs.Persistencef("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, errs.Persistencef("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistencef("iterate users", err)
	}
	return users, nil
}
