package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notes/internal/errs"
	"notes/internal/models"
)

// CreateUser inserts a user. A taken name or email is reported as an
// *errs.DuplicateError by the UNIQUE constraints, so two concurrent
// registrations cannot both succeed.
func (s *SQLStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	id, err := s.insert(ctx, s.db, "INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)", name, email, passwordHash)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return nil, &errs.DuplicateError{Field: field}
		}
		return nil, errs.Store("create user", err)
	}
	return &models.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash}, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, name, email, password_hash, session_version FROM users WHERE "+where), arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SessionVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, errs.Store("get user", err)
	}
	return &u, nil
}

// RevokeSessions bumps the user's session version so tokens issued
// before no longer authenticate.
func (s *SQLStore) RevokeSessions(ctx context.Context, userID int) error {
	n, err := s.exec(ctx, s.db, "UPDATE users SET session_version = session_version + 1 WHERE id = ?", userID)
	if err != nil {
		return errs.Store("revoke sessions", err)
	}
	if n == 0 {
		return notFound("user", userID)
	}
	return nil
}
