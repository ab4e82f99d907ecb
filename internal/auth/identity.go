package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"notes/internal/errs"
	"notes/internal/models"
)

// UserStore is the part of the store the identity service needs.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Identity struct {
	users UserStore
	cost  int
	dummy []byte // compared against when the email is unknown
}

// NewIdentity builds the registration/login service. cost is the bcrypt
// cost; zero means bcrypt.DefaultCost.
func NewIdentity(users UserStore, cost int) (*Identity, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	return &Identity{users: users, cost: cost, dummy: dummy}, nil
}

// Register validates in and creates the user. A taken name or email fails
// with *errs.DuplicateError.
func (id *Identity) Register(ctx context.Context, in *models.RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), id.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return id.users.CreateUser(ctx, in.Name, in.Email, string(hash))
}

// Authenticate checks the credentials in in. Unknown email and wrong
// password both yield errs.ErrAuth.
func (id *Identity) Authenticate(ctx context.Context, in *models.LoginInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := id.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, errs.ErrNotFound) {
		// keep the timing of a real comparison
		bcrypt.CompareHashAndPassword(id.dummy, []byte(in.Password))
		return nil, errs.ErrAuth
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errs.ErrAuth
	}
	return user, nil
}
