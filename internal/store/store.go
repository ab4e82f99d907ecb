package store

import (
	"context"

	"notes/internal/models"
)

// Store defines the interface for all database operations.
//
// Category and note operations are scoped to the owner id passed in by the
// caller. A record owned by someone else is reported as errs.ErrNotFound.
type Store interface {
	// Users
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	RevokeSessions(ctx context.Context, userID int) error

	// Categories
	ListCategories(ctx context.Context, ownerID int) ([]models.Category, error)
	GetCategory(ctx context.Context, ownerID, id int) (*models.Category, error)
	CreateCategory(ctx context.Context, ownerID int, name string) (*models.Category, error)
	RenameCategory(ctx context.Context, ownerID, id int, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id int) error

	// Notes
	ListNotes(ctx context.Context, ownerID int) ([]models.Note, error)
	GetNote(ctx context.Context, ownerID, id int) (*models.Note, error)
	CreateNote(ctx context.Context, ownerID int, title, text, photo string, categoryIDs []int) (*models.Note, error)
	EditNote(ctx context.Context, ownerID, id int, title, text string, categoryIDs []int) (*models.Note, error)
	DeleteNote(ctx context.Context, ownerID, id int) error
	SearchNotesByTitle(ctx context.Context, ownerID int, substring string) ([]models.Note, error)
	FilterNotesByCategory(ctx context.Context, ownerID int, categoryID *int) ([]models.Note, error)

	Close() error
}
