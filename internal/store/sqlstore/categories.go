package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"notes/internal/errs"
	"notes/internal/models"
)

func (s *SQLStore) ListCategories(ctx context.Context, ownerID int) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name, id"), ownerID)
	if err != nil {
		return nil, errs.Store("list categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, errs.Store("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("list categories", err)
	}
	return categories, nil
}

func (s *SQLStore) GetCategory(ctx context.Context, ownerID, id int) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, user_id, name FROM categories WHERE id = ? AND user_id = ?"), id, ownerID).
		Scan(&c.ID, &c.UserID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("category", id)
	}
	if err != nil {
		return nil, errs.Store("get category", err)
	}
	return &c, nil
}

func (s *SQLStore) CreateCategory(ctx context.Context, ownerID int, name string) (*models.Category, error) {
	id, err := s.insert(ctx, s.db, "INSERT INTO categories (user_id, name) VALUES (?, ?)", ownerID, name)
	if err != nil {
		return nil, errs.Store("create category", err)
	}
	return &models.Category{ID: id, UserID: ownerID, Name: name}, nil
}

func (s *SQLStore) RenameCategory(ctx context.Context, ownerID, id int, name string) (*models.Category, error) {
	n, err := s.exec(ctx, s.db, "UPDATE categories SET name = ? WHERE id = ? AND user_id = ?", name, id, ownerID)
	if err != nil {
		return nil, errs.Store("rename category", err)
	}
	if n == 0 {
		return nil, notFound("category", id)
	}
	return &models.Category{ID: id, UserID: ownerID, Name: name}, nil
}

// DeleteCategory removes the category and its note associations. The notes
// themselves and their other categories stay.
func (s *SQLStore) DeleteCategory(ctx context.Context, ownerID, id int) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `DELETE FROM note_categories WHERE category_id IN
			(SELECT id FROM categories WHERE id = ? AND user_id = ?)`, id, ownerID)
		if err != nil {
			return err
		}
		n, err := s.exec(ctx, tx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, ownerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("category", id)
		}
		return nil
	})
	return errs.Store("delete category", err)
}

// checkCategoriesOwned fails with a validation error on the categories field
// when any id does not name one of the owner's categories.
func (s *SQLStore) checkCategoriesOwned(ctx context.Context, q querier, ownerID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{ownerID}, intArgs(ids)...)
	var count int
	err := q.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM categories WHERE user_id = ? AND id IN ("+placeholders(len(ids))+")"), args...).Scan(&count)
	if err != nil {
		return err
	}
	if count != len(ids) {
		return errs.Invalid("categories", "Choose from your own categories.")
	}
	return nil
}

func (s *SQLStore) ownsCategory(ctx context.Context, ownerID, id int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?"), id, ownerID).Scan(&count)
	return count > 0, err
}
