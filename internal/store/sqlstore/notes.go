package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"notes/internal/errs"
	"notes/internal/models"
)

const noteColumns = "n.id, n.user_id, n.title, n.text, n.photo, n.created_at"

func (s *SQLStore) ListNotes(ctx context.Context, ownerID int) ([]models.Note, error) {
	notes, err := s.queryNotes(ctx, s.db, "n.user_id = ?", ownerID)
	return notes, errs.Store("list notes", err)
}

func (s *SQLStore) GetNote(ctx context.Context, ownerID, id int) (*models.Note, error) {
	note, err := s.getNote(ctx, s.db, ownerID, id)
	return note, errs.Store("get note", err)
}

// CreateNote writes the note and its category links in one transaction.
func (s *SQLStore) CreateNote(ctx context.Context, ownerID int, title, text, photo string, categoryIDs []int) (*models.Note, error) {
	categoryIDs = unique(categoryIDs)

	var note *models.Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkCategoriesOwned(ctx, tx, ownerID, categoryIDs); err != nil {
			return err
		}
		id, err := s.insert(ctx, tx, "INSERT INTO notes (user_id, title, text, photo, created_at) VALUES (?, ?, ?, ?, ?)",
			ownerID, title, text, photo, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.linkCategories(ctx, tx, id, categoryIDs); err != nil {
			return err
		}
		note, err = s.getNote(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, errs.Store("create note", err)
	}
	return note, nil
}

// EditNote replaces title, text and the whole category set. The photo is
// left as it was.
func (s *SQLStore) EditNote(ctx context.Context, ownerID, id int, title, text string, categoryIDs []int) (*models.Note, error) {
	categoryIDs = unique(categoryIDs)

	var note *models.Note
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.exec(ctx, tx, "UPDATE notes SET title = ?, text = ? WHERE id = ? AND user_id = ?", title, text, id, ownerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("note", id)
		}
		if err := s.checkCategoriesOwned(ctx, tx, ownerID, categoryIDs); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, "DELETE FROM note_categories WHERE note_id = ?", id); err != nil {
			return err
		}
		if err := s.linkCategories(ctx, tx, id, categoryIDs); err != nil {
			return err
		}
		note, err = s.getNote(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, errs.Store("edit note", err)
	}
	return note, nil
}

func (s *SQLStore) DeleteNote(ctx context.Context, ownerID, id int) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `DELETE FROM note_categories WHERE note_id IN
			(SELECT id FROM notes WHERE id = ? AND user_id = ?)`, id, ownerID)
		if err != nil {
			return err
		}
		n, err := s.exec(ctx, tx, "DELETE FROM notes WHERE id = ? AND user_id = ?", id, ownerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("note", id)
		}
		return nil
	})
	return errs.Store("delete note", err)
}

// SearchNotesByTitle matches substring against titles case-sensitively.
func (s *SQLStore) SearchNotesByTitle(ctx context.Context, ownerID int, substring string) ([]models.Note, error) {
	match := "instr(n.title, ?) > 0"
	if s.dbType == Postgres {
		match = "strpos(n.title, ?) > 0"
	}
	notes, err := s.queryNotes(ctx, s.db, "n.user_id = ? AND "+match, ownerID, substring)
	return notes, errs.Store("search notes", err)
}

// FilterNotesByCategory returns the notes of categoryID when it is one of
// the owner's categories, and all of the owner's notes otherwise.
func (s *SQLStore) FilterNotesByCategory(ctx context.Context, ownerID int, categoryID *int) ([]models.Note, error) {
	if categoryID == nil {
		return s.ListNotes(ctx, ownerID)
	}
	owned, err := s.ownsCategory(ctx, ownerID, *categoryID)
	if err != nil {
		return nil, errs.Store("filter notes", err)
	}
	if !owned {
		return s.ListNotes(ctx, ownerID)
	}
	notes, err := s.queryNotes(ctx, s.db,
		"n.user_id = ? AND n.id IN (SELECT note_id FROM note_categories WHERE category_id = ?)", ownerID, *categoryID)
	return notes, errs.Store("filter notes", err)
}

func (s *SQLStore) getNote(ctx context.Context, q querier, ownerID, id int) (*models.Note, error) {
	notes, err := s.queryNotes(ctx, q, "n.id = ? AND n.user_id = ?", id, ownerID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, notFound("note", id)
	}
	return &notes[0], nil
}

// queryNotes selects notes matching where and then loads their categories
// with a single extra query. where must only refer to the notes table as n.
func (s *SQLStore) queryNotes(ctx context.Context, q querier, where string, args ...any) ([]models.Note, error) {
	rows, err := q.QueryContext(ctx, s.rebind("SELECT "+noteColumns+" FROM notes n WHERE "+where+" ORDER BY n.created_at DESC, n.id DESC"), args...)
	if err != nil {
		return nil, err
	}

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Text, &n.Photo, &n.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		notes = append(notes, n)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		return notes, nil
	}

	categoryMap, err := s.noteCategories(ctx, q, where, args...)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Categories = categoryMap[notes[i].ID]
	}
	return notes, nil
}

// noteCategories loads the categories of every note matching where. It
// repeats the note filter instead of listing note ids, so the number of
// bind parameters does not grow with the number of notes.
func (s *SQLStore) noteCategories(ctx context.Context, q querier, where string, args ...any) (map[int][]models.Category, error) {
	query := `SELECT nc.note_id, c.id, c.user_id, c.name FROM note_categories nc
	          JOIN categories c ON c.id = nc.category_id
	          JOIN notes n ON n.id = nc.note_id
	          WHERE ` + where + ` ORDER BY c.name, c.id`

	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int][]models.Category)
	for rows.Next() {
		var noteID int
		var c models.Category
		if err := rows.Scan(&noteID, &c.ID, &c.UserID, &c.Name); err != nil {
			return nil, err
		}
		result[noteID] = append(result[noteID], c)
	}
	return result, rows.Err()
}

func (s *SQLStore) linkCategories(ctx context.Context, tx *sql.Tx, noteID int, categoryIDs []int) error {
	for _, categoryID := range categoryIDs {
		if _, err := s.insert(ctx, tx, "INSERT INTO note_categories (note_id, category_id) VALUES (?, ?)", noteID, categoryID); err != nil {
			return err
		}
	}
	return nil
}

func unique(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
