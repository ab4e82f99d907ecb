package models

import "time"

// User is an account. SessionVersion is embedded in session tokens;
// bumping it signs the user out everywhere.
type User struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	SessionVersion int    `json:"-"`
}

type Category struct {
	ID     int    `json:"id"`
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
}

type Note struct {
	ID         int        `json:"id"`
	UserID     int        `json:"user_id"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Photo      string     `json:"photo,omitempty"` // path relative to the static dir
	CreatedAt  time.Time  `json:"created_at"`
	Categories []Category `json:"categories"`
}

// NoteCategory is one row of the note/category association.
type NoteCategory struct {
	ID         int `json:"id"`
	NoteID     int `json:"note_id"`
	CategoryID int `json:"category_id"`
}

// HasCategory reports whether the note carries the category id.
func (n Note) HasCategory(id int) bool {
	for _, c := range n.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
