package sqlstore

import "fmt"

func (s *SQLStore) initSchema() error {
	var stmts []string

	if s.dbType == Postgres {
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(20) NOT NULL UNIQUE,
			email VARCHAR(120) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			session_version INTEGER NOT NULL DEFAULT 0
		);`,
			"ALTER TABLE users ADD COLUMN IF NOT EXISTS session_version INTEGER NOT NULL DEFAULT 0", `
		CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			name VARCHAR(20) NOT NULL
		);`, `
		CREATE TABLE IF NOT EXISTS notes (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title VARCHAR(20) NOT NULL,
			text TEXT NOT NULL,
			photo TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);`, `
		CREATE TABLE IF NOT EXISTS note_categories (
			id SERIAL PRIMARY KEY,
			note_id INTEGER NOT NULL REFERENCES notes(id),
			category_id INTEGER NOT NULL REFERENCES categories(id),
			UNIQUE(note_id, category_id)
		);`,
		}
	} else {
		stmts = []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000", `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			session_version INTEGER NOT NULL DEFAULT 0
		);`, `
		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`, `
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			photo TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`, `
		CREATE TABLE IF NOT EXISTS note_categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			note_id INTEGER NOT NULL,
			category_id INTEGER NOT NULL,
			UNIQUE(note_id, category_id),
			FOREIGN KEY(note_id) REFERENCES notes(id),
			FOREIGN KEY(category_id) REFERENCES categories(id)
		);`,
		}
	}

	stmts = append(stmts,
		"CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_note_categories_category ON note_categories(category_id)",
	)

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	if s.dbType != Postgres {
		// SQLite has no ADD COLUMN IF NOT EXISTS
		return s.addSQLiteColumn("users", "session_version", "INTEGER NOT NULL DEFAULT 0")
	}
	return nil
}

// addSQLiteColumn adds a column to a table created by an older schema.
func (s *SQLStore) addSQLiteColumn(table, column, decl string) error {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}
