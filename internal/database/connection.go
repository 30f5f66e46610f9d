package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Connect opens the database and bootstraps the schema
func Connect(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "", "sqlite", DriverSQLite:
		driver = DriverSQLite
		if dsn == "" {
			dsn = filepath.Join("data", "coursebot.db")
		}
		if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres requires DB_DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name string
		ddl  string
	}{
		{"students", `
			CREATE TABLE IF NOT EXISTS students (
				id ` + pk + `,
				external_id BIGINT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				token TEXT NOT NULL DEFAULT '',
				token_issued_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"mentors", `
			CREATE TABLE IF NOT EXISTS mentors (
				id ` + pk + `,
				name TEXT NOT NULL UNIQUE,
				bio TEXT NOT NULL DEFAULT '',
				photo_ref TEXT NOT NULL DEFAULT ''
			)`},
		{"courses", `
			CREATE TABLE IF NOT EXISTS courses (
				id ` + pk + `,
				mentor_id BIGINT NOT NULL REFERENCES mentors(id),
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				price BIGINT NOT NULL CHECK (price >= 0),
				created_at TIMESTAMP NOT NULL,
				UNIQUE(mentor_id, title)
			)`},
		{"lessons", `
			CREATE TABLE IF NOT EXISTS lessons (
				id ` + pk + `,
				course_id BIGINT NOT NULL REFERENCES courses(id),
				title TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				video_ref TEXT NOT NULL DEFAULT '',
				is_free BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE(course_id, title)
			)`},
		{"quizzes", `
			CREATE TABLE IF NOT EXISTS quizzes (
				id ` + pk + `,
				lesson_id BIGINT NOT NULL UNIQUE REFERENCES lessons(id),
				questions TEXT NOT NULL,
				answers TEXT NOT NULL,
				correct_answers TEXT NOT NULL
			)`},
		{"webinars", `
			CREATE TABLE IF NOT EXISTS webinars (
				id ` + pk + `,
				mentor_id BIGINT NOT NULL REFERENCES mentors(id),
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				video_ref TEXT NOT NULL DEFAULT '',
				duration_minutes INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'scheduled',
				created_at TIMESTAMP NOT NULL
			)`},
		{"payments", `
			CREATE TABLE IF NOT EXISTS payments (
				id ` + pk + `,
				student_id BIGINT NOT NULL REFERENCES students(id),
				course_id BIGINT NOT NULL REFERENCES courses(id),
				amount BIGINT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				screenshot_ref TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				confirmed_at TIMESTAMP
			)`},
		// at most one confirmed and one pending payment per student and course
		{"payments_one_confirmed", `
			CREATE UNIQUE INDEX IF NOT EXISTS payments_one_confirmed
			ON payments (student_id, course_id) WHERE status = 'confirmed'`},
		{"payments_one_pending", `
			CREATE UNIQUE INDEX IF NOT EXISTS payments_one_pending
			ON payments (student_id, course_id) WHERE status = 'pending'`},
		{"student_progress", `
			CREATE TABLE IF NOT EXISTS student_progress (
				id ` + pk + `,
				student_id BIGINT NOT NULL REFERENCES students(id),
				lesson_id BIGINT NOT NULL REFERENCES lessons(id),
				quiz_score INTEGER,
				unlocked_by_quiz BOOLEAN NOT NULL DEFAULT FALSE,
				completed_at TIMESTAMP NOT NULL,
				UNIQUE(student_id, lesson_id)
			)`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either supported driver
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
