package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trainingcenter/internal/platform/database"
	id "trainingcenter/pkg/domain"
	"trainingcenter/pkg/platform/sentinel"
	"trainingcenter/pkg/platform/tx"
)

// Schema returns the DDL for the student and course tables.
func Schema(_ database.Dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS students (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS courses (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			duration   TEXT NOT NULL DEFAULT '',
			instructor TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS course_subjects (
			course_id TEXT NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			name      TEXT NOT NULL,
			PRIMARY KEY (course_id, position)
		)`,
	}
}

// SQLStore reads students and courses from PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQL(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) GetStudent(ctx context.Context, studentID id.StudentID) (*Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT id, display_name FROM students WHERE id = $1`),
		studentID.String()).Scan(&st.ID, &st.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &st, nil
}

func (s *SQLStore) GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT id, name, duration, instructor FROM courses WHERE id = $1`),
		courseID.String()).Scan(&c.ID, &c.Name, &c.Duration, &c.Instructor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT name FROM course_subjects WHERE course_id = $1 ORDER BY position`),
		courseID.String())
	if err != nil {
		return nil, fmt.Errorf("find course subjects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subject Subject
		if err := rows.Scan(&subject.Name); err != nil {
			return nil, fmt.Errorf("scan course subject: %w", err)
		}
		c.Subjects = append(c.Subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course subjects: %w", err)
	}
	return &c, nil
}

// PutStudent upserts a student. Used by seeding and tests.
func (s *SQLStore) PutStudent(ctx context.Context, st Student) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO students (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name`),
		st.ID.String(), st.DisplayName)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// PutCourse upserts a course and replaces its subject list.
func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	return database.WithinTx(ctx, s.db, func(ctx context.Context) error {
		t, _ := tx.From(ctx)
		if _, err := t.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO courses (id, name, duration, instructor) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, duration = EXCLUDED.duration, instructor = EXCLUDED.instructor`),
			c.ID.String(), c.Name, c.Duration, c.Instructor); err != nil {
			return fmt.Errorf("upsert course: %w", err)
		}
		if _, err := t.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM course_subjects WHERE course_id = $1`), c.ID.String()); err != nil {
			return fmt.Errorf("clear course subjects: %w", err)
		}
		for i, subject := range c.Subjects {
			if _, err := t.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO course_subjects (course_id, position, name) VALUES ($1, $2, $3)`),
				c.ID.String(), i, subject.Name); err != nil {
				return fmt.Errorf("insert course subject: %w", err)
			}
		}
		return nil
	})
}
