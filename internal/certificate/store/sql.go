package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/platform/database"
	id "trainingcenter/pkg/domain"
	"trainingcenter/pkg/platform/sentinel"
	"trainingcenter/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

const columns = `id, display_id, student_id, course_id, student_name, course_name,
	course_duration, instructor_name, marks, issue_date, issue_date_display,
	status, version, created_at, updated_at`

// SQLStore persists certificates in PostgreSQL or SQLite. Statements join a
// transaction carried in the context when one is present.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQL constructs a SQL-backed certificate store.
func NewSQL(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Create(ctx context.Context, c *models.Certificate) (id.CertificateID, error) {
	certID := c.ID
	if certID.IsNil() {
		certID = id.NewCertificateID()
	}
	marks, err := json.Marshal(marksOrEmpty(c.Marks))
	if err != nil {
		return "", fmt.Errorf("marshal marks: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, s.rebind(`INSERT INTO certificates (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`),
		certID.String(),
		c.DisplayID,
		nullable(c.StudentID.String()),
		nullable(c.CourseID.String()),
		c.StudentName,
		c.CourseName,
		c.CourseDuration,
		c.InstructorName,
		string(marks),
		c.IssueDate.UTC(),
		c.IssueDateDisplay,
		string(c.Status),
		c.Version,
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("create certificate %s: %w", c.DisplayID, sentinel.ErrConflict)
		}
		return "", fmt.Errorf("create certificate: %w", err)
	}
	return certID, nil
}

// Update writes only the mutable columns. display_id and version are not
// part of the statement.
func (s *SQLStore) Update(ctx context.Context, certID id.CertificateID, f models.MutableFields) error {
	marks, err := json.Marshal(marksOrEmpty(f.Marks))
	if err != nil {
		return fmt.Errorf("marshal marks: %w", err)
	}
	res, err := s.conn(ctx).ExecContext(ctx, s.rebind(`UPDATE certificates SET
			marks = $1, student_name = $2, course_name = $3, course_duration = $4,
			instructor_name = $5, issue_date = $6, issue_date_display = $7,
			status = $8, updated_at = $9
		WHERE id = $10`),
		string(marks),
		f.StudentName,
		f.CourseName,
		f.CourseDuration,
		f.InstructorName,
		f.IssueDate.UTC(),
		f.IssueDateDisplay,
		string(f.Status),
		f.UpdatedAt.UTC(),
		certID.String(),
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *SQLStore) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	row := s.conn(ctx).QueryRowContext(ctx, s.rebind(`SELECT `+columns+` FROM certificates WHERE id = $1`), certID.String())
	c, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate by id: %w", err)
	}
	return c, nil
}

// FindByField returns every record whose field equals value, newest issue first.
func (s *SQLStore) FindByField(ctx context.Context, field models.Field, value string) ([]*models.Certificate, error) {
	if !field.IsValid() {
		return nil, fmt.Errorf("unsupported query field %q", field)
	}
	// field is one of a closed set of column names.
	return s.list(ctx, `SELECT `+columns+` FROM certificates WHERE `+string(field)+` = $1
		ORDER BY issue_date DESC, created_at DESC, id`, value)
}

// ListAll returns every record ordered by issue date descending.
func (s *SQLStore) ListAll(ctx context.Context) ([]*models.Certificate, error) {
	return s.list(ctx, `SELECT `+columns+` FROM certificates ORDER BY issue_date DESC, created_at DESC, id`)
}

func (s *SQLStore) Delete(ctx context.Context, certID id.CertificateID) error {
	res, err := s.conn(ctx).ExecContext(ctx, s.rebind(`DELETE FROM certificates WHERE id = $1`), certID.String())
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]*models.Certificate, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func (s *SQLStore) conn(ctx context.Context) tx.Conn {
	return tx.Or(ctx, s.db)
}

func (s *SQLStore) rebind(query string) string {
	return s.dialect.Rebind(query)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row scanner) (*models.Certificate, error) {
	var (
		c                   models.Certificate
		certID              string
		studentID, courseID sql.NullString
		marks               string
		status              string
		issueDate           time.Time
		createdAt           time.Time
		updatedAt           time.Time
	)
	if err := row.Scan(
		&certID,
		&c.DisplayID,
		&studentID,
		&courseID,
		&c.StudentName,
		&c.CourseName,
		&c.CourseDuration,
		&c.InstructorName,
		&marks,
		&issueDate,
		&c.IssueDateDisplay,
		&status,
		&c.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CertificateID(certID)
	c.StudentID = id.StudentID(studentID.String)
	c.CourseID = id.CourseID(courseID.String)
	c.Status = models.Status(status)
	c.IssueDate = issueDate.UTC()
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = updatedAt.UTC()
	if err := json.Unmarshal([]byte(marks), &c.Marks); err != nil {
		return nil, fmt.Errorf("unmarshal marks: %w", err)
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marksOrEmpty(m models.Marks) models.Marks {
	if m == nil {
		return models.Marks{}
	}
	return m
}
