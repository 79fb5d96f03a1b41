package store

import "trainingcenter/internal/platform/database"

// Schema returns the DDL for the certificates table. Empty student/course ids
// are stored as NULL so legacy records never collide on the pair constraint.
func Schema(d database.Dialect) []string {
	ts := d.Timestamp()
	return []string{
		`CREATE TABLE IF NOT EXISTS certificates (
			id                 TEXT PRIMARY KEY,
			display_id         TEXT NOT NULL,
			student_id         TEXT,
			course_id          TEXT,
			student_name       TEXT NOT NULL DEFAULT '',
			course_name        TEXT NOT NULL DEFAULT '',
			course_duration    TEXT NOT NULL DEFAULT '',
			instructor_name    TEXT NOT NULL DEFAULT '',
			marks              TEXT NOT NULL DEFAULT '[]',
			issue_date         ` + ts + ` NOT NULL,
			issue_date_display TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			version            INTEGER NOT NULL CHECK (version > 0),
			created_at         ` + ts + ` NOT NULL,
			updated_at         ` + ts + ` NOT NULL,
			CONSTRAINT certificates_display_id_key UNIQUE (display_id),
			CONSTRAINT certificates_pair_version_key UNIQUE (student_id, course_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS certificates_student_id_idx ON certificates (student_id)`,
		`CREATE INDEX IF NOT EXISTS certificates_student_name_idx ON certificates (student_name)`,
		`CREATE INDEX IF NOT EXISTS certificates_issue_date_idx ON certificates (issue_date DESC)`,
	}
}
