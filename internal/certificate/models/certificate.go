package models

import (
	"strings"
	"time"

	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
)

// IssueDateLayout is the human-readable rendering stored next to the sortable issue date.
const IssueDateLayout = "January 2, 2006"

// Status is the issuance state of a certificate.
type Status string

const (
	StatusIssued  Status = "Issued"
	StatusPending Status = "Pending"
)

func (s Status) IsValid() bool {
	return s == StatusIssued || s == StatusPending
}

// ParseStatus accepts the canonical spelling case-insensitively. An empty
// value defaults to Issued.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "issued":
		return StatusIssued, nil
	case "pending":
		return StatusPending, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be Issued or Pending")
	}
}

// Certificate is the persisted credential record.
//
// Invariants:
//   - ID is assigned by the store and never changes
//   - DisplayID has the form CERT-<year>-<NNNN>, is assigned once and never changes
//   - Version is 1-based and, per (StudentID, CourseID) pair, versions form 1..N
//   - Updates touch only the fields in MutableFields
type Certificate struct {
	ID        id.CertificateID `json:"id"`
	DisplayID string           `json:"display_id"`
	StudentID id.StudentID     `json:"student_id,omitempty"`
	CourseID  id.CourseID      `json:"course_id,omitempty"`

	// Snapshots captured at issuance; fallbacks when the live entity cannot be read.
	StudentName    string `json:"student_name"`
	CourseName     string `json:"course_name"`
	CourseDuration string `json:"course_duration,omitempty"`
	InstructorName string `json:"instructor_name,omitempty"`

	Marks            Marks     `json:"marks"`
	IssueDate        time.Time `json:"issue_date"`
	IssueDateDisplay string    `json:"issue_date_display"`
	Status           Status    `json:"status"`
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Pair returns the grouping key of the record.
func (c *Certificate) Pair() PairKey {
	if c.StudentID.IsNil() && c.CourseID.IsNil() {
		return PairKey{legacy: true, StudentName: c.StudentName, CourseName: c.CourseName}
	}
	return PairKey{StudentID: c.StudentID, CourseID: c.CourseID}
}

// Clone returns a deep copy so callers cannot alias store-owned marks.
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Marks = c.Marks.Clone()
	return &cp
}

// Apply overwrites the mutable fields. Identity fields are untouched.
func (c *Certificate) Apply(f MutableFields) {
	c.Marks = f.Marks.Clone()
	c.StudentName = f.StudentName
	c.CourseName = f.CourseName
	c.CourseDuration = f.CourseDuration
	c.InstructorName = f.InstructorName
	c.IssueDate = f.IssueDate
	c.IssueDateDisplay = f.IssueDateDisplay
	c.Status = f.Status
	c.UpdatedAt = f.UpdatedAt
}

// MutableFields is the complete write payload of an edit. Version and
// DisplayID are absent by construction.
type MutableFields struct {
	Marks            Marks
	StudentName      string
	CourseName       string
	CourseDuration   string
	InstructorName   string
	IssueDate        time.Time
	IssueDateDisplay string
	Status           Status
	UpdatedAt        time.Time
}

// PairKey identifies one certification relationship. Legacy records without
// student/course references are keyed by their name snapshots instead.
type PairKey struct {
	StudentID   id.StudentID
	CourseID    id.CourseID
	StudentName string
	CourseName  string
	legacy      bool
}

func (k PairKey) IsLegacy() bool { return k.legacy }

func (k PairKey) String() string {
	if k.legacy {
		return "legacy:" + k.StudentName + "|" + k.CourseName
	}
	return k.StudentID.String() + ":" + k.CourseID.String()
}

// FormatIssueDate renders t in the human-readable form stored on records.
func FormatIssueDate(t time.Time) string {
	return t.Format(IssueDateLayout)
}
