package models

// Field names a queryable record attribute.
type Field string

const (
	FieldDisplayID   Field = "display_id"
	FieldStudentID   Field = "student_id"
	FieldCourseID    Field = "course_id"
	FieldStudentName Field = "student_name"
)

func (f Field) IsValid() bool {
	switch f {
	case FieldDisplayID, FieldStudentID, FieldCourseID, FieldStudentName:
		return true
	}
	return false
}

// Query selects records by a single field. The zero Query selects every record.
type Query struct {
	Field Field
	Value string
}

// All selects every record, ordered by issue date descending.
func All() Query { return Query{} }

// ByField selects records whose field equals value.
func ByField(field Field, value string) Query { return Query{Field: field, Value: value} }

func (q Query) IsAll() bool { return q.Field == "" }

// Matches reports whether c is selected by q.
func (q Query) Matches(c *Certificate) bool {
	switch q.Field {
	case "":
		return true
	case FieldDisplayID:
		return c.DisplayID == q.Value
	case FieldStudentID:
		return string(c.StudentID) == q.Value
	case FieldCourseID:
		return string(c.CourseID) == q.Value
	case FieldStudentName:
		return c.StudentName == q.Value
	}
	return false
}

// Group is one pair's version history.
type Group struct {
	Latest  *Certificate   `json:"latest"`
	History []*Certificate `json:"history"`
}

// CertificateView is the renderable payload served by the public lookup.
type CertificateView struct {
	ID             string    `json:"id"`
	CertificateID  string    `json:"certificate_id"`
	StudentName    string    `json:"student_name"`
	CourseName     string    `json:"course_name"`
	CourseDuration string    `json:"course_duration"`
	InstructorName string    `json:"instructor_name"`
	IssueDate      string    `json:"issue_date"`
	Status         Status    `json:"status"`
	Version        int       `json:"version"`
	Marks          []MarkRow `json:"marks"`
}
