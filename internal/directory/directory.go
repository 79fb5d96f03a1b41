// Package directory reads students and courses owned by the portal's
// administration screens. The certificate core only reads display names and
// course details from here; it never writes.
package directory

import (
	"strings"

	id "trainingcenter/pkg/domain"
)

// Student is the slice of a student record the certificate core consumes.
type Student struct {
	ID          id.StudentID `json:"id"`
	DisplayName string       `json:"displayName"`
}

// Subject is one assessed subject of a course.
type Subject struct {
	Name string `json:"name"`
}

// Course is the slice of a course record the certificate core consumes.
type Course struct {
	ID         id.CourseID `json:"id"`
	Name       string      `json:"name"`
	Duration   string      `json:"duration"`
	Instructor string      `json:"instructor"`
	Subjects   []Subject   `json:"subjects"`
}

// SubjectNames lists subject names in course order.
func (c *Course) SubjectNames() []string {
	out := make([]string, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		out = append(out, strings.TrimSpace(s.Name))
	}
	return out
}
