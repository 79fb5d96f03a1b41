package models

import (
	"strings"
	"time"

	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
)

// IssueRequest is the input of a "generate" action.
type IssueRequest struct {
	StudentID id.StudentID
	CourseID  id.CourseID
	Scores    map[string]ScoreInput
	IssueDate time.Time
	Status    Status
	// InstructorName overrides the course's current instructor when set.
	InstructorName string
}

// Normalize trims identifiers and defaults the status.
func (r *IssueRequest) Normalize() {
	r.StudentID = id.StudentID(strings.TrimSpace(string(r.StudentID)))
	r.CourseID = id.CourseID(strings.TrimSpace(string(r.CourseID)))
	r.InstructorName = strings.TrimSpace(r.InstructorName)
	if r.Status == "" {
		r.Status = StatusIssued
	}
}

// Validate checks the request shape. Marks are validated by the codec.
func (r *IssueRequest) Validate() error {
	if r.StudentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "student_id is required")
	}
	if r.CourseID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "course_id is required")
	}
	if r.IssueDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "issue_date is required")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be Issued or Pending")
	}
	return nil
}

// UpdateRequest is the input of an "edit" action on an existing record.
type UpdateRequest struct {
	Scores         map[string]ScoreInput
	IssueDate      time.Time
	Status         Status
	InstructorName string
}

func (r *UpdateRequest) Normalize() {
	r.InstructorName = strings.TrimSpace(r.InstructorName)
	if r.Status == "" {
		r.Status = StatusIssued
	}
}

func (r *UpdateRequest) Validate() error {
	if r.IssueDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "issue_date is required")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be Issued or Pending")
	}
	return nil
}

// DuplicateInfo is the advisory warning raised when a pair already holds
// certificates. It never blocks creation.
type DuplicateInfo struct {
	ExistingCount int `json:"existing_count"`
	NextVersion   int `json:"next_version"`
}

// IssueResult is returned by a successful create.
type IssueResult struct {
	Certificate *Certificate
	Duplicate   *DuplicateInfo
}
