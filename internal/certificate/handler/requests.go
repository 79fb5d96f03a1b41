package handler

import (
	"strings"
	"time"

	"trainingcenter/internal/certificate/models"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
)

// DateLayout is the wire format of issue dates.
const DateLayout = "2006-01-02"

// IssueCertificateRequest is the body of POST /admin/certificates.
type IssueCertificateRequest struct {
	StudentID      string                       `json:"student_id" validate:"required,max=64"`
	CourseID       string                       `json:"course_id" validate:"required,max=64"`
	Scores         map[string]models.ScoreInput `json:"scores" validate:"required,max=64"`
	IssueDate      string                       `json:"issue_date" validate:"required,datetime=2006-01-02"`
	Status         string                       `json:"status" validate:"max=16"`
	InstructorName string                       `json:"instructor_name" validate:"max=128"`

	issueDate time.Time
	status    models.Status
}

func (r *IssueCertificateRequest) Normalize() {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.CourseID = strings.TrimSpace(r.CourseID)
	r.IssueDate = strings.TrimSpace(r.IssueDate)
	r.InstructorName = strings.TrimSpace(r.InstructorName)
}

// Validate parses the date and status once struct tags have passed.
func (r *IssueCertificateRequest) Validate() error {
	var err error
	if r.issueDate, r.status, err = parseDateAndStatus(r.IssueDate, r.Status); err != nil {
		return err
	}
	return nil
}

func (r *IssueCertificateRequest) ToModel() models.IssueRequest {
	return models.IssueRequest{
		StudentID:      id.StudentID(r.StudentID),
		CourseID:       id.CourseID(r.CourseID),
		Scores:         r.Scores,
		IssueDate:      r.issueDate,
		Status:         r.status,
		InstructorName: r.InstructorName,
	}
}

// UpdateCertificateRequest is the body of PUT /admin/certificates/{id}.
type UpdateCertificateRequest struct {
	Scores         map[string]models.ScoreInput `json:"scores" validate:"required,max=64"`
	IssueDate      string                       `json:"issue_date" validate:"required,datetime=2006-01-02"`
	Status         string                       `json:"status" validate:"max=16"`
	InstructorName string                       `json:"instructor_name" validate:"max=128"`

	issueDate time.Time
	status    models.Status
}

func (r *UpdateCertificateRequest) Normalize() {
	r.IssueDate = strings.TrimSpace(r.IssueDate)
	r.InstructorName = strings.TrimSpace(r.InstructorName)
}

func (r *UpdateCertificateRequest) Validate() error {
	var err error
	if r.issueDate, r.status, err = parseDateAndStatus(r.IssueDate, r.Status); err != nil {
		return err
	}
	return nil
}

func (r *UpdateCertificateRequest) ToModel() models.UpdateRequest {
	return models.UpdateRequest{
		Scores:         r.Scores,
		IssueDate:      r.issueDate,
		Status:         r.status,
		InstructorName: r.InstructorName,
	}
}

func parseDateAndStatus(date, status string) (time.Time, models.Status, error) {
	issueDate, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, "", dErrors.New(dErrors.CodeValidation, "issue_date must be a date in 2006-01-02 form")
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return time.Time{}, "", err
	}
	return issueDate, parsed, nil
}
