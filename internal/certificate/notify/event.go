// Package notify announces issued certificates to the notification
// collaborator. Delivery is best effort: nothing here can fail or roll back
// the issuance that triggered it.
package notify

import (
	"context"
	"time"

	"trainingcenter/internal/certificate/models"
	id "trainingcenter/pkg/domain"
)

// KindCertificateIssued is the only event kind emitted.
const KindCertificateIssued = "certificate_issued"

// Event is the payload handed to the notification collaborator.
type Event struct {
	Kind          string           `json:"kind"`
	StudentID     id.StudentID     `json:"studentId"`
	CourseName    string           `json:"courseName"`
	CertificateID id.CertificateID `json:"certificateId"`
	DisplayID     string           `json:"displayId"`
	Version       int              `json:"version"`
	IssuedAt      time.Time        `json:"issuedAt"`
}

// Issued builds the event for a freshly created record.
func Issued(c *models.Certificate) Event {
	return Event{
		Kind:          KindCertificateIssued,
		StudentID:     c.StudentID,
		CourseName:    c.CourseName,
		CertificateID: c.ID,
		DisplayID:     c.DisplayID,
		Version:       c.Version,
		IssuedAt:      c.CreatedAt,
	}
}

// Publisher delivers one event synchronously.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
