// Package audit records who changed which certificate, and when.
package audit

import (
	"context"
	"time"

	id "trainingcenter/pkg/domain"
)

// Action names an audited mutation.
type Action string

const (
	ActionCertificateIssued  Action = "certificate_issued"
	ActionCertificateUpdated Action = "certificate_updated"
	ActionCertificateDeleted Action = "certificate_deleted"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCertificateIssued, ActionCertificateUpdated, ActionCertificateDeleted:
		return true
	}
	return false
}

// Event is one entry of a certificate's audit trail.
type Event struct {
	ID            string           `json:"id"`
	Action        Action           `json:"action"`
	CertificateID id.CertificateID `json:"certificate_id"`
	DisplayID     string           `json:"display_id,omitempty"`
	Version       int              `json:"version,omitempty"`
	ActorID       string           `json:"actor_id,omitempty"`
	RequestID     string           `json:"request_id,omitempty"`
	ClientIP      string           `json:"client_ip,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Store persists audit events. Trails are returned oldest first; ListRecent
// returns newest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCertificate(ctx context.Context, certID id.CertificateID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
