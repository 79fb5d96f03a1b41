package handler

import (
	"trainingcenter/internal/certificate/marks"
	"trainingcenter/internal/certificate/models"
	audit "trainingcenter/pkg/platform/audit"
)

// CertificateResponse is the admin view of a record. Scores pre-fills an
// edit form with the stored marks.
type CertificateResponse struct {
	*models.Certificate
	Scores map[string]models.ScoreInput `json:"scores"`
	Rows   []models.MarkRow             `json:"rows"`
}

func toCertificateResponse(c *models.Certificate) *CertificateResponse {
	if c == nil {
		return nil
	}
	return &CertificateResponse{
		Certificate: c,
		Scores:      marks.ToScoreInputs(c.Marks),
		Rows:        marks.Decode(c.Marks),
	}
}

// IssueResponse is returned by a successful create.
type IssueResponse struct {
	Certificate *CertificateResponse  `json:"certificate"`
	Duplicate   *models.DuplicateInfo `json:"duplicate"`
}

// DuplicateResponse answers a pre-submission duplicate check. Duplicate is
// null when the pair holds no certificates yet.
type DuplicateResponse struct {
	Duplicate *models.DuplicateInfo `json:"duplicate"`
}

// GroupResponse is one pair's history in the listing.
type GroupResponse struct {
	Latest  *CertificateResponse   `json:"latest"`
	History []*CertificateResponse `json:"history"`
}

// GroupsResponse is the grouped admin listing.
type GroupsResponse struct {
	Groups []GroupResponse `json:"groups"`
	Count  int             `json:"count"`
}

func toGroupsResponse(groups []models.Group) *GroupsResponse {
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		history := make([]*CertificateResponse, 0, len(g.History))
		for _, h := range g.History {
			history = append(history, toCertificateResponse(h))
		}
		out = append(out, GroupResponse{Latest: toCertificateResponse(g.Latest), History: history})
	}
	return &GroupsResponse{Groups: out, Count: len(out)}
}

// AuditTrailResponse lists a certificate's changes, oldest first.
type AuditTrailResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}
