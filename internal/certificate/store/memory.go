package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"trainingcenter/internal/certificate/models"
	id "trainingcenter/pkg/domain"
	"trainingcenter/pkg/platform/sentinel"
)

// InMemory is a process-local certificate store. It enforces the same unique
// constraints as the SQL schema: display id, and version per pair.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.CertificateID]*models.Certificate
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.CertificateID]*models.Certificate)}
}

// Create stores a copy of c and returns its id, assigning one when empty.
func (s *InMemory) Create(_ context.Context, c *models.Certificate) (id.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := c.Clone()
	if rec.ID.IsNil() {
		rec.ID = id.NewCertificateID()
	}
	if _, exists := s.records[rec.ID]; exists {
		return "", sentinel.ErrConflict
	}
	for _, existing := range s.records {
		if existing.DisplayID == rec.DisplayID {
			return "", sentinel.ErrConflict
		}
		if !rec.Pair().IsLegacy() && existing.Pair() == rec.Pair() && existing.Version == rec.Version {
			return "", sentinel.ErrConflict
		}
	}
	s.records[rec.ID] = rec
	return rec.ID, nil
}

// Update overwrites the mutable fields of an existing record.
func (s *InMemory) Update(_ context.Context, certID id.CertificateID, fields models.MutableFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[certID]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Apply(fields)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindByField returns every record whose field equals value, newest issue first.
func (s *InMemory) FindByField(_ context.Context, field models.Field, value string) ([]*models.Certificate, error) {
	q := models.ByField(field, value)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(q.Matches), nil
}

// ListAll returns every record ordered by issue date descending.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(nil), nil
}

func (s *InMemory) Delete(_ context.Context, certID id.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[certID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, certID)
	return nil
}

func (s *InMemory) collect(keep func(*models.Certificate) bool) []*models.Certificate {
	out := make([]*models.Certificate, 0, len(s.records))
	for _, rec := range s.records {
		if keep == nil || keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	slices.SortFunc(out, newestFirst)
	return out
}

// newestFirst orders by issue date descending, then creation time, then id,
// so listings are deterministic when dates tie.
func newestFirst(a, b *models.Certificate) int {
	if c := b.IssueDate.Compare(a.IssueDate); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
