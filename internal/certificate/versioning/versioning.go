// Package versioning numbers certificates within a (student, course) pair.
package versioning

import "trainingcenter/internal/certificate/models"

// NextVersion returns the version a new record for the pair receives: the
// number of records the pair already holds, plus one. When a deleted older
// version left that number taken, it is one past the highest version instead.
func NextVersion(existing []*models.Certificate) int {
	next := len(existing) + 1
	highest := 0
	taken := false
	for _, r := range existing {
		highest = max(highest, r.Version)
		if r.Version == next {
			taken = true
		}
	}
	if taken {
		return highest + 1
	}
	return next
}

// DetectDuplicate returns the advisory warning for a creation flow when the
// pair already holds at least one record, or nil when it holds none.
// Edit flows on an already-selected record must not call it.
func DetectDuplicate(existing []*models.Certificate) *models.DuplicateInfo {
	if len(existing) == 0 {
		return nil
	}
	return &models.DuplicateInfo{
		ExistingCount: len(existing),
		NextVersion:   NextVersion(existing),
	}
}

// ForPair narrows records to those belonging to the given student and course.
// Stores only filter on one field, so callers query by student and narrow here.
func ForPair(records []*models.Certificate, pair models.PairKey) []*models.Certificate {
	out := make([]*models.Certificate, 0, len(records))
	for _, r := range records {
		if r.Pair() == pair {
			out = append(out, r)
		}
	}
	return out
}
