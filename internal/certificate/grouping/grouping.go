// Package grouping arranges flat certificate listings into per-pair version
// histories for listing screens.
package grouping

import (
	"cmp"
	"slices"

	"trainingcenter/internal/certificate/displayid"
	"trainingcenter/internal/certificate/models"
)

// Group partitions records by pair. Each group's Latest is its highest
// version and History holds the rest, version-descending. Groups are ordered
// by the display-id sequence of their latest record, newest first; ties keep
// the order in which pairs first appear in records.
//
// Group does not retain or mutate records.
func Group(records []*models.Certificate) []models.Group {
	if len(records) == 0 {
		return []models.Group{}
	}

	order := make([]models.PairKey, 0)
	partitions := make(map[models.PairKey][]*models.Certificate)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		key := rec.Pair()
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], rec)
	}

	groups := make([]models.Group, 0, len(order))
	for _, key := range order {
		members := partitions[key]
		slices.SortStableFunc(members, func(a, b *models.Certificate) int {
			return cmp.Compare(b.Version, a.Version)
		})
		groups = append(groups, models.Group{
			Latest:  members[0],
			History: append([]*models.Certificate{}, members[1:]...),
		})
	}

	slices.SortStableFunc(groups, func(a, b models.Group) int {
		return cmp.Compare(displayid.Suffix(b.Latest.DisplayID), displayid.Suffix(a.Latest.DisplayID))
	})
	return groups
}
