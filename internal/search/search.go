// AngelaMos | 2026
// search.go

// Package search filters and orders donors for a hospital.
package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

type Query struct {
	// Text matches case-insensitively against the donor's name or blood
	// group code. Empty matches everything.
	Text       string
	BloodGroup *model.BloodGroup
	// MaxDistanceKm only applies when the searching hospital has a location.
	MaxDistanceKm *float64
	AvailableOnly bool
}

type Match struct {
	Donor      *model.Donor
	DistanceKm *float64
}

type Summary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// Search applies visibility, text, blood group, availability and distance
// filters in that order. With an origin, results are sorted by ascending
// distance and donors without coordinates trail in input order.
func Search(donors []*model.Donor, origin *geo.Point, q Query) []Match {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	matches := make([]Match, 0, len(donors))
	for _, d := range donors {
		if !d.Searchable() {
			continue
		}
		if text != "" && !matchesText(d, text) {
			continue
		}
		if q.BloodGroup != nil && d.BloodGroup != *q.BloodGroup {
			continue
		}
		if q.AvailableOnly && !d.Available {
			continue
		}

		m := Match{Donor: d}
		if origin != nil && d.Location != nil {
			dist := origin.DistanceTo(*d.Location)
			m.DistanceKm = &dist
		}

		if origin != nil && q.MaxDistanceKm != nil {
			if m.DistanceKm == nil || *m.DistanceKm > *q.MaxDistanceKm {
				continue
			}
		}

		matches = append(matches, m)
	}

	if origin != nil {
		slices.SortStableFunc(matches, compareDistance)
	}
	return matches
}

func matchesText(d *model.Donor, text string) bool {
	return strings.Contains(strings.ToLower(d.Name), text) ||
		strings.Contains(strings.ToLower(string(d.BloodGroup)), text)
}

func compareDistance(a, b Match) int {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return 0
	case a.DistanceKm == nil:
		return 1
	case b.DistanceKm == nil:
		return -1
	default:
		return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
	}
}

func Summarize(matches []Match) Summary {
	s := Summary{Total: len(matches)}
	for _, m := range matches {
		if m.Donor.Available {
			s.Available++
		}
	}
	return s
}
