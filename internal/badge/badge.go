// AngelaMos | 2026
// badge.go

// Package badge maps a donor's verified donation count onto the static
// gamification tier table.
package badge

import (
	"slices"
)

type Tier struct {
	Level        int    `json:"level"`
	Name         string `json:"name"`
	MinDonations int    `json:"min_donations"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
}

const MaxLevel = 5

// Zero is returned for donors below the lowest threshold.
var Zero = Tier{
	Level:        0,
	Name:         "New Donor",
	MinDonations: 0,
	Color:        "#9CA3AF",
	Icon:         "🩸",
}

var table = []Tier{
	{Level: 1, Name: "Life Starter", MinDonations: 1, Color: "#CD7F32", Icon: "🌱"},
	{Level: 2, Name: "Life Saver", MinDonations: 3, Color: "#C0C0C0", Icon: "💪"},
	{Level: 3, Name: "Hero", MinDonations: 5, Color: "#FFD700", Icon: "⭐"},
	{Level: 4, Name: "Guardian", MinDonations: 10, Color: "#E5E4E2", Icon: "🛡️"},
	{Level: 5, Name: "Legend", MinDonations: 20, Color: "#B9F2FF", Icon: "👑"},
}

// Tiers returns a copy of the tier table in ascending level order.
func Tiers() []Tier {
	return slices.Clone(table)
}

func Resolve(count int) Tier {
	return ResolveIn(table, count)
}

// ResolveIn evaluates tiers in descending threshold order and returns the
// first whose threshold is <= count. Equal thresholds keep table order, so
// a corrupted table still resolves deterministically.
func ResolveIn(tiers []Tier, count int) Tier {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int {
		return b.MinDonations - a.MinDonations
	})

	for _, t := range sorted {
		if count >= t.MinDonations {
			return t
		}
	}

	return Zero
}

// Next returns the lowest tier the count has not reached yet.
func Next(count int) (Tier, bool) {
	for _, t := range table {
		if t.MinDonations > count {
			return t, true
		}
	}
	return Tier{}, false
}

type Progress struct {
	Current   Tier  `json:"current"`
	Next      *Tier `json:"next,omitempty"`
	Remaining int   `json:"remaining"`
	Percent   int   `json:"percent"`
}

func ProgressFor(count int) Progress {
	p := Progress{
		Current: Resolve(count),
		Percent: 100,
	}

	next, ok := Next(count)
	if !ok {
		return p
	}

	p.Next = &next
	p.Remaining = next.MinDonations - max(count, 0)
	p.Percent = min(100, max(count, 0)*100/next.MinDonations)

	return p
}
