// Package sections loads electoral section polygons and joins them with
// per-section affiliate statistics.
package sections

import (
	"sort"

	"github.com/navojoa/electoral-map/internal/models"
)

// TransformHierarchicalDataToSections flattens the hierarchy and aggregates it by section
func TransformHierarchicalDataToSections(forest []*models.HierarchyNode) []models.SectionStats {
	return Aggregate(models.Flatten(forest))
}

// Aggregate groups persons by section code. Persons without a section are skipped.
// The result is sorted by section code.
func Aggregate(persons []models.Person) []models.SectionStats {
	bySection := make(map[string]*models.SectionStats)
	neighborhoods := make(map[string]map[string]int)

	for i := range persons {
		p := &persons[i]
		code := p.SectionCode()
		if code == "" || !p.Role.Valid() {
			continue
		}
		s, ok := bySection[code]
		if !ok {
			s = &models.SectionStats{Section: code}
			bySection[code] = s
			neighborhoods[code] = make(map[string]int)
		}
		s.Add(p.Role)
		if p.Neighborhood != "" {
			neighborhoods[code][p.Neighborhood]++
		}
	}

	out := make([]models.SectionStats, 0, len(bySection))
	for code, s := range bySection {
		s.PrincipalNeighborhood = principal(neighborhoods[code])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Section < out[j].Section
	})
	return out
}

// principal returns the most common neighborhood, alphabetical on ties
func principal(counts map[string]int) string {
	best, bestN := "", 0
	for name, n := range counts {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best
}

// Index keys stats by section code
func Index(stats []models.SectionStats) map[string]models.SectionStats {
	m := make(map[string]models.SectionStats, len(stats))
	for _, s := range stats {
		m[s.Section] = s
	}
	return m
}
