// Package mapdata derives what the map renders: per-role GeoJSON, layer
// specifications, icons and clusters.
package mapdata

import (
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/navojoa/electoral-map/internal/models"
)

// RoleCollections holds one point FeatureCollection per role
type RoleCollections map[models.Role]*geojson.FeatureCollection

// BySource re-keys the collections by their map source id
func (rc RoleCollections) BySource() map[string]*geojson.FeatureCollection {
	out := make(map[string]*geojson.FeatureCollection, len(rc))
	for role, fc := range rc {
		out[role.Descriptor().SourceID] = fc
	}
	return out
}

// BuildRoleCollections partitions persons into one collection per role.
// Persons missing either coordinate are left out; unknown roles are ignored.
func BuildRoleCollections(persons []models.Person) RoleCollections {
	rc := make(RoleCollections, len(models.Roles))
	for _, r := range models.Roles {
		rc[r] = geojson.NewFeatureCollection()
	}

	for i := range persons {
		p := &persons[i]
		fc, ok := rc[p.Role]
		if !ok || !p.HasLocation() {
			continue
		}
		fc.Append(PersonFeature(p))
	}
	return rc
}

// PersonFeature converts a located person into a Point feature
func PersonFeature(p *models.Person) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{*p.Lng, *p.Lat})
	f.ID = p.ID
	f.Properties["id"] = p.ID
	f.Properties["name"] = p.Name
	f.Properties["role"] = string(p.Role)
	f.Properties["section"] = p.SectionCode()
	f.Properties["neighborhood"] = p.Neighborhood
	f.Properties["geocode_status"] = string(p.GeocodeStatus)
	if p.GeocodedAt != nil {
		f.Properties["geocoded_at"] = p.GeocodedAt.UTC().Format(time.RFC3339)
	}
	return f
}

// Builder memoizes BuildRoleCollections on the snapshot revision
type Builder struct {
	mu       sync.Mutex
	revision uint64
	built    bool
	result   RoleCollections
}

// Build returns the collections of snap, reusing the last result for the same revision
func (b *Builder) Build(snap models.PersonSnapshot) RoleCollections {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built && b.revision == snap.Revision {
		return b.result
	}
	b.result = BuildRoleCollections(snap.Persons)
	b.revision = snap.Revision
	b.built = true
	return b.result
}
