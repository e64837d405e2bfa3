package sections

import (
	"github.com/paulmach/orb/geojson"

	"github.com/navojoa/electoral-map/internal/models"
)

// Join copies the polygon features and adds the statistics of each section.
// Sections without statistics get zero counts.
func Join(polygons *geojson.FeatureCollection, stats map[string]models.SectionStats) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if polygons == nil {
		return out
	}

	for _, f := range polygons.Features {
		id := SectionID(f)
		s := stats[id]

		cp := geojson.NewFeature(f.Geometry)
		cp.ID = f.ID
		for k, v := range f.Properties {
			cp.Properties[k] = v
		}
		cp.Properties["lideres"] = s.Lideres
		cp.Properties["brigadistas"] = s.Brigadistas
		cp.Properties["movilizadores"] = s.Movilizadores
		cp.Properties["ciudadanos"] = s.Ciudadanos
		cp.Properties["total"] = s.Total
		cp.Properties["principal_neighborhood"] = s.PrincipalNeighborhood
		out.Append(cp)
	}
	return out
}
