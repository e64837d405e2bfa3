package mapdata

import (
	"github.com/navojoa/electoral-map/internal/models"
)

// ClusterOptions configures the clustered point sources
type ClusterOptions struct {
	MaxZoom int
	Radius  int
}

// DefaultClusterOptions matches the map library defaults
var DefaultClusterOptions = ClusterOptions{MaxZoom: 14, Radius: 50}

// MarkerLayers returns the point sources and layers of the given roles.
// Clustering is switched off while the map is in edit mode.
func MarkerLayers(roles []models.Role, editMode bool, opts ClusterOptions) ([]Source, []Layer) {
	sources := make([]Source, 0, len(roles))
	layers := make([]Layer, 0, 2*len(roles))

	for _, r := range roles {
		d := r.Descriptor()
		src := Source{ID: d.SourceID, Type: "geojson", Cluster: !editMode}
		if src.Cluster {
			src.ClusterMaxZoom = opts.MaxZoom
			src.ClusterRadius = opts.Radius
		}
		sources = append(sources, src)
		layers = append(layers, clusterLayer(d), unclusteredLayer(d))
	}
	return sources, layers
}

// PointLayerIDs lists the cluster and unclustered layer ids of roles
func PointLayerIDs(roles []models.Role) []string {
	ids := make([]string, 0, 2*len(roles))
	for _, r := range roles {
		d := r.Descriptor()
		ids = append(ids, d.ClusterLayerID, d.UnclusteredLayerID)
	}
	return ids
}

func clusterLayer(d models.RoleDescriptor) Layer {
	return Layer{
		ID:     d.ClusterLayerID,
		Type:   "symbol",
		Source: d.SourceID,
		Filter: []any{"has", "point_count"},
		Layout: map[string]any{
			"icon-image":         d.ClusterIcon,
			"icon-allow-overlap": true,
			"text-field":         "{point_count_abbreviated}",
			"text-size":          []any{"step", []any{"get", "point_count"}, 14, 100, 12, 1000, 10},
			"text-allow-overlap": true,
			"text-font":          []any{"Open Sans Bold", "Arial Unicode MS Bold"},
		},
		Paint: map[string]any{
			"text-color": "#ffffff",
		},
	}
}

func unclusteredLayer(d models.RoleDescriptor) Layer {
	return Layer{
		ID:     d.UnclusteredLayerID,
		Type:   "symbol",
		Source: d.SourceID,
		Filter: []any{"!", []any{"has", "point_count"}},
		Layout: map[string]any{
			"icon-image":         d.MarkerIcon,
			"icon-anchor":        "bottom",
			"icon-allow-overlap": true,
		},
	}
}

// ClusterTextSize mirrors the text-size step of the cluster layer
func ClusterTextSize(pointCount int) int {
	switch {
	case pointCount >= 1000:
		return 10
	case pointCount >= 100:
		return 12
	default:
		return 14
	}
}
