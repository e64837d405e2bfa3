package mapdata

// Layer is a style layer as consumed by Mapbox GL / MapLibre
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// Source is a GeoJSON style source; Data is filled by the caller
type Source struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Data           any    `json:"data,omitempty"`
	Cluster        bool   `json:"cluster"`
	ClusterMaxZoom int    `json:"clusterMaxZoom,omitempty"`
	ClusterRadius  int    `json:"clusterRadius,omitempty"`
	PromoteID      string `json:"promoteId,omitempty"`
}

// featureState builds ["boolean", ["feature-state", name], false]
func featureState(name string) []any {
	return []any{"boolean", []any{"feature-state", name}, false}
}

// stateCase builds a case expression with selected taking priority over hover
func stateCase(selected, hover, otherwise any) []any {
	return []any{"case",
		featureState("selected"), selected,
		featureState("hover"), hover,
		otherwise,
	}
}
