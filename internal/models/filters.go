package models

// PersonFilter represents filter parameters for querying persons
type PersonFilter struct {
	Role          string `form:"role"`          // lider, brigadista, movilizador, ciudadano
	Section       string `form:"section"`       // electoral section code
	GeocodeStatus string `form:"geocodeStatus"` // unset, automatic, manual
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}

// ClusterFilter represents the viewport of a cluster query
type ClusterFilter struct {
	Role   string  `form:"role" binding:"required"`
	Zoom   int     `form:"zoom"`
	MinLat float64 `form:"minLat"`
	MaxLat float64 `form:"maxLat"`
	MinLon float64 `form:"minLon"`
	MaxLon float64 `form:"maxLon"`
}

// HasBounds reports whether a viewport was given
func (f ClusterFilter) HasBounds() bool {
	return f.MinLat != 0 || f.MaxLat != 0 || f.MinLon != 0 || f.MaxLon != 0
}
