package mapdata

// Section source and layer ids
const (
	SectionSourceID     = "secciones-source"
	SectionFillLayerID  = "secciones-fill"
	SectionLineLayerID  = "secciones-outline"
	SectionLabelLayerID = "secciones-labels"

	// SectionProperty carries the section code in the polygon document
	SectionProperty = "SECCION"
)

// SectionStyle is the resolved look of one section polygon
type SectionStyle struct {
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	LineColor   string  `json:"lineColor"`
	LineWidth   float64 `json:"lineWidth"`
	LineOpacity float64 `json:"lineOpacity"`
}

var (
	sectionDefault  = SectionStyle{FillColor: "#93C5FD", FillOpacity: 0.15, LineColor: "#1D4ED8", LineWidth: 1}
	sectionHover    = SectionStyle{FillColor: "#60A5FA", FillOpacity: 0.35, LineColor: "#1E40AF", LineWidth: 2}
	sectionSelected = SectionStyle{FillColor: "#F97316", FillOpacity: 0.45, LineColor: "#C2410C", LineWidth: 3}
)

const sectionLineOpacity = 0.8

// ResolveSectionStyle picks the style for the feature-state flags; selected wins over hover
func ResolveSectionStyle(hover, selected bool) SectionStyle {
	s := sectionDefault
	switch {
	case selected:
		s = sectionSelected
	case hover:
		s = sectionHover
	}
	s.LineOpacity = sectionLineOpacity
	return s
}

// SectionSource is the polygon source; feature state is keyed by section code
func SectionSource(data any) Source {
	return Source{ID: SectionSourceID, Type: "geojson", Data: data, PromoteID: SectionProperty}
}

// SectionLayers returns the fill, outline and label layers over the section source
func SectionLayers() []Layer {
	return []Layer{
		{
			ID:     SectionFillLayerID,
			Type:   "fill",
			Source: SectionSourceID,
			Paint: map[string]any{
				"fill-color":   stateCase(sectionSelected.FillColor, sectionHover.FillColor, sectionDefault.FillColor),
				"fill-opacity": stateCase(sectionSelected.FillOpacity, sectionHover.FillOpacity, sectionDefault.FillOpacity),
			},
		},
		{
			ID:     SectionLineLayerID,
			Type:   "line",
			Source: SectionSourceID,
			Paint: map[string]any{
				"line-color":   stateCase(sectionSelected.LineColor, sectionHover.LineColor, sectionDefault.LineColor),
				"line-width":   stateCase(sectionSelected.LineWidth, sectionHover.LineWidth, sectionDefault.LineWidth),
				"line-opacity": sectionLineOpacity,
			},
		},
		{
			ID:     SectionLabelLayerID,
			Type:   "symbol",
			Source: SectionSourceID,
			Layout: map[string]any{
				"text-field": []any{"to-string", []any{"get", SectionProperty}},
				"text-size":  11,
				"text-font":  []any{"Open Sans Regular", "Arial Unicode MS Regular"},
			},
			Paint: map[string]any{
				"text-color":      "#1E3A8A",
				"text-halo-color": "#ffffff",
				"text-halo-width": 1,
			},
		},
	}
}
