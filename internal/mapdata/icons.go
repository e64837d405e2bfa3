package mapdata

import (
	"fmt"
	"sort"

	"github.com/navojoa/electoral-map/internal/models"
)

// Legacy icon names still referenced by older clients
const (
	LegacyMarkerIcon  = "custom-marker"
	LegacyClusterIcon = "cluster-marker"

	legacyColor = "#DC2626"
)

// Icon is an SVG image registered on the map under Name
type Icon struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	SVG    string `json:"svg"`
}

// ImageRegistrar is the part of a map surface that holds images
type ImageRegistrar interface {
	HasImage(name string) bool
	AddImage(icon Icon)
}

// Icons returns every icon the marker layers reference, keyed by name
func Icons() map[string]Icon {
	icons := make(map[string]Icon, 2*len(models.Roles)+2)
	for _, r := range models.Roles {
		d := r.Descriptor()
		icons[d.MarkerIcon] = markerIcon(d.MarkerIcon, d.Color)
		icons[d.ClusterIcon] = clusterIcon(d.ClusterIcon, d.Color)
	}
	icons[LegacyMarkerIcon] = markerIcon(LegacyMarkerIcon, legacyColor)
	icons[LegacyClusterIcon] = clusterIcon(LegacyClusterIcon, legacyColor)
	return icons
}

// IconNames lists the icon names in a stable order
func IconNames() []string {
	icons := Icons()
	names := make([]string, 0, len(icons))
	for name := range icons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterIcons adds every missing icon to the surface and returns the names it added.
// Names the surface already has are skipped, so repeated calls are harmless.
func RegisterIcons(s ImageRegistrar) []string {
	icons := Icons()
	var added []string
	for _, name := range IconNames() {
		if s.HasImage(name) {
			continue
		}
		s.AddImage(icons[name])
		added = append(added, name)
	}
	return added
}

func markerIcon(name, color string) Icon {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="28" height="40" viewBox="0 0 28 40">`+
		`<path d="M14 0C6.3 0 0 6.3 0 14c0 10.5 14 26 14 26s14-15.5 14-26C28 6.3 21.7 0 14 0z" fill="%s" stroke="#ffffff" stroke-width="2"/>`+
		`<circle cx="14" cy="14" r="5" fill="#ffffff"/></svg>`, color)
	return Icon{Name: name, Width: 28, Height: 40, SVG: svg}
}

func clusterIcon(name, color string) Icon {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="44" height="44" viewBox="0 0 44 44">`+
		`<circle cx="22" cy="22" r="20" fill="%s" fill-opacity="0.85" stroke="#ffffff" stroke-width="3"/></svg>`, color)
	return Icon{Name: name, Width: 44, Height: 44, SVG: svg}
}
