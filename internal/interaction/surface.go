package interaction

import (
	"github.com/paulmach/orb"

	"github.com/navojoa/electoral-map/internal/mapdata"
)

// Cursor values set on the map canvas
const (
	CursorPointer = "pointer"
	CursorDefault = ""
)

// ScreenPoint is a pixel position on the map canvas
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RenderedFeature is a feature hit under the pointer
type RenderedFeature struct {
	LayerID    string         `json:"layer_id"`
	ID         any            `json:"id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	// Coordinates of point features, [lng, lat]
	Coordinates *orb.Point `json:"coordinates,omitempty"`
}

// Surface is the rendering engine the controller drives
type Surface interface {
	mapdata.ImageRegistrar
	StateSink

	QueryRenderedFeatures(at ScreenPoint, layerIDs []string) []RenderedFeature
	SetCursor(cursor string)
	Resize()
	GetClusterExpansionZoom(sourceID string, clusterID uint64) (int, error)
	EaseTo(center orb.Point, zoom int)
}
