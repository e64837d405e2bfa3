package session

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/navojoa/electoral-map/internal/interaction"
	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
)

// Effect types sent back to the browser map
const (
	EffectSetFeatureState = "set_feature_state"
	EffectSetCursor       = "set_cursor"
	EffectResize          = "resize"
	EffectAddImage        = "add_image"
	EffectEaseTo          = "ease_to"
	EffectNotify          = "notify"
)

// Effect is one command the browser applies to its map, in order
type Effect struct {
	Type    string          `json:"type"`
	Source  string          `json:"source,omitempty"`
	ID      string          `json:"id,omitempty"`
	State   map[string]bool `json:"state,omitempty"`
	Cursor  *string         `json:"cursor,omitempty"`
	Image   *mapdata.Icon   `json:"image,omitempty"`
	Center  *orb.Point      `json:"center,omitempty"`
	Zoom    int             `json:"zoom,omitempty"`
	Message string          `json:"message,omitempty"`
}

// PropExpansionZoom is the cluster hit property carrying the expansion zoom
// the browser renderer computed for its own cluster
const PropExpansionZoom = "expansion_zoom"

// ExpansionFunc resolves the expansion zoom of a cluster of role
type ExpansionFunc func(ctx context.Context, role models.Role, clusterID uint64) (int, error)

// recordingSurface answers queries from the hits the browser sent with the
// event and records every command as an effect
type recordingSurface struct {
	ctx       context.Context
	hits      []interaction.RenderedFeature
	images    map[string]bool
	effects   []Effect
	expansion ExpansionFunc
}

func newRecordingSurface(expansion ExpansionFunc) *recordingSurface {
	return &recordingSurface{
		ctx:       context.Background(),
		images:    make(map[string]bool),
		expansion: expansion,
	}
}

func (s *recordingSurface) begin(ctx context.Context, hits []interaction.RenderedFeature) {
	s.ctx = ctx
	s.hits = hits
	s.effects = nil
}

func (s *recordingSurface) end() []Effect {
	out := s.effects
	s.ctx = context.Background()
	s.hits = nil
	s.effects = nil
	return out
}

func (s *recordingSurface) QueryRenderedFeatures(at interaction.ScreenPoint, layerIDs []string) []interaction.RenderedFeature {
	var out []interaction.RenderedFeature
	for _, h := range s.hits {
		for _, id := range layerIDs {
			if h.LayerID == id {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

func (s *recordingSurface) SetFeatureState(source, id string, state map[string]bool) {
	s.effects = append(s.effects, Effect{Type: EffectSetFeatureState, Source: source, ID: id, State: state})
}

func (s *recordingSurface) SetCursor(cursor string) {
	s.effects = append(s.effects, Effect{Type: EffectSetCursor, Cursor: &cursor})
}

func (s *recordingSurface) Resize() {
	s.effects = append(s.effects, Effect{Type: EffectResize})
}

func (s *recordingSurface) HasImage(name string) bool {
	return s.images[name]
}

func (s *recordingSurface) AddImage(icon mapdata.Icon) {
	s.images[icon.Name] = true
	s.effects = append(s.effects, Effect{Type: EffectAddImage, Image: &icon})
}

func (s *recordingSurface) EaseTo(center orb.Point, zoom int) {
	s.effects = append(s.effects, Effect{Type: EffectEaseTo, Center: &center, Zoom: zoom})
}

// GetClusterExpansionZoom prefers the zoom reported with the clicked hit.
// Renderer cluster ids are not server grid ids, so the server index is only
// asked when the hit carries no expansion zoom.
func (s *recordingSurface) GetClusterExpansionZoom(sourceID string, clusterID uint64) (int, error) {
	role, ok := models.RoleForLayer(sourceID)
	if !ok {
		return 0, mapdata.ErrClusterNotFound
	}
	if zoom, ok := s.reportedExpansion(role, clusterID); ok {
		return zoom, nil
	}
	if s.expansion == nil {
		return 0, mapdata.ErrClusterNotFound
	}
	return s.expansion(s.ctx, role, clusterID)
}

func (s *recordingSurface) reportedExpansion(role models.Role, clusterID uint64) (int, bool) {
	for _, h := range s.hits {
		if r, ok := models.RoleForLayer(h.LayerID); !ok || r != role {
			continue
		}
		if id, err := interaction.ClusterID(h.Properties["cluster_id"]); err != nil || id != clusterID {
			continue
		}
		switch z := h.Properties[PropExpansionZoom].(type) {
		case float64:
			if z >= 0 {
				return int(z), true
			}
		case int:
			if z >= 0 {
				return z, true
			}
		}
	}
	return 0, false
}

func (s *recordingSurface) notify(msg string) {
	s.effects = append(s.effects, Effect{Type: EffectNotify, Message: msg})
}
