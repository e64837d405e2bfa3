// Package interaction holds the map view state and reacts to pointer, key and
// drag events the way the dashboard map does.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/report"
)

// ErrNotEditing is returned by DragEnd outside edit mode
var ErrNotEditing = errors.New("markers can only be moved in edit mode")

// KeyEscape leaves fullscreen
const KeyEscape = "Escape"

// UpdateFailedNotice is shown when a manual location could not be saved
const UpdateFailedNotice = "No se pudo guardar la nueva ubicación. Intenta de nuevo."

// GeoUpdater persists a manual location correction
type GeoUpdater interface {
	UpdateGeolocatedPerson(ctx context.Context, id int64, role models.Role, u models.GeoUpdate) error
}

// Popup is the info box opened on a single marker
type Popup struct {
	Coordinates orb.Point      `json:"coordinates"`
	Properties  map[string]any `json:"properties"`
}

// DraggableMarker is a person rendered as a movable marker in edit mode
type DraggableMarker struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	Lat   float64     `json:"lat"`
	Lng   float64     `json:"lng"`
	Color string      `json:"color"`
}

// ViewState is what a client needs to render the controls around the map
type ViewState struct {
	Loaded        bool                    `json:"loaded"`
	Fullscreen    bool                    `json:"fullscreen"`
	EditMode      bool                    `json:"edit_mode"`
	RoleFilter    models.RoleFilter       `json:"role_filter"`
	Hovered       string                  `json:"hovered_section,omitempty"`
	Selected      string                  `json:"selected_section,omitempty"`
	SelectedStats *models.SectionStats    `json:"selected_stats,omitempty"`
	Popup         *Popup                  `json:"popup,omitempty"`
	FeatureState  map[string]FeatureFlags `json:"feature_state"`
}

// Controller owns the interaction state of one map view. It is not safe for
// concurrent use; callers serialize events.
type Controller struct {
	surface  Surface
	reporter report.Reporter
	updater  GeoUpdater
	now      func() time.Time

	states        *FeatureStateStore
	stats         map[string]models.SectionStats
	selectedStats *models.SectionStats
	popup         *Popup

	loaded     bool
	fullscreen bool
	editMode   bool
	roleFilter models.RoleFilter
}

// NewController creates a controller in its initial state
func NewController(surface Surface, reporter report.Reporter, updater GeoUpdater) *Controller {
	return &Controller{
		surface:    surface,
		reporter:   reporter,
		updater:    updater,
		now:        time.Now,
		states:     NewFeatureStateStore(mapdata.SectionSourceID, surface),
		roleFilter: models.RoleFilterAll,
	}
}

// SetClock replaces the time source used for geocoded_at
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// SetSectionStats replaces the statistics published on section selection
func (c *Controller) SetSectionStats(stats map[string]models.SectionStats) {
	c.stats = stats
	if sel := c.states.Selected(); sel != "" {
		c.publish(sel)
	}
}

// State returns a copy of the view state
func (c *Controller) State() ViewState {
	return ViewState{
		Loaded:        c.loaded,
		Fullscreen:    c.fullscreen,
		EditMode:      c.editMode,
		RoleFilter:    c.roleFilter,
		Hovered:       c.states.Hovered(),
		Selected:      c.states.Selected(),
		SelectedStats: c.selectedStats,
		Popup:         c.popup,
		FeatureState:  c.states.Snapshot(),
	}
}

// MapReady marks the map loaded and registers the marker icons it lacks
func (c *Controller) MapReady() []string {
	c.loaded = true
	return mapdata.RegisterIcons(c.surface)
}

// PointerMove updates the cursor and the hovered section
func (c *Controller) PointerMove(at ScreenPoint) {
	if hits := c.surface.QueryRenderedFeatures(at, c.pointLayers()); len(hits) > 0 {
		c.surface.SetCursor(CursorPointer)
		c.states.SetHover("")
		return
	}
	if id := c.sectionAt(at); id != "" {
		c.surface.SetCursor(CursorPointer)
		c.states.SetHover(id)
		return
	}
	c.surface.SetCursor(CursorDefault)
	c.states.SetHover("")
}

// Click expands clusters, opens marker popups or toggles section selection
func (c *Controller) Click(at ScreenPoint) {
	if hits := c.surface.QueryRenderedFeatures(at, c.pointLayers()); len(hits) > 0 {
		c.clickPoint(hits[0])
		return
	}
	if c.editMode {
		return
	}

	c.popup = nil
	id := c.sectionAt(at)
	if id == "" {
		c.states.ClearSelected()
		c.selectedStats = nil
		return
	}
	if c.states.ToggleSelected(id) == "" {
		c.selectedStats = nil
		return
	}
	c.publish(id)
}

func (c *Controller) clickPoint(hit RenderedFeature) {
	if isCluster(hit.Properties) {
		c.expandCluster(hit)
		return
	}
	if hit.Coordinates == nil {
		return
	}
	c.popup = &Popup{Coordinates: *hit.Coordinates, Properties: hit.Properties}
}

func (c *Controller) expandCluster(hit RenderedFeature) {
	role, ok := models.RoleForLayer(hit.LayerID)
	if !ok {
		return
	}
	id, err := ClusterID(hit.Properties["cluster_id"])
	if err != nil {
		c.reporter.LogDiagnostic("invalid cluster id", err)
		return
	}
	zoom, err := c.surface.GetClusterExpansionZoom(role.Descriptor().SourceID, id)
	if err != nil {
		c.reporter.LogDiagnostic("failed to get cluster expansion zoom", err)
		return
	}
	if hit.Coordinates != nil {
		c.surface.EaseTo(*hit.Coordinates, zoom)
	}
}

// ClosePopup dismisses the marker popup
func (c *Controller) ClosePopup() {
	c.popup = nil
}

// SetEditMode switches marker dragging on or off
func (c *Controller) SetEditMode(on bool) {
	if on == c.editMode {
		return
	}
	c.editMode = on
	if on {
		c.popup = nil
		c.states.ClearSelected()
		c.selectedStats = nil
	}
}

// EditMode reports whether markers are draggable
func (c *Controller) EditMode() bool { return c.editMode }

// RoleFilter returns the active role filter
func (c *Controller) RoleFilter() models.RoleFilter { return c.roleFilter }

// SetRoleFilter changes which roles are shown
func (c *Controller) SetRoleFilter(f models.RoleFilter) {
	if f == "" {
		f = models.RoleFilterAll
	}
	c.roleFilter = f
	if c.popup != nil {
		if r, ok := c.popup.Properties["role"].(string); ok && !f.Includes(models.Role(r)) {
			c.popup = nil
		}
	}
}

// ToggleFullscreen flips fullscreen and resizes the map once
func (c *Controller) ToggleFullscreen() {
	c.fullscreen = !c.fullscreen
	c.surface.Resize()
}

// KeyDown handles global keys; it reports whether the key changed anything
func (c *Controller) KeyDown(key string) bool {
	if key != KeyEscape || !c.fullscreen {
		return false
	}
	c.fullscreen = false
	c.surface.Resize()
	return true
}

// DraggableMarkers lists the persons rendered as movable markers in edit mode
func (c *Controller) DraggableMarkers(persons []models.Person) []DraggableMarker {
	if !c.editMode {
		return nil
	}
	var out []DraggableMarker
	for i := range persons {
		p := &persons[i]
		if !p.HasLocation() || !p.Role.Valid() || !c.roleFilter.Includes(p.Role) {
			continue
		}
		out = append(out, DraggableMarker{
			ID:    p.ID,
			Name:  p.Name,
			Role:  p.Role,
			Lat:   *p.Lat,
			Lng:   *p.Lng,
			Color: p.Role.Descriptor().Color,
		})
	}
	return out
}

// DragEnd saves the dropped position as a manual geocode. A failure is logged
// and shown to the user; the marker keeps its previous stored position.
func (c *Controller) DragEnd(ctx context.Context, id int64, role models.Role, lat, lng float64) error {
	if !c.editMode {
		return ErrNotEditing
	}
	update := models.GeoUpdate{
		Lat:           lat,
		Lng:           lng,
		GeocodeStatus: models.GeocodeManual,
		GeocodedAt:    c.now().UTC(),
	}
	if err := c.updater.UpdateGeolocatedPerson(ctx, id, role, update); err != nil {
		c.reporter.LogDiagnostic(fmt.Sprintf("failed to update location of person %d", id), err)
		c.reporter.NotifyUser(UpdateFailedNotice)
		return err
	}
	return nil
}

func (c *Controller) publish(id string) {
	s, ok := c.stats[id]
	if !ok {
		s = models.SectionStats{Section: id}
	}
	c.selectedStats = &s
}

func (c *Controller) pointLayers() []string {
	return mapdata.PointLayerIDs(c.roleFilter.Roles())
}

func (c *Controller) sectionAt(at ScreenPoint) string {
	hits := c.surface.QueryRenderedFeatures(at, []string{mapdata.SectionFillLayerID})
	for _, h := range hits {
		if id := featureID(h); id != "" {
			return id
		}
	}
	return ""
}

func featureID(h RenderedFeature) string {
	if v, ok := h.Properties[mapdata.SectionProperty]; ok {
		if s := idString(v); s != "" {
			return s
		}
	}
	return idString(h.ID)
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	}
	return ""
}

func isCluster(props map[string]any) bool {
	b, _ := props["cluster"].(bool)
	return b
}

// ClusterID reads a cluster_id property as decoded from JSON or set in Go
func ClusterID(v any) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		if t >= 0 {
			return uint64(t), nil
		}
	case int64:
		if t >= 0 {
			return uint64(t), nil
		}
	case float64:
		if t >= 0 && t == math.Trunc(t) {
			return uint64(t), nil
		}
	case string:
		return strconv.ParseUint(t, 10, 64)
	}
	return 0, fmt.Errorf("unexpected cluster_id %v", v)
}
