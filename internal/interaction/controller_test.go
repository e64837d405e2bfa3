package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/report"
)

type stateCall struct {
	id    string
	key   string
	value bool
}

// fakeSurface answers queries from a fixed table of hits per screen point
type fakeSurface struct {
	hits      map[ScreenPoint][]RenderedFeature
	images    map[string]mapdata.Icon
	states    []stateCall
	cursor    string
	resizes   int
	eased     []int
	expansion int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		hits:      make(map[ScreenPoint][]RenderedFeature),
		images:    make(map[string]mapdata.Icon),
		expansion: 12,
	}
}

func (f *fakeSurface) HasImage(name string) bool  { _, ok := f.images[name]; return ok }
func (f *fakeSurface) AddImage(icon mapdata.Icon) { f.images[icon.Name] = icon }
func (f *fakeSurface) SetCursor(cursor string)    { f.cursor = cursor }
func (f *fakeSurface) Resize()                    { f.resizes++ }
func (f *fakeSurface) EaseTo(center orb.Point, zoom int) {
	f.eased = append(f.eased, zoom)
}

func (f *fakeSurface) SetFeatureState(source, id string, state map[string]bool) {
	for k, v := range state {
		f.states = append(f.states, stateCall{id: id, key: k, value: v})
	}
}

func (f *fakeSurface) QueryRenderedFeatures(at ScreenPoint, layerIDs []string) []RenderedFeature {
	var out []RenderedFeature
	for _, h := range f.hits[at] {
		for _, l := range layerIDs {
			if h.LayerID == l {
				out = append(out, h)
			}
		}
	}
	return out
}

func (f *fakeSurface) GetClusterExpansionZoom(sourceID string, clusterID uint64) (int, error) {
	return f.expansion, nil
}

type fakeUpdater struct {
	err   error
	calls []models.GeoUpdate
}

func (u *fakeUpdater) UpdateGeolocatedPerson(ctx context.Context, id int64, role models.Role, up models.GeoUpdate) error {
	u.calls = append(u.calls, up)
	return u.err
}

func section(id string) RenderedFeature {
	return RenderedFeature{LayerID: mapdata.SectionFillLayerID, ID: id, Properties: map[string]any{"SECCION": id}}
}

var (
	atA     = ScreenPoint{X: 10, Y: 10}
	atB     = ScreenPoint{X: 20, Y: 20}
	atEmpty = ScreenPoint{X: 99, Y: 99}
	atPoint = ScreenPoint{X: 30, Y: 30}
)

func newTestController() (*Controller, *fakeSurface, *report.Recorder, *fakeUpdater) {
	s := newFakeSurface()
	s.hits[atA] = []RenderedFeature{section("1203")}
	s.hits[atB] = []RenderedFeature{section("1204")}
	rec := &report.Recorder{}
	up := &fakeUpdater{}
	return NewController(s, rec, up), s, rec, up
}

func hoveredCount(c *Controller) int {
	n := 0
	for _, f := range c.State().FeatureState {
		if f.Hover {
			n++
		}
	}
	return n
}

func TestPointerMove_HoverIsExclusive(t *testing.T) {
	c, s, _, _ := newTestController()

	c.PointerMove(atA)
	assert.Equal(t, "1203", c.State().Hovered)
	assert.Equal(t, CursorPointer, s.cursor)

	s.states = nil
	c.PointerMove(atB)
	assert.Equal(t, "1204", c.State().Hovered)
	assert.Equal(t, 1, hoveredCount(c))
	assert.Equal(t, []stateCall{
		{id: "1203", key: StateHover, value: false},
		{id: "1204", key: StateHover, value: true},
	}, s.states)

	c.PointerMove(atEmpty)
	assert.Empty(t, c.State().Hovered)
	assert.Equal(t, 0, hoveredCount(c))
	assert.Equal(t, CursorDefault, s.cursor)
}

func TestPointerMove_PointsTakePrecedence(t *testing.T) {
	c, s, _, _ := newTestController()
	d := models.RoleLider.Descriptor()
	s.hits[atPoint] = []RenderedFeature{
		{LayerID: d.UnclusteredLayerID, Properties: map[string]any{"id": 1.0}},
		section("1203"),
	}

	c.PointerMove(atA)
	c.PointerMove(atPoint)

	assert.Empty(t, c.State().Hovered)
	assert.Equal(t, CursorPointer, s.cursor)
}

func TestPointerMove_HiddenRoleIsIgnored(t *testing.T) {
	c, s, _, _ := newTestController()
	d := models.RoleCiudadano.Descriptor()
	s.hits[atPoint] = []RenderedFeature{{LayerID: d.UnclusteredLayerID}}

	c.SetRoleFilter(models.RoleFilter(models.RoleLider))
	c.PointerMove(atPoint)

	assert.Equal(t, CursorDefault, s.cursor)
}

func TestClick_SelectToggles(t *testing.T) {
	c, _, _, _ := newTestController()
	c.SetSectionStats(map[string]models.SectionStats{
		"1203": {Section: "1203", Lideres: 1, Total: 1},
	})

	c.Click(atA)
	st := c.State()
	assert.Equal(t, "1203", st.Selected)
	require.NotNil(t, st.SelectedStats)
	assert.Equal(t, 1, st.SelectedStats.Lideres)

	c.Click(atB)
	st = c.State()
	assert.Equal(t, "1204", st.Selected)
	assert.False(t, st.FeatureState["1203"].Selected)
	require.NotNil(t, st.SelectedStats)
	assert.Equal(t, 0, st.SelectedStats.Total)

	c.Click(atB)
	st = c.State()
	assert.Empty(t, st.Selected)
	assert.Nil(t, st.SelectedStats)
}

func TestClick_EmptySpaceClearsSelection(t *testing.T) {
	c, s, _, _ := newTestController()

	c.Click(atA)
	s.states = nil
	c.Click(atEmpty)

	assert.Empty(t, c.State().Selected)
	assert.Nil(t, c.State().SelectedStats)
	assert.Equal(t, []stateCall{{id: "1203", key: StateSelected, value: false}}, s.states)
}

func TestClick_PointOpensPopup(t *testing.T) {
	c, s, _, _ := newTestController()
	d := models.RoleBrigadista.Descriptor()
	s.hits[atPoint] = []RenderedFeature{{
		LayerID:     d.UnclusteredLayerID,
		Properties:  map[string]any{"name": "Ana", "role": "brigadista"},
		Coordinates: &orb.Point{-109.44, 27.07},
	}}

	c.Click(atPoint)

	popup := c.State().Popup
	require.NotNil(t, popup)
	assert.Equal(t, orb.Point{-109.44, 27.07}, popup.Coordinates)
	assert.Equal(t, "Ana", popup.Properties["name"])

	c.SetRoleFilter(models.RoleFilter(models.RoleLider))
	assert.Nil(t, c.State().Popup)
}

func TestClick_ClusterEasesToExpansionZoom(t *testing.T) {
	c, s, rec, _ := newTestController()
	d := models.RoleLider.Descriptor()
	s.hits[atPoint] = []RenderedFeature{{
		LayerID:     d.ClusterLayerID,
		Properties:  map[string]any{"cluster": true, "cluster_id": float64(4097)},
		Coordinates: &orb.Point{-109.44, 27.07},
	}}

	c.Click(atPoint)

	assert.Equal(t, []int{12}, s.eased)
	assert.Nil(t, c.State().Popup)
	assert.Empty(t, rec.Diagnostics)
}

func TestEditMode_DisablesSectionSelection(t *testing.T) {
	c, _, _, _ := newTestController()
	c.Click(atA)

	c.SetEditMode(true)
	assert.Empty(t, c.State().Selected)

	c.Click(atB)
	assert.Empty(t, c.State().Selected)
}

func TestToggleFullscreen_ResizesOncePerToggle(t *testing.T) {
	c, s, _, _ := newTestController()

	c.ToggleFullscreen()
	assert.True(t, c.State().Fullscreen)
	assert.Equal(t, 1, s.resizes)

	c.ToggleFullscreen()
	assert.False(t, c.State().Fullscreen)
	assert.Equal(t, 2, s.resizes)
}

func TestKeyDown_EscapeLeavesFullscreen(t *testing.T) {
	c, s, _, _ := newTestController()

	assert.False(t, c.KeyDown(KeyEscape))
	assert.Equal(t, 0, s.resizes)

	c.ToggleFullscreen()
	assert.False(t, c.KeyDown("Enter"))
	assert.True(t, c.KeyDown(KeyEscape))
	assert.False(t, c.State().Fullscreen)
	assert.Equal(t, 2, s.resizes)
}

func TestMapReady_RegistersIconsOnce(t *testing.T) {
	c, s, _, _ := newTestController()
	s.AddImage(mapdata.Icon{Name: "marker-lider"})

	added := c.MapReady()
	assert.True(t, c.State().Loaded)
	assert.Len(t, added, len(mapdata.IconNames())-1)
	assert.NotContains(t, added, "marker-lider")

	assert.Empty(t, c.MapReady())
}

func TestDraggableMarkers(t *testing.T) {
	c, _, _, _ := newTestController()
	lat, lng := 27.07, -109.44
	persons := []models.Person{
		{ID: 1, Role: models.RoleLider, Lat: &lat, Lng: &lng},
		{ID: 2, Role: models.RoleCiudadano, Lat: &lat},
		{ID: 3, Role: models.RoleCiudadano, Lat: &lat, Lng: &lng},
	}

	assert.Nil(t, c.DraggableMarkers(persons))

	c.SetEditMode(true)
	markers := c.DraggableMarkers(persons)
	require.Len(t, markers, 2)
	assert.Equal(t, models.RoleLider.Descriptor().Color, markers[0].Color)

	c.SetRoleFilter(models.RoleFilter(models.RoleCiudadano))
	markers = c.DraggableMarkers(persons)
	require.Len(t, markers, 1)
	assert.Equal(t, int64(3), markers[0].ID)
}

func TestDragEnd_WritesManualGeocode(t *testing.T) {
	c, _, rec, up := newTestController()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return fixed })

	assert.ErrorIs(t, c.DragEnd(context.Background(), 1, models.RoleLider, 27.1, -109.4), ErrNotEditing)

	c.SetEditMode(true)
	require.NoError(t, c.DragEnd(context.Background(), 1, models.RoleLider, 27.1, -109.4))
	require.Len(t, up.calls, 1)
	assert.Equal(t, models.GeocodeManual, up.calls[0].GeocodeStatus)
	assert.Equal(t, fixed, up.calls[0].GeocodedAt)
	assert.Empty(t, rec.Notices)
}

func TestDragEnd_FailureNotifiesUser(t *testing.T) {
	c, _, rec, up := newTestController()
	up.err = errors.New("connection reset")
	c.SetEditMode(true)

	err := c.DragEnd(context.Background(), 7, models.RoleMovilizador, 27.1, -109.4)

	require.Error(t, err)
	assert.Equal(t, []string{UpdateFailedNotice}, rec.Notices)
	require.Len(t, rec.Diagnostics, 1)
	assert.Contains(t, rec.Diagnostics[0], "connection reset")
	assert.Len(t, up.calls, 1)
}
