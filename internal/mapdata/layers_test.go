package mapdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navojoa/electoral-map/internal/models"
)

func TestMarkerLayers_IdsFollowRoleTable(t *testing.T) {
	sources, layers := MarkerLayers(models.Roles, false, DefaultClusterOptions)
	require.Len(t, sources, 4)
	require.Len(t, layers, 8)

	assert.Equal(t, "lideres-source", sources[0].ID)
	assert.True(t, sources[0].Cluster)
	assert.Equal(t, 14, sources[0].ClusterMaxZoom)

	assert.Equal(t, "clusters-lideres", layers[0].ID)
	assert.Equal(t, "cluster-lider", layers[0].Layout["icon-image"])
	assert.Equal(t, "unclustered-point-lideres", layers[1].ID)
	assert.Equal(t, "marker-lider", layers[1].Layout["icon-image"])
	assert.Equal(t, "bottom", layers[1].Layout["icon-anchor"])
}

func TestMarkerLayers_EditModeDisablesClustering(t *testing.T) {
	sources, _ := MarkerLayers([]models.Role{models.RoleCiudadano}, true, DefaultClusterOptions)
	require.Len(t, sources, 1)
	assert.False(t, sources[0].Cluster)
	assert.Zero(t, sources[0].ClusterRadius)
}

func TestClusterTextSize(t *testing.T) {
	assert.Equal(t, 14, ClusterTextSize(99))
	assert.Equal(t, 12, ClusterTextSize(100))
	assert.Equal(t, 12, ClusterTextSize(999))
	assert.Equal(t, 10, ClusterTextSize(1000))
}

func TestResolveSectionStyle_Precedence(t *testing.T) {
	def := ResolveSectionStyle(false, false)
	hover := ResolveSectionStyle(true, false)
	sel := ResolveSectionStyle(false, true)
	both := ResolveSectionStyle(true, true)

	assert.NotEqual(t, def.FillColor, hover.FillColor)
	assert.NotEqual(t, hover.FillColor, sel.FillColor)
	assert.Equal(t, sel, both, "selected wins over hover")
	assert.Equal(t, def.LineOpacity, sel.LineOpacity, "outline opacity is fixed")
}

func TestSectionLayers(t *testing.T) {
	layers := SectionLayers()
	require.Len(t, layers, 3)
	for _, l := range layers {
		assert.Equal(t, SectionSourceID, l.Source)
	}
	assert.Equal(t, "fill", layers[0].Type)
	assert.Equal(t, "line", layers[1].Type)
	assert.Equal(t, "symbol", layers[2].Type)
}

type fakeImages map[string]Icon

func (f fakeImages) HasImage(name string) bool { _, ok := f[name]; return ok }
func (f fakeImages) AddImage(icon Icon)        { f[icon.Name] = icon }

func TestRegisterIcons(t *testing.T) {
	s := fakeImages{"marker-lider": {Name: "marker-lider", SVG: "existing"}}

	added := RegisterIcons(s)
	assert.Len(t, added, 9, "four roles x two icons + two legacy, minus the existing one")
	assert.Equal(t, "existing", s["marker-lider"].SVG, "existing icon is kept")

	markers := map[string]bool{}
	for _, r := range models.Roles {
		icon, ok := s[r.Descriptor().MarkerIcon]
		require.True(t, ok)
		markers[icon.SVG] = true
	}
	assert.Len(t, markers, 4, "each role resolves to a distinct icon")

	assert.Empty(t, RegisterIcons(s), "second call adds nothing")
}
