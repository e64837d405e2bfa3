package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/models"
)

// MapService serves the marker sources and their style
type MapService struct {
	persons *PersonService
	opts    mapdata.ClusterOptions
	builder mapdata.Builder

	mu         sync.Mutex
	indexedRev uint64
	indexes    map[models.Role]*mapdata.ClusterIndex
}

// NewMapService creates a new map service
func NewMapService(persons *PersonService, opts mapdata.ClusterOptions) *MapService {
	return &MapService{
		persons: persons,
		opts:    opts,
	}
}

// ClusterOptions returns the clustering configuration of the marker sources
func (s *MapService) ClusterOptions() mapdata.ClusterOptions {
	return s.opts
}

// Collections returns one feature collection per role at the current revision
func (s *MapService) Collections(ctx context.Context) (mapdata.RoleCollections, uint64, error) {
	snap, err := s.persons.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.builder.Build(snap), snap.Revision, nil
}

// GeoJSON returns the collections of the roles let through by filter, keyed by source id
func (s *MapService) GeoJSON(ctx context.Context, filter models.RoleFilter) (map[string]*geojson.FeatureCollection, error) {
	rc, _, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*geojson.FeatureCollection)
	for _, r := range filter.Roles() {
		out[r.Descriptor().SourceID] = rc[r]
	}
	return out, nil
}

// MapStyle is the set of sources and layers a map needs
type MapStyle struct {
	Sources []mapdata.Source `json:"sources"`
	Layers  []mapdata.Layer  `json:"layers"`
}

// Style returns the section and marker sources and layers. Marker sources
// point at dataURL with the role appended.
func (s *MapService) Style(filter models.RoleFilter, editMode bool, dataURL, sectionsURL string) MapStyle {
	sources, layers := mapdata.MarkerLayers(filter.Roles(), editMode, s.opts)
	for i := range sources {
		if role, ok := models.RoleForLayer(sources[i].ID); ok && dataURL != "" {
			sources[i].Data = fmt.Sprintf("%s?role=%s", dataURL, role)
		}
	}

	var sectionData any
	if sectionsURL != "" {
		sectionData = sectionsURL
	}
	return MapStyle{
		Sources: append([]mapdata.Source{mapdata.SectionSource(sectionData)}, sources...),
		Layers:  append(mapdata.SectionLayers(), layers...),
	}
}

func (s *MapService) index(ctx context.Context, role models.Role) (*mapdata.ClusterIndex, error) {
	rc, rev, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexes == nil || s.indexedRev != rev {
		s.indexes = make(map[models.Role]*mapdata.ClusterIndex, len(models.Roles))
		s.indexedRev = rev
	}
	ix, ok := s.indexes[role]
	if !ok {
		ix = mapdata.NewClusterIndex(rc[role], s.opts)
		s.indexes[role] = ix
	}
	return ix, nil
}

// Clusters returns the clustered points of one role inside the viewport
func (s *MapService) Clusters(ctx context.Context, filter models.ClusterFilter) (*geojson.FeatureCollection, error) {
	role, err := models.ParseRole(filter.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, filter.Role)
	}
	ix, err := s.index(ctx, role)
	if err != nil {
		return nil, err
	}

	bound := orb.Bound{Min: orb.Point{-180, -85.05112878}, Max: orb.Point{180, 85.05112878}}
	if filter.HasBounds() {
		bound = orb.Bound{
			Min: orb.Point{filter.MinLon, filter.MinLat},
			Max: orb.Point{filter.MaxLon, filter.MaxLat},
		}
	}
	return ix.Clusters(bound, filter.Zoom), nil
}

// ExpansionZoom returns the zoom at which a cluster of role splits apart
func (s *MapService) ExpansionZoom(ctx context.Context, role models.Role, clusterID uint64) (int, error) {
	ix, err := s.index(ctx, role)
	if err != nil {
		return 0, err
	}
	return ix.ExpansionZoom(clusterID)
}

// Icons lists the marker icons
func (s *MapService) Icons() []mapdata.Icon {
	all := mapdata.Icons()
	out := make([]mapdata.Icon, 0, len(all))
	for _, name := range mapdata.IconNames() {
		out = append(out, all[name])
	}
	return out
}

// Icon returns one icon by name
func (s *MapService) Icon(name string) (mapdata.Icon, bool) {
	icon, ok := mapdata.Icons()[name]
	return icon, ok
}
