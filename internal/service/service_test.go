package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/cache"
	"github.com/navojoa/electoral-map/internal/database"
	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/metrics"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/repository"
	"github.com/navojoa/electoral-map/internal/sections"
)

const testPolygons = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"SECCION": 1203},
     "geometry": {"type": "Polygon", "coordinates": [[[-109.46,27.05],[-109.42,27.05],[-109.42,27.09],[-109.46,27.09],[-109.46,27.05]]]}},
    {"type": "Feature", "properties": {"SECCION": 1204},
     "geometry": {"type": "Polygon", "coordinates": [[[-109.42,27.05],[-109.38,27.05],[-109.38,27.09],[-109.42,27.09],[-109.42,27.05]]]}}
  ]
}`

func ptr[T any](v T) *T { return &v }

func newPersonService(t *testing.T) *PersonService {
	t.Helper()
	conn, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPersonService(repository.NewPersonRepository(conn, "sqlite"))
}

// openFileService opens a person service on the sqlite file at path
func openFileService(t *testing.T, path string) *PersonService {
	t.Helper()
	conn, err := database.Open(database.Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPersonService(repository.NewPersonRepository(conn, "sqlite"))
}

func staticFetch(body string, err error) sections.FetchFunc {
	return func(ctx context.Context, source string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(body), nil
	}
}

func seed(t *testing.T, s *PersonService) (lider, brigadista *models.Person) {
	t.Helper()
	ctx := context.Background()
	lider = &models.Person{Name: "María López", Role: models.RoleLider, Lat: ptr(27.07), Lng: ptr(-109.44), Section: ptr("1203"), Neighborhood: "Centro"}
	require.NoError(t, s.CreatePerson(ctx, lider))
	brigadista = &models.Person{Name: "José Ruiz", Role: models.RoleBrigadista, Lat: ptr(27.06), Lng: ptr(-109.40), ParentID: &lider.ID}
	require.NoError(t, s.CreatePerson(ctx, brigadista))
	return lider, brigadista
}

func TestCreatePerson_Validation(t *testing.T) {
	s := newPersonService(t)
	ctx := context.Background()

	err := s.CreatePerson(ctx, &models.Person{Name: "X", Role: "jefe"})
	assert.True(t, errors.Is(err, ErrInvalidRole))

	err = s.CreatePerson(ctx, &models.Person{Name: "X", Role: models.RoleLider, Lat: ptr(27.0)})
	assert.True(t, errors.Is(err, ErrInvalidCoordinates))

	err = s.CreatePerson(ctx, &models.Person{Name: "  ", Role: models.RoleLider})
	assert.True(t, errors.Is(err, ErrInvalidPerson))

	p := &models.Person{Name: "Ana", Role: "lideres", Lat: ptr(27.0), Lng: ptr(-109.0), ElectoralKey: " abc "}
	require.NoError(t, s.CreatePerson(ctx, p))
	assert.Equal(t, models.RoleLider, p.Role)
	assert.Equal(t, models.GeocodeAutomatic, p.GeocodeStatus)
	assert.Equal(t, "ABC", p.ElectoralKey)
}

func TestRevisionBumpsOnWrite(t *testing.T) {
	s := newPersonService(t)
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Persons)
	rev := snap.Revision

	seed(t, s)
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, snap.Revision, rev)
	assert.Len(t, snap.Persons, 2)
}

func TestGetAllHierarchicalData(t *testing.T) {
	s := newPersonService(t)
	lider, _ := seed(t, s)
	orphan := &models.Person{Name: "Sin líder", Role: models.RoleCiudadano}
	require.NoError(t, s.CreatePerson(context.Background(), orphan))

	forest, err := s.GetAllHierarchicalData(context.Background())
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, lider.ID, forest[0].Person.ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "José Ruiz", forest[0].Children[0].Person.Name)
	assert.Equal(t, orphan.ID, forest[1].Person.ID)
}

func TestUpdateGeolocatedPerson(t *testing.T) {
	s := newPersonService(t)
	ctx := context.Background()
	lider, _ := seed(t, s)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := s.UpdateGeolocatedPerson(ctx, lider.ID, models.RoleLider, models.GeoUpdate{Lat: 95, Lng: 0})
	assert.True(t, errors.Is(err, ErrInvalidCoordinates))

	err = s.UpdateGeolocatedPerson(ctx, lider.ID, models.RoleCiudadano, models.GeoUpdate{Lat: 27.1, Lng: -109.4})
	assert.True(t, errors.Is(err, ErrPersonNotFound), "role must match")

	err = s.UpdateGeolocatedPerson(ctx, lider.ID, models.RoleLider, models.GeoUpdate{
		Lat: 27.1, Lng: -109.4, GeocodeStatus: models.GeocodeManual, GeocodedAt: at,
	})
	require.NoError(t, err)

	got, err := s.GetPerson(ctx, lider.ID)
	require.NoError(t, err)
	assert.InDelta(t, 27.1, *got.Lat, 1e-9)
	assert.Equal(t, models.GeocodeManual, got.GeocodeStatus)
	require.NotNil(t, got.GeocodedAt)
	assert.True(t, at.Equal(*got.GeocodedAt))
}

func TestDeletePerson(t *testing.T) {
	s := newPersonService(t)
	ctx := context.Background()
	lider, brigadista := seed(t, s)

	require.NoError(t, s.DeletePerson(ctx, lider.ID))
	assert.True(t, errors.Is(s.DeletePerson(ctx, lider.ID), ErrPersonNotFound))

	got, err := s.GetPerson(ctx, brigadista.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestGetPersons_Pagination(t *testing.T) {
	s := newPersonService(t)
	seed(t, s)

	res, err := s.GetPersons(context.Background(), models.PersonFilter{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Data, 1)

	_, err = s.GetPersons(context.Background(), models.PersonFilter{Role: "jefe"})
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

func TestAssignSections(t *testing.T) {
	s := newPersonService(t)
	ctx := context.Background()
	_, brigadista := seed(t, s)
	require.NoError(t, s.CreatePerson(ctx, &models.Person{Name: "Sin ubicación", Role: models.RoleCiudadano}))

	loader := sections.NewLoader("mem", staticFetch(testPolygons, nil), nil)
	require.NoError(t, loader.Load(ctx))

	res, err := s.AssignSections(ctx, loader.Locator(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.NoLocation)

	got, err := s.GetPerson(ctx, brigadista.ID)
	require.NoError(t, err)
	assert.Equal(t, "1204", got.SectionCode())

	_, err = s.AssignSections(ctx, nil, 2, false)
	assert.Error(t, err)
}

func TestSectionService_StatsAndOverview(t *testing.T) {
	persons := newPersonService(t)
	seed(t, persons)
	ctx := context.Background()

	loader := sections.NewLoader("mem", staticFetch(testPolygons, nil), nil)
	svc := NewSectionService(persons, loader, nil, zap.NewNop())

	stats, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "1203", stats[0].Section)

	explicit := []*models.HierarchyNode{{Person: models.Person{Role: models.RoleCiudadano, Section: ptr("9")}}}
	stats, err = svc.Stats(ctx, explicit)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "9", stats[0].Section)

	ov := svc.Overview(ctx)
	assert.Equal(t, models.SectionsLoaded, ov.State)
	assert.Empty(t, ov.Warnings)
	require.Len(t, ov.Polygons.Features, 2)
	assert.Equal(t, 1, ov.Polygons.Features[0].Properties["lideres"])
	assert.Equal(t, 0, ov.Polygons.Features[1].Properties["total"])
	assert.Len(t, ov.Layers, 3)
	assert.Equal(t, mapdata.SectionSourceID, ov.Source.ID)
}

func TestSnapshotSeesWritesFromAnotherConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")
	server := openFileService(t, path)
	cli := openFileService(t, path)
	ctx := context.Background()

	snap, err := server.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Persons)

	require.NoError(t, cli.CreatePerson(ctx, &models.Person{Name: "Ana", Role: models.RoleLider, Section: ptr("1203")}))

	snap, err = server.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Persons, 1)
	assert.Equal(t, "Ana", snap.Persons[0].Name)
}

func TestSectionService_StatsCacheHitsAndMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.Open(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })

	persons := newPersonService(t)
	seed(t, persons)
	ctx := context.Background()
	svc := NewSectionService(persons, sections.NewLoader("mem", staticFetch(testPolygons, nil), nil), cache.NewStatsCache(client, time.Minute), zap.NewNop())

	hits := testutil.ToFloat64(metrics.StatsCacheHitsTotal)
	misses := testutil.ToFloat64(metrics.StatsCacheMissesTotal)

	first, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.StatsCacheMissesTotal))
	assert.Equal(t, hits, testutil.ToFloat64(metrics.StatsCacheHitsTotal))

	second, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.StatsCacheHitsTotal))
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.StatsCacheMissesTotal))

	require.NoError(t, persons.CreatePerson(ctx, &models.Person{Name: "Luis", Role: models.RoleCiudadano, Section: ptr("1204")}))
	third, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, misses+2, testutil.ToFloat64(metrics.StatsCacheMissesTotal))
}

func TestSectionService_StatsCacheSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "map.db")
	ctx := context.Background()

	boot := func() *SectionService {
		client := cache.Open(mr.Addr(), "", 0)
		t.Cleanup(func() { client.Close() })
		persons := openFileService(t, path)
		return NewSectionService(persons, sections.NewLoader("mem", staticFetch(testPolygons, nil), nil), cache.NewStatsCache(client, time.Hour), zap.NewNop())
	}

	stats, err := boot().Stats(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stats)

	require.NoError(t, openFileService(t, path).CreatePerson(ctx, &models.Person{Name: "Ana", Role: models.RoleLider, Section: ptr("1203")}))

	stats, err = boot().Stats(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "1203", stats[0].Section)
}

func TestSectionService_OverviewDegradesOnLoadFailure(t *testing.T) {
	persons := newPersonService(t)
	seed(t, persons)

	loader := sections.NewLoader("mem", staticFetch("", errors.New("timeout")), nil)
	svc := NewSectionService(persons, loader, nil, zap.NewNop())

	ov := svc.Overview(context.Background())
	assert.Equal(t, models.SectionsFailed, ov.State)
	assert.Empty(t, ov.Polygons.Features)
	assert.Len(t, ov.Stats, 1)
	assert.Equal(t, []string{"section polygons unavailable"}, ov.Warnings)
}

func TestMapService(t *testing.T) {
	persons := newPersonService(t)
	seed(t, persons)
	ctx := context.Background()
	svc := NewMapService(persons, mapdata.ClusterOptions{MaxZoom: 14, Radius: 50})

	all, err := svc.GeoJSON(ctx, models.RoleFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Len(t, all["lideres-source"].Features, 1)
	assert.Empty(t, all["ciudadanos-source"].Features)

	only, err := svc.GeoJSON(ctx, models.RoleFilter(models.RoleBrigadista))
	require.NoError(t, err)
	assert.Len(t, only, 1)

	style := svc.Style(models.RoleFilterAll, false, "/api/v1/map/geojson", "")
	require.Len(t, style.Sources, 5)
	assert.Equal(t, mapdata.SectionSourceID, style.Sources[0].ID)
	assert.Equal(t, "/api/v1/map/geojson?role=lider", style.Sources[1].Data)
	assert.Len(t, style.Layers, 3+8)

	fc, err := svc.Clusters(ctx, models.ClusterFilter{Role: "lider", Zoom: 10})
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)

	_, err = svc.Clusters(ctx, models.ClusterFilter{Role: "jefe"})
	assert.True(t, errors.Is(err, ErrInvalidRole))

	icons := svc.Icons()
	assert.Len(t, icons, len(mapdata.IconNames()))
	_, ok := svc.Icon("marker-lider")
	assert.True(t, ok)
}
