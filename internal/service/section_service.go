package service

import (
	"context"
	"errors"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/navojoa/electoral-map/internal/cache"
	"github.com/navojoa/electoral-map/internal/mapdata"
	"github.com/navojoa/electoral-map/internal/metrics"
	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/sections"
)

// SectionService joins section polygons with affiliate statistics
type SectionService struct {
	persons *PersonService
	loader  *sections.Loader
	cache   *cache.StatsCache
	logger  *zap.Logger
}

// NewSectionService creates a new section service; cache may be nil
func NewSectionService(persons *PersonService, loader *sections.Loader, statsCache *cache.StatsCache, logger *zap.Logger) *SectionService {
	return &SectionService{
		persons: persons,
		loader:  loader,
		cache:   statsCache,
		logger:  logger,
	}
}

// SectionOverview is everything the section layer needs in one response
type SectionOverview struct {
	State    models.SectionLoadState    `json:"state"`
	Source   mapdata.Source             `json:"source"`
	Layers   []mapdata.Layer            `json:"layers"`
	Stats    []models.SectionStats      `json:"stats"`
	Polygons *geojson.FeatureCollection `json:"polygons"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// Stats aggregates explicit hierarchical data when given, and otherwise the
// stored persons, cached per person-data revision
func (s *SectionService) Stats(ctx context.Context, explicit []*models.HierarchyNode) ([]models.SectionStats, error) {
	if explicit != nil {
		return sections.TransformHierarchicalDataToSections(explicit), nil
	}

	rev, err := s.persons.Revision(ctx)
	if err != nil {
		return nil, err
	}
	cached, ok, err := s.cache.Get(ctx, rev)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}
	if ok {
		metrics.StatsCacheHitsTotal.Inc()
		return cached, nil
	}
	metrics.StatsCacheMissesTotal.Inc()

	snap, err := s.persons.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := sections.Aggregate(snap.Persons)
	if err := s.cache.Set(ctx, snap.Revision, stats); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// StatsIndex returns the statistics keyed by section code
func (s *SectionService) StatsIndex(ctx context.Context) (map[string]models.SectionStats, error) {
	stats, err := s.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sections.Index(stats), nil
}

// EnsurePolygons loads the polygon document, reloading it when the person
// data changed since the last load
func (s *SectionService) EnsurePolygons(ctx context.Context) error {
	rev, err := s.persons.Revision(ctx)
	if err != nil {
		return err
	}
	err = s.loader.EnsureFor(ctx, rev)
	switch {
	case err == nil:
		metrics.SectionLoadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, sections.ErrStaleLoad):
		metrics.SectionLoadsTotal.WithLabelValues(metrics.ResultStale).Inc()
		// a newer load owns the state
		err = nil
	default:
		metrics.SectionLoadsTotal.WithLabelValues(metrics.ResultError).Inc()
	}
	return err
}

// Locator returns the point-in-polygon index, loading polygons if needed
func (s *SectionService) Locator(ctx context.Context) (*sections.Locator, error) {
	if err := s.EnsurePolygons(ctx); err != nil {
		return nil, err
	}
	loc := s.loader.Locator()
	if loc == nil {
		return nil, errors.New("section polygons are not loaded")
	}
	return loc, nil
}

// Overview loads polygons and statistics concurrently and joins them.
// A failure of either piece leaves that piece empty instead of failing.
func (s *SectionService) Overview(ctx context.Context) *SectionOverview {
	var (
		stats   []models.SectionStats
		loadErr error
		statErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		loadErr = s.EnsurePolygons(ctx)
		return nil
	})
	g.Go(func() error {
		stats, statErr = s.Stats(ctx, nil)
		return nil
	})
	_ = g.Wait()

	out := &SectionOverview{
		State:  s.loader.State(),
		Layers: mapdata.SectionLayers(),
		Stats:  stats,
	}
	if loadErr != nil {
		out.Warnings = append(out.Warnings, "section polygons unavailable")
	}
	if statErr != nil {
		s.logger.Error("failed to load section stats", zap.Error(statErr))
		out.Warnings = append(out.Warnings, "section statistics unavailable")
	}
	if out.Stats == nil {
		out.Stats = []models.SectionStats{}
	}

	out.Polygons = sections.Join(s.loader.Polygons(), sections.Index(stats))
	out.Source = mapdata.SectionSource(nil)
	return out
}
