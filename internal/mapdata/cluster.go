package mapdata

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrClusterNotFound is returned for an id that names no cluster
var ErrClusterNotFound = errors.New("cluster not found")

// tileExtent is the pixel size of one tile, as used by the map renderer
const tileExtent = 512

type clusterPoint struct {
	x, y    float64 // web mercator, normalized to [0, 1]
	feature *geojson.Feature
}

// ClusterIndex groups the points of one source on a pixel grid per zoom.
// Points closer than the cluster radius at a zoom fall into the same cell.
type ClusterIndex struct {
	opts   ClusterOptions
	points []clusterPoint
}

// NewClusterIndex indexes the point features of fc; other geometries are skipped
func NewClusterIndex(fc *geojson.FeatureCollection, opts ClusterOptions) *ClusterIndex {
	if opts.Radius <= 0 {
		opts.Radius = DefaultClusterOptions.Radius
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultClusterOptions.MaxZoom
	}
	ix := &ClusterIndex{opts: opts}
	if fc == nil {
		return ix
	}
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		ix.points = append(ix.points, clusterPoint{x: lngX(pt.Lon()), y: latY(pt.Lat()), feature: f})
	}
	return ix
}

// Len returns the number of indexed points
func (ix *ClusterIndex) Len() int {
	return len(ix.points)
}

// Clusters returns clusters and lone points inside bound at zoom.
// Above the max zoom every point is returned on its own.
func (ix *ClusterIndex) Clusters(bound orb.Bound, zoom int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if zoom < 0 {
		zoom = 0
	}

	if zoom > ix.opts.MaxZoom {
		for _, p := range ix.points {
			if bound.Contains(p.feature.Geometry.(orb.Point)) {
				fc.Append(p.feature)
			}
		}
		return fc
	}

	type cell struct {
		cx, cy  int
		members []int
	}
	cells := make(map[uint64]*cell)
	var order []uint64
	for i, p := range ix.points {
		cx, cy, _ := ix.cellOf(p, zoom)
		id := encodeClusterID(cx, cy, zoom)
		c, ok := cells[id]
		if !ok {
			c = &cell{cx: cx, cy: cy}
			cells[id] = c
			order = append(order, id)
		}
		c.members = append(c.members, i)
	}

	for _, id := range order {
		c := cells[id]
		if len(c.members) == 1 {
			f := ix.points[c.members[0]].feature
			if bound.Contains(f.Geometry.(orb.Point)) {
				fc.Append(f)
			}
			continue
		}

		var sx, sy float64
		for _, m := range c.members {
			sx += ix.points[m].x
			sy += ix.points[m].y
		}
		n := float64(len(c.members))
		center := orb.Point{xLng(sx / n), yLat(sy / n)}
		if !bound.Contains(center) {
			continue
		}

		f := geojson.NewFeature(center)
		f.ID = id
		f.Properties["cluster"] = true
		f.Properties["cluster_id"] = id
		f.Properties["point_count"] = len(c.members)
		f.Properties["point_count_abbreviated"] = AbbreviateCount(len(c.members))
		fc.Append(f)
	}
	return fc
}

// ExpansionZoom returns the first zoom at which the cluster splits apart
func (ix *ClusterIndex) ExpansionZoom(clusterID uint64) (int, error) {
	cx, cy, zoom := decodeClusterID(clusterID)

	var members []clusterPoint
	for _, p := range ix.points {
		if x, y, _ := ix.cellOf(p, zoom); x == cx && y == cy {
			members = append(members, p)
		}
	}
	if len(members) < 2 {
		return 0, fmt.Errorf("cluster %d: %w", clusterID, ErrClusterNotFound)
	}

	for z := zoom + 1; z <= ix.opts.MaxZoom; z++ {
		first := encodeClusterID(ix.cellOf(members[0], z))
		for _, m := range members[1:] {
			if encodeClusterID(ix.cellOf(m, z)) != first {
				return z, nil
			}
		}
	}
	return ix.opts.MaxZoom + 1, nil
}

func (ix *ClusterIndex) cellOf(p clusterPoint, zoom int) (int, int, int) {
	size := float64(ix.opts.Radius) / (tileExtent * math.Exp2(float64(zoom)))
	return int(p.x / size), int(p.y / size), zoom
}

// AbbreviateCount formats a point count the way cluster labels show it
func AbbreviateCount(n int) string {
	switch {
	case n >= 10000:
		return strconv.Itoa(int(math.Round(float64(n)/1000))) + "k"
	case n >= 1000:
		return strconv.FormatFloat(math.Round(float64(n)/100)/10, 'f', -1, 64) + "k"
	default:
		return strconv.Itoa(n)
	}
}

// Cluster ids pack the grid cell and zoom: y<<34 | x<<5 | zoom
func encodeClusterID(cx, cy, zoom int) uint64 {
	return uint64(cy)<<34 | uint64(cx)<<5 | uint64(zoom&0x1f)
}

func decodeClusterID(id uint64) (int, int, int) {
	return int(id >> 5 & (1<<29 - 1)), int(id >> 34), int(id & 0x1f)
}

func lngX(lng float64) float64 {
	return lng/360 + 0.5
}

func latY(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	return math.Min(math.Max(y, 0), 1)
}

func xLng(x float64) float64 {
	return (x - 0.5) * 360
}

func yLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}
