package mvt

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// tilePoint is a vertex in integer tile coordinates.
type tilePoint struct {
	X, Y int64
}

// path is one point run, line or polygon ring in tile coordinates. Rings
// do not repeat their first vertex.
type path []tilePoint

// shape is the canonical form of one output feature's geometry.
type shape struct {
	Type  vectortile.Tile_GeomType
	Paths []path
}

// resolveGeometry turns the raw geometry of a feature into an orb.Geometry.
// Strings are parsed as WKT and byte slices as WKB.
func resolveGeometry(raw interface{}) (orb.Geometry, error) {
	switch v := raw.(type) {
	case nil:
		return nil, unsupported(ErrNilGeometry)
	case orb.Geometry:
		return v, nil
	case string:
		g, err := wkt.Unmarshal(v)
		if err != nil {
			return nil, unsupported(ErrUnsupportedFormat)
		}
		return g, nil
	case []byte:
		g, err := wkb.Unmarshal(v)
		if err != nil {
			return nil, unsupported(ErrUnsupportedFormat)
		}
		return g, nil
	default:
		return nil, unsupported(ErrUnsupportedFormat)
	}
}

// normalize converts a geometry into one or more shapes in tile space.
// A MultiPolygon yields one shape per polygon; everything else yields one.
func normalize(g orb.Geometry, q Quantizer, extent uint32) ([]shape, error) {
	n := normalizer{q: q, extent: extent}

	switch v := g.(type) {
	case orb.Point:
		p, err := n.points([]orb.Point{v})
		if err != nil {
			return nil, err
		}
		return []shape{{Type: vectortile.Tile_POINT, Paths: []path{p}}}, nil

	case orb.MultiPoint:
		p, err := n.points(v)
		if err != nil {
			return nil, err
		}
		s := shape{Type: vectortile.Tile_POINT}
		if len(p) > 0 {
			s.Paths = []path{p}
		}
		return []shape{s}, nil

	case orb.LineString:
		s := shape{Type: vectortile.Tile_LINESTRING}
		if err := n.addLine(&s, v); err != nil {
			return nil, err
		}
		return []shape{s}, nil

	case orb.MultiLineString:
		s := shape{Type: vectortile.Tile_LINESTRING}
		for _, ls := range v {
			if err := n.addLine(&s, ls); err != nil {
				return nil, err
			}
		}
		return []shape{s}, nil

	case orb.Polygon:
		s, err := n.polygon(v)
		if err != nil {
			return nil, err
		}
		return []shape{s}, nil

	case orb.MultiPolygon:
		shapes := make([]shape, 0, len(v))
		for _, poly := range v {
			s, err := n.polygon(poly)
			if err != nil {
				return nil, err
			}
			shapes = append(shapes, s)
		}
		return shapes, nil
	}

	return nil, unsupported(errors.Wrapf(ErrUnsupportedType, "%T", g))
}

type normalizer struct {
	q      Quantizer
	extent uint32
}

func (n normalizer) points(ps []orb.Point) (path, error) {
	out := make(path, 0, len(ps))
	for _, p := range ps {
		x, y := n.q.Quantize(p, n.extent)
		if !fitsInt32(x) || !fitsInt32(y) {
			return nil, unsupported(errors.Wrapf(ErrCoordinateRange, "point %v", p))
		}
		out = append(out, tilePoint{X: x, Y: y})
	}
	return out, nil
}

func (n normalizer) addLine(s *shape, ls orb.LineString) error {
	p, err := n.points(ls)
	if err != nil {
		return err
	}
	if len(p) > 0 {
		s.Paths = append(s.Paths, p)
	}
	return nil
}

// polygon quantizes the rings of p and fixes their winding: the exterior
// ring gets a positive signed area in tile space, holes a negative one.
func (n normalizer) polygon(p orb.Polygon) (shape, error) {
	s := shape{Type: vectortile.Tile_POLYGON, Paths: make([]path, 0, len(p))}
	for i, r := range p {
		ring, err := n.points(r)
		if err != nil {
			return shape{}, err
		}
		if len(ring) == 0 {
			continue
		}

		area := signedArea(ring)
		if (i == 0 && area < 0) || (i > 0 && area > 0) {
			reverseRing(ring)
		}

		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		s.Paths = append(s.Paths, ring)
	}
	return s, nil
}

// signedArea returns twice the signed area of the ring. Positive means
// clockwise with y pointing down. The ring may or may not repeat its
// first vertex.
func signedArea(r path) int64 {
	var sum int64
	for i := range r {
		j := i + 1
		if j == len(r) {
			j = 0
		}
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum
}

// reverseRing reverses the winding while keeping the first vertex first.
func reverseRing(r path) {
	end := len(r)
	if end > 1 && r[0] == r[end-1] {
		end--
	}
	for i, j := 1, end-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
