package flatgeobuf

import (
	"github.com/cockroachdb/errors"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type for the geometry kinds a vector
// tile can carry.
func geometryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Polygon:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// layerGeometryType is the common type of all geometries, or Unknown when
// they differ.
func layerGeometryType(geoms []orb.Geometry) flattypes.GeometryType {
	if len(geoms) == 0 {
		return flattypes.GeometryTypeUnknown
	}

	gt := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != gt {
			return flattypes.GeometryTypeUnknown
		}
	}
	return gt
}

// toFGB converts a decoded tile geometry into a FlatGeobuf geometry.
func toFGB(geom orb.Geometry, builder *flatbuffers.Builder) (*writer.Geometry, error) {
	if geom == nil {
		return nil, ErrNilGeometry
	}

	g := writer.NewGeometry(builder)

	switch v := geom.(type) {
	case orb.Point:
		g.SetType(flattypes.GeometryTypePoint)
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetType(flattypes.GeometryTypeMultiPoint)
		xy, _ := flatten(v)
		g.SetXY(xy)

	case orb.LineString:
		g.SetType(flattypes.GeometryTypeLineString)
		xy, _ := flatten(v)
		g.SetXY(xy)

	case orb.MultiLineString:
		g.SetType(flattypes.GeometryTypeMultiLineString)
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flatten(parts...)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Polygon:
		g.SetType(flattypes.GeometryTypePolygon)
		xy, ends := flattenPolygon(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.MultiPolygon:
		g.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := flattenPolygon(poly)
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)

	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%T", geom)
	}

	return g, nil
}

// flatten interleaves the coordinates of the given runs and returns the
// cumulative end offset of each run.
func flatten(runs ...[]orb.Point) ([]float64, []uint32) {
	total := 0
	for _, r := range runs {
		total += len(r)
	}

	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(runs))
	for _, r := range runs {
		for _, p := range r {
			xy = append(xy, p[0], p[1])
		}
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

func flattenPolygon(poly orb.Polygon) ([]float64, []uint32) {
	rings := make([][]orb.Point, len(poly))
	for i, r := range poly {
		rings[i] = r
	}
	return flatten(rings...)
}

// fromFGB converts a FlatGeobuf geometry into an orb geometry. Geometry
// collections and the curve types have no vector tile equivalent.
func fromFGB(g *flattypes.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}

	switch gt := g.Type(); gt {
	case flattypes.GeometryTypePoint:
		if g.XyLength() < 2 {
			return nil, ErrNilGeometry
		}
		return orb.Point{g.Xy(0), g.Xy(1)}, nil

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(points(g, 0, g.XyLength()/2)), nil

	case flattypes.GeometryTypeLineString:
		return orb.LineString(points(g, 0, g.XyLength()/2)), nil

	case flattypes.GeometryTypeMultiLineString:
		runs := split(g)
		mls := make(orb.MultiLineString, len(runs))
		for i, r := range runs {
			mls[i] = orb.LineString(r)
		}
		return mls, nil

	case flattypes.GeometryTypePolygon:
		return polygon(g), nil

	case flattypes.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		if n == 0 {
			return orb.MultiPolygon{polygon(g)}, nil
		}

		mp := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				mp = append(mp, polygon(&part))
			}
		}
		return mp, nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%s", flattypes.EnumNamesGeometryType[gt])
	}
}

func points(g *flattypes.Geometry, start, end int) []orb.Point {
	ps := make([]orb.Point, 0, end-start)
	for i := start; i < end; i++ {
		ps = append(ps, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return ps
}

// split cuts the coordinates at the ends offsets. Without ends the whole
// coordinate array is one run.
func split(g *flattypes.Geometry) [][]orb.Point {
	total := g.XyLength() / 2
	n := g.EndsLength()
	if n == 0 {
		return [][]orb.Point{points(g, 0, total)}
	}

	runs := make([][]orb.Point, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := int(g.Ends(i))
		if end > total {
			end = total
		}
		if end < start {
			break
		}
		runs = append(runs, points(g, start, end))
		start = end
	}
	return runs
}

func polygon(g *flattypes.Geometry) orb.Polygon {
	runs := split(g)
	poly := make(orb.Polygon, len(runs))
	for i, r := range runs {
		poly[i] = orb.Ring(r)
	}
	return poly
}
