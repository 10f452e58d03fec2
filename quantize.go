package mvt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

// Quantizer maps source coordinates onto the integer tile coordinate space
// of a layer and back. Tile space has its origin at the top left corner
// with y growing downwards, and nominally spans [0, extent] on both axes.
// Values outside that range are legal and describe geometry outside the tile.
type Quantizer interface {
	Quantize(p orb.Point, extent uint32) (x, y int64)
	Dequantize(x, y int64, extent uint32) orb.Point
}

// YUp treats input as tile-local coordinates with the y axis pointing up,
// the convention of most GIS sources. Coordinates are flipped vertically
// and truncated toward zero.
type YUp struct{}

func (YUp) Quantize(p orb.Point, extent uint32) (int64, int64) {
	return int64(math.Trunc(p[0])), int64(math.Trunc(float64(extent) - p[1]))
}

func (YUp) Dequantize(x, y int64, extent uint32) orb.Point {
	return orb.Point{float64(x), float64(int64(extent) - y)}
}

// YDown treats input as tile coordinates that only need truncation.
type YDown struct{}

func (YDown) Quantize(p orb.Point, _ uint32) (int64, int64) {
	return int64(math.Trunc(p[0])), int64(math.Trunc(p[1]))
}

func (YDown) Dequantize(x, y int64, _ uint32) orb.Point {
	return orb.Point{float64(x), float64(y)}
}

// BoundQuantizer linearly maps Bound onto the tile: Bound.Min[0] and
// Bound.Max[1] land on the top left corner, Bound.Max[0] and Bound.Min[1]
// on the bottom right.
type BoundQuantizer struct {
	Bound orb.Bound
}

func (q BoundQuantizer) Quantize(p orb.Point, extent uint32) (int64, int64) {
	e := float64(extent)
	x := (p[0] - q.Bound.Min[0]) * e / (q.Bound.Max[0] - q.Bound.Min[0])
	y := (q.Bound.Max[1] - p[1]) * e / (q.Bound.Max[1] - q.Bound.Min[1])
	return int64(math.Floor(x)), int64(math.Floor(y))
}

func (q BoundQuantizer) Dequantize(x, y int64, extent uint32) orb.Point {
	e := float64(extent)
	return orb.Point{
		q.Bound.Min[0] + float64(x)*(q.Bound.Max[0]-q.Bound.Min[0])/e,
		q.Bound.Max[1] - float64(y)*(q.Bound.Max[1]-q.Bound.Min[1])/e,
	}
}

// TileQuantizer returns a quantizer for WGS84 input destined for the
// given web mercator map tile.
func TileQuantizer(t maptile.Tile) Quantizer {
	b := t.Bound()
	return &tileQuantizer{
		bound: BoundQuantizer{Bound: orb.Bound{
			Min: project.Point(b.Min, project.WGS84.ToMercator),
			Max: project.Point(b.Max, project.WGS84.ToMercator),
		}},
	}
}

type tileQuantizer struct {
	bound BoundQuantizer
}

func (q *tileQuantizer) Quantize(p orb.Point, extent uint32) (int64, int64) {
	return q.bound.Quantize(project.Point(p, project.WGS84.ToMercator), extent)
}

func (q *tileQuantizer) Dequantize(x, y int64, extent uint32) orb.Point {
	return project.Point(q.bound.Dequantize(x, y, extent), project.Mercator.ToWGS84)
}
