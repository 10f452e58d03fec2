package mvt

import (
	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
)

const (
	moveTo    = 1
	lineTo    = 2
	closePath = 7

	// maxCommandCount is the largest repeat count a 29 bit header can carry.
	maxCommandCount = 1<<29 - 1
)

func command(id, count uint32) uint32 {
	return (count << 3) | id
}

func zigzag(n int32) uint32 {
	return uint32((n << 1) ^ (n >> 31))
}

func unzigzag(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// geomEncoder writes the command stream of a single feature. The cursor
// starts at the origin and is carried across all paths of the feature.
type geomEncoder struct {
	prevX, prevY int64
	Data         []uint32
}

func newGeomEncoder(s shape) *geomEncoder {
	l := 0
	for _, p := range s.Paths {
		l += 3 + 2*len(p)
	}
	return &geomEncoder{Data: make([]uint32, 0, l)}
}

// encodeShape encodes all paths of s.
func encodeShape(s shape) ([]uint32, error) {
	e := newGeomEncoder(s)

	for _, p := range s.Paths {
		var err error
		switch s.Type {
		case vectortile.Tile_POINT:
			err = e.MoveTo(p)
		case vectortile.Tile_LINESTRING:
			if err = e.MoveTo(p[:1]); err == nil {
				err = e.LineTo(p[1:])
			}
		case vectortile.Tile_POLYGON:
			if err = e.MoveTo(p[:1]); err == nil {
				err = e.LineTo(p[1:])
			}
			e.ClosePath()
		default:
			err = unsupported(errors.Wrapf(ErrUnsupportedType, "geometry type %v", s.Type))
		}
		if err != nil {
			return nil, err
		}
	}

	return e.Data, nil
}

func (ge *geomEncoder) MoveTo(points path) error {
	return ge.run(moveTo, points)
}

// LineTo writes a LineTo run. An empty run writes nothing.
func (ge *geomEncoder) LineTo(points path) error {
	if len(points) == 0 {
		return nil
	}
	return ge.run(lineTo, points)
}

// ClosePath does not move the cursor: the next ring is relative to the
// last vertex written, not to the start of the closed ring.
func (ge *geomEncoder) ClosePath() {
	ge.Data = append(ge.Data, command(closePath, 1))
}

func (ge *geomEncoder) run(id uint32, points path) error {
	if len(points) > maxCommandCount {
		return unsupported(errors.Newf("mvt: %d points exceed the command count limit", len(points)))
	}

	ge.Data = append(ge.Data, command(id, uint32(len(points))))
	for _, p := range points {
		dx := p.X - ge.prevX
		dy := p.Y - ge.prevY
		if !fitsInt32(dx) || !fitsInt32(dy) {
			return unsupported(errors.Wrapf(ErrCoordinateRange, "delta (%d, %d)", dx, dy))
		}

		ge.prevX, ge.prevY = p.X, p.Y
		ge.Data = append(ge.Data, zigzag(int32(dx)), zigzag(int32(dy)))
	}
	return nil
}

// decodeCommands replays a command stream into absolute tile coordinates.
// Polygon rings come back closed; point streams come back as a single path
// holding every point.
func decodeCommands(gt vectortile.Tile_GeomType, data []uint32) ([]path, error) {
	switch gt {
	case vectortile.Tile_POINT, vectortile.Tile_LINESTRING, vectortile.Tile_POLYGON:
	default:
		return nil, malformed(0, "unknown geometry type %d", gt)
	}

	var (
		x, y    int64
		paths   []path
		current path
		open    bool
	)

	finish := func() {
		if open {
			paths = append(paths, current)
		}
		current, open = nil, false
	}

	i := 0
	for i < len(data) {
		offset := i
		id := data[i] & 0x7
		count := int(data[i] >> 3)
		i++

		switch id {
		case moveTo, lineTo:
			if id == lineTo && gt == vectortile.Tile_POINT {
				return nil, malformed(offset, "LineTo in point geometry")
			}
			if id == lineTo && !open {
				return nil, malformed(offset, "LineTo without a current path")
			}
			if len(data)-i < 2*count {
				return nil, malformed(offset, "command wants %d parameters, %d left", 2*count, len(data)-i)
			}

			for n := 0; n < count; n++ {
				x += int64(unzigzag(data[i]))
				y += int64(unzigzag(data[i+1]))
				i += 2

				if id == moveTo && (gt != vectortile.Tile_POINT || !open) {
					finish()
					current, open = make(path, 0, 4), true
				}
				current = append(current, tilePoint{X: x, Y: y})
			}

		case closePath:
			if gt != vectortile.Tile_POLYGON {
				return nil, malformed(offset, "ClosePath in non-polygon geometry")
			}
			if count != 1 {
				return nil, malformed(offset, "ClosePath with count %d", count)
			}
			if !open {
				return nil, malformed(offset, "ClosePath without a current path")
			}
			current = append(current, current[0])
			finish()

		default:
			return nil, malformed(offset, "unknown command id %d", id)
		}
	}
	finish()

	return paths, nil
}
