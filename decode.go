package mvt

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/paulmach/orb/geojson"
)

var gzipMagic = []byte{0x1f, 0x8b}

// DecodedLayer is a layer read back from a tile.
type DecodedLayer struct {
	Name     string
	Version  uint32
	Extent   uint32
	Features []*geojson.Feature
}

// Decode decodes a tile into a map from layer name to features. If
// several layers share a name the last one wins.
func Decode(data []byte, opts *Options) (map[string][]*geojson.Feature, error) {
	layers, err := DecodeLayers(data, opts)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]*geojson.Feature, len(layers))
	for _, l := range layers {
		result[l.Name] = l.Features
	}
	return result, nil
}

// DecodeLayers decodes a tile into its layers in wire order. Gzipped input
// is detected and decompressed.
func DecodeLayers(data []byte, opts *Options) ([]*DecodedLayer, error) {
	opts = opts.withDefaults()

	if bytes.HasPrefix(data, gzipMagic) {
		var err error
		if data, err = gunzip(data); err != nil {
			return nil, err
		}
	}

	vt := &vectortile.Tile{}
	if err := proto.Unmarshal(data, vt); err != nil {
		return nil, errors.Wrap(err, "mvt: unmarshal tile")
	}

	layers := make([]*DecodedLayer, 0, len(vt.Layers))
	for _, l := range vt.Layers {
		layer, err := decodeLayer(l, opts)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func gunzip(data []byte) ([]byte, error) {
	gzreader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "mvt: gunzip tile")
	}
	defer gzreader.Close()

	out, err := io.ReadAll(gzreader)
	if err != nil {
		return nil, errors.Wrap(err, "mvt: gunzip tile")
	}
	return out, nil
}

func decodeLayer(l *vectortile.Tile_Layer, opts *Options) (*DecodedLayer, error) {
	layer := &DecodedLayer{
		Name:     l.GetName(),
		Version:  l.GetVersion(),
		Extent:   l.GetExtent(),
		Features: make([]*geojson.Feature, 0, len(l.Features)),
	}
	if l.Extent == nil {
		layer.Extent = DefaultExtent
	}

	for i, f := range l.Features {
		feature, err := decodeFeature(f, l, layer.Extent, opts.Quantizer)
		if err != nil {
			if err = opts.handle(withContext(err, layer.Name, i)); err != nil {
				return nil, err
			}
			continue
		}
		layer.Features = append(layer.Features, feature)
	}
	return layer, nil
}

func decodeFeature(f *vectortile.Tile_Feature, l *vectortile.Tile_Layer, extent uint32, q Quantizer) (*geojson.Feature, error) {
	if f == nil {
		return nil, malformed(0, "nil feature")
	}

	paths, err := decodeCommands(f.GetType(), f.Geometry)
	if err != nil {
		return nil, err
	}

	props, err := decodeTags(f.Tags, l.Keys, l.Values)
	if err != nil {
		return nil, err
	}

	feature := geojson.NewFeature(buildGeometry(f.GetType(), paths, q, extent))
	feature.Properties = props
	if f.Id != nil {
		feature.ID = *f.Id
	}
	return feature, nil
}

// buildGeometry shapes decoded paths into an orb geometry. Single parts
// come back as Point, LineString or Polygon, several as the multi kind.
func buildGeometry(gt vectortile.Tile_GeomType, paths []path, q Quantizer, extent uint32) orb.Geometry {
	toPoints := func(p path) []orb.Point {
		ps := make([]orb.Point, len(p))
		for i, tp := range p {
			ps[i] = q.Dequantize(tp.X, tp.Y, extent)
		}
		return ps
	}

	switch gt {
	case vectortile.Tile_POINT:
		if len(paths) == 0 {
			return orb.MultiPoint{}
		}
		mp := orb.MultiPoint(toPoints(paths[0]))
		if len(mp) == 1 {
			return mp[0]
		}
		return mp

	case vectortile.Tile_LINESTRING:
		mls := make(orb.MultiLineString, 0, len(paths))
		for _, p := range paths {
			mls = append(mls, orb.LineString(toPoints(p)))
		}
		if len(mls) == 1 {
			return mls[0]
		}
		return mls
	}

	mp := make(orb.MultiPolygon, 0, 1)
	for _, p := range paths {
		ring := orb.Ring(toPoints(p))
		area := signedArea(p)
		if len(mp) == 0 || area > 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		// holes, and rings with no area, belong to the current polygon
		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}
