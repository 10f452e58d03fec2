package mvt

import (
	"bytes"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/paulmach/orb/geojson"
)

// Layer is a named set of features to encode.
type Layer struct {
	Name     string
	Extent   uint32 // Tile coordinate space size (default: Options.Extent)
	Features []*Feature
}

// Feature is a single feature to encode.
//
// Geometry is an orb.Geometry, a WKT string or WKB bytes. A MultiPolygon is
// written as one tile feature per polygon, each carrying the same id and
// properties.
type Feature struct {
	ID         *uint64
	Geometry   interface{}
	Properties geojson.Properties
}

// NewFeature creates a feature without an id.
func NewFeature(geometry interface{}, props geojson.Properties) *Feature {
	return &Feature{Geometry: geometry, Properties: props}
}

// WithID sets the feature id and returns the feature.
func (f *Feature) WithID(id uint64) *Feature {
	f.ID = &id
	return f
}

// LayerFromFeatureCollection builds a layer from a geojson feature
// collection. Numeric ids, and strings holding one, are kept; negative or
// non-numeric ids are dropped.
func LayerFromFeatureCollection(name string, fc *geojson.FeatureCollection) *Layer {
	l := &Layer{Name: name}
	if fc == nil {
		return l
	}

	l.Features = make([]*Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		l.Features = append(l.Features, &Feature{
			ID:         convertID(f.ID),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	return l
}

// Encode encodes the layers into a single Mapbox Vector Tile.
func Encode(layers []*Layer, opts *Options) ([]byte, error) {
	opts = opts.withDefaults()

	vt := &vectortile.Tile{
		Layers: make([]*vectortile.Tile_Layer, 0, len(layers)),
	}

	for _, l := range layers {
		if l == nil {
			continue
		}
		layer, err := encodeLayer(l, opts)
		if err != nil {
			return nil, err
		}
		vt.Layers = append(vt.Layers, layer)
	}

	data, err := proto.Marshal(vt)
	if err != nil {
		return nil, errors.Wrap(err, "mvt: marshal tile")
	}
	return data, nil
}

// EncodeGzipped encodes the layers and gzips the result, the way tiles are
// usually stored at rest, e.g. in an MBTiles file.
func EncodeGzipped(layers []*Layer, opts *Options) ([]byte, error) {
	data, err := Encode(layers, opts)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	gzwriter := gzip.NewWriter(buf)

	if _, err := gzwriter.Write(data); err != nil {
		return nil, errors.Wrap(err, "mvt: gzip tile")
	}
	if err := gzwriter.Close(); err != nil {
		return nil, errors.Wrap(err, "mvt: gzip tile")
	}

	return buf.Bytes(), nil
}

func encodeLayer(l *Layer, opts *Options) (*vectortile.Tile_Layer, error) {
	name := l.Name
	version := uint32(Version)
	extent := l.Extent
	if extent == 0 {
		extent = opts.Extent
	}

	kve := newKeyValueEncoder()
	layer := &vectortile.Tile_Layer{
		Name:     &name,
		Version:  &version,
		Extent:   &extent,
		Features: make([]*vectortile.Tile_Feature, 0, len(l.Features)),
	}

	for i, f := range l.Features {
		features, err := encodeFeature(kve, f, opts.Quantizer, extent)
		if err != nil {
			if err = opts.handle(withContext(err, name, i)); err != nil {
				return nil, err
			}
			continue
		}
		layer.Features = append(layer.Features, features...)
	}

	layer.Keys = kve.Keys
	layer.Values = kve.Values

	return layer, nil
}

// encodeFeature encodes one input feature into one or more tile features.
// Nothing is interned unless the whole feature encodes, so a skipped
// feature leaves no trace in the layer tables.
func encodeFeature(kve *keyValueEncoder, f *Feature, q Quantizer, extent uint32) ([]*vectortile.Tile_Feature, error) {
	if f == nil {
		return nil, unsupported(ErrNilGeometry)
	}

	g, err := resolveGeometry(f.Geometry)
	if err != nil {
		return nil, err
	}

	shapes, err := normalize(g, q, extent)
	if err != nil {
		return nil, err
	}

	geometries := make([][]uint32, 0, len(shapes))
	for _, s := range shapes {
		data, err := encodeShape(s)
		if err != nil {
			return nil, err
		}
		geometries = append(geometries, data)
	}

	if err := checkProperties(f.Properties); err != nil {
		return nil, err
	}
	tags, err := kve.Tags(f.Properties)
	if err != nil {
		return nil, err
	}

	features := make([]*vectortile.Tile_Feature, 0, len(shapes))
	for i, s := range shapes {
		gt := s.Type
		features = append(features, &vectortile.Tile_Feature{
			Id:       f.ID,
			Tags:     tags,
			Type:     &gt,
			Geometry: geometries[i],
		})
	}
	return features, nil
}

// checkProperties validates every value before any of them is interned.
func checkProperties(props geojson.Properties) error {
	for k, v := range props {
		if v == nil {
			continue
		}
		if _, err := canonicalValue(v); err != nil {
			return schemaViolation("property %q: %v", k, err)
		}
	}
	return nil
}

func convertID(id interface{}) *uint64 {
	if id == nil {
		return nil
	}

	switch id := id.(type) {
	case int:
		return convertIntID(int64(id))
	case int8:
		return convertIntID(int64(id))
	case int16:
		return convertIntID(int64(id))
	case int32:
		return convertIntID(int64(id))
	case int64:
		return convertIntID(id)
	case uint:
		v := uint64(id)
		return &v
	case uint8:
		v := uint64(id)
		return &v
	case uint16:
		v := uint64(id)
		return &v
	case uint32:
		v := uint64(id)
		return &v
	case uint64:
		v := id
		return &v
	case float32:
		return convertFloatID(float64(id))
	case float64:
		return convertFloatID(id)
	case string:
		if v, err := strconv.ParseUint(id, 10, 64); err == nil {
			return &v
		}
	}

	return nil
}

func convertIntID(i int64) *uint64 {
	if i < 0 {
		return nil
	}

	v := uint64(i)
	return &v
}

// convertFloatID accepts only whole numbers that fit a uint64, so 1.5 is
// dropped rather than truncated.
func convertFloatID(f float64) *uint64 {
	if f < 0 || f >= math.MaxUint64 || f != math.Trunc(f) {
		return nil
	}

	v := uint64(f)
	return &v
}
