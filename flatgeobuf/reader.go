package flatgeobuf

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"

	mvt "github.com/tingold/orb-mvt"
)

// Reader provides read access to a FlatGeobuf file.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader creates a reader from a file path.
// The file is memory-mapped for efficient access.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "flatgeobuf: open %s", path)
	}

	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, errors.Wrap(err, "flatgeobuf: read data")
	}

	return &Reader{fgb: fgb}, nil
}

// ReadLayer loads every feature of the file at path into a layer. The layer
// is named after the file's header, or the file's base name when the header
// has none.
func ReadLayer(path string) (*mvt.Layer, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}

	l, err := r.Layer()
	if err != nil {
		return nil, err
	}

	if l.Name == "" {
		base := filepath.Base(path)
		l.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return l, nil
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, string(col.Name()))
		}
	}

	return header
}

// Layer reads all features into a layer named after the file's header.
// Features are found through the spatial index, so files written without
// one return ErrNoIndex.
func (r *Reader) Layer() (*mvt.Layer, error) {
	h := r.fgb.Header()
	if h == nil {
		return nil, errors.New("flatgeobuf: missing header")
	}

	// the writer leaves the feature count at zero when the index is off,
	// so a zero count only means empty once an index is present
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	l := &mvt.Layer{Name: string(h.Name())}
	if h.FeaturesCount() == 0 {
		return l, nil
	}
	if h.EnvelopeLength() < 4 {
		return nil, ErrNoIndex
	}

	bound := orb.Bound{
		Min: orb.Point{h.Envelope(0), h.Envelope(1)},
		Max: orb.Point{h.Envelope(2), h.Envelope(3)},
	}
	return r.search(l, bound)
}

// Search returns a layer holding the features whose bounding boxes intersect
// the bound. It is how a single tile's worth of features is pulled out of a
// large file.
func (r *Reader) Search(bound orb.Bound) (*mvt.Layer, error) {
	h := r.fgb.Header()
	if h == nil {
		return nil, errors.New("flatgeobuf: missing header")
	}
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	return r.search(&mvt.Layer{Name: string(h.Name())}, bound)
}

func (r *Reader) search(l *mvt.Layer, bound orb.Bound) (*mvt.Layer, error) {
	h := r.fgb.Header()

	features, err := r.fgb.Search(bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1])
	if err != nil {
		return nil, errors.Wrap(err, "flatgeobuf: search")
	}

	l.Features = make([]*mvt.Feature, 0, len(features))
	for i, f := range features {
		feature, err := convertFeature(f, h)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %d", i)
		}
		l.Features = append(l.Features, feature)
	}

	return l, nil
}

// convertFeature turns a FlatGeobuf feature into a feature ready to encode.
func convertFeature(f *flattypes.Feature, h *flattypes.Header) (*mvt.Feature, error) {
	if f == nil {
		return nil, ErrNilGeometry
	}

	var g flattypes.Geometry
	geom, err := fromFGB(f.Geometry(&g))
	if err != nil {
		return nil, err
	}

	var data []byte
	if n := f.PropertiesLength(); n > 0 {
		data = make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = byte(f.Properties(i))
		}
	}

	props, err := decodeProperties(data, h)
	if err != nil {
		return nil, err
	}

	return mvt.NewFeature(geom, props), nil
}
