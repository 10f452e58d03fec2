package flatgeobuf

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	mvt "github.com/tingold/orb-mvt"
)

// WriteLayer writes a decoded tile layer to FlatGeobuf. The file is named
// after the layer and its columns are inferred from the feature properties.
// Feature ids are not carried over since FlatGeobuf has no id field.
func WriteLayer(w io.Writer, l *mvt.DecodedLayer, opts *Options) error {
	if l == nil {
		return errors.New("flatgeobuf: nil layer")
	}
	return WriteFeatures(w, l.Name, l.Features, opts)
}

// WriteFeatures writes features to FlatGeobuf under the given layer name.
// Every feature must carry one of the geometry kinds a vector tile holds,
// and an empty feature list is rejected with ErrNilGeometry.
func WriteFeatures(w io.Writer, name string, features []*geojson.Feature, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	if len(features) == 0 {
		return ErrNilGeometry
	}

	schema := inferSchema(features)

	gen := &featureGenerator{
		geometries: make([]orb.Geometry, 0, len(features)),
		properties: make([][]byte, 0, len(features)),
	}
	for i, f := range features {
		if f == nil || f.Geometry == nil {
			return errors.Wrapf(ErrNilGeometry, "feature %d", i)
		}
		if geometryType(f.Geometry) == flattypes.GeometryTypeUnknown {
			return errors.Wrapf(ErrUnsupportedType, "feature %d: %T", i, f.Geometry)
		}

		props, err := encodeProperties(f.Properties, schema)
		if err != nil {
			return errors.Wrapf(err, "feature %d", i)
		}

		gen.geometries = append(gen.geometries, f.Geometry)
		gen.properties = append(gen.properties, props)
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(layerGeometryType(gen.geometries))
	if name != "" {
		header.SetName(name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(schema) > 0 {
		header.SetColumns(writerColumns(schema, builder))
	}

	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Description != "" {
			crs.SetDescription(opts.CRS.Description)
		}
		header.SetCrs(crs)
	}

	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	if _, err := fgbWriter.Write(w); err != nil {
		return errors.Wrap(err, "flatgeobuf: write")
	}
	return nil
}

// featureGenerator hands prepared features to the FlatGeobuf writer. The
// geometries and property buffers are validated before writing starts so
// Generate never has to fail.
type featureGenerator struct {
	geometries []orb.Geometry
	properties [][]byte
	index      int
}

func (g *featureGenerator) Generate() *writer.Feature {
	if g.index >= len(g.geometries) {
		return nil
	}

	i := g.index
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	geom, err := toFGB(g.geometries[i], builder)
	if err != nil {
		return nil
	}

	feature := writer.NewFeature(builder)
	feature.SetGeometry(geom)
	if len(g.properties[i]) > 0 {
		feature.SetProperties(g.properties[i])
	}

	return feature
}
