package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"

	mvt "github.com/tingold/orb-mvt"
	"github.com/tingold/orb-mvt/flatgeobuf"
)

func newEncodeCmd(c *command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [flags] input.(fgb|geojson)...",
		Short: "encode FlatGeobuf or GeoJSON files into a vector tile",
		Long: `Encode writes one tile layer per input file. The layer is named after the
FlatGeobuf header name or, failing that, the file's base name.

With --tile, longitude/latitude input is projected into the tile and only
the features of an indexed FlatGeobuf file that touch the tile are read.
With --bounds, input coordinates are mapped linearly onto the tile extent.
Without either, input coordinates are tile coordinates with the y axis
pointing up, so y is flipped against the extent.

FlatGeobuf input must carry a spatial index.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString(flagOutFile)
			if err != nil {
				return err
			}
			return c.encode(args, out)
		},
	}

	f := cmd.Flags()
	addCodecFlags(f)
	f.Bool(flagGzip, false, "gzip the encoded tile")
	f.StringP(flagOutFile, "o", "", "output file, stdout when empty")
	return cmd
}

func (c *command) encode(inputs []string, out string) error {
	opts, err := c.cfg.options(c.logger)
	if err != nil {
		return err
	}

	t, hasTile, err := c.cfg.tile()
	if err != nil {
		return err
	}

	layers := make([]*mvt.Layer, 0, len(inputs))
	for _, path := range inputs {
		var l *mvt.Layer
		if hasTile {
			l, err = readTileLayer(path, t)
		} else {
			l, err = readLayer(path)
		}
		if err != nil {
			return err
		}

		c.logger.WithField("layer", l.Name).
			WithField("features", len(l.Features)).
			Debug("read layer")
		layers = append(layers, l)
	}

	var data []byte
	if c.cfg.Gzip {
		data, err = mvt.EncodeGzipped(layers, opts)
	} else {
		data, err = mvt.Encode(layers, opts)
	}
	if err != nil {
		return err
	}

	if err := writeOutput(out, data, c.stdout()); err != nil {
		return err
	}

	c.logger.WithField("bytes", len(data)).WithField("layers", len(layers)).Info("encoded tile")
	return nil
}

// readLayer loads a whole FlatGeobuf or GeoJSON file as a layer.
func readLayer(path string) (*mvt.Layer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		return flatgeobuf.ReadLayer(path)

	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}

		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		return mvt.LayerFromFeatureCollection(layerName(path), fc), nil

	default:
		return nil, errors.Newf("%s: unsupported input, expected .fgb or .geojson", path)
	}
}

// readTileLayer reads only the features of an indexed FlatGeobuf file that
// touch the tile. Other inputs are read whole.
func readTileLayer(path string, t maptile.Tile) (*mvt.Layer, error) {
	if strings.ToLower(filepath.Ext(path)) != ".fgb" {
		return readLayer(path)
	}

	r, err := flatgeobuf.NewReader(path)
	if err != nil {
		return nil, err
	}

	l, err := r.Search(t.Bound())
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if l.Name == "" {
		l.Name = layerName(path)
	}
	return l, nil
}

func layerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
