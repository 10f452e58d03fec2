package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	mvt "github.com/tingold/orb-mvt"
	"github.com/tingold/orb-mvt/flatgeobuf"
)

func newDecodeCmd(c *command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [flags] tile.mvt",
		Short: "decode a vector tile into GeoJSON or FlatGeobuf",
		Long: `Decode prints one GeoJSON FeatureCollection per layer, one per line.
With --fgb-dir, each non-empty layer is written to <dir>/<layer>.fgb instead.
Gzipped tiles are detected and decompressed.

--tile and --bounds invert the mapping used by encode.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString(flagFGBDir)
			if err != nil {
				return err
			}
			return c.decode(args[0], dir)
		},
	}

	f := cmd.Flags()
	addCodecFlags(f)
	f.String(flagFGBDir, "", "write one FlatGeobuf file per layer into this directory")
	return cmd
}

func (c *command) decode(path, fgbDir string) error {
	opts, err := c.cfg.options(c.logger)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	layers, err := mvt.DecodeLayers(data, opts)
	if err != nil {
		return err
	}

	if fgbDir != "" {
		_, hasTile, err := c.cfg.tile()
		if err != nil {
			return err
		}
		return c.writeFlatGeobuf(layers, fgbDir, hasTile)
	}

	for _, l := range layers {
		fc := geojson.NewFeatureCollection()
		fc.Features = l.Features

		b, err := fc.MarshalJSON()
		if err != nil {
			return errors.Wrapf(err, "layer %q", l.Name)
		}
		if _, err := c.stdout().Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func (c *command) writeFlatGeobuf(layers []*mvt.DecodedLayer, dir string, lonLat bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	opts := flatgeobuf.DefaultOptions()
	if lonLat {
		opts.CRS = flatgeobuf.WGS84()
	}

	for i, l := range layers {
		logger := c.logger.WithField("layer", l.Name)
		if len(l.Features) == 0 {
			logger.Info("skipping empty layer")
			continue
		}

		name := filepath.Base(l.Name)
		if name == "." || name == string(filepath.Separator) || l.Name == "" {
			name = "layer" + strconv.Itoa(i)
		}
		path := filepath.Join(dir, name+".fgb")

		file, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}

		err = flatgeobuf.WriteLayer(file, l, opts)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "layer %q", l.Name)
		}

		logger.WithField("path", path).WithField("features", len(l.Features)).Info("wrote layer")
	}
	return nil
}
