package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	mvt "github.com/tingold/orb-mvt"
)

const (
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagExtent      = "extent"
	flagTile        = "tile"
	flagBounds      = "bounds"
	flagSkipInvalid = "skip-invalid"
	flagGzip        = "gzip"
	flagOutFile     = "outfile"
	flagFGBDir      = "fgb-dir"
)

const maxZoom = 24

// config holds the settings shared by encode and decode. Values come from
// an optional YAML file and are overridden by flags set on the command line.
type config struct {
	Extent           uint32    `yaml:"extent"`
	OnInvalidFeature string    `yaml:"on_invalid_feature"`
	Bounds           []float64 `yaml:"bounds"`
	Tile             string    `yaml:"tile"`
	Gzip             bool      `yaml:"gzip"`
	LogLevel         string    `yaml:"log_level"`
}

func defaultConfig() *config {
	return &config{
		Extent:           mvt.DefaultExtent,
		OnInvalidFeature: mvt.Abort.String(),
		LogLevel:         log.InfoLevel.String(),
	}
}

// loadConfig reads a YAML config file on top of the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func addCodecFlags(f *pflag.FlagSet) {
	f.Uint32(flagExtent, mvt.DefaultExtent, "tile extent for layers that do not set one")
	f.String(flagTile, "", "tile z/x/y; lon/lat input is projected into this tile")
	f.String(flagBounds, "", "minX,minY,maxX,maxY mapped linearly onto the tile extent")
	f.Bool(flagSkipInvalid, false, "skip invalid features instead of failing")
}

// applyFlags copies every flag the user set over the file values.
func (c *config) applyFlags(f *pflag.FlagSet) error {
	var err error
	if f.Changed(flagExtent) {
		if c.Extent, err = f.GetUint32(flagExtent); err != nil {
			return err
		}
	}
	if f.Changed(flagTile) {
		if c.Tile, err = f.GetString(flagTile); err != nil {
			return err
		}
	}
	if f.Changed(flagBounds) {
		s, err := f.GetString(flagBounds)
		if err != nil {
			return err
		}
		if c.Bounds, err = parseFloats(s); err != nil {
			return err
		}
	}
	if f.Changed(flagSkipInvalid) {
		skip, err := f.GetBool(flagSkipInvalid)
		if err != nil {
			return err
		}
		if skip {
			c.OnInvalidFeature = mvt.Skip.String()
		} else {
			c.OnInvalidFeature = mvt.Abort.String()
		}
	}
	if f.Lookup(flagGzip) != nil && f.Changed(flagGzip) {
		if c.Gzip, err = f.GetBool(flagGzip); err != nil {
			return err
		}
	}
	if f.Lookup(flagLogLevel) != nil && f.Changed(flagLogLevel) {
		if c.LogLevel, err = f.GetString(flagLogLevel); err != nil {
			return err
		}
	}
	return nil
}

// tile returns the configured tile, if any.
func (c *config) tile() (maptile.Tile, bool, error) {
	if c.Tile == "" {
		return maptile.Tile{}, false, nil
	}

	parts := strings.Split(c.Tile, "/")
	if len(parts) != 3 {
		return maptile.Tile{}, false, errors.Newf("tile %q: expected z/x/y", c.Tile)
	}

	var zxy [3]uint32
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return maptile.Tile{}, false, errors.Wrapf(err, "tile %q", c.Tile)
		}
		zxy[i] = uint32(v)
	}

	if zxy[0] > maxZoom {
		return maptile.Tile{}, false, errors.Newf("tile %q: zoom above %d", c.Tile, maxZoom)
	}
	if n := uint64(1) << zxy[0]; uint64(zxy[1]) >= n || uint64(zxy[2]) >= n {
		return maptile.Tile{}, false, errors.Newf("tile %q is outside its zoom level", c.Tile)
	}
	return maptile.New(zxy[1], zxy[2], maptile.Zoom(zxy[0])), true, nil
}

func (c *config) bound() (orb.Bound, bool, error) {
	if len(c.Bounds) == 0 {
		return orb.Bound{}, false, nil
	}
	if len(c.Bounds) != 4 {
		return orb.Bound{}, false, errors.Newf("bounds: expected 4 values, got %d", len(c.Bounds))
	}

	b := orb.Bound{
		Min: orb.Point{c.Bounds[0], c.Bounds[1]},
		Max: orb.Point{c.Bounds[2], c.Bounds[3]},
	}
	if b.Min[0] >= b.Max[0] || b.Min[1] >= b.Max[1] {
		return orb.Bound{}, false, errors.Newf("bounds %v: min must be below max", c.Bounds)
	}
	return b, true, nil
}

// options builds the codec options. A tile takes precedence over bounds;
// with neither, coordinates are taken as y-up tile coordinates.
func (c *config) options(logger log.FieldLogger) (*mvt.Options, error) {
	policy, err := mvt.ParsePolicy(c.OnInvalidFeature)
	if err != nil {
		return nil, err
	}

	opts := &mvt.Options{
		Extent:           c.Extent,
		OnInvalidFeature: policy,
		OnSkip: func(err error) {
			logger.WithError(err).Warn("skipped invalid feature")
		},
	}

	t, ok, err := c.tile()
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Quantizer = mvt.TileQuantizer(t)
		return opts, nil
	}

	b, ok, err := c.bound()
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Quantizer = mvt.BoundQuantizer{Bound: b}
	}
	return opts, nil
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %q", s)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
