// Package mvt encodes orb geometries into Mapbox Vector Tiles and decodes
// them back. A tile is a set of named layers; each layer holds features
// made of a geometry, a property set and an optional id.
//
// Encoding normalizes every geometry into integer tile coordinates,
// writes the MVT command stream and interns properties into shared
// per-layer key and value tables. Decoding reverses the process and
// returns geojson features.
package mvt

import (
	"github.com/cockroachdb/errors"
)

const (
	// DefaultExtent is the size of the tile coordinate space used when
	// neither the layer nor the options set one.
	DefaultExtent = 4096

	// Version is the vector tile specification version written to every layer.
	Version = 2
)

// Common errors returned by this package.
var (
	ErrNilGeometry       = errors.New("mvt: nil geometry")
	ErrUnsupportedType   = errors.New("mvt: unsupported geometry type")
	ErrUnsupportedFormat = errors.New("mvt: can't do geometries that are not wkt, wkb, or orb geometries")
	ErrCoordinateRange   = errors.New("mvt: coordinate out of int32 range")
	ErrMalformedGeometry = errors.New("mvt: malformed geometry")
	ErrSchemaViolation   = errors.New("mvt: schema violation")
)

// Policy decides what happens to a feature that fails to encode or decode.
type Policy int

const (
	// Abort stops the whole call on the first invalid feature. No partial
	// output is returned.
	Abort Policy = iota

	// Skip drops the invalid feature, reports it through Options.OnSkip
	// and carries on with the rest of the layer.
	Skip
)

// String returns the policy name as used in configuration files.
func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParsePolicy parses "abort" or "skip". The empty string is Abort.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	}
	return Abort, errors.Newf("mvt: unknown policy %q", s)
}

// Options configures encoding and decoding.
type Options struct {
	Extent           uint32    // Tile coordinate space size (default: 4096)
	Quantizer        Quantizer // Maps source coordinates into tile space (default: YUp)
	OnInvalidFeature Policy    // What to do with a feature that fails (default: Abort)
	OnSkip           func(err error)
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Extent:           DefaultExtent,
		Quantizer:        YUp{},
		OnInvalidFeature: Abort,
	}
}

// withDefaults fills in zero fields. The caller's struct is not modified.
func (o *Options) withDefaults() *Options {
	if o == nil {
		return DefaultOptions()
	}

	opts := *o
	if opts.Extent == 0 {
		opts.Extent = DefaultExtent
	}
	if opts.Quantizer == nil {
		opts.Quantizer = YUp{}
	}
	return &opts
}

// handle applies the invalid feature policy to err. It returns nil when
// the feature should be skipped.
func (o *Options) handle(err error) error {
	if o.OnInvalidFeature != Skip {
		return err
	}
	if o.OnSkip != nil {
		o.OnSkip(err)
	}
	return nil
}
