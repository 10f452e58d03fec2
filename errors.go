package mvt

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// UnsupportedGeometryError is returned when a feature's geometry can not be
// encoded: an unknown input format, a geometry kind outside the six MVT
// kinds, or coordinates that do not fit the integer tile space.
type UnsupportedGeometryError struct {
	Layer   string
	Feature int
	Err     error
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("mvt: layer %q feature %d: %v", e.Layer, e.Feature, e.Err)
}

func (e *UnsupportedGeometryError) Unwrap() error { return e.Err }

// MalformedGeometryError is returned when a feature's command stream can
// not be decoded. Offset is the index into the feature's geometry array
// where decoding stopped.
type MalformedGeometryError struct {
	Layer   string
	Feature int
	Offset  int
	Reason  string
}

func (e *MalformedGeometryError) Error() string {
	return fmt.Sprintf("mvt: layer %q feature %d: malformed geometry at offset %d: %s",
		e.Layer, e.Feature, e.Offset, e.Reason)
}

func (e *MalformedGeometryError) Unwrap() error { return ErrMalformedGeometry }

// SchemaViolationError is returned when a feature references key or value
// table entries that do not exist, when a value has no known variant, or
// when a property value has no MVT representation.
type SchemaViolationError struct {
	Layer   string
	Feature int
	Reason  string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("mvt: layer %q feature %d: %s", e.Layer, e.Feature, e.Reason)
}

func (e *SchemaViolationError) Unwrap() error { return ErrSchemaViolation }

// withContext stamps the layer name and feature index on the typed errors
// produced below the layer level.
func withContext(err error, layer string, feature int) error {
	var (
		ue *UnsupportedGeometryError
		me *MalformedGeometryError
		se *SchemaViolationError
	)
	switch {
	case errors.As(err, &ue):
		ue.Layer, ue.Feature = layer, feature
		return ue
	case errors.As(err, &me):
		me.Layer, me.Feature = layer, feature
		return me
	case errors.As(err, &se):
		se.Layer, se.Feature = layer, feature
		return se
	}
	return errors.Wrapf(err, "mvt: layer %q feature %d", layer, feature)
}

func unsupported(err error) error {
	return &UnsupportedGeometryError{Err: err}
}

func malformed(offset int, format string, args ...interface{}) error {
	return &MalformedGeometryError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

func schemaViolation(format string, args ...interface{}) error {
	return &SchemaViolationError{Reason: fmt.Sprintf(format, args...)}
}
