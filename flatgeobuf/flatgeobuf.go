// Package flatgeobuf moves features between FlatGeobuf files and vector
// tile layers. A FlatGeobuf file is read as an mvt.Layer ready to encode,
// and a decoded tile layer can be written back out as a FlatGeobuf file.
package flatgeobuf

import (
	"github.com/cockroachdb/errors"
)

// Common errors returned by this package.
var (
	ErrNilGeometry     = errors.New("flatgeobuf: nil geometry")
	ErrUnsupportedType = errors.New("flatgeobuf: unsupported geometry type")
	ErrNoIndex         = errors.New("flatgeobuf: file has no spatial index")
	ErrInvalidColumn   = errors.New("flatgeobuf: invalid column type")
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// Options configures FlatGeobuf writing.
type Options struct {
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (optional)
}

// DefaultOptions returns default options for writing FlatGeobuf files.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
	}
}

// Header contains the metadata of a FlatGeobuf file that matters when
// turning it into a tile layer.
type Header struct {
	Name          string     // Layer name
	GeometryType  string     // Geometry type ("Point", "Polygon", "Unknown", etc.)
	FeaturesCount uint64     // Number of features in the file
	Envelope      [4]float64 // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS       // Coordinate reference system
	HasIndex      bool       // Whether the file has a spatial index
	Columns       []string   // Property column names
}
