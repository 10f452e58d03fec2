package mvt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt/vectortile"
	"github.com/paulmach/orb/encoding/wkb"
)

func TestResolveGeometry(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	wkbData, err := wkb.Marshal(poly)
	if err != nil {
		t.Fatalf("wkb.Marshal failed: %v", err)
	}

	tests := []struct {
		name     string
		raw      interface{}
		expected orb.Geometry
	}{
		{"orb", orb.Point{1, 2}, orb.Point{1, 2}},
		{"wkt", "POINT(1 2)", orb.Point{1, 2}},
		{"wkt polygon", "POLYGON ((0 0, 0 1, 1 1, 1 0, 0 0))", poly},
		{"wkb", wkbData, poly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := resolveGeometry(tt.raw)
			if err != nil {
				t.Fatalf("resolveGeometry failed: %v", err)
			}
			if diff := cmp.Diff(tt.expected, g); diff != "" {
				t.Errorf("geometry mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveGeometry_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"bad wkt", "xyz"},
		{"bad wkb", []byte{0x01, 0x02}},
		{"other type", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveGeometry(tt.raw)

			var ue *UnsupportedGeometryError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UnsupportedGeometryError, got %v", err)
			}
			if ue.Err.Error() != "mvt: can't do geometries that are not wkt, wkb, or orb geometries" {
				t.Errorf("unexpected message %q", ue.Err.Error())
			}
		})
	}
}

func TestResolveGeometry_Nil(t *testing.T) {
	_, err := resolveGeometry(nil)
	if !errors.Is(err, ErrNilGeometry) {
		t.Errorf("expected ErrNilGeometry, got %v", err)
	}
}

func TestNormalize_UnsupportedKinds(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
	}{
		{"Ring", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{"Bound", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}},
		{"Collection", orb.Collection{orb.Point{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(tt.geom, YDown{}, DefaultExtent)
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("expected ErrUnsupportedType, got %v", err)
			}
		})
	}
}

func TestNormalize_Types(t *testing.T) {
	tests := []struct {
		name     string
		geom     orb.Geometry
		expected []shape
	}{
		{
			"Point",
			orb.Point{1.7, 2.2},
			[]shape{{Type: vectortile.Tile_POINT, Paths: []path{{{1, 2}}}}},
		},
		{
			"MultiPoint",
			orb.MultiPoint{{1, 2}, {3, 4}},
			[]shape{{Type: vectortile.Tile_POINT, Paths: []path{{{1, 2}, {3, 4}}}}},
		},
		{
			"LineString",
			orb.LineString{{0, 0}, {1, 1}},
			[]shape{{Type: vectortile.Tile_LINESTRING, Paths: []path{{{0, 0}, {1, 1}}}}},
		},
		{
			"MultiLineString",
			orb.MultiLineString{{{0, 0}, {1, 1}}, {}, {{5, 5}, {6, 6}}},
			[]shape{{Type: vectortile.Tile_LINESTRING, Paths: []path{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes, err := normalize(tt.geom, YDown{}, DefaultExtent)
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if diff := cmp.Diff(tt.expected, shapes); diff != "" {
				t.Errorf("shape mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_PolygonWinding(t *testing.T) {
	// Exterior counter-clockwise and hole clockwise on screen: both get
	// reversed, the closing vertex is dropped and the start vertex stays.
	poly := orb.Polygon{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
	}

	shapes, err := normalize(poly, YDown{}, DefaultExtent)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	expected := []shape{{
		Type: vectortile.Tile_POLYGON,
		Paths: []path{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
			{{2, 2}, {2, 8}, {8, 8}, {8, 2}},
		},
	}}
	if diff := cmp.Diff(expected, shapes); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}

	if a := signedArea(shapes[0].Paths[0]); a <= 0 {
		t.Errorf("expected positive exterior area, got %d", a)
	}
	if a := signedArea(shapes[0].Paths[1]); a >= 0 {
		t.Errorf("expected negative hole area, got %d", a)
	}
}

func TestNormalize_PolygonAlreadyWound(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}

	shapes, err := normalize(poly, YDown{}, DefaultExtent)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	expected := path{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if diff := cmp.Diff(expected, shapes[0].Paths[0]); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_MultiPolygonSplit(t *testing.T) {
	mp := orb.MultiPolygon{
		{{{0, 0}, {5, 0}, {5, 5}, {0, 5}, {0, 0}}},
		{{{10, 10}, {15, 10}, {15, 15}, {10, 15}, {10, 10}}},
		{{{20, 20}, {25, 20}, {25, 25}, {20, 25}, {20, 20}}},
	}

	shapes, err := normalize(mp, YDown{}, DefaultExtent)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(shapes) != 3 {
		t.Fatalf("expected 3 shapes, got %d", len(shapes))
	}
	for i, s := range shapes {
		if s.Type != vectortile.Tile_POLYGON {
			t.Errorf("shape %d: expected polygon, got %v", i, s.Type)
		}
		if len(s.Paths) != 1 {
			t.Errorf("shape %d: expected 1 ring, got %d", i, len(s.Paths))
		}
	}
}

func TestNormalize_CoordinateRange(t *testing.T) {
	_, err := normalize(orb.Point{1e12, 0}, YDown{}, DefaultExtent)
	if !errors.Is(err, ErrCoordinateRange) {
		t.Errorf("expected ErrCoordinateRange, got %v", err)
	}
}

func TestSignedArea(t *testing.T) {
	tests := []struct {
		name     string
		ring     path
		expected int64
	}{
		{"clockwise", path{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, 8},
		{"counter-clockwise", path{{0, 0}, {0, 2}, {2, 2}, {2, 0}}, -8},
		{"closed", path{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}, 8},
		{"degenerate", path{{0, 0}, {1, 1}, {2, 2}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a := signedArea(tt.ring); a != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, a)
			}
		})
	}
}

func TestReverseRing(t *testing.T) {
	open := path{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	reverseRing(open)
	if diff := cmp.Diff(path{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, open); diff != "" {
		t.Errorf("open ring mismatch (-want +got):\n%s", diff)
	}

	closed := path{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	reverseRing(closed)
	if diff := cmp.Diff(path{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}, closed); diff != "" {
		t.Errorf("closed ring mismatch (-want +got):\n%s", diff)
	}
}
