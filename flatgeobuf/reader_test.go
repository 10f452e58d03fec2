package flatgeobuf

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	mvt "github.com/tingold/orb-mvt"
)

func writeTestFile(t *testing.T, path, name string, features []*geojson.Feature, opts *Options) {
	t.Helper()

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	err = WriteFeatures(file, name, features, opts)
	_ = file.Close()
	if err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}
}

func TestNewReaderFromData_Invalid(t *testing.T) {
	_, err := NewReaderFromData([]byte("not a flatgeobuf"))
	if err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestNewReaderFromData_Empty(t *testing.T) {
	_, err := NewReaderFromData([]byte{})
	if err == nil {
		t.Error("expected error for empty data")
	}
}

func TestNewReader_NonExistent(t *testing.T) {
	_, err := NewReader("/nonexistent/path/to/file.fgb")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestReadLayer(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "cities.fgb")

	features := make([]*geojson.Feature, 0, 10)
	for i := 0; i < 10; i++ {
		f := geojson.NewFeature(orb.Point{float64(i), float64(i * 2)})
		f.Properties = geojson.Properties{
			"index": i,
			"name":  "point",
		}
		features = append(features, f)
	}
	writeTestFile(t, tmpFile, "test_points", features, nil)

	l, err := ReadLayer(tmpFile)
	if err != nil {
		t.Fatalf("ReadLayer failed: %v", err)
	}

	if l.Name != "test_points" {
		t.Errorf("expected name 'test_points', got %q", l.Name)
	}
	if len(l.Features) != 10 {
		t.Fatalf("expected 10 features, got %d", len(l.Features))
	}

	// the spatial index may reorder features
	indexes := make([]int, 0, len(l.Features))
	for _, f := range l.Features {
		i, ok := f.Properties["index"].(int64)
		if !ok {
			t.Fatalf("expected int64 index, got %T", f.Properties["index"])
		}
		if f.Properties["name"] != "point" {
			t.Errorf("expected name 'point', got %v", f.Properties["name"])
		}

		p := orb.Point{float64(i), float64(i * 2)}
		if f.Geometry != p {
			t.Errorf("feature %d: expected %v, got %v", i, p, f.Geometry)
		}
		indexes = append(indexes, int(i))
	}

	sort.Ints(indexes)
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, indexes); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLayer_NameFromFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "roads.fgb")
	writeTestFile(t, tmpFile, "", []*geojson.Feature{
		geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}),
	}, nil)

	l, err := ReadLayer(tmpFile)
	if err != nil {
		t.Fatalf("ReadLayer failed: %v", err)
	}
	if l.Name != "roads" {
		t.Errorf("expected name 'roads', got %q", l.Name)
	}
}

func TestReader_Header(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "header.fgb")

	f := geojson.NewFeature(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}})
	f.Properties = geojson.Properties{
		"name":   "test",
		"value":  42,
		"active": true,
		"score":  3.14,
	}

	opts := &Options{
		Description:  "A test layer",
		IncludeIndex: true,
		CRS:          WGS84(),
	}
	writeTestFile(t, tmpFile, "squares", []*geojson.Feature{f}, opts)

	r, err := NewReader(tmpFile)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	header := r.Header()
	if header == nil {
		t.Fatal("expected non-nil header")
	}

	if header.Name != "squares" {
		t.Errorf("expected name 'squares', got %q", header.Name)
	}
	if header.GeometryType != "Polygon" {
		t.Errorf("expected geometry type 'Polygon', got %q", header.GeometryType)
	}
	if !header.HasIndex {
		t.Error("expected HasIndex to be true")
	}
	if header.CRS == nil || header.CRS.Code != 4326 {
		t.Errorf("expected EPSG:4326, got %+v", header.CRS)
	}

	if diff := cmp.Diff([]string{"active", "name", "score", "value"}, header.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_Search(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "grid.fgb")

	features := make([]*geojson.Feature, 0, 100)
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			f := geojson.NewFeature(orb.Point{float64(x), float64(y)})
			f.Properties = geojson.Properties{"x": x, "y": y}
			features = append(features, f)
		}
	}
	writeTestFile(t, tmpFile, "grid", features, nil)

	r, err := NewReader(tmpFile)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	bound := orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{4, 4}}
	l, err := r.Search(bound)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if l.Name != "grid" {
		t.Errorf("expected name 'grid', got %q", l.Name)
	}
	if len(l.Features) == 0 {
		t.Fatal("expected some results from search")
	}
	for _, f := range l.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			t.Fatalf("expected orb.Point, got %T", f.Geometry)
		}
		if !bound.Contains(p) {
			t.Errorf("point %v is outside the search bound", p)
		}
	}
}

func TestReader_NoIndex(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "no_index.fgb")
	writeTestFile(t, tmpFile, "flat", []*geojson.Feature{
		geojson.NewFeature(orb.Point{1, 2}),
	}, &Options{IncludeIndex: false})

	r, err := NewReader(tmpFile)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	_, err = r.Search(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})
	if err != ErrNoIndex {
		t.Errorf("expected ErrNoIndex from Search, got %v", err)
	}

	_, err = r.Layer()
	if err != ErrNoIndex {
		t.Errorf("expected ErrNoIndex from Layer, got %v", err)
	}
}

func TestReadLayer_NoIndex(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "no_index.fgb")
	writeTestFile(t, tmpFile, "flat", []*geojson.Feature{
		geojson.NewFeature(orb.Point{1, 2}),
		geojson.NewFeature(orb.Point{3, 4}),
	}, &Options{IncludeIndex: false})

	l, err := ReadLayer(tmpFile)
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got layer %+v and error %v", l, err)
	}
}

func TestReadLayer_Encodes(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "water.fgb")

	f := geojson.NewFeature(orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}})
	f.Properties = geojson.Properties{"uid": 123, "foo": "bar", "cat": "flew"}
	writeTestFile(t, tmpFile, "water", []*geojson.Feature{f}, nil)

	l, err := ReadLayer(tmpFile)
	if err != nil {
		t.Fatalf("ReadLayer failed: %v", err)
	}

	data, err := mvt.Encode([]*mvt.Layer{l}, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := mvt.Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	water := decoded["water"]
	if len(water) != 1 {
		t.Fatalf("expected 1 water feature, got %d", len(water))
	}

	expected := geojson.Properties{"uid": int64(123), "foo": "bar", "cat": "flew"}
	if diff := cmp.Diff(expected, water[0].Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Geometry, water[0].Geometry); diff != "" {
		t.Errorf("geometry mismatch (-want +got):\n%s", diff)
	}
}
