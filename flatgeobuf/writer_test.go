package flatgeobuf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	mvt "github.com/tingold/orb-mvt"
)

func TestWriteFeatures_Magic(t *testing.T) {
	features := []*geojson.Feature{
		geojson.NewFeature(orb.Point{1, 2}),
		geojson.NewFeature(orb.Point{3, 4}),
	}

	var buf bytes.Buffer
	err := WriteFeatures(&buf, "points", features, nil)
	if err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatal("output too short")
	}

	expectedMagic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	for i, b := range expectedMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestWriteFeatures_MixedGeometries(t *testing.T) {
	features := []*geojson.Feature{
		geojson.NewFeature(orb.Point{1, 2}),
		geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}),
	}

	var buf bytes.Buffer
	if err := WriteFeatures(&buf, "mixed", features, nil); err != nil {
		t.Fatalf("WriteFeatures failed: %v", err)
	}

	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	if gt := r.Header().GeometryType; gt != "Unknown" {
		t.Errorf("expected geometry type 'Unknown', got %q", gt)
	}
}

func TestWriteFeatures_Errors(t *testing.T) {
	tests := []struct {
		name     string
		features []*geojson.Feature
		expected error
	}{
		{"empty", nil, ErrNilGeometry},
		{"nil feature", []*geojson.Feature{nil}, ErrNilGeometry},
		{"nil geometry", []*geojson.Feature{{Properties: geojson.Properties{}}}, ErrNilGeometry},
		{"collection", []*geojson.Feature{geojson.NewFeature(orb.Collection{orb.Point{1, 2}})}, ErrUnsupportedType},
		{"ring", []*geojson.Feature{geojson.NewFeature(orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}})}, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteFeatures(&bytes.Buffer{}, "bad", tt.features, nil)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestWriteLayer_Nil(t *testing.T) {
	if err := WriteLayer(&bytes.Buffer{}, nil, nil); err == nil {
		t.Error("expected error for nil layer")
	}
}

func TestWriteLayer_DecodedTile(t *testing.T) {
	f := mvt.NewFeature("POLYGON((0 0,0 1,1 1,1 0,0 0))", geojson.Properties{
		"uid":   123,
		"label": "☺",
		"area":  float32(1.5),
	})

	tile, err := mvt.Encode([]*mvt.Layer{{Name: "water", Features: []*mvt.Feature{f}}}, nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	layers, err := mvt.DecodeLayers(tile, nil)
	if err != nil {
		t.Fatalf("DecodeLayers failed: %v", err)
	}
	if len(layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(layers))
	}

	var buf bytes.Buffer
	if err := WriteLayer(&buf, layers[0], nil); err != nil {
		t.Fatalf("WriteLayer failed: %v", err)
	}

	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}

	l, err := r.Layer()
	if err != nil {
		t.Fatalf("Layer failed: %v", err)
	}
	if l.Name != "water" {
		t.Errorf("expected name 'water', got %q", l.Name)
	}
	if len(l.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(l.Features))
	}

	expected := geojson.Properties{"uid": int64(123), "label": "☺", "area": float32(1.5)}
	if diff := cmp.Diff(expected, l.Features[0].Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(layers[0].Features[0].Geometry, l.Features[0].Geometry); diff != "" {
		t.Errorf("geometry mismatch (-want +got):\n%s", diff)
	}
}
