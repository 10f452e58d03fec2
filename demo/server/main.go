package main

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	log "github.com/sirupsen/logrus"

	mvt "github.com/tingold/orb-mvt"
	"github.com/tingold/orb-mvt/flatgeobuf"
)

type City struct {
	Name       string
	Country    string
	Longitude  float64
	Latitude   float64
	Population int
	Capital    bool
}

var cities = []City{
	{"Tokyo", "Japan", 139.6917, 35.6895, 13960000, true},
	{"New York", "United States", -73.9857, 40.7484, 8336817, false},
	{"London", "United Kingdom", -0.1276, 51.5074, 8982000, true},
	{"Paris", "France", 2.3522, 48.8566, 2161000, true},
	{"Beijing", "China", 116.4074, 39.9042, 21540000, true},
	{"Moscow", "Russia", 37.6173, 55.7558, 12615000, true},
	{"São Paulo", "Brazil", -46.6333, -23.5505, 12300000, false},
	{"Mumbai", "India", 72.8777, 19.0760, 12400000, false},
	{"Los Angeles", "United States", -118.2437, 34.0522, 3971883, false},
	{"Shanghai", "China", 121.4737, 31.2304, 24870000, false},
	{"Istanbul", "Turkey", 28.9784, 41.0082, 15520000, false},
	{"Buenos Aires", "Argentina", -58.3816, -34.6037, 3075646, true},
	{"Cairo", "Egypt", 31.2357, 30.0444, 10230000, true},
	{"Sydney", "Australia", 151.2093, -33.8688, 5312000, false},
	{"Berlin", "Germany", 13.4050, 52.5200, 3669491, true},
}

func main() {
	features := make([]*geojson.Feature, 0, len(cities))
	for _, city := range cities {
		f := geojson.NewFeature(orb.Point{city.Longitude, city.Latitude})
		f.Properties = geojson.Properties{
			"name":       city.Name,
			"country":    city.Country,
			"population": city.Population,
			"capital":    city.Capital,
		}
		features = append(features, f)
	}

	// The FlatGeobuf copy is the tile source, searched once per request.
	var buf bytes.Buffer
	opts := &flatgeobuf.Options{
		Description:  "Major world cities",
		IncludeIndex: true,
		CRS:          flatgeobuf.WGS84(),
	}
	if err := flatgeobuf.WriteFeatures(&buf, "world_cities", features, opts); err != nil {
		log.Fatalf("Failed to create FlatGeobuf: %v", err)
	}
	flatgeobufData := buf.Bytes()

	source, err := flatgeobuf.NewReaderFromData(flatgeobufData)
	if err != nil {
		log.Fatalf("Failed to open FlatGeobuf: %v", err)
	}

	tiles := &tileSource{fgb: source}
	clientDir := filepath.Join("..", "client")

	fs := http.FileServer(http.Dir(clientDir))
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data.fgb":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write(flatgeobufData)

		case strings.HasPrefix(r.URL.Path, "/tiles/"):
			tiles.serve(w, r)

		default:
			fs.ServeHTTP(w, r)
		}
	})

	log.Info("Server starting on http://localhost:8080")
	log.WithField("dir", clientDir).Info("Serving client files")
	log.Fatal(http.ListenAndServe(":8080", nil))
}

// tileSource cuts vector tiles out of a FlatGeobuf file. Searches are
// serialized, encoding runs concurrently.
type tileSource struct {
	mu  sync.Mutex
	fgb *flatgeobuf.Reader
}

func (s *tileSource) search(b orb.Bound) (*mvt.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fgb.Search(b)
}

// serve answers /tiles/{z}/{x}/{y}.mvt with the cities inside the tile.
func (s *tileSource) serve(w http.ResponseWriter, r *http.Request) {
	var z, x, y uint32
	if _, err := fmt.Sscanf(r.URL.Path, "/tiles/%d/%d/%d.mvt", &z, &x, &y); err != nil || z > 22 {
		http.NotFound(w, r)
		return
	}

	tile := maptile.New(x, y, maptile.Zoom(z))
	logger := log.WithField("tile", fmt.Sprintf("%d/%d/%d", z, x, y))

	layer, err := s.search(tile.Bound())
	if err != nil {
		logger.WithError(err).Error("search failed")
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	data, err := mvt.EncodeGzipped([]*mvt.Layer{layer}, &mvt.Options{
		Quantizer:        mvt.TileQuantizer(tile),
		OnInvalidFeature: mvt.Skip,
		OnSkip: func(err error) {
			logger.WithError(err).Warn("skipped feature")
		},
	})
	if err != nil {
		logger.WithError(err).Error("encode failed")
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	logger.WithField("features", len(layer.Features)).Debug("served tile")

	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}
