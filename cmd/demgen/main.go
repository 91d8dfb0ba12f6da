// Command demgen generates synthetic elevation tiles for local development
// and test fixtures, and can serve them over the tile-service protocol so a
// full workflow run needs no real elevation source.
//
// Usage:
//
//	go run ./cmd/demgen -out ./fixtures -tiles 2x2 -rows 64 -cols 64
//	go run ./cmd/demgen -out ./fixtures -serve :9090
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/geotiff"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

type tileEntry struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type tileIndex struct {
	Tiles []tileEntry `json:"tiles"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for generated tiles")
	tiles := flag.String("tiles", "1x1", "tile grid as ROWSxCOLS, e.g. 2x2")
	rows := flag.Int("rows", 64, "rows per tile")
	cols := flag.Int("cols", 64, "columns per tile")
	cell := flag.Float64("cell", 0.001, "cell size in degrees")
	originX := flag.Float64("origin-x", -106.0, "west edge of the tile block")
	originY := flag.Float64("origin-y", 40.0, "north edge of the tile block")
	seed := flag.Int64("seed", 1, "noise seed")
	serve := flag.String("serve", "", "serve the generated tiles on this address instead of exiting")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("-out is required")
	}
	tr, tc, err := parseTileGrid(*tiles)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0750); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	var ids []string
	for ty := 0; ty < tr; ty++ {
		for tx := 0; tx < tc; tx++ {
			id := fmt.Sprintf("tile_%d_%d", ty, tx)
			ox := *originX + float64(tx*(*cols))*(*cell)
			oy := *originY - float64(ty*(*rows))*(*cell)
			g := synthesize(*rows, *cols, ox, oy, *cell, rng)
			path := filepath.Join(*out, id+".tif")
			if err := geotiff.WriteGrid(path, g); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			ids = append(ids, id)
			log.Printf("wrote %s (%dx%d at %.4f,%.4f)", path, *rows, *cols, ox, oy)
		}
	}

	if *serve == "" {
		return writeIndex(*out, ids)
	}
	return serveTiles(*serve, *out, ids)
}

func parseTileGrid(s string) (rows, cols int, err error) {
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &rows, &cols); err != nil || rows < 1 || cols < 1 {
		return 0, 0, fmt.Errorf("invalid -tiles %q, want ROWSxCOLS", s)
	}
	return rows, cols, nil
}

// synthesize produces a surface with a regional slope, a few valleys, and a
// little noise, enough for the hydrology stages to find real channels.
func synthesize(rows, cols int, originX, originY, cell float64, rng *rand.Rand) *raster.Grid {
	g := raster.NewGrid(rows, cols, raster.NewTransform(originX, originY, cell, cell), domain.WGS84, -9999)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			slope := 0.5 * float64(r+c)
			valley := 20 * math.Abs(math.Sin(float64(c)/9.0))
			noise := rng.Float64() * 0.1
			g.Set(r, c, 1000+slope+valley+noise)
		}
	}
	return g
}

func writeIndex(dir string, ids []string) error {
	idx := tileIndex{}
	for _, id := range ids {
		idx.Tiles = append(idx.Tiles, tileEntry{ID: id, URL: "/tiles/" + id})
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "index.json")
	log.Printf("wrote %s (%d tiles)", path, len(ids))
	return os.WriteFile(path, data, 0600)
}

// serveTiles exposes the generated tiles over the same protocol the service
// consumes: /index lists every tile, /tiles/<id> serves the GeoTIFF.
func serveTiles(addr, dir string, ids []string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /index", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		idx := tileIndex{}
		for _, id := range ids {
			idx.Tiles = append(idx.Tiles, tileEntry{ID: id, URL: base + "/tiles/" + id})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(idx); err != nil {
			log.Printf("encode index: %v", err)
		}
	})
	mux.HandleFunc("GET /tiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		path := filepath.Join(dir, filepath.Base(id)+".tif")
		http.ServeFile(w, r, path)
	})

	log.Printf("serving %d tiles on %s", len(ids), addr)
	return http.ListenAndServe(addr, mux)
}
