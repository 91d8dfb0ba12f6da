// Command validate performs integrity checks over a completed project
// directory: raster frames and value ranges, GeoPackage metadata tables,
// and cross-layer consistency between the rasters and the vector outputs.
//
// Usage:
//
//	go run ./cmd/validate -project-dir ./projects/clear-creek
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/terrain-analysis-service/internal/config"
	"github.com/couchcryptid/terrain-analysis-service/internal/geotiff"
	"github.com/couchcryptid/terrain-analysis-service/internal/hydrology"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	projectDir := flag.String("project-dir", "", "project directory to validate")
	flag.Parse()

	if *projectDir == "" {
		flag.Usage()
		os.Exit(2)
	}
	paths := config.ResolvePaths(*projectDir)

	phases := []*phase{
		checkRasters(paths),
		checkLayer(paths.StreamNetwork, "stream_network", "LINESTRING"),
		checkLayer(paths.PourPoints, "pour_points", "POINT"),
		checkLayer(paths.SubCatchments, "sub_catchments", "POLYGON"),
		checkPourPointTypes(paths.PourPoints),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// checkRasters verifies the flow rasters agree on frame, direction codes
// are from the D8 set, and accumulation counts every valid cell at least
// once.
func checkRasters(paths config.Paths) *phase {
	p := &phase{name: "flow rasters"}

	fdirF, err := geotiff.Read(paths.FlowDirection)
	if err != nil {
		p.errorf("read %s: %v", paths.FlowDirection, err)
		return p
	}
	accF, err := geotiff.Read(paths.FlowAccumulation)
	if err != nil {
		p.errorf("read %s: %v", paths.FlowAccumulation, err)
		return p
	}
	if err := raster.CheckFrame(fdirF, accF); err != nil {
		p.errorf("flow rasters: %v", err)
		return p
	}

	valid := map[int32]bool{
		hydrology.DirE: true, hydrology.DirSE: true, hydrology.DirS: true,
		hydrology.DirSW: true, hydrology.DirW: true, hydrology.DirNW: true,
		hydrology.DirN: true, hydrology.DirNE: true, hydrology.DirOutlet: true,
	}
	for r := 0; r < fdirF.Rows; r++ {
		for c := 0; c < fdirF.Cols; c++ {
			if !fdirF.IsValid(r, c) {
				continue
			}
			code := int32(fdirF.At(r, c))
			if !valid[code] {
				p.errorf("cell (%d,%d): direction code %d is not a D8 code", r, c, code)
			}
			if accF.IsValid(r, c) && accF.At(r, c) < 1 {
				p.errorf("cell (%d,%d): accumulation %g below 1", r, c, accF.At(r, c))
			}
		}
	}
	return p
}

// checkLayer verifies a GeoPackage file carries consistent metadata rows and
// at least one feature. A missing file passes: empty results write no file.
func checkLayer(path, table, geomType string) *phase {
	p := &phase{name: table}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		p.errorf("open %s: %v", path, err)
		return p
	}
	defer db.Close()

	var dataType string
	if err := db.QueryRow(
		"SELECT data_type FROM gpkg_contents WHERE table_name = ?", table).Scan(&dataType); err != nil {
		p.errorf("gpkg_contents row for %s: %v", table, err)
		return p
	}
	if dataType != "features" {
		p.errorf("gpkg_contents data_type = %q, want features", dataType)
	}

	var gotType string
	if err := db.QueryRow(
		"SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = ?", table).Scan(&gotType); err != nil {
		p.errorf("gpkg_geometry_columns row for %s: %v", table, err)
		return p
	}
	if gotType != geomType {
		p.errorf("geometry type = %q, want %q", gotType, geomType)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		p.errorf("count %s: %v", table, err)
		return p
	}
	if count == 0 {
		p.errorf("%s exists but holds no features", path)
	}

	var blob []byte
	if err := db.QueryRow("SELECT geom FROM " + table + " LIMIT 1").Scan(&blob); err == nil {
		if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
			p.errorf("feature blob is not GeoPackage binary")
		}
	}
	return p
}

// checkPourPointTypes verifies every pour point carries a known
// classification.
func checkPourPointTypes(path string) *phase {
	p := &phase{name: "pour point classification"}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		p.errorf("open %s: %v", path, err)
		return p
	}
	defer db.Close()

	rows, err := db.Query("SELECT DISTINCT point_type FROM pour_points")
	if err != nil {
		p.errorf("query point types: %v", err)
		return p
	}
	defer rows.Close()

	for rows.Next() {
		var pt string
		if err := rows.Scan(&pt); err != nil {
			p.errorf("scan point type: %v", err)
			return p
		}
		if pt != "JUNCTION" && pt != "TERMINUS" {
			p.errorf("unknown point_type %q", pt)
		}
	}
	if err := rows.Err(); err != nil {
		p.errorf("iterate point types: %v", err)
	}
	return p
}
