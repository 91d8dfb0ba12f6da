// Package gpkg writes the pipeline's vector outputs as GeoPackage files:
// one file per layer, readable by QGIS and GDAL. Only the feature subset of
// the GeoPackage format is produced; no extensions, no spatial index.
package gpkg

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// gpkgApplicationID is the magic "GPKG" stamped into the SQLite header.
const gpkgApplicationID = 0x47504B47

const wgs84Definition = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

// Writer persists vector layers as single-layer GeoPackage files. An
// existing file at the target path is replaced.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteStreamNetwork writes the extracted stream reaches as a LINESTRING
// layer named stream_network.
func (w *Writer) WriteStreamNetwork(path string, net domain.StreamNetwork) error {
	feats := make([]feature, len(net.Lines))
	for i, line := range net.Lines {
		feats[i] = feature{geom: line}
	}
	return w.writeLayer(path, "stream_network", "LINESTRING", net.CRS, nil, feats)
}

// WritePourPoints writes pour points as a POINT layer named pour_points
// with a point_type attribute carrying the classification.
func (w *Writer) WritePourPoints(path string, points []domain.PourPoint, crs domain.CRS) error {
	feats := make([]feature, len(points))
	for i, pp := range points {
		feats[i] = feature{geom: pp.Point, attrs: []any{string(pp.Type)}}
	}
	cols := []column{{name: "point_type", sqlType: "TEXT NOT NULL"}}
	return w.writeLayer(path, "pour_points", "POINT", crs, cols, feats)
}

// WriteCatchments writes delineated drainage areas as a POLYGON layer named
// sub_catchments.
func (w *Writer) WriteCatchments(path string, polys []orb.Polygon, crs domain.CRS) error {
	feats := make([]feature, len(polys))
	for i, poly := range polys {
		feats[i] = feature{geom: poly}
	}
	return w.writeLayer(path, "sub_catchments", "POLYGON", crs, nil, feats)
}

type column struct {
	name    string
	sqlType string
}

type feature struct {
	geom  orb.Geometry
	attrs []any
}

func (w *Writer) writeLayer(path, table, geomType string, crs domain.CRS, extra []column, feats []feature) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gpkg: replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return fmt.Errorf("gpkg: open %s: %w", path, err)
	}
	defer db.Close()
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)

	srsID := int32(0)
	if crs.Known() {
		srsID = int32(crs.EPSG)
	}

	if err := createSchema(db, table, geomType, srsID, crs, extra); err != nil {
		return fmt.Errorf("gpkg: create %s: %w", path, err)
	}
	if err := insertFeatures(db, table, srsID, extra, feats); err != nil {
		return fmt.Errorf("gpkg: populate %s: %w", path, err)
	}
	if err := registerContents(db, table, srsID, feats); err != nil {
		return fmt.Errorf("gpkg: register %s: %w", path, err)
	}

	w.logger.Info("geopackage layer written", "path", path, "layer", table, "features", len(feats))
	return nil
}

func createSchema(db *sql.DB, table, geomType string, srsID int32, crs domain.CRS, extra []column) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID),
		"PRAGMA user_version = 10300",
		`CREATE TABLE gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE TABLE gpkg_contents (
			table_name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE,
			max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
	}

	featureCols := "id INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB"
	for _, c := range extra {
		featureCols += fmt.Sprintf(", %s %s", c.name, c.sqlType)
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s)", table, featureCols))

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	const insertSRS = `INSERT INTO gpkg_spatial_ref_sys
		(srs_name, srs_id, organization, organization_coordsys_id, definition)
		VALUES (?, ?, ?, ?, ?)`
	srsRows := [][]any{
		{"Undefined cartesian SRS", -1, "NONE", -1, "undefined"},
		{"Undefined geographic SRS", 0, "NONE", 0, "undefined"},
	}
	if srsID == int32(domain.WGS84.EPSG) {
		srsRows = append(srsRows, []any{"WGS 84", srsID, "EPSG", srsID, wgs84Definition})
	} else if srsID > 0 {
		srsRows = append(srsRows, []any{crs.Name, srsID, "EPSG", srsID, fmt.Sprintf("EPSG:%d", srsID)})
	}
	for _, row := range srsRows {
		if _, err := db.Exec(insertSRS, row...); err != nil {
			return err
		}
	}

	_, err := db.Exec(`INSERT INTO gpkg_geometry_columns
		(table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', ?, ?, 0, 0)`, table, geomType, srsID)
	return err
}

func insertFeatures(db *sql.DB, table string, srsID int32, extra []column, feats []feature) error {
	cols, marks := "geom", "?"
	for _, c := range extra {
		cols += ", " + c.name
		marks += ", ?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, marks)

	for _, f := range feats {
		blob, err := geometryBlob(f.geom, srsID)
		if err != nil {
			return err
		}
		args := append([]any{blob}, f.attrs...)
		if _, err := db.Exec(stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

func registerContents(db *sql.DB, table string, srsID int32, feats []feature) error {
	var args []any
	if len(feats) == 0 {
		args = []any{table, table, domain.Now().UTC().Format(time.RFC3339), nil, nil, nil, nil, srsID}
	} else {
		b := feats[0].geom.Bound()
		for _, f := range feats[1:] {
			b = b.Union(f.geom.Bound())
		}
		args = []any{table, table, domain.Now().UTC().Format(time.RFC3339),
			b.Min[0], b.Min[1], b.Max[0], b.Max[1], srsID}
	}
	_, err := db.Exec(`INSERT INTO gpkg_contents
		(table_name, data_type, identifier, description, last_change, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, '', ?, ?, ?, ?, ?, ?)`, args...)
	return err
}

// geometryBlob wraps WKB in the GeoPackage binary header: magic "GP",
// version 0, little-endian flags with no envelope, then the SRS id.
func geometryBlob(g orb.Geometry, srsID int32) ([]byte, error) {
	payload, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}
	header := make([]byte, 8, 8+len(payload))
	header[0], header[1] = 'G', 'P'
	header[2] = 0
	header[3] = 0x01
	binary.LittleEndian.PutUint32(header[4:], uint32(srsID))
	return append(header, payload...), nil
}
