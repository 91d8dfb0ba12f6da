package gpkg_test

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/terrain-analysis-service/internal/adapter/gpkg"
	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

func newWriter() *gpkg.Writer {
	return gpkg.NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path+"?mode=ro")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWriter_StreamNetworkLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_network.gpkg")
	net := domain.StreamNetwork{
		Lines: []orb.LineString{
			{{0, 0}, {1, 1}},
			{{1, 1}, {2, 0}},
		},
		CRS: domain.WGS84,
	}

	require.NoError(t, newWriter().WriteStreamNetwork(path, net))

	db := openDB(t, path)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM stream_network").Scan(&count))
	assert.Equal(t, 2, count)

	var dataType, geomType string
	var srsID int
	require.NoError(t, db.QueryRow(
		"SELECT data_type, srs_id FROM gpkg_contents WHERE table_name = 'stream_network'").
		Scan(&dataType, &srsID))
	assert.Equal(t, "features", dataType)
	assert.Equal(t, 4326, srsID)

	require.NoError(t, db.QueryRow(
		"SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = 'stream_network'").
		Scan(&geomType))
	assert.Equal(t, "LINESTRING", geomType)

	var minX, minY, maxX, maxY float64
	require.NoError(t, db.QueryRow(
		"SELECT min_x, min_y, max_x, max_y FROM gpkg_contents WHERE table_name = 'stream_network'").
		Scan(&minX, &minY, &maxX, &maxY))
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, 0.0, minY)
	assert.Equal(t, 2.0, maxX)
	assert.Equal(t, 1.0, maxY)
}

func TestWriter_GeometryBlobHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_network.gpkg")
	net := domain.StreamNetwork{
		Lines: []orb.LineString{{{0, 0}, {1, 1}}},
		CRS:   domain.WGS84,
	}
	require.NoError(t, newWriter().WriteStreamNetwork(path, net))

	db := openDB(t, path)
	var blob []byte
	require.NoError(t, db.QueryRow("SELECT geom FROM stream_network").Scan(&blob))

	require.Greater(t, len(blob), 8)
	assert.Equal(t, byte('G'), blob[0])
	assert.Equal(t, byte('P'), blob[1])
	assert.Equal(t, byte(0), blob[2], "version 0")
	assert.Equal(t, byte(0x01), blob[3], "little-endian header, no envelope")
	// SRS id 4326 little-endian.
	assert.Equal(t, []byte{0xE6, 0x10, 0x00, 0x00}, blob[4:8])
}

func TestWriter_PourPointsCarryClassification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pour_points.gpkg")
	points := []domain.PourPoint{
		{Point: orb.Point{100, 200}, Type: domain.Junction},
		{Point: orb.Point{300, 400}, Type: domain.Terminus},
	}

	require.NoError(t, newWriter().WritePourPoints(path, points, domain.CRS{EPSG: 32615, Name: "WGS 84 / UTM zone 15N"}))

	db := openDB(t, path)

	rows, err := db.Query("SELECT point_type FROM pour_points ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var types []string
	for rows.Next() {
		var pt string
		require.NoError(t, rows.Scan(&pt))
		types = append(types, pt)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"JUNCTION", "TERMINUS"}, types)

	var srsName string
	require.NoError(t, db.QueryRow(
		"SELECT srs_name FROM gpkg_spatial_ref_sys WHERE srs_id = 32615").Scan(&srsName))
	assert.Equal(t, "WGS 84 / UTM zone 15N", srsName)
}

func TestWriter_CatchmentsLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub_catchments.gpkg")
	polys := []orb.Polygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
	}

	require.NoError(t, newWriter().WriteCatchments(path, polys, domain.WGS84))

	db := openDB(t, path)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sub_catchments").Scan(&count))
	assert.Equal(t, 1, count)

	var geomType string
	require.NoError(t, db.QueryRow(
		"SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = 'sub_catchments'").
		Scan(&geomType))
	assert.Equal(t, "POLYGON", geomType)
}

func TestWriter_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_network.gpkg")
	w := newWriter()

	first := domain.StreamNetwork{Lines: []orb.LineString{{{0, 0}, {1, 1}}}, CRS: domain.WGS84}
	require.NoError(t, w.WriteStreamNetwork(path, first))

	second := domain.StreamNetwork{
		Lines: []orb.LineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}, {{4, 4}, {5, 5}}},
		CRS:   domain.WGS84,
	}
	require.NoError(t, w.WriteStreamNetwork(path, second))

	db := openDB(t, path)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM stream_network").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestWriter_UnknownCRSUsesUndefinedSRS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_network.gpkg")
	net := domain.StreamNetwork{Lines: []orb.LineString{{{0, 0}, {1, 1}}}}

	require.NoError(t, newWriter().WriteStreamNetwork(path, net))

	db := openDB(t, path)
	var srsID int
	require.NoError(t, db.QueryRow(
		"SELECT srs_id FROM gpkg_contents WHERE table_name = 'stream_network'").Scan(&srsID))
	assert.Equal(t, 0, srsID)
}
