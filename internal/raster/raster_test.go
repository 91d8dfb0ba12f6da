package raster_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_CellCenterRoundTrip(t *testing.T) {
	tr := raster.NewTransform(-90.0, 31.0, 0.001, 0.001)

	for _, cell := range [][2]int{{0, 0}, {3, 7}, {99, 0}} {
		x, y := tr.CellCenter(cell[0], cell[1])
		row, col := tr.CellOf(x, y)
		assert.Equal(t, cell[0], row)
		assert.Equal(t, cell[1], col)
	}
}

func TestTransform_Corner(t *testing.T) {
	tr := raster.NewTransform(100.0, 200.0, 10, 10)

	x, y := tr.Corner(0, 0)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 200.0, y)

	x, y = tr.Corner(2, 3)
	assert.Equal(t, 130.0, x)
	assert.Equal(t, 180.0, y)
}

func TestGrid_NoData(t *testing.T) {
	tr := raster.NewTransform(0, 0, 1, 1)
	g := raster.NewGrid(2, 2, tr, domain.WGS84, -9999)

	assert.False(t, g.IsValid(0, 0))
	g.Set(0, 0, 12.5)
	assert.True(t, g.IsValid(0, 0))
	assert.Equal(t, 12.5, g.At(0, 0))
}

func TestGrid_NaNNoData(t *testing.T) {
	tr := raster.NewTransform(0, 0, 1, 1)
	g := raster.NewGrid(1, 1, tr, domain.WGS84, math.NaN())

	assert.False(t, g.IsValid(0, 0))
	g.Set(0, 0, 0)
	assert.True(t, g.IsValid(0, 0))
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	tr := raster.NewTransform(0, 0, 1, 1)
	g := raster.NewGrid(2, 2, tr, domain.WGS84, -9999)
	g.Set(1, 1, 5)

	c := g.Clone()
	c.Set(1, 1, 9)

	assert.Equal(t, 5.0, g.At(1, 1))
	assert.Equal(t, 9.0, c.At(1, 1))
}

func TestCheckFrame(t *testing.T) {
	tr := raster.NewTransform(0, 0, 1, 1)
	a := raster.NewGrid(2, 3, tr, domain.WGS84, -9999)
	b := raster.NewIntGrid(2, 3, tr, domain.WGS84, -1)
	require.NoError(t, raster.CheckFrame(a, b))

	c := raster.NewIntGrid(3, 2, tr, domain.WGS84, -1)
	assert.Error(t, raster.CheckFrame(a, c))
}
