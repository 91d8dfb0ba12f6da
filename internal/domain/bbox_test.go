package domain_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBBox(t *testing.T) {
	b, err := domain.ParseBBox("-90.0, 30.0, -89.0, 31.0")
	require.NoError(t, err)
	assert.Equal(t, domain.BBox{MinLon: -90, MinLat: 30, MaxLon: -89, MaxLat: 31}, b)
}

func TestParseBBox_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few components", "-90,30,-89"},
		{"not numeric", "-90,30,-89,abc"},
		{"min equals max", "-90,30,-90,31"},
		{"lat out of range", "-90,30,-89,95"},
		{"lon out of range", "-190,30,-89,31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseBBox(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestRegionKey_StableFormatting(t *testing.T) {
	a := domain.BBox{MinLon: -90, MinLat: 30, MaxLon: -89, MaxLat: 31}
	b := domain.BBox{MinLon: -90.0000001, MinLat: 30, MaxLon: -89, MaxLat: 31}

	// Sub-precision noise must not split cache entries.
	assert.Equal(t, a.RegionKey(10), b.RegionKey(10))
	assert.NotEqual(t, a.RegionKey(10), a.RegionKey(30))
}

func TestGenerateRunID_Deterministic(t *testing.T) {
	bbox := domain.BBox{MinLon: -90, MinLat: 30, MaxLon: -89, MaxLat: 31}
	at := time.Date(2026, 2, 11, 18, 0, 0, 0, time.UTC)

	id1 := domain.GenerateRunID(bbox, 10, at)
	id2 := domain.GenerateRunID(bbox, 10, at)
	require.Equal(t, id1, id2)
	assert.Len(t, id1, 16)

	other := domain.GenerateRunID(bbox, 10, at.Add(time.Second))
	assert.NotEqual(t, id1, other)
}
