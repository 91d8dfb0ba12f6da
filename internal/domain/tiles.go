package domain

import "context"

// TileFetcher downloads the elevation tiles covering a bounding box into
// destDir and returns their paths. An empty result with a nil error means
// the source has no coverage for the region; errors indicate transient
// failures worth retrying.
type TileFetcher interface {
	FetchTiles(ctx context.Context, bbox BBox, resolutionM int, destDir string) ([]string, error)
}
