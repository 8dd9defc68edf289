package overview

import (
	"context"
	"image"
	"time"
)

// Grid describes the composite layout: the pixel size of one cell and the
// grid dimensions in cells. Rows are pixel height, cols are pixel width.
type Grid struct {
	CellRows int
	CellCols int
	Rows     int
	Cols     int
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int {
	return g.Rows * g.Cols
}

// Bounds returns the pixel rectangle of the full composite.
func (g Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Cols*g.CellCols, g.Rows*g.CellRows)
}

// FetchResult is the outcome of one source fetch. Image is nil when the
// source was unavailable; Err then holds the reason for logging only and
// never propagates past the fetcher boundary.
type FetchResult struct {
	Source   string
	Image    image.Image
	Err      error
	Duration time.Duration
}

// Available reports whether the fetch produced usable pixels.
func (r FetchResult) Available() bool {
	return r.Image != nil
}

// Frame is the composed overview for one cycle: the pixel buffer plus the
// UTC capture instant and the status line stamped onto it. Immutable once
// produced.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Status     string
}

// ImageFetcher retrieves one remote image within the timeout budget.
type ImageFetcher interface {
	Fetch(ctx context.Context, source string) FetchResult
}

// StatusProvider retrieves the telescope status line with the same timeout
// discipline; it returns StatusUnknown instead of failing.
type StatusProvider interface {
	Status(ctx context.Context) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
