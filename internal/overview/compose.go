package overview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// OverlayTimeFormat is the UTC timestamp stamped onto every composite.
const OverlayTimeFormat = "2006-01-02 15:04:05 UTC"

// FileTimeFormat names auto-generated single captures.
const FileTimeFormat = "20060102_150405"

// overlayMargin keeps the annotations off the composite edge, in pixels.
const overlayMargin = 8

// labelColor matches the red annotations of the original overview images.
var labelColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}

// Compose arranges the tiles row-major into the grid, fills missing or
// unavailable cells with black, and stamps the timestamp and status onto the
// bottom strip. Tiles that do not match the cell size are resized exact-fit;
// aspect ratio is not preserved. The result is deterministic for identical
// inputs.
func Compose(tiles []image.Image, grid Grid, timestamp time.Time, status string) *image.RGBA {
	dst := image.NewRGBA(grid.Bounds())
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	for i := 0; i < grid.Cells() && i < len(tiles); i++ {
		tile := tiles[i]
		if tile == nil {
			continue
		}
		row := i / grid.Cols
		col := i % grid.Cols
		cell := image.Rect(
			col*grid.CellCols,
			row*grid.CellRows,
			(col+1)*grid.CellCols,
			(row+1)*grid.CellRows,
		)
		xdraw.ApproxBiLinear.Scale(dst, cell, tile, tile.Bounds(), xdraw.Src, nil)
	}

	stamp := timestamp.UTC().Format(OverlayTimeFormat)
	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()

	drawLabel(dst, stamp, overlayMargin, height-overlayMargin)
	statusWidth := font.MeasureString(inconsolata.Regular8x16, status).Ceil()
	drawLabel(dst, status, width-overlayMargin-statusWidth, height-overlayMargin)

	return dst
}

func drawLabel(dst *image.RGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: inconsolata.Regular8x16,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// EncodeJPEG serializes the composite. It is a pure step: no further
// cropping or scaling happens here.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
