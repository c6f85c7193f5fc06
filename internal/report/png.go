package report

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const (
	glyphWidth  = 8 // inconsolata.Regular8x16 metrics
	glyphHeight = 16
	pngPadding  = 16
)

// WriteTablePNG rasterizes the comparison's fixed-width rendering to a PNG,
// the image-format export of the comparison table.
func WriteTablePNG(path string, c *Comparison) error {
	lines := c.Lines()

	width := 0
	for _, line := range lines {
		if len(line) > width {
			width = len(line)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0,
		width*glyphWidth+2*pngPadding,
		len(lines)*glyphHeight+2*pngPadding,
	))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: inconsolata.Regular8x16,
	}
	for i, line := range lines {
		d.Dot = fixed.P(pngPadding, pngPadding+(i+1)*glyphHeight-4)
		d.DrawString(line)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
