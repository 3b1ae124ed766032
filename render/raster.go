package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Rasterize renders a composed SVG document into an RGBA image of the given
// size. Zero dimensions keep the document's own size.
func Rasterize(doc *etree.Document, width, height int) (image.Image, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("unable to serialize svg: %w", err)
	}

	icon, err := oksvg.ReadIconStream(&buf)
	if err != nil {
		return nil, fmt.Errorf("unable to parse svg: %w", err)
	}
	if width <= 0 || height <= 0 {
		width = int(icon.ViewBox.W)
		height = int(icon.ViewBox.H)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("svg has no usable dimensions")
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	icon.Draw(rasterx.NewDasher(width, height, rasterx.NewScannerGV(width, height, img, img.Bounds())), 1.0)
	return img, nil
}

// SavePNG rasterizes the document and writes it as PNG.
func SavePNG(doc *etree.Document, path string, width, height int) error {
	img, err := Rasterize(doc, width, height)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	return nil
}
