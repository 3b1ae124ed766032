package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"scrolly/scene"
)

// imageLayer embeds the step's image scaled to fit the drawable area. A
// missing or unreadable image degrades to a placeholder.
func (c *Composer) imageLayer(g *etree.Element, snap scene.Snapshot) {
	step := snap.Step
	if step == nil || step.Image == nil || !step.Image.Visible {
		return
	}

	area := c.canvas.Drawable()
	img, err := c.loadImage(step.Image.Source)
	if err != nil {
		c.log.Warn("Image unavailable", zap.String("src", step.Image.Source), zap.Error(err))
		placeholder(g, area, c.theme, "image unavailable")
		return
	}

	fitted := imaging.Fit(img, int(area.Width), int(area.Height), imaging.Lanczos)
	uri, err := dataURI(fitted)
	if err != nil {
		c.log.Warn("Unable to encode image", zap.String("src", step.Image.Source), zap.Error(err))
		placeholder(g, area, c.theme, "image unavailable")
		return
	}

	w, h := float64(fitted.Bounds().Dx()), float64(fitted.Bounds().Dy())
	el := g.CreateElement("image")
	el.CreateAttr("x", ftoa(area.X+(area.Width-w)/2))
	el.CreateAttr("y", ftoa(area.Y+(area.Height-h)/2))
	el.CreateAttr("width", ftoa(w))
	el.CreateAttr("height", ftoa(h))
	el.CreateAttr("xlink:href", uri)
	if step.Image.Alt != "" {
		el.CreateAttr("aria-label", step.Image.Alt)
	}
}

// loadImage reads and decodes an image source, verifying the content really
// is an image before handing it to the decoder.
func (c *Composer) loadImage(src string) (image.Image, error) {
	full := src
	if !filepath.IsAbs(full) {
		full = filepath.Join(c.assetDir, full)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("unable to read image: %w", err)
	}
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("source is not an image (detected %s)", kind.MIME.Value)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	return img, nil
}

func dataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
