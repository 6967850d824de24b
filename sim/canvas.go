package sim

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"
)

const labelSize = 14

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Canvas is what drivers draw a frame onto. Coordinates are canvas pixels with y pointing down.
type Canvas interface {
	Clear(c color.Color)
	Line(a, b r2.Point, width float64, c color.Color)
	Circle(center r2.Point, radius float64, c color.Color, filled bool)
	Text(s string, at r2.Point, c color.Color)
}

// ImageCanvas is a Canvas backed by an in-memory image.
type ImageCanvas struct {
	dc *gg.Context
}

// NewImageCanvas returns a blank canvas of the given size.
func NewImageCanvas(width, height int) *ImageCanvas {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: labelSize}))
	return &ImageCanvas{dc: dc}
}

// Clear fills the canvas.
func (ic *ImageCanvas) Clear(c color.Color) {
	ic.dc.SetColor(c)
	ic.dc.Clear()
}

// Line strokes a segment.
func (ic *ImageCanvas) Line(a, b r2.Point, width float64, c color.Color) {
	ic.dc.SetColor(c)
	ic.dc.SetLineWidth(width)
	ic.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	ic.dc.Stroke()
}

// Circle draws a disc or a ring.
func (ic *ImageCanvas) Circle(center r2.Point, radius float64, c color.Color, filled bool) {
	ic.dc.SetColor(c)
	ic.dc.DrawCircle(center.X, center.Y, radius)
	if filled {
		ic.dc.Fill()
		return
	}
	ic.dc.SetLineWidth(1)
	ic.dc.Stroke()
}

// Text writes s with its top-left corner at at.
func (ic *ImageCanvas) Text(s string, at r2.Point, c color.Color) {
	ic.dc.SetColor(c)
	ic.dc.DrawStringAnchored(s, at.X, at.Y, 0, 1)
}

// Image returns the current frame.
func (ic *ImageCanvas) Image() image.Image {
	return ic.dc.Image()
}

// SavePNG writes the current frame to path.
func (ic *ImageCanvas) SavePNG(path string) error {
	return ic.dc.SavePNG(path)
}

// palette holds the colors a frame is drawn with.
type palette struct {
	background color.Color
	joint      color.Color
	target     color.Color
	path       color.Color
	ghost      color.Color
	text       color.Color
	reach      color.Color
	linkFrom   colorful.Color
	linkTo     colorful.Color
}

var defaultPalette = palette{
	background: color.White,
	joint:      color.Black,
	target:     colorful.Hsv(0, 0.85, 0.9),
	path:       colorful.Hsv(120, 0.5, 0.7),
	ghost:      colorful.Hsv(0, 0, 0.85),
	text:       colorful.Hsv(0, 0, 0.2),
	reach:      colorful.Hsv(210, 0.15, 0.9),
	linkFrom:   colorful.Hsv(210, 0.8, 0.8),
	linkTo:     colorful.Hsv(30, 0.85, 0.95),
}

// link returns the color of link i of n, blended from the base link color to the tip link color.
func (p palette) link(i, n int) color.Color {
	if n < 2 {
		return p.linkFrom
	}
	return p.linkFrom.BlendLab(p.linkTo, float64(i)/float64(n-1)).Clamped()
}
