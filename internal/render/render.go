// Package render turns a result set and a pager cursor into the image and
// caption shown to the user. Rendering is pure: the result set is never
// modified and the same inputs always give the same pixels.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"aerialdetect/internal/model"
)

const (
	// BoxThickness is the stroke width of a single-object rectangle.
	BoxThickness = 2
	// LabelOffset is the distance from the label baseline to the rectangle top.
	LabelOffset = 10
)

var (
	boxColor   = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	labelColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	labelFace  = basicfont.Face7x13
)

// Render returns the image and caption for cursor over rs. Cursor 0 is the
// composite view; 1..N draws detection cursor-1 on a copy of the source.
// A cursor outside [0, N] renders the composite view.
func Render(rs *model.ResultSet, cursor int) (image.Image, string) {
	if rs == nil {
		return nil, ""
	}

	if cursor <= 0 || cursor > rs.Len() {
		return rs.Composite, Caption(rs, cursor)
	}

	d := rs.Detections[cursor-1]
	return Single(rs.Source, d, rs.Label(d)), Caption(rs, cursor)
}

// Caption returns the caption Render would produce without drawing anything.
func Caption(rs *model.ResultSet, cursor int) string {
	total := rs.Len()
	if cursor <= 0 || cursor > total {
		return AllCaption(total)
	}
	return fmt.Sprintf("Object %d/%d", cursor, total)
}

// AllCaption is the caption of the composite view.
func AllCaption(total int) string {
	return fmt.Sprintf("Showing all %d detected objects.", total)
}

// Single draws one detection with its label on a fresh copy of src.
func Single(src image.Image, d model.Detection, label string) *image.NRGBA {
	// Clone rebases the copy at the origin.
	rect := d.Rect.Sub(src.Bounds().Min)

	dst := imaging.Clone(src)
	drawRect(dst, rect, boxColor, BoxThickness)
	drawLabel(dst, label, rect.Min, labelColor)
	return dst
}

// drawRect strokes r inward with the given thickness, skipping pixels
// outside the image.
func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, thickness int) {
	bounds := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(bounds) {
			img.SetNRGBA(x, y, c)
		}
	}

	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			set(x, y1+t)
			set(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			set(x1+t, y)
			set(x2-t, y)
		}
	}
}

// drawLabel writes text with its baseline LabelOffset pixels above anchor.
// The baseline is pushed down when the glyphs would cross the top edge and
// the start is pushed right when it would cross the left edge.
func drawLabel(img *image.NRGBA, text string, anchor image.Point, c color.NRGBA) {
	bounds := img.Bounds()
	ascent := labelFace.Metrics().Ascent.Ceil()

	x := anchor.X
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	y := anchor.Y - LabelOffset
	if y-ascent < bounds.Min.Y {
		y = bounds.Min.Y + ascent
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
