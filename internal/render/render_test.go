package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"aerialdetect/internal/model"
)

// createTestImage creates a gradient image so copies are easy to tell apart.
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func newResultSet(rects ...image.Rectangle) *model.ResultSet {
	src := createTestImage(200, 150)
	composite := createTestImage(200, 150)
	composite.Set(0, 0, color.RGBA{255, 255, 255, 255})

	detections := make([]model.Detection, len(rects))
	for i, r := range rects {
		detections[i] = model.Detection{Rect: r, ClassID: i % 2, Confidence: 0.8}
	}
	return &model.ResultSet{
		Source:     src,
		Composite:  composite,
		Detections: detections,
		ClassNames: model.ClassNameMap{0: "car", 1: "truck"},
	}
}

func TestRender_AllView(t *testing.T) {
	rs := newResultSet(image.Rect(10, 20, 50, 60), image.Rect(100, 40, 140, 90), image.Rect(5, 100, 30, 140))

	img, caption := Render(rs, 0)

	if img != rs.Composite {
		t.Error("All view should return the composite image unchanged")
	}
	if caption != "Showing all 3 detected objects." {
		t.Errorf("Unexpected caption: %q", caption)
	}
}

func TestRender_ZeroDetections(t *testing.T) {
	rs := newResultSet()

	img, caption := Render(rs, 0)

	if img != rs.Composite {
		t.Error("Zero detections should show the composite")
	}
	if caption != "Showing all 0 detected objects." {
		t.Errorf("Unexpected caption: %q", caption)
	}
}

func TestRender_SingleView(t *testing.T) {
	rs := newResultSet(image.Rect(10, 20, 50, 60), image.Rect(100, 40, 140, 90))

	img, caption := Render(rs, 2)

	if caption != "Object 2/2" {
		t.Errorf("Unexpected caption: %q", caption)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("Expected *image.NRGBA, got %T", img)
	}

	// Rectangle corners of the second detection are green.
	for _, p := range []image.Point{{100, 40}, {139, 40}, {100, 89}, {139, 89}, {101, 41}} {
		if c := nrgba.NRGBAAt(p.X, p.Y); c != boxColor {
			t.Errorf("Expected box color at %v, got %v", p, c)
		}
	}

	// The first detection is not drawn.
	if c := nrgba.NRGBAAt(10, 20); c == boxColor {
		t.Error("Only the selected detection should be drawn")
	}

	// Interior is untouched.
	if got, want := nrgba.NRGBAAt(120, 65), color.NRGBAModel.Convert(rs.Source.At(120, 65)); got != want {
		t.Errorf("Interior pixel changed: got %v, want %v", got, want)
	}
}

func TestRender_LabelAboveBox(t *testing.T) {
	rs := newResultSet(image.Rect(20, 60, 80, 100))

	img, _ := Render(rs, 1)
	nrgba := img.(*image.NRGBA)

	ascent := labelFace.Metrics().Ascent.Ceil()
	baseline := 60 - LabelOffset
	if !hasColorIn(nrgba, labelColor, image.Rect(20, baseline-ascent, 200, baseline+1)) {
		t.Error("Expected label pixels just above the rectangle")
	}
}

func TestRender_LabelClampedAtTopEdge(t *testing.T) {
	rs := newResultSet(image.Rect(30, 0, 90, 40))

	img, _ := Render(rs, 1)
	nrgba := img.(*image.NRGBA)

	ascent := labelFace.Metrics().Ascent.Ceil()
	descent := labelFace.Metrics().Descent.Ceil()
	if !hasColorIn(nrgba, labelColor, image.Rect(30, 0, 200, ascent+descent)) {
		t.Error("Label should be pushed inside the canvas when the box touches the top edge")
	}
}

func TestRender_LabelClampedAtLeftEdge(t *testing.T) {
	rs := newResultSet(image.Rect(-15, 50, 40, 90))
	rs.Detections[0].Rect = image.Rect(-15, 50, 40, 90)

	img, _ := Render(rs, 1)
	nrgba := img.(*image.NRGBA)

	if !hasColorIn(nrgba, labelColor, image.Rect(0, 20, 14, 41)) {
		t.Error("Label should start at the left edge when the box starts off-canvas")
	}
}

func TestRender_RepeatIsPixelIdentical(t *testing.T) {
	rs := newResultSet(image.Rect(10, 20, 50, 60), image.Rect(100, 40, 140, 90))
	before := append([]byte(nil), rs.Source.(*image.RGBA).Pix...)

	first, _ := Render(rs, 1)
	second, _ := Render(rs, 1)

	a := first.(*image.NRGBA)
	b := second.(*image.NRGBA)
	if a == b {
		t.Fatal("Each render should produce a fresh image")
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("Rendering the same state twice should be pixel identical")
	}
	if !bytes.Equal(before, rs.Source.(*image.RGBA).Pix) {
		t.Error("Render must not mutate the source image")
	}
}

func TestRender_OutOfRangeCursor(t *testing.T) {
	rs := newResultSet(image.Rect(10, 20, 50, 60))

	for _, cursor := range []int{-1, 2, 50} {
		img, caption := Render(rs, cursor)
		if img != rs.Composite || caption != "Showing all 1 detected objects." {
			t.Errorf("Cursor %d should fall back to the all view, got caption %q", cursor, caption)
		}
	}
}

func TestRender_NilResultSet(t *testing.T) {
	img, caption := Render(nil, 0)
	if img != nil || caption != "" {
		t.Errorf("Expected nothing for a nil result set, got %v %q", img, caption)
	}
}

func TestSingle_OffsetSource(t *testing.T) {
	full := createTestImage(100, 100)
	sub := full.SubImage(image.Rect(20, 20, 80, 80))
	d := model.Detection{Rect: image.Rect(30, 40, 50, 60)}

	out := Single(sub, d, "car 0.50")

	if out.Bounds().Min != (image.Point{}) {
		t.Fatalf("Expected copy rebased at origin, got %v", out.Bounds())
	}
	if c := out.NRGBAAt(10, 20); c != boxColor {
		t.Errorf("Expected box corner at rebased (10,20), got %v", c)
	}
}

func hasColorIn(img *image.NRGBA, c color.NRGBA, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y) == c {
				return true
			}
		}
	}
	return false
}
