// Package yolo decodes raw YOLOv8/v11 detection heads into pixel boxes.
// It has no OpenCV dependency so the math can be tested on its own.
package yolo

import (
	"fmt"
	"image"
	"math"
)

// Params controls decoding of one forward pass.
type Params struct {
	// ScaleX and ScaleY map network input pixels back to source pixels.
	ScaleX float64
	ScaleY float64
	// Width and Height are the source image size; boxes are clamped to it.
	Width  int
	Height int
	// Confidence is the minimum class score kept.
	Confidence float64
}

// Candidate is one box above the confidence threshold, before NMS.
type Candidate struct {
	Box     image.Rectangle
	ClassID int
	Score   float32
}

// Decode reads a [1, 4+nc, anchors] output laid out row-major in data.
// Rows 0..3 hold cx, cy, w, h in network pixels; the remaining rows hold
// one score per class. Candidates come back in anchor order.
func Decode(data []float32, dims []int, p Params) ([]Candidate, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]
	if rows < 5 {
		return nil, fmt.Errorf("output shape %v has no class rows", dims)
	}
	if len(data) < rows*anchors {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(data), dims, rows*anchors)
	}

	bounds := image.Rect(0, 0, p.Width, p.Height)
	var candidates []Candidate
	for a := 0; a < anchors; a++ {
		classID, score := -1, float32(0)
		for c := 4; c < rows; c++ {
			if s := data[c*anchors+a]; s > score {
				classID, score = c-4, s
			}
		}
		if classID < 0 || float64(score) < p.Confidence {
			continue
		}

		cx := float64(data[a])
		cy := float64(data[anchors+a])
		w := float64(data[2*anchors+a])
		h := float64(data[3*anchors+a])

		box := image.Rect(
			round((cx-w/2)*p.ScaleX),
			round((cy-h/2)*p.ScaleY),
			round((cx+w/2)*p.ScaleX),
			round((cy+h/2)*p.ScaleY),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		candidates = append(candidates, Candidate{Box: box, ClassID: classID, Score: score})
	}

	return candidates, nil
}

// Split returns the boxes and scores of candidates as parallel slices, the
// form NMS expects.
func Split(candidates []Candidate) ([]image.Rectangle, []float32) {
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Score
	}
	return boxes, scores
}

func round(v float64) int {
	return int(math.Round(v))
}
