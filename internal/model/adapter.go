package model

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// NewResultSet normalizes raw detector output into a ResultSet. Detector
// order is kept; boxes are canonicalized and clipped to the source bounds and
// boxes with no area left are dropped.
func NewResultSet(out *DetectorOutput, modelID string) (*ResultSet, error) {
	if out == nil {
		return nil, &InferenceError{Model: modelID, Err: errors.New("detector returned no output")}
	}
	if out.Source == nil || out.Composite == nil {
		return nil, &InferenceError{Model: modelID, Err: errors.New("detector returned no image")}
	}
	n := len(out.Rectangles)
	if len(out.ClassIDs) != n || len(out.Confidences) != n {
		return nil, &InferenceError{Model: modelID, Err: fmt.Errorf(
			"mismatched detector output: %d rectangles, %d class ids, %d confidences",
			n, len(out.ClassIDs), len(out.Confidences))}
	}

	bounds := out.Source.Bounds()
	detections := make([]Detection, 0, n)
	for i, r := range out.Rectangles {
		rect := r.Canon().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		detections = append(detections, Detection{
			Rect:       rect,
			ClassID:    out.ClassIDs[i],
			Confidence: clampUnit(out.Confidences[i]),
		})
	}

	names := out.ClassNames
	if names == nil {
		names = ClassNameMap{}
	}

	return &ResultSet{
		Source:     out.Source,
		Composite:  out.Composite,
		Detections: detections,
		ClassNames: names,
		Model:      modelID,
		CreatedAt:  time.Now(),
	}, nil
}

// Rect returns the source bounds of a result set, or an empty rectangle.
func (rs *ResultSet) Rect() image.Rectangle {
	if rs == nil || rs.Source == nil {
		return image.Rectangle{}
	}
	return rs.Source.Bounds()
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
