package model

import (
	"fmt"
	"image"
	"time"
)

// Detection is one predicted object: a pixel rectangle (Min = x1,y1 and
// Max = x2,y2, x1<x2 and y1<y2), a class id and a confidence in [0,1].
type Detection struct {
	Rect       image.Rectangle `json:"rect"`
	ClassID    int             `json:"classId"`
	Confidence float64         `json:"confidence"`
}

// ClassNameMap maps class ids to display names.
type ClassNameMap map[int]string

// Name returns the display name for id, or "class<id>" when unknown.
func (m ClassNameMap) Name(id int) string {
	if name, ok := m[id]; ok {
		return name
	}
	return fmt.Sprintf("class%d", id)
}

// ResultSet bundles everything produced by one detector call.
// Composite and Detections always come from the same call.
type ResultSet struct {
	Source     image.Image
	Composite  image.Image
	Detections []Detection
	ClassNames ClassNameMap
	Model      string
	CreatedAt  time.Time
}

// Len returns the number of detections, zero for a nil set.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Detections)
}

// Label is the text burned next to a single detection, e.g. "car 0.87".
func (rs *ResultSet) Label(d Detection) string {
	return fmt.Sprintf("%s %.2f", rs.ClassNames.Name(d.ClassID), d.Confidence)
}

// DetectorOutput is the raw detector result before normalization. The three
// slices are parallel: entry i of each describes the same object.
type DetectorOutput struct {
	Rectangles  []image.Rectangle
	ClassIDs    []int
	Confidences []float64
	Source      image.Image
	Composite   image.Image
	ClassNames  ClassNameMap
}
