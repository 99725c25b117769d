package model

import "time"

// Prediction is one stored predict action.
type Prediction struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Model       string    `json:"model"`
	Filename    string    `json:"filename"`
	Timestamp   time.Time `json:"timestamp"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ObjectCount int       `json:"object_count"`
}

// PredictionObject is one detection stored for a prediction.
type PredictionObject struct {
	ID           int64   `json:"id"`
	PredictionID int64   `json:"prediction_id"`
	ClassID      int     `json:"class_id"`
	ClassName    string  `json:"class_name"`
	X1           int     `json:"x1"`
	Y1           int     `json:"y1"`
	X2           int     `json:"x2"`
	Y2           int     `json:"y2"`
	Confidence   float64 `json:"confidence"`
}

// PredictionFilter narrows history queries.
type PredictionFilter struct {
	Model     string
	ClassName string
	SessionID string
	Limit     int
	Offset    int
}

// PredictionStats summarizes stored history.
type PredictionStats struct {
	TotalPredictions int            `json:"total_predictions"`
	TotalObjects     int            `json:"total_objects"`
	PerModel         map[string]int `json:"per_model"`
	ClassCounts      map[string]int `json:"class_counts"`
}

// NewPredictionObjects flattens a result set into storable rows.
func NewPredictionObjects(rs *ResultSet) []PredictionObject {
	objects := make([]PredictionObject, 0, rs.Len())
	for _, d := range rs.Detections {
		objects = append(objects, PredictionObject{
			ClassID:    d.ClassID,
			ClassName:  rs.ClassNames.Name(d.ClassID),
			X1:         d.Rect.Min.X,
			Y1:         d.Rect.Min.Y,
			X2:         d.Rect.Max.X,
			Y2:         d.Rect.Max.Y,
			Confidence: d.Confidence,
		})
	}
	return objects
}
