package dto

import (
	"encoding/json"
	"time"
)

// PredictionInfo is one history row with its detected class names.
type PredictionInfo struct {
	ID          int64     `json:"id"`
	Model       string    `json:"model"`
	Filename    string    `json:"filename"`
	Date        time.Time `json:"date"`
	TimeOfDay   time.Time `json:"timeOfDay"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ObjectCount int       `json:"objectCount"`
	Objects     []string  `json:"objects"`
}

// MarshalJSON customizes JSON output for PredictionInfo to format date and time-of-day.
func (p PredictionInfo) MarshalJSON() ([]byte, error) {
	type Alias PredictionInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(p),
	})
}
