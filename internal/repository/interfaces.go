package repository

import (
	"aerialdetect/internal/model"
)

// PredictionRepository defines the interface for prediction history operations.
type PredictionRepository interface {
	// Create operations
	Record(p *model.Prediction, objects []model.PredictionObject) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Prediction, error)
	GetAll(filter *model.PredictionFilter) ([]model.Prediction, error)
	GetTotalCount(filter *model.PredictionFilter) (int, error)
	GetObjectsByPredictionID(predictionID int64) ([]model.PredictionObject, error)
	GetStats() (*model.PredictionStats, error)

	// Delete operations
	DeleteAll() error
}
