package handler

import (
	"net/http"
	"strconv"

	"aerialdetect/internal/dto"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
	"aerialdetect/internal/repository"
	"aerialdetect/internal/service/storage"
)

// GetHistoryHandler returns a filtered, paginated list of past predictions.
func GetHistoryHandler(history *storage.HistoryService, repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			http.Error(w, "History is disabled", http.StatusServiceUnavailable)
			return
		}
		if history != nil {
			history.Flush()
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 20)

		filter := &model.PredictionFilter{
			Model:     q.Get("model"),
			ClassName: q.Get("class"),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		predictions, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying predictions from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting predictions: %v", err)
			totalCount = len(predictions)
		}

		infos := make([]dto.PredictionInfo, 0, len(predictions))
		for _, p := range predictions {
			objects, err := repo.GetObjectsByPredictionID(p.ID)
			if err != nil {
				logger.Error("Error getting objects for prediction %d: %v", p.ID, err)
			}
			infos = append(infos, toPredictionInfo(p, objects))
		}

		writeJSON(w, http.StatusOK, dto.HistoryData{
			Predictions: infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// GetPredictionHandler returns one stored prediction with its detections.
func GetPredictionHandler(history *storage.HistoryService, repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			http.Error(w, "History is disabled", http.StatusServiceUnavailable)
			return
		}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Invalid prediction id", http.StatusBadRequest)
			return
		}
		if history != nil {
			history.Flush()
		}

		p, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error getting prediction %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if p == nil {
			http.Error(w, "Prediction not found", http.StatusNotFound)
			return
		}

		objects, err := repo.GetObjectsByPredictionID(id)
		if err != nil {
			logger.Error("Error getting objects for prediction %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if objects == nil {
			objects = []model.PredictionObject{}
		}

		writeJSON(w, http.StatusOK, dto.PredictionDetail{
			Prediction: toPredictionInfo(*p, objects),
			Detections: objects,
		}, logger)
	}
}

func toPredictionInfo(p model.Prediction, objects []model.PredictionObject) dto.PredictionInfo {
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.ClassName)
	}

	return dto.PredictionInfo{
		ID:          p.ID,
		Model:       p.Model,
		Filename:    p.Filename,
		Date:        p.Timestamp,
		TimeOfDay:   p.Timestamp,
		Width:       p.Width,
		Height:      p.Height,
		ObjectCount: p.ObjectCount,
		Objects:     names,
	}
}

// HistoryStatsHandler returns totals per model and the most detected classes.
func HistoryStatsHandler(history *storage.HistoryService, repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			http.Error(w, "History is disabled", http.StatusServiceUnavailable)
			return
		}
		if history != nil {
			history.Flush()
		}

		stats, err := repo.GetStats()
		if err != nil {
			logger.Error("Error reading prediction stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}

// ClearHistoryHandler deletes every stored prediction.
func ClearHistoryHandler(history *storage.HistoryService, repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if repo == nil {
			http.Error(w, "History is disabled", http.StatusServiceUnavailable)
			return
		}
		if history != nil {
			history.Flush()
		}

		if err := repo.DeleteAll(); err != nil {
			logger.Error("Error clearing history: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Prediction history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
