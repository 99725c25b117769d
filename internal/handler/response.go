package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"aerialdetect/internal/dto"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps typed errors to a status code and a JSON error body.
func writeError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status, kind := classifyError(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Kind: kind}, logger)
}

func classifyError(err error) (int, string) {
	var uploadErr *model.UploadError
	var loadErr *model.ModelLoadError
	var inferenceErr *model.InferenceError

	switch {
	case errors.As(err, &uploadErr):
		return http.StatusBadRequest, "upload"
	case errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity, "model_load"
	case errors.As(err, &inferenceErr):
		return http.StatusUnprocessableEntity, "inference"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// allowMethod answers 405 unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
