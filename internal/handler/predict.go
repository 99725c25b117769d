package handler

import (
	"io"
	"net/http"
	"strconv"

	"aerialdetect/internal/config"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/middleware"
	"aerialdetect/internal/model"
	"aerialdetect/internal/service"

	"github.com/disintegration/imaging"
)

// multipartMemory is how much of a multipart form is kept in memory.
const multipartMemory = 32 << 20

// UploadHandler accepts the multipart field "image" as the session's pending upload.
func UploadHandler(ctrl *service.Controller, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		// Body limit is the file limit plus 1 MB of multipart envelope.
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes()+1<<20)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			writeError(w, &model.UploadError{Reason: "invalid upload form", Err: err}, logger)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, &model.UploadError{Reason: "missing image field", Err: err}, logger)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, &model.UploadError{Reason: "could not read file", Err: err}, logger)
			return
		}

		view, err := ctrl.Upload(middleware.SessionID(r), header.Filename, data)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view, logger)
	}
}

// UploadedImageHandler serves the original bytes of the pending upload.
func UploadedImageHandler(ctrl *service.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := ctrl.UploadedImage(middleware.SessionID(r))
		if err != nil {
			http.Error(w, "No image uploaded", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", upload.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(upload.Data)
	}
}

// PredictHandler runs the model named by the form field "model" on the pending upload.
func PredictHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		view, err := ctrl.Predict(middleware.SessionID(r), r.FormValue("model"))
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view, logger)
	}
}

// NextHandler advances to the next object.
func NextHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Next(middleware.SessionID(r)), logger)
	}
}

// PreviousHandler goes back to the previous object.
func PreviousHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Previous(middleware.SessionID(r)), logger)
	}
}

// GotoHandler jumps to the cursor in the form field "index" (0 shows all).
func GotoHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		index, err := strconv.Atoi(r.FormValue("index"))
		if err != nil {
			http.Error(w, "Index must be an integer", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Goto(middleware.SessionID(r), index), logger)
	}
}

// ViewHandler returns the current caption, cursor and image URL.
func ViewHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.View(middleware.SessionID(r)), logger)
	}
}

// ViewImageHandler renders the current view as PNG.
func ViewImageHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := ctrl.Image(middleware.SessionID(r))
		if err != nil {
			http.Error(w, "No prediction available", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			logger.Error("Failed to encode view image: %v", err)
		}
	}
}

// ModelsHandler lists the selectable models.
func ModelsHandler(ctrl *service.Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Models(), logger)
	}
}
