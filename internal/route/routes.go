package route

import (
	"net/http"
	"os"
	"path/filepath"

	"aerialdetect/internal/config"
	"aerialdetect/internal/handler"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/middleware"
	"aerialdetect/internal/repository"
	"aerialdetect/internal/service"
	"aerialdetect/internal/service/storage"
	"aerialdetect/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as {static}/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the session middleware. predictionRepo and history
// may be nil when the database is unavailable.
func SetupRoutes(ctrl *service.Controller, hub *websocket.HubService, cfg *config.Config, logger *logger.Logger,
	predictionRepo repository.PredictionRepository, history *storage.HistoryService) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Detection endpoints
	mux.HandleFunc("/api/models", handler.ModelsHandler(ctrl, logger))
	mux.HandleFunc("/api/upload", handler.UploadHandler(ctrl, cfg, logger))
	mux.HandleFunc("/api/upload/image", handler.UploadedImageHandler(ctrl))
	mux.HandleFunc("/api/predict", handler.PredictHandler(ctrl, logger))

	// Viewer endpoints
	mux.HandleFunc("/api/view", handler.ViewHandler(ctrl, logger))
	mux.HandleFunc("/api/view/image", handler.ViewImageHandler(ctrl, logger))
	mux.HandleFunc("/api/view/next", handler.NextHandler(ctrl, logger))
	mux.HandleFunc("/api/view/previous", handler.PreviousHandler(ctrl, logger))
	mux.HandleFunc("/api/view/goto", handler.GotoHandler(ctrl, logger))
	mux.HandleFunc("/api/ws", handler.ViewWebsocketHandler(hub, ctrl, logger))

	// History endpoints
	mux.HandleFunc("/api/history", handler.GetHistoryHandler(history, predictionRepo, logger))
	mux.HandleFunc("/api/history/stats", handler.HistoryStatsHandler(history, predictionRepo, logger))
	mux.HandleFunc("/api/history/clear", handler.ClearHistoryHandler(history, predictionRepo, logger))
	mux.HandleFunc("/api/history/{id}", handler.GetPredictionHandler(history, predictionRepo, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(logger, "info.log"))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(logger, "warning.log"))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(logger, "error.log"))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(logger, "info.log"))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(logger, "warning.log"))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(logger, "error.log"))

	// Automatic HTML handler mapping for example: /history -> {static}/history.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.SessionMiddleware(mux)
}
