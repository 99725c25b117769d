package app

import (
	"fmt"
	"net/http"
	"time"

	"aerialdetect/internal/config"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/repository"
	"aerialdetect/internal/repository/sqlite"
	"aerialdetect/internal/route"
	"aerialdetect/internal/service"
	"aerialdetect/internal/service/ai"
	"aerialdetect/internal/service/storage"
	"aerialdetect/internal/service/websocket"
	"aerialdetect/internal/session"
)

// SessionSweepInterval is how often idle sessions are evicted.
const SessionSweepInterval = time.Minute

type App struct {
	config         *config.Config
	logger         *logger.Logger
	db             *sqlite.DB
	predictionRepo repository.PredictionRepository
	history        *storage.HistoryService
	detector       *ai.DetectorService
	hubService     *websocket.HubService
	sessions       *session.Manager
	controller     *service.Controller
	stop           chan struct{}
}

// NewApp loads the configuration and wires every service. A missing or
// broken database only disables prediction history.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{
		config:     cfg,
		logger:     log,
		detector:   ai.NewDetectorService(cfg, log),
		hubService: websocket.NewHubService(log),
		sessions:   session.NewManager(time.Duration(cfg.SessionTTL) * time.Minute),
		stop:       make(chan struct{}),
	}

	var recorder service.HistoryRecorder
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Warning("Prediction history disabled: %v", err)
	} else {
		a.db = db
		a.predictionRepo = sqlite.NewPredictionRepository(db)
		a.history = storage.NewHistoryService(a.predictionRepo, log)
		recorder = a.history
	}

	a.controller = service.NewController(cfg, log, a.sessions, a.detector, a.hubService, recorder)
	return a, nil
}

func (a *App) Run() error {
	// Start background services
	go a.hubService.Run()
	if a.history != nil {
		go a.history.Run(a.stop)
	}
	go a.sessions.Run(SessionSweepInterval, a.stop, func(removed int) {
		a.logger.Info("Evicted %d idle sessions", removed)
	})

	router := route.SetupRoutes(a.controller, a.hubService, a.config, a.logger, a.predictionRepo, a.history)

	fmt.Printf("Aerial Detection Viewer\n")
	fmt.Printf("URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("Models: %v (from %s)\n", a.config.Models, a.config.ModelDirectory)
	fmt.Printf("History: %s\n", a.config.DatabasePath)

	a.logger.Info("Server listening on :%d", a.config.Port)
	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close stops background services, flushing pending history first.
func (a *App) Close() {
	close(a.stop)
	a.hubService.Stop()
	if a.history != nil {
		a.history.Flush()
	}
	a.detector.Close()
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Close()
}
