package storage

import (
	"sync"
	"time"

	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
	"aerialdetect/internal/repository"
)

const (
	// HistoryBufferLimit is how many predictions are buffered before an early flush.
	HistoryBufferLimit = 10
	// HistoryFlushInterval defines how often (seconds) buffered predictions are written.
	HistoryFlushInterval = 5
)

type bufferedPrediction struct {
	prediction model.Prediction
	objects    []model.PredictionObject
}

// HistoryService buffers finished predictions in memory and periodically
// writes them to the prediction repository.
type HistoryService struct {
	repo    repository.PredictionRepository
	pending []bufferedPrediction
	mu      sync.Mutex
	logger  *logger.Logger
}

// NewHistoryService creates a HistoryService writing to repo.
func NewHistoryService(repo repository.PredictionRepository, logger *logger.Logger) *HistoryService {
	return &HistoryService{
		repo:    repo,
		pending: make([]bufferedPrediction, 0, HistoryBufferLimit),
		logger:  logger,
	}
}

// Run flushes on a ticker until stop is closed, then flushes once more.
func (s *HistoryService) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(HistoryFlushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-stop:
			s.Flush()
			return
		}
	}
}

// Add queues one prediction. A full buffer is flushed right away.
func (s *HistoryService) Add(p *model.Prediction, objects []model.PredictionObject) {
	s.mu.Lock()
	s.pending = append(s.pending, bufferedPrediction{prediction: *p, objects: objects})
	full := len(s.pending) >= HistoryBufferLimit
	s.mu.Unlock()

	if full {
		s.Flush()
	}
}

// Pending returns the number of predictions not yet written.
func (s *HistoryService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush writes buffered predictions to the repository. Failed writes are
// logged and dropped.
func (s *HistoryService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return
	}

	savedCount := 0
	for _, b := range s.pending {
		id, err := s.repo.Record(&b.prediction, b.objects)
		if err != nil {
			s.logger.Error("Error saving prediction for %s to database: %v", b.prediction.Filename, err)
			continue
		}
		s.logger.Info("Saved prediction %d (%s, %d objects)", id, b.prediction.Model, len(b.objects))
		savedCount++
	}

	s.logger.Info("Flushed %d predictions to database", savedCount)
	s.pending = s.pending[:0]
}
