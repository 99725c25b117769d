package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"aerialdetect/internal/config"
	"aerialdetect/internal/dto"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
	"aerialdetect/internal/render"
	"aerialdetect/internal/session"

	"github.com/disintegration/imaging"
	"github.com/mdobak/go-xerrors"
)

var (
	// ErrNoResult is returned when a session has no result set to render yet.
	ErrNoResult = errors.New("no prediction available")
	// ErrNoUpload is returned when a session has no uploaded image.
	ErrNoUpload = errors.New("no image uploaded")
)

// Detector runs a model on an encoded image.
type Detector interface {
	Detect(imageBytes []byte, modelID string) (*model.DetectorOutput, error)
}

// Notifier pushes a payload to every viewer of a session.
type Notifier interface {
	Broadcast(sessionID string, data []byte)
}

// HistoryRecorder stores finished predictions.
type HistoryRecorder interface {
	Add(p *model.Prediction, objects []model.PredictionObject)
}

// Controller sequences the user actions of every session: upload, predict and
// paging. Each action holds its session's lock from start to finish.
type Controller struct {
	sessions *session.Manager
	detector Detector
	notifier Notifier
	history  HistoryRecorder
	config   *config.Config
	logger   *logger.Logger
}

// NewController wires a Controller. notifier and history may be nil.
func NewController(config *config.Config, logger *logger.Logger, sessions *session.Manager,
	detector Detector, notifier Notifier, history HistoryRecorder) *Controller {
	return &Controller{
		sessions: sessions,
		detector: detector,
		notifier: notifier,
		history:  history,
		config:   config,
		logger:   logger,
	}
}

// Upload validates an image and keeps it as the session's pending upload.
// The shown result set is left alone until the next Predict.
func (c *Controller) Upload(sessionID, filename string, data []byte) (*dto.ViewData, error) {
	if err := c.validateUpload(filename, data); err != nil {
		c.logger.Warning("Rejected upload %q for session %s: %v", filename, sessionID, err)
		return nil, err
	}

	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	sess.SetUpload(&session.Upload{
		Filename:    filepath.Base(filename),
		ContentType: contentType(filename),
		Data:        data,
		UploadedAt:  time.Now(),
	})
	c.logger.Info("Session %s uploaded %s (%d bytes)", sessionID, filename, len(data))

	return c.commit(sess), nil
}

func (c *Controller) validateUpload(filename string, data []byte) error {
	if len(data) == 0 {
		return &model.UploadError{Reason: "empty file"}
	}
	if int64(len(data)) > c.config.MaxUploadBytes() {
		return &model.UploadError{Reason: fmt.Sprintf("file exceeds %d MB", c.config.MaxUploadSize)}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	allowed := false
	for _, a := range c.config.AllowedExtensions {
		if ext == strings.ToLower(a) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &model.UploadError{Reason: fmt.Sprintf("unsupported file type %q, expected one of %s",
			ext, strings.Join(c.config.AllowedExtensions, ", "))}
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return &model.UploadError{Reason: "file is not a readable image", Err: err}
	}
	return nil
}

// Predict runs modelID on the pending upload and installs the result, which
// resets the pager to the all view. On any error the previous result set and
// cursor stay as they were.
func (c *Controller) Predict(sessionID, modelID string) (*dto.ViewData, error) {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	upload := sess.Upload()
	if upload == nil {
		return nil, &model.UploadError{Reason: "upload an image before predicting"}
	}
	if !c.config.HasModel(modelID) {
		return nil, &model.ModelLoadError{Model: modelID, Err: fmt.Errorf("unknown model, expected one of %s",
			strings.Join(c.config.Models, ", "))}
	}

	started := time.Now()
	out, err := c.detector.Detect(upload.Data, modelID)
	if err != nil {
		c.logger.Error("Prediction with %s failed for session %s: %s", modelID, sessionID, xerrors.Sprint(err))
		return nil, classify(modelID, err)
	}

	rs, err := model.NewResultSet(out, modelID)
	if err != nil {
		c.logger.Error("Invalid detector output from %s: %v", modelID, err)
		return nil, err
	}

	sess.Store().Install(rs)
	c.logger.Info("Session %s: %s found %d objects in %s (%v)",
		sessionID, modelID, rs.Len(), upload.Filename, time.Since(started).Round(time.Millisecond))

	c.record(sessionID, upload.Filename, rs)
	return c.commit(sess), nil
}

// classify keeps typed detector errors and treats anything else as an
// inference failure.
func classify(modelID string, err error) error {
	var uploadErr *model.UploadError
	var loadErr *model.ModelLoadError
	var inferenceErr *model.InferenceError
	if errors.As(err, &uploadErr) || errors.As(err, &loadErr) || errors.As(err, &inferenceErr) {
		return err
	}
	return &model.InferenceError{Model: modelID, Err: err}
}

func (c *Controller) record(sessionID, filename string, rs *model.ResultSet) {
	if c.history == nil {
		return
	}
	bounds := rs.Rect()
	c.history.Add(&model.Prediction{
		SessionID:   sessionID,
		Model:       rs.Model,
		Filename:    filename,
		Timestamp:   rs.CreatedAt,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ObjectCount: rs.Len(),
	}, model.NewPredictionObjects(rs))
}

// Next advances the pager.
func (c *Controller) Next(sessionID string) *dto.ViewData {
	return c.navigate(sessionID, func(p *session.Pager) { p.Next() })
}

// Previous moves the pager back.
func (c *Controller) Previous(sessionID string) *dto.ViewData {
	return c.navigate(sessionID, func(p *session.Pager) { p.Previous() })
}

// Goto jumps to cursor index; out-of-range values land on the all view.
func (c *Controller) Goto(sessionID string, index int) *dto.ViewData {
	return c.navigate(sessionID, func(p *session.Pager) { p.SetCursor(index) })
}

func (c *Controller) navigate(sessionID string, move func(*session.Pager)) *dto.ViewData {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	move(sess.Store().Pager())
	return c.commit(sess)
}

// View returns the current view without changing anything.
func (c *Controller) View(sessionID string) *dto.ViewData {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	return c.view(sess)
}

// Publish pushes the current view to the session's viewers.
func (c *Controller) Publish(sessionID string) {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	c.commit(sess)
}

// Image renders the current view of the session.
func (c *Controller) Image(sessionID string) (image.Image, error) {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	rs, ok := sess.Store().Current()
	if !ok {
		return nil, ErrNoResult
	}
	img, _ := render.Render(rs, sess.Store().Pager().Cursor())
	return img, nil
}

// UploadedImage returns the pending upload of the session.
func (c *Controller) UploadedImage(sessionID string) (*session.Upload, error) {
	sess := c.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	upload := sess.Upload()
	if upload == nil {
		return nil, ErrNoUpload
	}
	return upload, nil
}

// Models returns the model option set.
func (c *Controller) Models() *dto.ModelsData {
	return &dto.ModelsData{Models: c.config.Models, Default: c.config.Models[0]}
}

// commit renders the session's view and pushes it to its viewers.
// Caller holds the session lock.
func (c *Controller) commit(sess *session.Session) *dto.ViewData {
	view := c.view(sess)
	if c.notifier == nil {
		return view
	}

	data, err := json.Marshal(view)
	if err != nil {
		c.logger.Error("Failed to encode view for session %s: %v", sess.ID, err)
		return view
	}
	c.notifier.Broadcast(sess.ID, data)
	return view
}

// view describes what the browser should show. Caller holds the session lock.
func (c *Controller) view(sess *session.Session) *dto.ViewData {
	view := &dto.ViewData{Mode: dto.ModeNone}
	if upload := sess.Upload(); upload != nil {
		view.Filename = upload.Filename
	}

	rs, ok := sess.Store().Current()
	if !ok {
		if sess.Upload() != nil {
			view.Mode = dto.ModeUpload
			view.ImageURL = fmt.Sprintf("/api/upload/image?v=%d", sess.Upload().UploadedAt.UnixNano())
		}
		return view
	}

	pager := sess.Store().Pager()
	view.Caption = render.Caption(rs, pager.Cursor())
	view.Cursor = pager.Cursor()
	view.Total = pager.Total()
	view.Model = rs.Model
	view.Mode = dto.ModeAll
	if !pager.ShowingAll() {
		view.Mode = dto.ModeSingle
	}
	view.ImageURL = fmt.Sprintf("/api/view/image?v=%d-%d", rs.CreatedAt.UnixNano(), view.Cursor)
	return view
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
