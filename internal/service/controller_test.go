package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"aerialdetect/internal/config"
	"aerialdetect/internal/dto"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
	"aerialdetect/internal/session"

	"github.com/disintegration/imaging"
	"github.com/mdobak/go-xerrors"
)

type fakeDetector struct {
	out   *model.DetectorOutput
	err   error
	calls int
	model string
}

func (d *fakeDetector) Detect(imageBytes []byte, modelID string) (*model.DetectorOutput, error) {
	d.calls++
	d.model = modelID
	return d.out, d.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (n *fakeNotifier) Broadcast(sessionID string, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = make(map[string][][]byte)
	}
	n.messages[sessionID] = append(n.messages[sessionID], data)
}

func (n *fakeNotifier) last(t *testing.T, sessionID string) dto.ViewData {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()

	msgs := n.messages[sessionID]
	if len(msgs) == 0 {
		t.Fatalf("No messages for session %s", sessionID)
	}
	var view dto.ViewData
	if err := json.Unmarshal(msgs[len(msgs)-1], &view); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	return view
}

type fakeHistory struct {
	predictions []model.Prediction
	objects     [][]model.PredictionObject
}

func (h *fakeHistory) Add(p *model.Prediction, objects []model.PredictionObject) {
	h.predictions = append(h.predictions, *p)
	h.objects = append(h.objects, objects)
}

type testController struct {
	*Controller
	detector *fakeDetector
	notifier *fakeNotifier
	history  *fakeHistory
}

func setupTestController(t *testing.T) *testController {
	t.Helper()

	cfg := &config.Config{
		Models:            []string{"yolov11s", "yolov11n"},
		MaxUploadSize:     1,
		AllowedExtensions: []string{"jpg", "jpeg", "png"},
		LogDirectory:      filepath.Join(t.TempDir(), "logs"),
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(log.Close)

	tc := &testController{
		detector: &fakeDetector{out: detectorOutput(3)},
		notifier: &fakeNotifier{},
		history:  &fakeHistory{},
	}
	tc.Controller = NewController(cfg, log, session.NewManager(time.Hour), tc.detector, tc.notifier, tc.history)
	return tc
}

func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, createTestImage(64, 48), imaging.PNG); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func detectorOutput(n int) *model.DetectorOutput {
	out := &model.DetectorOutput{
		Source:     createTestImage(64, 48),
		Composite:  createTestImage(64, 48),
		ClassNames: model.ClassNameMap{0: "car", 1: "truck"},
	}
	for i := 0; i < n; i++ {
		out.Rectangles = append(out.Rectangles, image.Rect(i*10, i*5, i*10+8, i*5+8))
		out.ClassIDs = append(out.ClassIDs, i%2)
		out.Confidences = append(out.Confidences, 0.5+float64(i)/10)
	}
	return out
}

func TestController_UploadValidation(t *testing.T) {
	tc := setupTestController(t)
	valid := encodePNG(t)

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  bool
	}{
		{"png", "aerial.png", valid, false},
		{"upper-case extension", "AERIAL.PNG", valid, false},
		{"jpeg extension", "aerial.jpeg", valid, false},
		{"empty", "aerial.png", nil, true},
		{"gif", "aerial.gif", valid, true},
		{"no extension", "aerial", valid, true},
		{"not an image", "aerial.jpg", []byte("hello"), true},
		{"too large", "aerial.png", make([]byte, 2<<20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.Upload("s", tt.filename, tt.data)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			var uploadErr *model.UploadError
			if !errors.As(err, &uploadErr) {
				t.Errorf("Expected UploadError, got %v", err)
			}
		})
	}
}

func TestController_UploadShowsPreview(t *testing.T) {
	tc := setupTestController(t)

	view, err := tc.Upload("s", "dir/aerial.png", encodePNG(t))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if view.Mode != dto.ModeUpload || view.Filename != "aerial.png" {
		t.Errorf("Unexpected view after upload: %+v", view)
	}

	upload, err := tc.UploadedImage("s")
	if err != nil {
		t.Fatalf("UploadedImage failed: %v", err)
	}
	if upload.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %s", upload.ContentType)
	}
	if tc.notifier.last(t, "s").Mode != dto.ModeUpload {
		t.Error("Upload should be pushed to viewers")
	}
}

func TestController_PredictWithoutUpload(t *testing.T) {
	tc := setupTestController(t)

	_, err := tc.Predict("s", "yolov11s")

	var uploadErr *model.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if tc.detector.calls != 0 {
		t.Error("Detector should not run without an upload")
	}
}

func TestController_PredictUnknownModel(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))

	_, err := tc.Predict("s", "yolov5x")

	var loadErr *model.ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected ModelLoadError, got %v", err)
	}
	if loadErr.Model != "yolov5x" {
		t.Errorf("Expected model yolov5x in error, got %s", loadErr.Model)
	}
}

func TestController_PredictInstallsAndResets(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))

	view, err := tc.Predict("s", "yolov11n")
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if tc.detector.model != "yolov11n" {
		t.Errorf("Expected detector to run yolov11n, got %s", tc.detector.model)
	}
	if view.Mode != dto.ModeAll || view.Cursor != 0 || view.Total != 3 {
		t.Errorf("Unexpected view: %+v", view)
	}
	if view.Caption != "Showing all 3 detected objects." {
		t.Errorf("Unexpected caption: %q", view.Caption)
	}

	tc.Next("s")
	tc.Next("s")

	// A second prediction resets the cursor.
	tc.detector.out = detectorOutput(1)
	view, err = tc.Predict("s", "yolov11s")
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if view.Cursor != 0 || view.Total != 1 || view.Model != "yolov11s" {
		t.Errorf("Expected fresh all view over 1 object, got %+v", view)
	}
}

func TestController_PredictRecordsHistory(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))

	if _, err := tc.Predict("s", "yolov11s"); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if len(tc.history.predictions) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(tc.history.predictions))
	}
	p := tc.history.predictions[0]
	if p.SessionID != "s" || p.Filename != "a.png" || p.ObjectCount != 3 {
		t.Errorf("Unexpected history entry: %+v", p)
	}
	if p.Width != 64 || p.Height != 48 {
		t.Errorf("Expected 64x48, got %dx%d", p.Width, p.Height)
	}
	if tc.history.objects[0][1].ClassName != "truck" {
		t.Errorf("Expected truck as second object, got %s", tc.history.objects[0][1].ClassName)
	}
}

func TestController_PredictFailureKeepsState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		out  *model.DetectorOutput
		want interface{}
	}{
		{"plain error", errors.New("onnx runtime crashed"), nil, &model.InferenceError{}},
		{"model load", &model.ModelLoadError{Model: "yolov11s", Err: errors.New("missing file")}, nil, &model.ModelLoadError{}},
		{"mismatched output", nil, &model.DetectorOutput{
			Source:     createTestImage(4, 4),
			Composite:  createTestImage(4, 4),
			Rectangles: []image.Rectangle{image.Rect(0, 0, 2, 2)},
		}, &model.InferenceError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := setupTestController(t)
			tc.Upload("s", "a.png", encodePNG(t))
			if _, err := tc.Predict("s", "yolov11s"); err != nil {
				t.Fatalf("First predict failed: %v", err)
			}
			tc.Next("s")

			tc.detector.out, tc.detector.err = tt.out, tt.err
			_, err := tc.Predict("s", "yolov11s")
			if err == nil {
				t.Fatal("Expected an error")
			}
			switch tt.want.(type) {
			case *model.InferenceError:
				var target *model.InferenceError
				if !errors.As(err, &target) {
					t.Errorf("Expected InferenceError, got %v", err)
				}
			case *model.ModelLoadError:
				var target *model.ModelLoadError
				if !errors.As(err, &target) {
					t.Errorf("Expected ModelLoadError, got %v", err)
				}
			}

			view := tc.View("s")
			if view.Total != 3 || view.Cursor != 1 {
				t.Errorf("Failed predict should keep the previous state, got %+v", view)
			}
			if len(tc.history.predictions) != 1 {
				t.Errorf("Failed predict should not be recorded, got %d entries", len(tc.history.predictions))
			}
		})
	}
}

func TestController_PredictLogsStackTrace(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))

	tc.detector.err = xerrors.New(&model.ModelLoadError{Model: "yolov11s", Err: errors.New("net is empty")})
	_, err := tc.Predict("s", "yolov11s")

	var target *model.ModelLoadError
	if !errors.As(err, &target) {
		t.Fatalf("Expected ModelLoadError through the stack wrapper, got %v", err)
	}

	data, err := os.ReadFile(tc.logger.Path(logger.ErrorFile))
	if err != nil {
		t.Fatalf("Failed to read error log: %v", err)
	}
	logged := string(data)
	if !strings.Contains(logged, "net is empty") {
		t.Errorf("Error log should contain the cause, got %q", logged)
	}
	if !strings.Contains(logged, "controller_test.go") {
		t.Errorf("Error log should contain the stack frame of the failure, got %q", logged)
	}
}

func TestController_Navigation(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))
	tc.Predict("s", "yolov11s")

	steps := []struct {
		action  func(string) *dto.ViewData
		cursor  int
		caption string
		mode    string
	}{
		{tc.Next, 1, "Object 1/3", dto.ModeSingle},
		{tc.Next, 2, "Object 2/3", dto.ModeSingle},
		{tc.Next, 3, "Object 3/3", dto.ModeSingle},
		{tc.Next, 0, "Showing all 3 detected objects.", dto.ModeAll},
		{tc.Previous, 3, "Object 3/3", dto.ModeSingle},
		{tc.Previous, 2, "Object 2/3", dto.ModeSingle},
	}

	for i, s := range steps {
		view := s.action("s")
		if view.Cursor != s.cursor || view.Caption != s.caption || view.Mode != s.mode {
			t.Fatalf("Step %d: got %+v, expected cursor %d caption %q mode %s", i, view, s.cursor, s.caption, s.mode)
		}
		if pushed := tc.notifier.last(t, "s"); pushed.Cursor != s.cursor {
			t.Fatalf("Step %d: pushed cursor %d, expected %d", i, pushed.Cursor, s.cursor)
		}
	}
}

func TestController_Goto(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))
	tc.Predict("s", "yolov11s")

	if view := tc.Goto("s", 2); view.Cursor != 2 || view.Caption != "Object 2/3" {
		t.Errorf("Goto 2 gave %+v", view)
	}
	if view := tc.Goto("s", 9); view.Cursor != 0 {
		t.Errorf("Out-of-range Goto should land on the all view, got %+v", view)
	}
}

func TestController_NavigationWithoutResult(t *testing.T) {
	tc := setupTestController(t)

	view := tc.Next("s")
	if view.Mode != dto.ModeNone || view.Cursor != 0 {
		t.Errorf("Expected empty view, got %+v", view)
	}
	if _, err := tc.Image("s"); !errors.Is(err, ErrNoResult) {
		t.Errorf("Expected ErrNoResult, got %v", err)
	}
	if _, err := tc.UploadedImage("s"); !errors.Is(err, ErrNoUpload) {
		t.Errorf("Expected ErrNoUpload, got %v", err)
	}
}

func TestController_ZeroDetections(t *testing.T) {
	tc := setupTestController(t)
	tc.detector.out = detectorOutput(0)
	tc.Upload("s", "a.png", encodePNG(t))

	view, err := tc.Predict("s", "yolov11s")
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if view.Caption != "Showing all 0 detected objects." {
		t.Errorf("Unexpected caption: %q", view.Caption)
	}
	if next := tc.Next("s"); next.Cursor != 0 || next.Mode != dto.ModeAll {
		t.Errorf("Next over zero detections should stay on all, got %+v", next)
	}
	if prev := tc.Previous("s"); prev.Cursor != 0 {
		t.Errorf("Previous over zero detections should stay on all, got %+v", prev)
	}
}

func TestController_ImageFollowsCursor(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("s", "a.png", encodePNG(t))
	tc.Predict("s", "yolov11s")

	all, err := tc.Image("s")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if all != tc.detector.out.Composite {
		t.Error("All view should render the composite")
	}

	tc.Next("s")
	single, err := tc.Image("s")
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if single == tc.detector.out.Composite || single == tc.detector.out.Source {
		t.Error("Single view should render a fresh copy")
	}
}

func TestController_SessionsAreIsolated(t *testing.T) {
	tc := setupTestController(t)
	tc.Upload("a", "a.png", encodePNG(t))
	tc.Predict("a", "yolov11s")
	tc.Next("a")

	if view := tc.View("b"); view.Mode != dto.ModeNone {
		t.Errorf("Session b should be empty, got %+v", view)
	}
	if view := tc.View("a"); view.Cursor != 1 {
		t.Errorf("Session a should keep its cursor, got %+v", view)
	}
}

func TestController_Models(t *testing.T) {
	tc := setupTestController(t)

	models := tc.Models()
	if len(models.Models) != 2 || models.Default != "yolov11s" {
		t.Errorf("Unexpected models: %+v", models)
	}
}
