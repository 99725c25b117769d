package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"aerialdetect/internal/config"
	"aerialdetect/internal/logger"
	"aerialdetect/internal/model"
	"aerialdetect/internal/service/tempfile"
	"aerialdetect/internal/service/yolo"

	"github.com/mdobak/go-xerrors"
	"gocv.io/x/gocv"
)

// DetectorService runs pretrained YOLO ONNX models on uploaded images.
type DetectorService struct {
	nets       map[string]*loadedModel
	netsMutex  sync.Mutex
	modelDir   string
	tempDir    string
	inputSize  int
	confidence float64
	nms        float64
	logger     *logger.Logger
}

// loadedModel is one network plus its class names. mutex serializes
// SetInput/Forward pairs on net.
type loadedModel struct {
	net   gocv.Net
	names model.ClassNameMap
	mutex sync.Mutex
}

// NewDetectorService creates a detector. Models are loaded on first use.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	return &DetectorService{
		nets:       make(map[string]*loadedModel),
		modelDir:   config.ModelDirectory,
		tempDir:    config.TempDirectory,
		inputSize:  config.InputSize,
		confidence: config.ConfidenceThreshold,
		nms:        config.NMSThreshold,
		logger:     logger,
	}
}

// Detect runs modelID on the encoded image and returns the raw detector output
// together with the source image and a composite with every box drawn.
func (s *DetectorService) Detect(imageBytes []byte, modelID string) (*model.DetectorOutput, error) {
	m, err := s.getModel(modelID)
	if err != nil {
		return nil, xerrors.New(&model.ModelLoadError{Model: modelID, Err: err})
	}

	mat, err := s.readImage(imageBytes)
	if err != nil {
		return nil, xerrors.New(&model.InferenceError{Model: modelID, Err: err})
	}
	defer mat.Close()

	candidates, err := s.forward(m, mat)
	if err != nil {
		return nil, xerrors.New(&model.InferenceError{Model: modelID, Err: err})
	}

	out := &model.DetectorOutput{ClassNames: m.names}
	if len(candidates) > 0 {
		boxes, scores := yolo.Split(candidates)
		indices := gocv.NMSBoxes(boxes, scores, float32(s.confidence), float32(s.nms))
		for _, i := range indices {
			c := candidates[i]
			out.Rectangles = append(out.Rectangles, c.Box)
			out.ClassIDs = append(out.ClassIDs, c.ClassID)
			out.Confidences = append(out.Confidences, float64(c.Score))
		}
	}
	s.logger.Info("Model %s detected %d objects", modelID, len(out.Rectangles))

	source, err := mat.ToImage()
	if err != nil {
		return nil, xerrors.New(&model.InferenceError{Model: modelID, Err: fmt.Errorf("failed to convert image: %w", err)})
	}
	out.Source = source

	composite, err := s.drawComposite(mat, out)
	if err != nil {
		return nil, xerrors.New(&model.InferenceError{Model: modelID, Err: err})
	}
	out.Composite = composite

	return out, nil
}

// readImage stages the upload in the temp directory and reads it back with OpenCV.
func (s *DetectorService) readImage(imageBytes []byte) (gocv.Mat, error) {
	var mat gocv.Mat
	err := tempfile.With(s.tempDir, imageBytes, s.logger, func(path string) error {
		mat = gocv.IMRead(path, gocv.IMReadColor)
		if mat.Empty() {
			mat.Close()
			return fmt.Errorf("decoded image is empty")
		}
		return nil
	})
	if err != nil {
		return gocv.Mat{}, err
	}
	return mat, nil
}

// forward runs the network on a stretched, normalized copy of mat and decodes
// the detection head in source pixel coordinates.
func (s *DetectorService) forward(m *loadedModel, mat gocv.Mat) ([]yolo.Candidate, error) {
	size := image.Pt(s.inputSize, s.inputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mutex.Lock()
	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	m.mutex.Unlock()
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network returned no output")
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	return yolo.Decode(data, output.Size(), yolo.Params{
		ScaleX:     float64(mat.Cols()) / float64(s.inputSize),
		ScaleY:     float64(mat.Rows()) / float64(s.inputSize),
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		Confidence: s.confidence,
	})
}

// drawComposite draws every detection with its label on a copy of mat.
func (s *DetectorService) drawComposite(mat gocv.Mat, out *model.DetectorOutput) (image.Image, error) {
	green := color.RGBA{R: 0, G: 255, B: 0, A: 0}

	canvas := mat.Clone()
	defer canvas.Close()

	for i, rect := range out.Rectangles {
		if err := gocv.Rectangle(&canvas, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", out.ClassNames.Name(out.ClassIDs[i]), out.Confidences[i])
		pt := image.Pt(rect.Min.X, max(rect.Min.Y-5, 12))
		if err := gocv.PutText(&canvas, label, pt, gocv.FontHersheySimplex, 0.5, green, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	img, err := canvas.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert composite: %w", err)
	}
	return img, nil
}

// getModel returns the cached network for id, loading it on first use.
func (s *DetectorService) getModel(id string) (*loadedModel, error) {
	s.netsMutex.Lock()
	defer s.netsMutex.Unlock()

	if m, exists := s.nets[id]; exists {
		return m, nil
	}

	modelPath := filepath.Join(s.modelDir, id+".onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	m := &loadedModel{net: net, names: s.classNames(id)}
	s.nets[id] = m
	s.logger.Info("Loaded model %s with %d classes", id, len(m.names))
	return m, nil
}

// classNames reads {id}.yaml next to the model, falling back to COCO.
func (s *DetectorService) classNames(id string) model.ClassNameMap {
	path := filepath.Join(s.modelDir, id+".yaml")
	names, err := yolo.LoadClassNames(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warning("Could not read class names %s, using COCO: %v", path, err)
		}
		return yolo.COCONames()
	}
	return names
}

// Close releases every loaded network.
func (s *DetectorService) Close() {
	s.netsMutex.Lock()
	defer s.netsMutex.Unlock()

	for id, m := range s.nets {
		m.net.Close()
		delete(s.nets, id)
	}
}
