// Package detector runs the DocLayout-YOLO ONNX model over rendered
// page images as a local alternative to the layout analysis service.
package detector

import (
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	// DefaultInputSize is the model's square input resolution.
	DefaultInputSize = 1024
	// DefaultConfThreshold drops low-confidence detections.
	DefaultConfThreshold = 0.25
	// DefaultNMSThreshold is the IoU bound for suppression.
	DefaultNMSThreshold = 0.45
)

// Config holds detector settings.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string
	// LibraryPath optionally points at the onnxruntime shared library.
	LibraryPath   string
	InputSize     int
	ConfThreshold float64
	NMSThreshold  float64
}

var ortInit sync.Once

// Detector wraps an ONNX session over the layout model.
type Detector struct {
	session   *ort.DynamicAdvancedSession
	pre       *preprocessor
	post      *postProcessor
	inputSize int
	mu        sync.Mutex
}

// New loads the model and prepares a session. The onnxruntime
// environment is initialized once per process.
func New(cfg Config) (*Detector, error) {
	if cfg.ModelPath == "" {
		return nil, types.NewAppError(types.ErrConfig, "detector model path not set", nil)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, types.NewAppError(types.ErrConfig, "detector model file not found", err)
	}
	inputSize := cfg.InputSize
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	confThreshold := cfg.ConfThreshold
	if confThreshold <= 0 {
		confThreshold = DefaultConfThreshold
	}
	nmsThreshold := cfg.NMSThreshold
	if nmsThreshold <= 0 {
		nmsThreshold = DefaultNMSThreshold
	}

	var initErr error
	ortInit.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to initialize onnxruntime", initErr)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		nil,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to create detector session", err)
	}

	logger.Info("layout detector loaded",
		logger.String("model", cfg.ModelPath),
		logger.Int("inputSize", inputSize))

	return &Detector{
		session:   session,
		pre:       newPreprocessor(inputSize),
		post:      newPostProcessor(confThreshold, nmsThreshold),
		inputSize: inputSize,
	}, nil
}

// DetectPage runs the model over one rendered page image and returns
// raw elements in page-image pixel coordinates, ids starting at
// startID. The session is not reentrant, so calls serialize.
func (d *Detector) DetectPage(img image.Image, pageIndex, startID int) ([]layout.RawElement, error) {
	data, shape := d.pre.tensor(img)
	input, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to build input tensor", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	d.mu.Lock()
	err = d.session.Run([]ort.Value{input}, outputs)
	d.mu.Unlock()
	if err != nil {
		return nil, types.NewAppError(types.ErrDetect, "detector inference failed", err)
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, types.NewAppError(types.ErrDetect, "unexpected detector output type", nil)
	}
	defer out.Destroy()

	scaleX := float64(img.Bounds().Dx()) / float64(d.inputSize)
	scaleY := float64(img.Bounds().Dy()) / float64(d.inputSize)
	dets := d.post.suppress(d.post.decode(out.GetData(), scaleX, scaleY))

	logger.Debug("detector page complete",
		logger.Int("page", pageIndex),
		logger.Int("detections", len(dets)))
	return toElements(dets, pageIndex, startID), nil
}

// Close releases the session.
func (d *Detector) Close() error {
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
