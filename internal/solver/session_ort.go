package solver

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ORTConfig configures the onnxruntime-backed loader.
type ORTConfig struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// binding's platform default.
	LibraryPath string
	// IntraOpThreads caps per-session threads; 0 lets onnxruntime decide.
	IntraOpThreads int
}

var envMu sync.Mutex

// ensureEnvironment initializes the process-wide onnxruntime environment once.
// A failed attempt may be retried by a later Initialize.
func ensureEnvironment(lib string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if lib != "" {
		ort.SetSharedLibraryPath(lib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime (%s): %w", libLabel(lib), err)
	}
	return nil
}

func libLabel(lib string) string {
	if lib == "" {
		return "default library"
	}
	return lib
}

// DestroyORTEnvironment tears down the onnxruntime environment. Call after
// every Service using ORTLoader has been closed.
func DestroyORTEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ORTLoader returns a Loader that opens models with onnxruntime.
func ORTLoader(cfg ORTConfig) Loader {
	return func(path string) (Runner, error) {
		if err := ensureEnvironment(cfg.LibraryPath); err != nil {
			return nil, newError(KindModelLoad, "onnxruntime unavailable", err)
		}
		return newORTRunner(path, cfg)
	}
}

// ioSpec is the subset of model IO metadata the solver validates.
type ioSpec struct {
	Name   string
	Dims   []int64
	Tensor bool
	Float  bool
}

func toSpec(info ort.InputOutputInfo) ioSpec {
	return ioSpec{
		Name:   info.Name,
		Dims:   append([]int64(nil), info.Dimensions...),
		Tensor: info.OrtValueType == ort.ONNXTypeTensor,
		Float:  info.DataType == ort.TensorElementDataTypeFloat,
	}
}

// checkModelIO validates a single [N,3,H,W] float input and a rank-3 [N,T,C]
// float output. T and C may be dynamic; the runtime shape is read per call.
func checkModelIO(inputs, outputs []ioSpec) (in, out ioSpec, err error) {
	if len(inputs) != 1 {
		return in, out, fmt.Errorf("model declares %d inputs, expected 1", len(inputs))
	}
	if len(outputs) < 1 {
		return in, out, errors.New("model declares no outputs")
	}
	in, out = inputs[0], outputs[0]
	if !in.Tensor || !in.Float {
		return in, out, fmt.Errorf("input %q is not a float32 tensor", in.Name)
	}
	if len(in.Dims) != 4 {
		return in, out, fmt.Errorf("input %q has rank %d, expected 4", in.Name, len(in.Dims))
	}
	if in.Dims[1] > 0 && in.Dims[1] != 3 {
		return in, out, fmt.Errorf("input %q has %d channels, expected 3", in.Name, in.Dims[1])
	}
	if !out.Tensor || !out.Float {
		return in, out, fmt.Errorf("output %q is not a float32 tensor", out.Name)
	}
	if len(out.Dims) != 3 {
		return in, out, fmt.Errorf("output %q has rank %d, expected 3", out.Name, len(out.Dims))
	}
	return in, out, nil
}

// ortRunner wraps a DynamicAdvancedSession. The input tensor is allocated per
// call and onnxruntime allocates the output, so concurrent Run calls share
// nothing but the session.
type ortRunner struct {
	session *ort.DynamicAdvancedSession
	inShape []int64
}

func newORTRunner(path string, cfg ORTConfig) (*ortRunner, error) {
	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, newError(KindModelLoad, "cannot read model graph", err)
	}
	inputs := make([]ioSpec, 0, len(inInfo))
	for _, i := range inInfo {
		inputs = append(inputs, toSpec(i))
	}
	outputs := make([]ioSpec, 0, len(outInfo))
	for _, o := range outInfo {
		outputs = append(outputs, toSpec(o))
	}
	in, out, err := checkModelIO(inputs, outputs)
	if err != nil {
		return nil, newError(KindModelLoad, "model failed validation", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}
	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, newError(KindModelLoad, "failed to create onnxruntime session", err)
	}
	return &ortRunner{session: session, inShape: in.Dims}, nil
}

func (r *ortRunner) InputShape() []int64 { return append([]int64(nil), r.inShape...) }

func (r *ortRunner) Run(input []float32, shape []int64) (Output, error) {
	in, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return Output{}, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()
	outputs := []ort.Value{nil}
	if err := r.session.Run([]ort.Value{in}, outputs); err != nil {
		return Output{}, err
	}
	defer outputs[0].Destroy()
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Output{}, fmt.Errorf("output is %T, expected float32 tensor", outputs[0])
	}
	return logitsOutput(out.GetShape(), out.GetData())
}

// logitsOutput checks a [1,T,C] logits shape against data and copies it.
func logitsOutput(shape []int64, data []float32) (Output, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return Output{}, fmt.Errorf("output shape %v, expected [1,T,C]", shape)
	}
	steps, classes := shape[1], shape[2]
	if steps <= 0 || classes <= 0 || int64(len(data)) != steps*classes {
		return Output{}, fmt.Errorf("output shape %v does not match %d values", shape, len(data))
	}
	return Output{Data: append([]float32(nil), data...), Steps: int(steps), Classes: int(classes)}, nil
}

func (r *ortRunner) Close() error {
	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	return err
}
