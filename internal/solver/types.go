package solver

// State represents the lifecycle state of the model handle.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
	StateClosed  State = "closed"
)

// Output is the logits tensor of one forward pass, row-major [Steps][Classes].
type Output struct {
	Data    []float32
	Steps   int
	Classes int
}

// Runner executes forward passes on a loaded model. Implementations must be
// safe for concurrent Run calls.
type Runner interface {
	Run(input []float32, shape []int64) (Output, error)
	Close() error
}

// InputShaper is implemented by runners whose model declares a fixed input
// shape. Non-positive dimensions are dynamic.
type InputShaper interface {
	InputShape() []int64
}

// Loader opens the model at path and returns a ready Runner.
type Loader func(path string) (Runner, error)
