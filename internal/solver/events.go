package solver

// Event names published by the Service.
const (
	EventModelLoaded     = "model_loaded"
	EventModelLoadFailed = "model_load_failed"
	EventInferOK         = "infer_ok"
	EventInferFailed     = "infer_failed"
)

// Event represents a solver lifecycle event: a name, the model path and
// optional fields.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the Service. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
