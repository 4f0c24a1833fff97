package solver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"captchad/internal/imaging"
	"captchad/internal/tokenizer"
)

// handle is the loaded model plus its paired preprocessing transform.
// It is never mutated after construction.
type handle struct {
	runner    Runner
	transform imaging.Transform
	path      string
	loadedAt  time.Time
}

// loadInfo records the outcome of the most recent Initialize call.
type loadInfo struct {
	state State
	path  string
	err   string
}

// Service runs captcha inference against a single model handle.
type Service struct {
	cur  atomic.Pointer[handle]
	load atomic.Pointer[loadInfo]

	loader    Loader
	tok       *tokenizer.Tokenizer
	height    int
	width     int
	maxPixels int64
	log       zerolog.Logger
	events    EventPublisher
	startTime time.Time

	loads    atomic.Uint64
	infers   atomic.Uint64
	failures atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLoader replaces the model loader. The default loader fails every call
// so that a Service without a runtime never pretends to be ready.
func WithLoader(l Loader) Option { return func(s *Service) { s.loader = l } }

// WithCharset overrides the tokenizer alphabet.
func WithCharset(charset string) Option {
	return func(s *Service) { s.tok = tokenizer.New(charset) }
}

// WithInputSize sets the model input height and width.
func WithInputSize(height, width int) Option {
	return func(s *Service) { s.height, s.width = height, width }
}

// WithMaxPixels caps the declared width*height of decoded images.
// Non-positive values keep imaging.DefaultMaxPixels.
func WithMaxPixels(n int64) Option { return func(s *Service) { s.maxPixels = n } }

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithEventPublisher installs an event sink.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// New constructs an uninitialized Service.
func New(opts ...Option) *Service {
	s := &Service{
		loader: func(string) (Runner, error) {
			return nil, errors.New("no model runtime configured")
		},
		tok:       tokenizer.New(tokenizer.DefaultCharset),
		log:       zerolog.Nop(),
		events:    noopPublisher{},
		startTime: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.load.Store(&loadInfo{state: StateLoading})
	return s
}

// Initialize loads the model at path and installs it as the current handle.
// A second call replaces and closes the previous handle; it must not race
// with in-flight Infer calls.
func (s *Service) Initialize(path string) error {
	start := time.Now()
	s.loads.Add(1)
	err := s.initialize(path)
	if err != nil {
		s.load.Store(&loadInfo{state: StateError, path: path, err: err.Error()})
		loadsTotal.WithLabelValues("error").Inc()
		s.events.Publish(Event{Name: EventModelLoadFailed, Model: path, Fields: map[string]any{"kind": string(KindOf(err))}})
		s.log.Error().Err(err).Str("model", path).Msg("model load failed")
		return err
	}
	s.load.Store(&loadInfo{state: StateReady, path: path})
	loadsTotal.WithLabelValues("ok").Inc()
	modelLoaded.Set(1)
	s.events.Publish(Event{Name: EventModelLoaded, Model: path, Fields: map[string]any{"dur": time.Since(start)}})
	s.log.Info().Str("model", path).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

func (s *Service) initialize(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrModelNotFound(path)
		}
		return newError(KindModelLoad, "cannot stat model file", err)
	}
	if fi.IsDir() {
		return newError(KindModelLoad, "model path is a directory", nil)
	}
	transform := imaging.NewTransform(s.height, s.width)
	runner, err := s.loader(path)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return se
		}
		return newError(KindModelLoad, "failed to load model", err)
	}
	if err := checkInputShape(runner, transform); err != nil {
		_ = runner.Close()
		return err
	}
	old := s.cur.Swap(&handle{runner: runner, transform: transform, path: path, loadedAt: time.Now()})
	if old != nil {
		if err := old.runner.Close(); err != nil {
			s.log.Warn().Err(err).Str("model", old.path).Msg("close previous model")
		}
	}
	return nil
}

// checkInputShape rejects models whose fixed input size disagrees with the transform.
func checkInputShape(r Runner, t imaging.Transform) error {
	is, ok := r.(InputShaper)
	if !ok {
		return nil
	}
	want := t.Shape()
	got := is.InputShape()
	if len(got) != len(want) {
		return newError(KindModelLoad, fmt.Sprintf("model input rank %d, expected %d", len(got), len(want)), nil)
	}
	for i := 1; i < len(want); i++ {
		if got[i] > 0 && got[i] != want[i] {
			return newError(KindModelLoad, fmt.Sprintf("model input shape %v incompatible with %v", got, want), nil)
		}
	}
	return nil
}

// Ready reports whether a model handle is loaded.
func (s *Service) Ready() bool { return s.cur.Load() != nil }

// Infer decodes image bytes, runs one forward pass and returns the predicted
// text. The context is used for logging only; inference is not cancelable.
func (s *Service) Infer(ctx context.Context, image []byte) Result {
	start := time.Now()
	res := s.infer(ctx, image)
	s.infers.Add(1)
	if !res.OK() {
		s.failures.Add(1)
		resultsTotal.WithLabelValues(string(res.Kind())).Inc()
		s.events.Publish(Event{Name: EventInferFailed, Model: s.modelPath(), Fields: map[string]any{"kind": string(res.Kind())}})
		s.logger(ctx).Debug().Str("kind", string(res.Kind())).Err(res.Err).Msg("infer failed")
		return res
	}
	dur := time.Since(start)
	resultsTotal.WithLabelValues("ok").Inc()
	inferenceSeconds.Observe(dur.Seconds())
	s.events.Publish(Event{Name: EventInferOK, Model: s.modelPath(), Fields: map[string]any{"dur": dur}})
	return res
}

func (s *Service) infer(ctx context.Context, image []byte) Result {
	h := s.cur.Load()
	if h == nil {
		return failWith(ErrNotInitialized)
	}
	img, format, err := imaging.DecodeLimit(image, s.maxPixels)
	if err != nil {
		if errors.Is(err, imaging.ErrTooManyPixels) {
			return Fail(KindDecode, "image too large", err)
		}
		return Fail(KindDecode, "cannot identify image file", err)
	}
	input, err := h.transform.Apply(img)
	if err != nil {
		return Fail(KindDecode, "cannot preprocess image", err)
	}
	out, err := h.runner.Run(input, h.transform.Shape())
	if err != nil {
		return Fail(KindInference, "inference failed", err)
	}
	dec, err := s.tok.Decode(out.Data, out.Steps, out.Classes)
	if err != nil {
		return Fail(KindInference, "cannot decode model output", err)
	}
	s.logger(ctx).Debug().
		Str("format", format).
		Str("text", dec.Text).
		Floats32("probs", dec.Probs).
		Float32("confidence", dec.Confidence()).
		Msg("decoded prediction")
	return Ok(dec.Text)
}

// logger prefers a request-scoped logger attached to ctx. A context logger
// silences the service logger even when its level filters every event.
func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &s.log
}

func (s *Service) modelPath() string {
	if h := s.cur.Load(); h != nil {
		return h.path
	}
	return ""
}

// Close releases the current model handle. Infer then fails with
// not_initialized and Status reports closed.
func (s *Service) Close() error {
	h := s.cur.Swap(nil)
	if h == nil {
		return nil
	}
	s.load.Store(&loadInfo{state: StateClosed, path: h.path})
	modelLoaded.Set(0)
	return h.runner.Close()
}
