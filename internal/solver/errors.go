package solver

import (
	"errors"
)

// Kind classifies solver failures.
type Kind string

const (
	KindNotInitialized Kind = "not_initialized"
	KindDecode         Kind = "decode_error"
	KindModelNotFound  Kind = "model_not_found"
	KindModelLoad      Kind = "model_load_error"
	KindInference      Kind = "inference_error"
)

// Error is the concrete error type returned by the solver.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// ErrNotInitialized is returned by Infer before a model has been loaded.
var ErrNotInitialized = newError(KindNotInitialized, "model is not initialized; call Initialize first", nil)

// ErrModelNotFound reports a missing model file.
func ErrModelNotFound(path string) error {
	return newError(KindModelNotFound, "model file not found at "+path, nil)
}

// KindOf returns the Kind carried by err, or "" if err is not a solver error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotInitialized reports whether err indicates inference before a successful load.
func IsNotInitialized(err error) bool { return KindOf(err) == KindNotInitialized }

// IsDecodeError reports whether err indicates unreadable image data.
func IsDecodeError(err error) bool { return KindOf(err) == KindDecode }

// IsModelNotFound reports whether err indicates a missing model file.
func IsModelNotFound(err error) bool { return KindOf(err) == KindModelNotFound }

// IsModelLoadError reports whether err indicates a malformed or rejected model.
func IsModelLoadError(err error) bool { return KindOf(err) == KindModelLoad }
