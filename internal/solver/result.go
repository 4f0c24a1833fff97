package solver

// Result is the outcome of a single inference: either text or an error.
type Result struct {
	Text string
	Err  *Error
}

// Ok wraps a successful prediction.
func Ok(text string) Result { return Result{Text: text} }

// Fail wraps a failure of the given kind.
func Fail(kind Kind, msg string, cause error) Result {
	return Result{Err: newError(kind, msg, cause)}
}

func failWith(e *Error) Result { return Result{Err: e} }

// OK reports whether the result carries a prediction.
func (r Result) OK() bool { return r.Err == nil }

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() Kind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

// Unwrap converts the result to the conventional (text, error) pair.
func (r Result) Unwrap() (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}
