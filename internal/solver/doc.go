// Package solver owns the captcha model lifecycle and the single-image
// inference pipeline. It is structured into small files by concern:
//
//   - service.go: Service type, options, Initialize/Infer/Close.
//   - result.go: the tagged Result returned by Infer.
//   - errors.go: error kinds and helpers (IsNotInitialized, KindOf, ...).
//   - types.go: Runner/Loader contracts and lifecycle State.
//   - session_ort.go: production Runner backed by onnxruntime.
//   - status_report.go: Status snapshot for /status.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors for loads and inferences.
//
// A Service holds at most one loaded model handle. The handle is swapped
// atomically by Initialize and never mutated afterwards, so Infer takes no
// locks and may be called from any number of goroutines.
package solver
