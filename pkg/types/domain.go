package types

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Model lifecycle state (loading, ready, error, closed).
	// example: ready
	State string `json:"state" example:"ready"`
	// Path of the model file last passed to Initialize.
	// example: /opt/captchad/captcha.onnx
	ModelPath string `json:"model_path,omitempty" example:"/opt/captchad/captcha.onnx"`
	// Last load error, if the most recent load failed.
	LastError string `json:"last_error,omitempty"`
	// Model input height in pixels.
	// example: 32
	InputHeight int `json:"input_height" example:"32"`
	// Model input width in pixels.
	// example: 128
	InputWidth int `json:"input_width" example:"128"`
	// Size of the tokenizer class table.
	// example: 99
	NumClasses int `json:"num_classes" example:"99"`
	// Total number of load attempts.
	// example: 1
	LoadsTotal uint64 `json:"loads_total" example:"1"`
	// Total number of inference calls.
	// example: 42
	InferencesTotal uint64 `json:"inferences_total" example:"42"`
	// Inference calls that returned an error.
	// example: 3
	FailuresTotal uint64 `json:"failures_total" example:"3"`
	// Time the current model was loaded (unix seconds).
	// example: 1700000000
	LoadedAtUnix int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
