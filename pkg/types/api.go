package types

// HealthResponse is returned by GET /.
type HealthResponse struct {
	// Always "healthy" once the process is serving.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Human-readable note.
	// example: Captcha solver API is running.
	Message string `json:"message" example:"Captcha solver API is running."`
}

// SolveResponse carries a successful prediction from POST /solve_captcha.
type SolveResponse struct {
	// Predicted captcha text.
	// example: ab3K9
	Text string `json:"text" example:"ab3K9"`
}

// ErrorResponse is the JSON error payload. POST /solve_captcha returns it with
// status 200; the other endpoints set a matching HTTP status.
type ErrorResponse struct {
	// Error message.
	// example: Error processing image: cannot identify image file: image: unknown format
	Error string `json:"error" example:"Error processing image: cannot identify image file: image: unknown format"`
}
