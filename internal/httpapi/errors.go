package httpapi

import (
	"encoding/json"
	"net/http"

	"captchad/internal/solver"
	"captchad/pkg/types"
)

// solveErrorPrefix is prepended to every /solve_captcha error message.
const solveErrorPrefix = "Error processing image: "

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// writeSolveError reports a /solve_captcha failure. The status is always 200;
// clients tell success from failure by the presence of "error".
func writeSolveError(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusOK, solveErrorPrefix+msg)
}

// solveOutcome maps a result to the label used in logs and metrics.
func solveOutcome(res solver.Result) string {
	if res.OK() {
		return "ok"
	}
	return string(res.Kind())
}
