package httpapi

// maxUploadBytes caps the size of a /solve_captcha request body.
// Default is 10 MiB.
var maxUploadBytes int64 = 10 << 20

// SetMaxUploadBytes configures the maximum request body size.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 10 << 20
		return
	}
	maxUploadBytes = n
}

// uploadField is the multipart form field carrying the image.
const uploadField = "file"

// CORS configuration. Every origin, method and header is allowed unless
// SetCORSOptions narrows the origin list.
var (
	corsAllowedOrigins = []string{"*"}
	corsAllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsAllowedHeaders = []string{"*"}
)

// SetCORSOptions overrides CORS behavior. Empty slices keep the permissive defaults.
func SetCORSOptions(origins, methods, headers []string) {
	corsAllowedOrigins = orDefault(origins, []string{"*"})
	corsAllowedMethods = orDefault(methods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})
	corsAllowedHeaders = orDefault(headers, []string{"*"})
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return append([]string(nil), v...)
}
