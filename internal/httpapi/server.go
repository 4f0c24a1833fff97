package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"captchad/internal/solver"
	"captchad/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Infer(ctx context.Context, image []byte) solver.Result
	Ready() bool
	Status() types.StatusResponse
}

// healthMessage is the fixed message returned by GET /.
const healthMessage = "Captcha solver API is running."

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to temporary files.
const multipartMemory = 8 << 20

// NewMux builds the HTTP handler around svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   corsAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", healthHandler)
	r.Post("/solve_captcha", solveHandler(svc))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// healthHandler reports liveness. It does not consult the model.
//
// @Summary      Health check
// @Description  Always reports healthy once the process is serving, whether or not the model loaded.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       / [get]
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Message: healthMessage})
}

// solveHandler reads the uploaded image and returns the predicted text.
//
// @Summary      Solve captcha from image
// @Description  Accepts a multipart upload in field "file". Failures are reported in the body with status 200.
// @Tags         solve
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Captcha image (PNG, JPEG, GIF, BMP, TIFF, WebP)"
// @Success      200   {object}  types.SolveResponse
// @Failure      200   {object}  types.ErrorResponse
// @Router       /solve_captcha [post]
func solveHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		zl := requestLogger(r, lvl)
		ctx := r.Context()
		if zl != nil {
			ctx = contextLogger(*zl).WithContext(ctx)
			zl.Debug().Msg("solve start")
		}
		outcome := "internal_error"
		var outErr error
		defer func() {
			if p := recover(); p != nil {
				outErr = fmt.Errorf("panic: %v", p)
				if zl != nil {
					zl.Error().Str("stack", string(debug.Stack())).Err(outErr).Msg("solve panic")
				} else {
					log.Printf("solve panic: %v\n%s", p, debug.Stack())
				}
				writeSolveError(w, "internal error")
			}
			solveOutcomes.WithLabelValues(outcome).Inc()
			logSolveEnd(zl, lvl, outcome, time.Since(start), outErr)
		}()

		data, err := readUpload(w, r)
		if err != nil {
			outcome, outErr = "bad_request", err
			writeSolveError(w, err.Error())
			return
		}
		res := svc.Infer(ctx, data)
		outcome = solveOutcome(res)
		if !res.OK() {
			outErr = res.Err
			writeSolveError(w, res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.SolveResponse{Text: res.Text})
	}
}

// readUpload returns the full contents of the uploaded file part.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("upload exceeds %d bytes", mbe.Limit)
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, fmt.Errorf("missing form field %q", uploadField)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
