package httpapi

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// ClearLogger reverts to the standard library logger.
func ClearLogger() { zlog = nil }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("CAPTCHAD_HTTP_LOG"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel overrides the request log level used when a request
// carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLogger returns a logger tagged with the chi request id, or nil when
// no structured logger is installed.
func requestLogger(r *http.Request, lvl LogLevel) *zerolog.Logger {
	if zlog == nil {
		return nil
	}
	zl := zlog.Level(toZerolog(lvl)).With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		zl = zl.Str("request_id", rid)
	}
	l := zl.Logger()
	return &l
}

// contextLogger returns the logger attached to the request context for
// downstream packages. zerolog does not store a disabled logger in a context,
// so a request logged at "off" carries a discarding logger instead.
func contextLogger(l zerolog.Logger) zerolog.Logger {
	if l.GetLevel() == zerolog.Disabled {
		return l.Output(io.Discard).Level(zerolog.PanicLevel)
	}
	return l
}

func toZerolog(lvl LogLevel) zerolog.Level {
	switch lvl {
	case LevelOff:
		return zerolog.Disabled
	case LevelError:
		// solve failures are logged at warn
		return zerolog.WarnLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// logSolveEnd records the outcome of a /solve_captcha request.
func logSolveEnd(l *zerolog.Logger, lvl LogLevel, outcome string, dur time.Duration, err error) {
	failed := outcome != "ok"
	if lvl < LevelInfo && !(failed && lvl >= LevelError) {
		return
	}
	if l != nil {
		ev := l.Info()
		if failed {
			ev = l.Warn()
		}
		ev.Str("outcome", outcome).Dur("dur", dur).Err(err).Msg("solve end")
		return
	}
	if err != nil {
		log.Printf("solve end outcome=%s dur=%s err=%v", outcome, dur, err)
		return
	}
	log.Printf("solve end outcome=%s dur=%s", outcome, dur)
}
