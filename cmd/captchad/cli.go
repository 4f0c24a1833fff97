package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"captchad/internal/common/fsutil"
	"captchad/internal/config"
	"captchad/internal/httpapi"
	"captchad/internal/solver"
)

// options holds raw flag values; only flags the user set override config.
type options struct {
	configPath string
	envFile    string
	addr       string
	modelPath  string
	ortLib     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&options{}) }

// newRootCmdWith constructs the command tree bound to opts.
func newRootCmdWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "captchad",
		Short:         "Captcha solver HTTP service backed by an ONNX model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before reading CAPTCHAD_* variables")
	pf.StringVar(&opts.modelPath, "model", "", "Path to the ONNX model (default captcha.onnx beside the binary)")
	pf.StringVar(&opts.ortLib, "ort-lib", "", "Path to the onnxruntime shared library")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: json|console")
	root.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :5000")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Load the model and serve the HTTP API",
		Example: "  captchad serve --addr :5000 --model ./captcha.onnx",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :5000")

	solveCmd := &cobra.Command{
		Use:     "solve <image>...",
		Short:   "Load the model and print predictions for image files",
		Example: "  captchad solve test_captcha.png",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts, args)
		},
	}

	root.AddCommand(serveCmd, solveCmd)
	return root
}

// resolveConfig merges defaults < config file < environment < flags.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("addr") {
		cfg.Addr = opts.addr
	}
	if changed("model") {
		cfg.ModelPath = opts.modelPath
	}
	if changed("ort-lib") {
		cfg.ORTLibPath = opts.ortLib
	}
	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	config.ApplyDefaults(&cfg)
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	switch cfg.LogFormat {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format: %s", cfg.LogFormat)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "captchad").Logger(), nil
}

func newSolver(cfg config.Config, logger zerolog.Logger) *solver.Service {
	opts := []solver.Option{
		solver.WithLoader(solver.ORTLoader(solver.ORTConfig{
			LibraryPath:    cfg.ORTLibPath,
			IntraOpThreads: cfg.ORTThreads,
		})),
		solver.WithInputSize(cfg.ImageHeight, cfg.ImageWidth),
		solver.WithMaxPixels(cfg.MaxImagePixels),
		solver.WithLogger(logger.With().Str("component", "solver").Logger()),
	}
	if cfg.Charset != "" {
		opts = append(opts, solver.WithCharset(cfg.Charset))
	}
	return solver.New(opts...)
}

func shutdownSolver(svc *solver.Service, logger zerolog.Logger) {
	if err := svc.Close(); err != nil {
		logger.Warn().Err(err).Msg("close model")
	}
	if err := solver.DestroyORTEnvironment(); err != nil {
		logger.Warn().Err(err).Msg("destroy onnxruntime environment")
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc := newSolver(cfg, logger)
	defer shutdownSolver(svc, logger)

	modelPath, err := fsutil.ResolvePath(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("resolve model path: %w", err)
	}
	// A failed load is logged and the server still starts; /solve_captcha
	// then reports not_initialized on every request.
	if err := svc.Initialize(modelPath); err != nil {
		logger.Error().Err(err).Str("model", modelPath).Msg("error loading model on startup; serving without a model")
	} else {
		logger.Info().Str("model", modelPath).Msg("model loaded successfully on startup")
	}

	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxUploadBytes(cfg.MaxUploadBytes)
	httpapi.SetCORSOptions(cfg.CORSAllowedOrigins, nil, nil)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("captchad listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func runSolve(cmd *cobra.Command, opts *options, paths []string) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc := newSolver(cfg, logger)
	defer shutdownSolver(svc, logger)

	modelPath, err := fsutil.ResolvePath(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("resolve model path: %w", err)
	}
	if err := svc.Initialize(modelPath); err != nil {
		return err
	}
	return solveFiles(cmd.Context(), svc, paths, cmd.OutOrStdout())
}

// inferrer is the subset of *solver.Service used by solveFiles.
type inferrer interface {
	Infer(ctx context.Context, image []byte) solver.Result
}

// solveFiles prints "path<TAB>text" per file and fails if any file failed.
func solveFiles(ctx context.Context, svc inferrer, paths []string, out io.Writer) error {
	failed := 0
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", p, err)
			failed++
			continue
		}
		res := svc.Infer(ctx, b)
		if !res.OK() {
			fmt.Fprintf(out, "%s\terror: %v\n", p, res.Err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", p, res.Text)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}
