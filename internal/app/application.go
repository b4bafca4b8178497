// Package app wires configuration, logging, codec, recognizer and pipeline
// together and runs them over files or an inbox directory.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"glyphprep/internal/codec"
	"glyphprep/internal/config"
	"glyphprep/internal/logger"
	"glyphprep/internal/pipeline"
	"glyphprep/internal/recognition"
)

const (
	AppName    = "glyphprep"
	AppVersion = "1.0.0"
)

type Application struct {
	cfg         config.Config
	codec       codec.Codec
	coordinator *pipeline.Coordinator
	logger      logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	shutdown    chan struct{}
	once        sync.Once
}

type Option func(*options)

type options struct {
	logOutput  io.Writer
	recognizer recognition.Recognizer
	observer   func(pipeline.Progress)
	signals    bool
}

// WithLogOutput redirects log output, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithRecognizer replaces the recognizer New would build from the config.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

func WithProgressObserver(fn func(pipeline.Progress)) Option {
	return func(o *options) { o.observer = fn }
}

// WithSignalHandling shuts the application down on SIGINT or SIGTERM.
func WithSignalHandling() Option {
	return func(o *options) { o.signals = true }
}

func NewApplication(cfg config.Config, opts ...Option) (*Application, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := NewLogger(cfg.Log, o.logOutput)

	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Application", "starting application", map[string]interface{}{
		"version":   AppVersion,
		"preset":    cfg.Preset,
		"codec":     cfg.Codec.Backend,
		"log_level": cfg.Log.Level,
	})

	c, err := codec.New(cfg.Codec.Backend, codec.Options{
		Resampler:   cfg.Codec.Resampler,
		JPEGQuality: cfg.Codec.JPEGQuality,
		Logger:      log,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.Policy)
	if err != nil {
		cancel()
		return nil, err
	}

	coordOpts := []pipeline.Option{
		pipeline.WithFormat(cfg.Pipeline.OutputFormat),
		pipeline.WithPolicy(policy),
		pipeline.WithRecognitionHints(cfg.Recognition.PageSegMode, cfg.Recognition.DPI),
	}

	if o.observer != nil {
		coordOpts = append(coordOpts, pipeline.WithProgressObserver(o.observer))
	}

	recognizer := o.recognizer
	if recognizer == nil && cfg.Recognition.Enabled {
		recognizer, err = recognition.New()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create recognizer: %w", err)
		}
	}
	if recognizer != nil {
		coordOpts = append(coordOpts, pipeline.WithRecognizer(recognizer))
	}

	application := &Application{
		cfg:         cfg,
		codec:       c,
		coordinator: pipeline.NewCoordinator(c, log, coordOpts...),
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
		shutdown:    make(chan struct{}),
	}

	if o.signals {
		application.setupSignalHandling()
	}

	log.Info("Application", "initialization complete", nil)
	return application, nil
}

// Context is canceled once shutdown starts.
func (a *Application) Context() context.Context {
	return a.ctx
}

func (a *Application) Coordinator() *pipeline.Coordinator {
	return a.coordinator
}

// ProcessFile preprocesses inPath and writes the result to outPath, or next to
// the input when outPath is empty. With recognition enabled the text is
// written alongside as a .txt file.
func (a *Application) ProcessFile(ctx context.Context, inPath, outPath string) (*pipeline.Invocation, error) {
	input, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	var inv *pipeline.Invocation
	if a.cfg.Recognition.Enabled {
		inv, err = a.coordinator.Recognize(ctx, input, a.cfg.Processing, a.cfg.Recognition.Language)
	} else {
		inv, err = a.coordinator.Process(ctx, input, a.cfg.Processing)
	}
	if err != nil {
		return nil, err
	}

	if outPath == "" {
		outPath = OutputPath(inPath, "", inv.Format)
	}

	if err := writeFileAtomic(outPath, inv.Output); err != nil {
		return nil, err
	}

	if a.cfg.Recognition.Enabled {
		textPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".txt"
		if err := writeFileAtomic(textPath, []byte(inv.Text+"\n")); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{
		"input":        inPath,
		"output":       outPath,
		"preprocessed": inv.Preprocessed,
		"duration":     inv.Duration,
	}
	if inv.Fallback != nil {
		fields["fallback"] = inv.Fallback.Error()
	}
	a.logger.Info("Application", "file processed", fields)

	return inv, nil
}

// OutputPath names the output for inPath: "<name>.prep<ext>" in dir, or in
// the input's directory when dir is empty. Unknown formats keep the input
// extension.
func OutputPath(inPath, dir, format string) string {
	if dir == "" {
		dir = filepath.Dir(inPath)
	}

	base := filepath.Base(inPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if format != "" && format != "unknown" {
		ext = codec.Extension(format)
	}

	return filepath.Join(dir, name+".prep"+ext)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()
}

func (a *Application) initiateShutdown() {
	a.once.Do(func() {
		close(a.shutdown)

		a.logger.Info("Application", "shutdown sequence initiated", nil)
		a.cancel()
	})
}

// Shutdown cancels in-flight work, waits for watcher jobs and closes the codec.
func (a *Application) Shutdown(ctx context.Context) error {
	a.initiateShutdown()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error
	if closer, ok := a.codec.(io.Closer); ok {
		err = closer.Close()
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
	return err
}

// ShutdownWithTimeout is Shutdown bounded by timeout.
func (a *Application) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := a.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warning("Application", "shutdown timeout", map[string]interface{}{
			"timeout": timeout,
		})
	}
	return err
}
