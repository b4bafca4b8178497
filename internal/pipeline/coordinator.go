// Package pipeline sequences decode, the preprocessing stages and encode for
// one image, and records the outcome as an Invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"glyphprep/internal/codec"
	"glyphprep/internal/config"
	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
	"glyphprep/internal/recognition"
)

// Policy decides what happens to an invocation when a newer one starts.
type Policy int

const (
	// PolicyIndependent runs every invocation to completion.
	PolicyIndependent Policy = iota
	// PolicyLatestWins abandons an invocation at its next stage boundary once
	// a newer invocation has started.
	PolicyLatestWins
)

func (p Policy) String() string {
	if p == PolicyLatestWins {
		return config.PolicyLatestWins
	}
	return config.PolicyIndependent
}

func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", config.PolicyIndependent:
		return PolicyIndependent, nil
	case config.PolicyLatestWins:
		return PolicyLatestWins, nil
	default:
		return PolicyIndependent, &config.ConfigError{
			Context: "pipeline config",
			Field:   "policy",
			Value:   name,
			Reason:  "must be independent or latest_wins",
		}
	}
}

// share of overall progress given to preprocessing when recognition follows
const recognizeSplit = 0.5

type Option func(*Coordinator)

// WithFormat sets the output encoding. Defaults to png.
func WithFormat(format string) Option {
	return func(c *Coordinator) { c.format = strings.ToLower(format) }
}

func WithPolicy(policy Policy) Option {
	return func(c *Coordinator) { c.policy = policy }
}

func WithRecognizer(r recognition.Recognizer) Option {
	return func(c *Coordinator) { c.recognizer = r }
}

// WithRecognitionHints passes page segmentation mode and DPI to the recognizer.
// Zero leaves the engine default.
func WithRecognitionHints(pageSegMode, dpi int) Option {
	return func(c *Coordinator) {
		c.pageSegMode = pageSegMode
		c.dpi = dpi
	}
}

// WithProgressObserver registers a function called synchronously for every
// progress event of every invocation, as it happens. Concurrent invocations
// call it from their own goroutines.
func WithProgressObserver(fn func(Progress)) Option {
	return func(c *Coordinator) { c.observer = fn }
}

type Coordinator struct {
	codec       codec.Codec
	recognizer  recognition.Recognizer
	logger      logger.Logger
	format      string
	policy      Policy
	observer    func(Progress)
	pageSegMode int
	dpi         int
	generation  atomic.Uint64

	loader    *imageLoader
	processor *imageProcessor
	saver     *imageSaver
}

func NewCoordinator(c codec.Codec, log logger.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = logger.Nop{}
	}

	coord := &Coordinator{
		codec:  c,
		logger: log,
		format: "png",
	}

	for _, opt := range opts {
		opt(coord)
	}

	coord.loader = &imageLoader{codec: c, logger: log}
	coord.processor = &imageProcessor{logger: log, upscaler: NewUpscaler(c, log)}
	coord.saver = &imageSaver{codec: c, logger: log}

	log.Info("PipelineCoordinator", "initialized", map[string]interface{}{
		"codec":  c.Name(),
		"format": coord.format,
		"policy": coord.policy.String(),
	})
	return coord
}

// Process runs the preprocessing pipeline over input.
//
// An invalid cfg is returned as *config.ConfigError before any pixel work.
// Decode, stage and encode failures are not returned: the Invocation then
// carries the original input as Output and the cause in Fallback. The only
// other errors are ctx.Err() and ErrSuperseded, both checked at stage
// boundaries.
func (c *Coordinator) Process(ctx context.Context, input []byte, cfg config.ProcessingConfig) (*Invocation, error) {
	return c.run(ctx, input, cfg, 1)
}

// Recognize runs Process and hands its output to the configured recognizer.
// Recognition runs on the original bytes when preprocessing fell back.
func (c *Coordinator) Recognize(ctx context.Context, input []byte, cfg config.ProcessingConfig, language string) (*Invocation, error) {
	if c.recognizer == nil {
		return nil, fmt.Errorf("no recognizer configured: %w", recognition.ErrNotEnabled)
	}

	inv, err := c.run(ctx, input, cfg, recognizeSplit)
	if err != nil {
		return nil, err
	}

	if err := c.checkpoint(ctx, inv.Generation); err != nil {
		return nil, err
	}

	start := time.Now()
	tracker := newProgressTracker(inv, c.observer, recognizeSplit, 1, 1)

	result, err := c.recognizer.Recognize(ctx, recognition.Input{
		Image:       inv.Output,
		Language:    language,
		PageSegMode: c.pageSegMode,
		DPI:         c.dpi,
	})
	if err != nil {
		c.logger.Error("Recognizer", err, map[string]interface{}{
			"recognizer": c.recognizer.Name(),
			"generation": inv.Generation,
		})
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	for status := range result.Events() {
		tracker.at(status.Message, status.Fraction)
	}
	tracker.finish("recognized")

	inv.Text = result.Text
	inv.Confidence = result.Confidence
	inv.Language = result.Language
	if inv.Language == "" {
		inv.Language = language
	}
	inv.Duration += time.Since(start)

	c.logger.Info("Recognizer", "text recognized", map[string]interface{}{
		"recognizer": c.recognizer.Name(),
		"generation": inv.Generation,
		"language":   inv.Language,
		"confidence": inv.Confidence,
		"characters": len([]rune(inv.Text)),
	})

	return inv, nil
}

func (c *Coordinator) run(ctx context.Context, input []byte, cfg config.ProcessingConfig, end float64) (*Invocation, error) {
	start := time.Now()

	// a rejected config must not supersede running invocations
	if err := c.validate(cfg); err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "validate",
		})
		return nil, err
	}
	cfg = cfg.Normalized()
	gen := c.generation.Add(1)

	stages := c.processor.plan(cfg)
	inv := &Invocation{Generation: gen}
	// decode + stages + encode
	tracker := newProgressTracker(inv, c.observer, 0, end, len(stages)+2)

	checkpoint := func() error { return c.checkpoint(ctx, gen) }

	if err := checkpoint(); err != nil {
		return nil, err
	}

	buf, format, err := c.loader.LoadFromBytes(input)
	if err != nil {
		return c.fallback(inv, tracker, input, "unknown", err, start), nil
	}
	tracker.step("decode")

	buf, completed, err := c.processor.Run(buf, stages, checkpoint, tracker)
	inv.Stages = completed
	if err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return c.fallback(inv, tracker, input, format, err, start), nil
		}
		return nil, err
	}

	if err := checkpoint(); err != nil {
		return nil, err
	}

	output, err := c.saver.SaveToBytes(buf, c.format)
	if err != nil {
		return c.fallback(inv, tracker, input, format, err, start), nil
	}
	tracker.step("encode")

	inv.Output = output
	inv.Format = c.format
	inv.Width = buf.Width
	inv.Height = buf.Height
	inv.Preprocessed = true
	inv.Duration = time.Since(start)

	c.logger.Info("PipelineCoordinator", "image processed", map[string]interface{}{
		"generation":      gen,
		"input_format":    format,
		"output_format":   c.format,
		"size":            fmt.Sprintf("%dx%d", buf.Width, buf.Height),
		"stages":          completed,
		"processing_time": inv.Duration,
	})

	return inv, nil
}

func (c *Coordinator) validate(cfg config.ProcessingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !c.codec.CanEncode(c.format) {
		return &config.ConfigError{
			Context: "pipeline config",
			Field:   "output_format",
			Value:   c.format,
			Reason:  fmt.Sprintf("not supported by the %s codec", c.codec.Name()),
		}
	}

	return nil
}

// checkpoint is consulted at every stage boundary.
func (c *Coordinator) checkpoint(ctx context.Context, gen uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.policy == PolicyLatestWins {
		if latest := c.generation.Load(); latest != gen {
			return fmt.Errorf("%w: generation %d replaced by %d", ErrSuperseded, gen, latest)
		}
	}

	return nil
}

func (c *Coordinator) fallback(inv *Invocation, tracker *progressTracker, input []byte, format string, cause error, start time.Time) *Invocation {
	inv.Output = input
	inv.Format = format
	inv.Preprocessed = false
	inv.Fallback = cause
	inv.Duration = time.Since(start)

	c.logger.Warning("PipelineCoordinator", "preprocessing skipped, passing input through", map[string]interface{}{
		"generation": inv.Generation,
		"cause":      cause.Error(),
		"malformed":  errors.Is(cause, raster.ErrMalformedBuffer),
		"stages":     inv.Stages,
	})

	tracker.finish("fallback")
	return inv
}

// Generation returns the id of the most recently started invocation.
func (c *Coordinator) Generation() uint64 {
	return c.generation.Load()
}
