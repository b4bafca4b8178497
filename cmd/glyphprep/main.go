package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"glyphprep/internal/app"
	"glyphprep/internal/config"
	"glyphprep/internal/pipeline"
)

type cliFlags struct {
	configPath string
	preset     string
	in         string
	out        string
	format     string
	codec      string
	policy     string
	window     int
	constant   int
	denoise    bool
	noUpscale  bool
	recognize  bool
	language   string
	watch      bool
	inbox      string
	outDir     string
	truth      string
	debug      bool
	version    bool
	inputs     []string
	set        map[string]bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("glyphprep: %v", err)
	}
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}

	fs := flag.NewFlagSet(app.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s -preset general|document [flags] image...\n", app.AppName)
		fmt.Fprintf(stderr, "       %s -preset document -watch -inbox DIR [-outdir DIR]\n\n", app.AppName)
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "", "TOML config file")
	fs.StringVar(&f.preset, "preset", "", "threshold preset: "+strings.Join(config.PresetNames(), " or "))
	fs.StringVar(&f.in, "in", "", "input image (positional arguments also accepted)")
	fs.StringVar(&f.out, "out", "", "output path, single input only")
	fs.StringVar(&f.format, "format", "", "output format: png, jpeg, tiff or bmp")
	fs.StringVar(&f.codec, "codec", "", "codec backend: standard or opencv")
	fs.StringVar(&f.policy, "policy", "", "concurrent invocations: independent or latest_wins")
	fs.IntVar(&f.window, "window", 0, "adaptive threshold window size, odd")
	fs.IntVar(&f.constant, "constant", 0, "adaptive threshold constant")
	fs.BoolVar(&f.denoise, "denoise", false, "apply the 3x3 median filter before thresholding")
	fs.BoolVar(&f.noUpscale, "no-upscale", false, "skip resolution normalization")
	fs.BoolVar(&f.recognize, "recognize", false, "run text recognition on the result")
	fs.StringVar(&f.language, "lang", "", "recognition language, e.g. amh or eng+amh")
	fs.BoolVar(&f.watch, "watch", false, "watch the inbox directory instead of processing files")
	fs.StringVar(&f.inbox, "inbox", "", "inbox directory for -watch")
	fs.StringVar(&f.outDir, "outdir", "", "output directory for -watch")
	fs.StringVar(&f.truth, "truth", "", "ground-truth page to score the binarized output against, single input only")
	fs.BoolVar(&f.debug, "debug", false, "debug logging")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.in != "" {
		f.inputs = append(f.inputs, f.in)
	}
	f.inputs = append(f.inputs, fs.Args()...)

	return f, nil
}

// buildConfig layers defaults, the config file, explicitly set flags and the
// environment, in that order.
func buildConfig(f *cliFlags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if f.preset != "" {
		if err := cfg.ApplyPreset(f.preset); err != nil {
			return config.Config{}, err
		}
	}

	if f.set["window"] {
		cfg.Processing.WindowSize = f.window
	}
	if f.set["constant"] {
		cfg.Processing.ThresholdConstant = f.constant
	}
	if f.set["denoise"] {
		cfg.Processing.Denoise = f.denoise
	}
	if f.set["no-upscale"] {
		cfg.Processing.Upscale = !f.noUpscale
	}
	if f.set["format"] {
		cfg.Pipeline.OutputFormat = strings.ToLower(f.format)
	}
	if f.set["codec"] {
		cfg.Codec.Backend = f.codec
	}
	if f.set["policy"] {
		cfg.Pipeline.Policy = f.policy
	}
	if f.set["recognize"] {
		cfg.Recognition.Enabled = f.recognize
	}
	if f.set["lang"] {
		cfg.Recognition.Language = f.language
	}
	if f.set["inbox"] {
		cfg.Watch.InboxDir = f.inbox
	}
	if f.set["outdir"] {
		cfg.Watch.OutputDir = f.outDir
	}

	cfg.ApplyEnv()
	if f.debug {
		cfg.Log.Debug = true
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func run(args []string, stdout io.Writer) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	if f.version {
		fmt.Fprintf(stdout, "%s %s\n", app.AppName, app.AppVersion)
		return nil
	}

	if !f.watch && len(f.inputs) == 0 {
		return fmt.Errorf("no input images given")
	}

	if f.out != "" && len(f.inputs) > 1 {
		return fmt.Errorf("-out requires a single input, got %d", len(f.inputs))
	}

	if f.truth != "" && len(f.inputs) != 1 {
		return fmt.Errorf("-truth requires a single input, got %d", len(f.inputs))
	}

	cfg, err := buildConfig(f)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg, app.WithSignalHandling())
	if err != nil {
		return err
	}
	defer application.ShutdownWithTimeout(10 * time.Second)

	ctx := application.Context()

	if f.watch {
		return application.Watch(ctx)
	}

	return processAll(ctx, application, cfg, f, stdout)
}

func processAll(ctx context.Context, application *app.Application, cfg config.Config, f *cliFlags, stdout io.Writer) error {
	var failed int
	for _, in := range f.inputs {
		inv, err := application.ProcessFile(ctx, in, f.out)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(stdout, "%s: error: %v\n", in, err)
			failed++
			continue
		}

		out := f.out
		if out == "" {
			out = app.OutputPath(in, "", inv.Format)
		}
		fmt.Fprintln(stdout, summarize(in, out, inv))

		if cfg.Recognition.Enabled {
			fmt.Fprintf(stdout, "  text (%s, confidence %.1f):\n%s\n", inv.Language, inv.Confidence, inv.Text)
		}

		if f.truth != "" {
			m, err := application.Evaluate(inv, f.truth)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			fmt.Fprintf(stdout, "  f-measure %.4f  psnr %.2f  nrm %.4f  drd %.4f\n",
				m.FMeasure(), m.PSNR(), m.NRM(), m.DRD())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(f.inputs))
	}
	return nil
}

func summarize(in, out string, inv *pipeline.Invocation) string {
	if inv.Fallback != nil {
		return fmt.Sprintf("%s -> %s (passed through: %v)", in, out, inv.Fallback)
	}
	return fmt.Sprintf("%s -> %s (%dx%d, %s, %s)", in, out, inv.Width, inv.Height,
		strings.Join(inv.Stages, "+"), inv.Duration.Round(time.Millisecond))
}
