package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"glyphprep/internal/config"
)

const (
	BuildTarget   = "./cmd/glyphprep"
	ExampleConfig = "glyphprep.example.toml"
	ColorGreen    = "\033[0;32m"
	ColorRed      = "\033[0;31m"
	ColorYellow   = "\033[1;33m"
	ColorReset    = "\033[0m"
)

// step is one command of the gate. A step with a pkgConfig name only runs when
// that native library is installed, otherwise it is skipped with a warning.
type step struct {
	name      string
	args      []string
	pkgConfig string
}

// runner executes a command and returns its combined output.
type runner func(name string, args ...string) (string, error)

type QualityChecker struct {
	run          runner
	checksPassed int
	checksFailed int
	skipped      []string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/quality_check [check|fast|backends|config]")
		os.Exit(1)
	}

	qc := &QualityChecker{run: execRunner}

	switch os.Args[1] {
	case "check":
		qc.runSteps(coreSteps(false))
		qc.checkExampleConfig(ExampleConfig)
		qc.runSteps(backendSteps())
	case "fast":
		qc.runSteps(coreSteps(true))
		qc.checkExampleConfig(ExampleConfig)
	case "backends":
		qc.runSteps(backendSteps())
	case "config":
		qc.checkExampleConfig(ExampleConfig)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	qc.generateSummary()
	if qc.checksFailed > 0 {
		os.Exit(1)
	}
}

// coreSteps covers the pure-Go build: no cgo, no native libraries.
func coreSteps(fast bool) []step {
	test := []string{"go", "test", "-race", "./..."}
	if fast {
		test = []string{"go", "test", "-short", "./..."}
	}

	return []step{
		{name: "gofmt", args: []string{"gofmt", "-l", "cmd", "internal"}},
		{name: "go vet", args: []string{"go", "vet", "./..."}},
		{name: "tests", args: test},
		{name: "build " + BuildTarget, args: []string{"go", "build", "-o", os.DevNull, BuildTarget}},
	}
}

// backendSteps tests the cgo backends behind their build tags.
func backendSteps() []step {
	return []step{
		{
			name:      "opencv codec",
			args:      []string{"go", "test", "-tags", "opencv", "./internal/opencv/...", BuildTarget},
			pkgConfig: "opencv4",
		},
		{
			name:      "tesseract recognizer",
			args:      []string{"go", "test", "-tags", "ocr", "./internal/recognition/...", "./internal/app/..."},
			pkgConfig: "tesseract",
		},
	}
}

func (qc *QualityChecker) runSteps(steps []step) {
	for _, s := range steps {
		if s.pkgConfig != "" {
			if _, err := qc.run("pkg-config", "--exists", s.pkgConfig); err != nil {
				qc.skip(fmt.Sprintf("%s: %s not installed", s.name, s.pkgConfig))
				continue
			}
		}

		output, err := qc.run(s.args[0], s.args[1:]...)
		// gofmt -l succeeds and lists offending files
		if err == nil && s.args[0] == "gofmt" && strings.TrimSpace(output) != "" {
			err = fmt.Errorf("unformatted files")
		}

		if err != nil {
			qc.fail(fmt.Sprintf("%s failed", s.name))
			if strings.TrimSpace(output) != "" {
				fmt.Print(output)
			}
			continue
		}
		qc.success(fmt.Sprintf("%s passed", s.name))
	}
}

// checkExampleConfig loads the shipped sample config the way the CLI does.
func (qc *QualityChecker) checkExampleConfig(path string) {
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		qc.fail(fmt.Sprintf("%s: %v", path, err))
		return
	}
	qc.success(fmt.Sprintf("%s loads (preset %s)", path, cfg.Preset))
}

func (qc *QualityChecker) success(message string) {
	fmt.Printf("%s✓%s %s\n", ColorGreen, ColorReset, message)
	qc.checksPassed++
}

func (qc *QualityChecker) fail(message string) {
	fmt.Printf("%s✗%s %s\n", ColorRed, ColorReset, message)
	qc.checksFailed++
}

func (qc *QualityChecker) skip(message string) {
	fmt.Printf("%s⚠%s skipped %s\n", ColorYellow, ColorReset, message)
	qc.skipped = append(qc.skipped, message)
}

func (qc *QualityChecker) generateSummary() {
	fmt.Println("\n==================================")
	fmt.Println("Quality Check Summary")
	fmt.Println("==================================")
	fmt.Printf("Passed:  %d\n", qc.checksPassed)
	fmt.Printf("Failed:  %d\n", qc.checksFailed)
	fmt.Printf("Skipped: %d\n\n", len(qc.skipped))

	if qc.checksFailed == 0 {
		fmt.Printf("%sAll quality checks passed%s\n", ColorGreen, ColorReset)
	} else {
		fmt.Printf("%s%d quality checks failed%s\n", ColorRed, qc.checksFailed, ColorReset)
	}
}

func execRunner(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	return string(output), err
}
