package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls     []string
	installed map[string]bool
	failing   map[string]bool
	outputs   map[string]string
}

func (f *fakeRunner) run(name string, args ...string) (string, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)

	if name == "pkg-config" {
		if f.installed[args[len(args)-1]] {
			return "", nil
		}
		return "", errors.New("exit status 1")
	}

	if f.failing[name] {
		return "boom\n", errors.New("exit status 1")
	}
	return f.outputs[name], nil
}

func TestBackendStepsSkipMissingLibraries(t *testing.T) {
	fake := &fakeRunner{installed: map[string]bool{"tesseract": true}}
	qc := &QualityChecker{run: fake.run}

	qc.runSteps(backendSteps())

	assert.Equal(t, 1, qc.checksPassed)
	assert.Zero(t, qc.checksFailed)
	require.Len(t, qc.skipped, 1)
	assert.Contains(t, qc.skipped[0], "opencv4")
	assert.Contains(t, fake.calls, "go test -tags ocr ./internal/recognition/... ./internal/app/...")
}

func TestUnformattedFilesFailGofmt(t *testing.T) {
	fake := &fakeRunner{outputs: map[string]string{"gofmt": "internal/raster/median.go\n"}}
	qc := &QualityChecker{run: fake.run}

	qc.runSteps(coreSteps(true))

	assert.Equal(t, 1, qc.checksFailed)
	assert.Equal(t, 3, qc.checksPassed)
}

func TestFailingCommandCounts(t *testing.T) {
	fake := &fakeRunner{failing: map[string]bool{"go": true}}
	qc := &QualityChecker{run: fake.run}

	qc.runSteps(coreSteps(false))

	assert.Equal(t, 3, qc.checksFailed)
	assert.Contains(t, fake.calls, "go test -race ./...")
}

func TestExampleConfigLoads(t *testing.T) {
	qc := &QualityChecker{}
	qc.checkExampleConfig(filepath.Join("..", "..", ExampleConfig))

	assert.Equal(t, 1, qc.checksPassed)
	assert.Zero(t, qc.checksFailed)
}

func TestBrokenConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("preset = \"poster\"\n"), 0o644))

	qc := &QualityChecker{}
	qc.checkExampleConfig(path)

	assert.Equal(t, 1, qc.checksFailed)
}
