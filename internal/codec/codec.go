// Package codec turns encoded image bytes into raster buffers and back, and
// resamples buffers for the upscale stage. Backends register themselves by
// name; the pure Go "standard" backend is always available.
package codec

import (
	"fmt"
	"slices"
	"sync"

	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
)

// Codec is the decode/encode/resample capability the pipeline delegates to.
type Codec interface {
	Name() string
	Decode(data []byte) (*raster.PixelBuffer, string, error)
	Encode(buf *raster.PixelBuffer, format string) ([]byte, error)
	Resize(buf *raster.PixelBuffer, width, height int) (*raster.PixelBuffer, error)
	CanEncode(format string) bool
}

type Options struct {
	Resampler   string
	JPEGQuality int
	Logger      logger.Logger
}

type Factory func(opts Options) (Codec, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under name. Registering a name twice
// replaces the earlier factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if factory, exists := registry[name]; exists {
		return factory, nil
	}

	return nil, fmt.Errorf("unknown codec backend: %s (available: %v)", name, availableLocked())
}

func New(name string, opts Options) (Codec, error) {
	factory, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return factory(opts)
}

func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return availableLocked()
}

func availableLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
