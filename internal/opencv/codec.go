//go:build opencv

// Package opencv is the gocv-backed codec. Importing it registers the
// "opencv" backend with the codec registry.
package opencv

import (
	"bytes"
	"fmt"
	"image"

	"glyphprep/internal/codec"
	"glyphprep/internal/logger"
	"glyphprep/internal/opencv/bridge"
	"glyphprep/internal/opencv/memory"
	"glyphprep/internal/raster"

	"gocv.io/x/gocv"
)

const Name = "opencv"

func init() {
	codec.Register(Name, func(opts codec.Options) (codec.Codec, error) {
		return NewCodec(opts)
	})
}

type Codec struct {
	memory        *memory.Manager
	logger        logger.Logger
	jpegQuality   int
	interpolation gocv.InterpolationFlags
}

func NewCodec(opts codec.Options) (*Codec, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}

	c := &Codec{
		logger:        log,
		jpegQuality:   opts.JPEGQuality,
		interpolation: gocv.InterpolationCubic,
	}

	switch opts.Resampler {
	case "", "catmullrom":
	case "lanczos":
		c.interpolation = gocv.InterpolationLanczos4
	default:
		return nil, fmt.Errorf("unsupported resampler: %s", opts.Resampler)
	}

	if c.jpegQuality == 0 {
		c.jpegQuality = 95
	}

	c.memory = memory.NewManager(log, memory.DefaultMaxMemory)
	return c, nil
}

func (c *Codec) Name() string {
	return Name
}

func (c *Codec) Decode(data []byte) (*raster.PixelBuffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}

	decoded, err := c.memory.Adopt(mat, "decoded_image")
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}
	defer c.memory.ReleaseMat(decoded, "decoded_image")

	buf, err := bridge.MatToBuffer(decoded, c.memory)
	if err != nil {
		return nil, "", err
	}

	format := "unknown"
	if _, sniffed, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = sniffed
	}

	return buf, format, nil
}

func (c *Codec) CanEncode(format string) bool {
	_, ok := fileExt(format)
	return ok
}

func (c *Codec) Encode(buf *raster.PixelBuffer, format string) ([]byte, error) {
	ext, ok := fileExt(format)
	if !ok {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	mat, err := bridge.BufferToMat(buf, c.memory, format != "jpeg")
	if err != nil {
		return nil, err
	}
	defer c.memory.ReleaseMat(mat, "encode_source")

	var params []int
	if format == "jpeg" {
		params = []int{int(gocv.IMWriteJpegQuality), c.jpegQuality}
	}

	encoded, err := gocv.IMEncodeWithParams(ext, mat.GetMat(), params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s with OpenCV: %w", format, err)
	}
	defer encoded.Close()

	return bytes.Clone(encoded.GetBytes()), nil
}

func (c *Codec) Resize(buf *raster.PixelBuffer, width, height int) (*raster.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	src, err := bridge.BufferToMat(buf, c.memory, true)
	if err != nil {
		return nil, err
	}
	defer c.memory.ReleaseMat(src, "resize_source")

	dst, err := c.memory.GetMat(height, width, gocv.MatTypeCV8UC4, "resize_target")
	if err != nil {
		return nil, err
	}
	defer c.memory.ReleaseMat(dst, "resize_target")

	dstMat := dst.GetMat()
	gocv.Resize(src.GetMat(), &dstMat, image.Pt(width, height), 0, 0, c.interpolation)

	return bridge.MatToBuffer(dst, c.memory)
}

// Close stops the memory monitor and reports any Mat still outstanding.
func (c *Codec) Close() error {
	alloc, dealloc, used := c.memory.GetStats()
	c.logger.Debug("MemoryManager", "codec closing", map[string]interface{}{
		"allocations":   alloc,
		"deallocations": dealloc,
		"used_bytes":    used,
	})
	c.memory.Shutdown()
	return nil
}

func (c *Codec) ActiveMats() int {
	return c.memory.GetActiveMatCount()
}

func fileExt(format string) (gocv.FileExt, bool) {
	switch format {
	case "png":
		return gocv.PNGFileExt, true
	case "jpeg":
		return gocv.FileExt(".jpg"), true
	case "bmp":
		return gocv.FileExt(".bmp"), true
	case "tiff":
		return gocv.FileExt(".tiff"), true
	default:
		return "", false
	}
}
