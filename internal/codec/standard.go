package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"glyphprep/internal/raster"
)

const StandardName = "standard"

func init() {
	Register(StandardName, func(opts Options) (Codec, error) {
		return NewStandard(opts)
	})
}

// Standard is the pure Go backend. It decodes JPEG, PNG, GIF, BMP, TIFF and
// WebP and encodes PNG, JPEG, TIFF and BMP.
type Standard struct {
	resampler   string
	jpegQuality int
}

func NewStandard(opts Options) (*Standard, error) {
	s := &Standard{
		resampler:   strings.ToLower(opts.Resampler),
		jpegQuality: opts.JPEGQuality,
	}

	if s.resampler == "" {
		s.resampler = "catmullrom"
	}
	if s.resampler != "catmullrom" && s.resampler != "lanczos" {
		return nil, fmt.Errorf("unsupported resampler: %s", opts.Resampler)
	}

	if s.jpegQuality == 0 {
		s.jpegQuality = 95
	}
	if s.jpegQuality < 1 || s.jpegQuality > 100 {
		return nil, fmt.Errorf("jpeg quality %d out of range", opts.JPEGQuality)
	}

	return s, nil
}

func (s *Standard) Name() string {
	return StandardName
}

func (s *Standard) Decode(data []byte) (*raster.PixelBuffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no image data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, "", fmt.Errorf("failed to rasterize %s image: %w", format, err)
	}

	return buf, format, nil
}

func (s *Standard) CanEncode(format string) bool {
	switch format {
	case "png", "jpeg", "tiff", "bmp":
		return true
	default:
		return false
	}
}

func (s *Standard) Encode(buf *raster.PixelBuffer, format string) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	img := buf.NRGBA()
	var out bytes.Buffer

	var err error
	switch format {
	case "png":
		err = png.Encode(&out, img)
	case "jpeg":
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: s.jpegQuality})
	case "tiff":
		err = tiff.Encode(&out, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		err = bmp.Encode(&out, img)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return out.Bytes(), nil
}

func (s *Standard) Resize(buf *raster.PixelBuffer, width, height int) (*raster.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	src := buf.NRGBA()

	if s.resampler == "lanczos" {
		return raster.FromImage(imaging.Resize(src, width, height, imaging.Lanczos))
	}

	out, err := raster.NewPixelBuffer(width, height)
	if err != nil {
		return nil, err
	}

	dst := out.NRGBA()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out, nil
}
