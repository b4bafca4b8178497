package pipeline

import (
	"glyphprep/internal/codec"
	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
)

type imageLoader struct {
	codec  codec.Codec
	logger logger.Logger
}

// LoadFromBytes decodes input into a fresh buffer. Every failure, including a
// codec handing back a malformed buffer, is reported as a DecodeError.
func (l *imageLoader) LoadFromBytes(data []byte) (*raster.PixelBuffer, string, error) {
	buf, format, err := l.codec.Decode(data)
	if err == nil {
		err = buf.Validate()
	}
	if err != nil {
		return nil, "", &DecodeError{Codec: l.codec.Name(), Err: err}
	}

	l.logger.Debug("ImageLoader", "image loaded", map[string]interface{}{
		"width":  buf.Width,
		"height": buf.Height,
		"format": format,
		"bytes":  len(data),
	})

	return buf, format, nil
}
