package pipeline

import (
	"glyphprep/internal/codec"
	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
)

type imageSaver struct {
	codec  codec.Codec
	logger logger.Logger
}

func (s *imageSaver) SaveToBytes(buf *raster.PixelBuffer, format string) ([]byte, error) {
	if format == "" {
		format = "png"
	}

	data, err := s.codec.Encode(buf, format)
	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": format,
		})
		return nil, &EncodeError{Codec: s.codec.Name(), Format: format, Err: err}
	}

	s.logger.Debug("ImageSaver", "image encoded", map[string]interface{}{
		"format": format,
		"bytes":  len(data),
	})

	return data, nil
}
