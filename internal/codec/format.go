package codec

import (
	"path/filepath"
	"strings"
)

// FormatFromPath maps a file extension to a format name, falling back to
// sniffed when the extension is unknown.
func FormatFromPath(path, sniffed string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		if sniffed != "" {
			return sniffed
		}
		return "unknown"
	}
}

// Extension returns the file extension written for an output format.
func Extension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "tiff":
		return ".tif"
	case "":
		return ".png"
	default:
		return "." + format
	}
}
