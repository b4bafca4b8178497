//go:build !ocr

package recognition

// New returns ErrNotEnabled when built without the ocr tag.
func New() (Recognizer, error) {
	return nil, ErrNotEnabled
}
