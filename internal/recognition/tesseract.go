//go:build ocr

package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs each recognition on a fresh gosseract client.
type Tesseract struct {
	clientFactory func() *gosseract.Client
}

func New() (Recognizer, error) {
	return &Tesseract{clientFactory: gosseract.NewClient}, nil
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(ctx context.Context, in Input) (Result, error) {
	if len(in.Image) == 0 {
		return Result{}, fmt.Errorf("no image to recognize")
	}

	c := t.clientFactory()
	defer c.Close()

	statuses := []Status{{Message: "initializing engine", Fraction: 0}}

	if langs := in.Languages(); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return Result{}, fmt.Errorf("set languages: %w", err)
		}
	}

	if in.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(in.PageSegMode)); err != nil {
			return Result{}, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}

	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	statuses = append(statuses, Status{Message: "image loaded", Fraction: 0.25})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	statuses = append(statuses, Status{Message: "recognizing text", Fraction: 0.75})

	words := extractWords(c)
	statuses = append(statuses, Status{Message: "recognized", Fraction: 1})

	return NewResult(strings.TrimSpace(text), AverageConfidence(words), in.Language, words, statuses...), nil
}

func extractWords(c *gosseract.Client) []Word {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Bounds:     b.Box,
			Confidence: b.Confidence,
		})
	}
	return words
}
