// Package recognition is the boundary to the text-recognition engine. The
// tesseract backend is compiled in with the "ocr" build tag; without it New
// returns ErrNotEnabled.
//
// Building with recognition requires Tesseract and Leptonica on the system:
//
//	apt-get install tesseract-ocr libtesseract-dev
//	go build -tags ocr ./...
package recognition

import (
	"context"
	"errors"
	"image"
	"iter"
	"strings"
)

var ErrNotEnabled = errors.New("recognition not enabled: build with -tags ocr")

type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// Input is one encoded image plus engine hints. Language uses Tesseract's
// "+"-joined selector form, e.g. "eng+ara".
type Input struct {
	Image       []byte
	Language    string
	PageSegMode int
	DPI         int
}

// Languages splits the selector into individual language codes.
func (in Input) Languages() []string {
	var langs []string
	for _, lang := range strings.Split(in.Language, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

type Word struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// Status is one step reported by the engine while it worked.
type Status struct {
	Message  string
	Fraction float64
}

type Result struct {
	Text       string
	Confidence float64 // 0-100
	Language   string
	Words      []Word
	statuses   []Status
}

// NewResult builds a Result carrying the engine's status trail.
func NewResult(text string, confidence float64, language string, words []Word, statuses ...Status) Result {
	return Result{
		Text:       text,
		Confidence: confidence,
		Language:   language,
		Words:      words,
		statuses:   statuses,
	}
}

// Events yields the recorded status updates. The sequence is finite and can be
// ranged over any number of times.
func (r Result) Events() iter.Seq[Status] {
	return func(yield func(Status) bool) {
		for _, s := range r.statuses {
			if !yield(s) {
				return
			}
		}
	}
}

// AverageConfidence is the mean word confidence, 0 when there are no words.
func AverageConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}

	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

// Func adapts a plain function to Recognizer.
type Func func(ctx context.Context, in Input) (Result, error)

func (f Func) Name() string {
	return "func"
}

func (f Func) Recognize(ctx context.Context, in Input) (Result, error) {
	return f(ctx, in)
}
