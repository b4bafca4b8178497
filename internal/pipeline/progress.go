package pipeline

import (
	"iter"
	"time"
)

// Progress is one completed step of an invocation. Fraction is the overall
// completion in [0,1] and never decreases within an invocation.
type Progress struct {
	Generation uint64
	Stage      string
	Fraction   float64
}

// Invocation is the record of one pipeline call.
type Invocation struct {
	Generation uint64

	// Output is the encoded result, or the untouched input when Fallback is set.
	Output []byte
	Format string
	Width  int
	Height int

	// Stages lists the preprocessing stages that completed, in order.
	Stages       []string
	Preprocessed bool
	Fallback     error

	Text       string
	Confidence float64
	Language   string

	Duration time.Duration

	progress []Progress
}

// Progress yields the recorded progress events. It can be ranged over any
// number of times and always yields the same sequence.
func (inv *Invocation) Progress() iter.Seq[Progress] {
	return func(yield func(Progress) bool) {
		for _, p := range inv.progress {
			if !yield(p) {
				return
			}
		}
	}
}

// progressTracker spreads a fixed number of steps evenly over [start, end].
type progressTracker struct {
	inv      *Invocation
	observer func(Progress)
	start    float64
	end      float64
	steps    int
	done     int
}

func newProgressTracker(inv *Invocation, observer func(Progress), start, end float64, steps int) *progressTracker {
	return &progressTracker{
		inv:      inv,
		observer: observer,
		start:    start,
		end:      end,
		steps:    max(steps, 1),
	}
}

// step records completion of the next planned step.
func (t *progressTracker) step(stage string) {
	t.done = min(t.done+1, t.steps)
	t.emit(stage, t.start+(t.end-t.start)*float64(t.done)/float64(t.steps))
}

// finish jumps to the end of the range, used when the remaining steps are
// skipped.
func (t *progressTracker) finish(stage string) {
	t.done = t.steps
	t.emit(stage, t.end)
}

// at records an event at a fraction of the tracker's range, clamped so the
// sequence stays non-decreasing.
func (t *progressTracker) at(stage string, fraction float64) {
	value := t.start + (t.end-t.start)*min(max(fraction, 0), 1)
	t.emit(stage, value)
}

func (t *progressTracker) emit(stage string, fraction float64) {
	if n := len(t.inv.progress); n > 0 {
		fraction = max(fraction, t.inv.progress[n-1].Fraction)
	}

	p := Progress{Generation: t.inv.Generation, Stage: stage, Fraction: fraction}
	t.inv.progress = append(t.inv.progress, p)

	if t.observer != nil {
		t.observer(p)
	}
}
