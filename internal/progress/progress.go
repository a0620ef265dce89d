// Package progress draws stderr progress indicators for long-running steps.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for file processing.
type Tracker struct {
	bar    *progressbar.ProgressBar
	label  string
	writer io.Writer
}

type options struct {
	writer  io.Writer
	visible bool
}

// Option configures a Tracker.
type Option func(*options)

// WithWriter sends the bar and finish messages to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithVisible hides the bar when visible is false. Finish messages are
// still written.
func WithVisible(visible bool) Option {
	return func(o *options) {
		o.visible = visible
	}
}

func apply(opts []Option) options {
	o := options{writer: os.Stderr, visible: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string, opts ...Option) *Tracker {
	o := apply(opts)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(o.writer),
		progressbar.OptionSetVisibility(o.visible),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, writer: o.writer}
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(label string, total int, opts ...Option) *Tracker {
	o := apply(opts)
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.writer),
		progressbar.OptionSetVisibility(o.visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, writer: o.writer}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	_ = t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (t *Tracker) FinishSkipped(reason string) {
	t.FinishSuccess()
	fmt.Fprintf(t.writer, "  %s skipped (%s)\n", t.label, reason)
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.FinishSuccess()
	fmt.Fprintf(t.writer, "  %s error: %v\n", t.label, err)
}
