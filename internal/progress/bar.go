package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"dropmirror/internal/mirror"
)

// barTheme draws "[####......]".
var barTheme = progressbar.Theme{
	Saucer:        "#",
	SaucerPadding: ".",
	BarStart:      "[",
	BarEnd:        "]",
}

// Bar renders collection progress on a terminal as a single redrawn line.
// When the output is not a terminal it prints one line per collection
// instead of redrawing.
type Bar struct {
	out   io.Writer
	tty   bool
	width int // bar cells; 0 fills the terminal

	label   string
	total   int
	current int
	bar     *progressbar.ProgressBar
}

var _ mirror.Progress = (*Bar)(nil)

// NewBar creates a Bar writing to f, detecting whether f is a terminal.
func NewBar(f *os.File) *Bar {
	return NewBarWriter(f, term.IsTerminal(int(f.Fd())), 0)
}

// NewBarWriter creates a Bar on an arbitrary writer. A positive width fixes
// the number of bar cells.
func NewBarWriter(out io.Writer, tty bool, width int) *Bar {
	return &Bar{out: out, tty: tty, width: width}
}

func (b *Bar) Start(label string, total int) {
	b.label, b.total, b.current = label, total, 0
	b.bar = nil

	switch {
	case !b.tty:
		fmt.Fprintf(b.out, "%s: %d items\n", label, total)
	case total == 0:
		// the bar needs a positive maximum
		fmt.Fprintf(b.out, "%s: no items\n", label)
	default:
		b.bar = progressbar.NewOptions(total, b.options(label)...)
	}
}

func (b *Bar) Increment() {
	b.current++
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
		return
	}
	if !b.tty {
		fmt.Fprintf(b.out, "%s: done (%d/%d)\n", b.label, b.current, b.total)
	}
}

func (b *Bar) options(label string) []progressbar.Option {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription(label + " "),
		progressbar.OptionSetTheme(barTheme),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(b.out)
		}),
	}
	if b.width > 0 {
		opts = append(opts, progressbar.OptionSetWidth(b.width))
	} else {
		opts = append(opts, progressbar.OptionFullWidth())
	}
	return opts
}
