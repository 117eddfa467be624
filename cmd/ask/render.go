package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/spetersoncode/answer"
)

// Spinner wraps a terminal spinner for loading states.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return &Spinner{s: s}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop halts the spinner and clears the line. Safe to call repeatedly.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// Render drains call and writes the answer to w as it grows. Cumulative
// answers are written as deltas; when the text is replaced rather than
// extended, the new text is written on a fresh line. onFirst runs before the
// first write. Returns the final answer text and the call error.
func Render(w io.Writer, call *answer.Call, onFirst func()) (string, error) {
	var shown string
	first := true

	err := call.Wait(func(ev answer.Event) {
		if ev.Answer == nil {
			return
		}
		text := ev.Answer.Text

		if first && text != "" {
			if onFirst != nil {
				onFirst()
			}
			first = false
		}

		if strings.HasPrefix(text, shown) {
			fmt.Fprint(w, text[len(shown):])
		} else {
			dim := color.New(color.FgHiBlack)
			dim.Fprintln(w, "\n  (revised)")
			fmt.Fprint(w, text)
		}
		shown = text
	})

	// Ensure we end with a newline.
	if shown != "" && !strings.HasSuffix(shown, "\n") {
		fmt.Fprintln(w)
	}
	return shown, err
}
