package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
)

// spinnerGlyphs are the frames ticked while a phase runs.
var spinnerGlyphs = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner renders a phase indicator on its own goroutine. The only
// communication with the main goroutine is a single boolean flag read on
// each tick; Stop sets the flag and joins the goroutine before the
// caller proceeds past the phase.
type Spinner struct {
	out     io.Writer
	message string
	stopped atomic.Bool
	wg      sync.WaitGroup
	active  bool
}

// StartSpinner begins a spinner for one phase. On a non-terminal writer
// it prints the message once and stays silent.
func StartSpinner(out io.Writer, message string) *Spinner {
	s := &Spinner{out: out, message: message}

	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	if !tty {
		fmt.Fprintln(out, message)
		return s
	}

	s.active = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if s.stopped.Load() {
				fmt.Fprintf(out, "\r\033[K")
				return
			}
			fmt.Fprintf(out, "\r%s %s", Accent.Render(spinnerGlyphs[frame%len(spinnerGlyphs)]), message)
			frame++
		}
	}()
	return s
}

// Stop ends the phase and joins the spinner goroutine.
func (s *Spinner) Stop() {
	if !s.active {
		return
	}
	s.stopped.Store(true)
	s.wg.Wait()
}
