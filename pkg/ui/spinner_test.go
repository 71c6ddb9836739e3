package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpinnerNonTerminal(t *testing.T) {
	var out bytes.Buffer
	s := StartSpinner(&out, "resolving dependencies")
	s.Stop()
	if !strings.Contains(out.String(), "resolving dependencies") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSpinnerStopIdempotent(t *testing.T) {
	var out bytes.Buffer
	s := StartSpinner(&out, "downloading")
	s.Stop()
	s.Stop()
}
