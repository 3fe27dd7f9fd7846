package utils

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestPrintTimingStats(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	defer func() { Output, Verbose = oldOut, oldVerbose }()
	Output = &buf

	stats := &TimingStats{
		TotalTime:        time.Second,
		ForwardPassTime:  250 * time.Millisecond,
		BackwardPassTime: 500 * time.Millisecond,
		Samples:          10,
	}

	Verbose = false
	PrintTimingStats(stats)
	if buf.Len() != 0 {
		t.Fatalf("expected no output when Verbose=false, got %q", buf.String())
	}

	Verbose = true
	PrintTimingStats(stats)
	out := buf.String()
	for _, want := range []string{"TIMING STATISTICS", "Samples trained: 10", "Forward pass: 250ms (25.0%)", "Backward pass: 500ms (50.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
