package ui

import (
	"fmt"
	"time"
)

// ProgressWriter counts bytes written through it and rewrites a single
// status line. Warnings printed through PrintWarning interleave cleanly
// because the next write redraws the line.
type ProgressWriter struct {
	label      string
	total      int64
	written    int64
	lastRedraw time.Time
}

// NewProgressWriter creates a progress writer for one file transfer.
// total may be zero when the size is unknown.
func NewProgressWriter(label string, total int64) *ProgressWriter {
	return &ProgressWriter{label: label, total: total}
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	// Redraw at most ~5 times a second.
	if time.Since(pw.lastRedraw) > 200*time.Millisecond {
		pw.redraw()
		pw.lastRedraw = time.Now()
	}
	return len(p), nil
}

// Finish redraws the final state and terminates the status line.
func (pw *ProgressWriter) Finish() {
	pw.redraw()
	if !quietMode {
		fmt.Println()
	}
}

func (pw *ProgressWriter) redraw() {
	if quietMode {
		return
	}
	if pw.total > 0 {
		fmt.Printf("\r%s %s %s / %s", Green("[FETCH]"), pw.label,
			FormatBytes(pw.written), FormatBytes(pw.total))
	} else {
		fmt.Printf("\r%s %s %s", Green("[FETCH]"), pw.label, FormatBytes(pw.written))
	}
}

// FormatBytes renders a byte count in human-readable units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
