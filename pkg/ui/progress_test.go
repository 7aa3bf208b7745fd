package ui

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if got := FormatBytes(test.input); got != test.expected {
				t.Errorf("FormatBytes(%d) = %q, want %q", test.input, got, test.expected)
			}
		})
	}
}

func TestProgressWriterCountsBytes(t *testing.T) {
	SetQuietMode(true)
	defer SetQuietMode(false)

	pw := NewProgressWriter("song.ogg", 100)
	n, err := pw.Write(make([]byte, 40))
	if err != nil || n != 40 {
		t.Fatalf("Write returned (%d, %v)", n, err)
	}
	pw.Write(make([]byte, 60))
	pw.Finish()

	if pw.written != 100 {
		t.Errorf("Expected 100 bytes counted, got %d", pw.written)
	}
}
