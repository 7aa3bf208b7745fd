package bundle

import (
	"strings"
	"testing"
	"time"
)

func testFiles() []FileMeta {
	return []FileMeta{
		{ID: "id1", Name: "song.ogg", Checksum: "aaa", Size: 100, ModifiedTime: time.Now()},
		{ID: "id2", Name: "notes.chart", Checksum: "bbb", Size: 200},
		{ID: "id3", Name: "album.png", Checksum: "ccc", Size: 300},
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	files := testFiles()
	fp1 := Fingerprint(files)
	fp2 := Fingerprint(files)
	if fp1 != fp2 {
		t.Errorf("Expected identical fingerprints, got %s and %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(fp1))
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	files := testFiles()
	permuted := []FileMeta{files[2], files[0], files[1]}

	if Fingerprint(files) != Fingerprint(permuted) {
		t.Error("Expected fingerprint to be independent of file order")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint(testFiles())

	tests := []struct {
		name   string
		mutate func(files []FileMeta)
	}{
		{"changed checksum", func(files []FileMeta) { files[0].Checksum = "zzz" }},
		{"changed id", func(files []FileMeta) { files[1].ID = "other" }},
		{"changed name", func(files []FileMeta) { files[2].Name = "cover.png" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			files := testFiles()
			test.mutate(files)
			if Fingerprint(files) == base {
				t.Error("Expected fingerprint to change")
			}
		})
	}
}

func TestFingerprintIgnoresSizeAndTime(t *testing.T) {
	files := testFiles()
	base := Fingerprint(files)

	files[0].Size = 9999
	files[1].ModifiedTime = time.Now().Add(time.Hour)
	if Fingerprint(files) != base {
		t.Error("Expected fingerprint to ignore size and modification time")
	}
}

func TestFolderName(t *testing.T) {
	fp := Fingerprint(testFiles())
	name := FolderName("Cool Song", fp)

	if !strings.HasPrefix(name, "Cool Song [") {
		t.Errorf("Unexpected folder name: %s", name)
	}
	if !strings.HasSuffix(name, "["+fp[:FingerprintPrefixLen]+"]") {
		t.Errorf("Expected %d-char fingerprint prefix suffix, got: %s", FingerprintPrefixLen, name)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Plain Name", "Plain Name"},
		{"a/b\\c:d", "a_b_c_d"},
		{"what?*<>|", "what_____"},
		{"trailing dots...", "trailing dots"},
		{"  spaced  ", "spaced"},
		{"...", "unnamed"},
		{"", "unnamed"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := SanitizeName(test.input); got != test.expected {
				t.Errorf("SanitizeName(%q) = %q, want %q", test.input, got, test.expected)
			}
		})
	}
}

func TestFileTypeHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		notation bool
		audio    bool
		archive  bool
	}{
		{"notes.chart", true, false, false},
		{"notes.MID", true, false, false},
		{"song.ogg", false, true, false},
		{"song.Opus", false, true, false},
		{"guitar.flac", false, true, false},
		{"pack.zip", false, false, true},
		{"pack.RAR", false, false, true},
		{"pack.7z", false, false, true},
		{"readme.txt", false, false, false},
		{"album.png", false, false, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsNotationFile(test.name); got != test.notation {
				t.Errorf("IsNotationFile = %v, want %v", got, test.notation)
			}
			if got := IsAudioFile(test.name); got != test.audio {
				t.Errorf("IsAudioFile = %v, want %v", got, test.audio)
			}
			if got := IsArchiveFile(test.name); got != test.archive {
				t.Errorf("IsArchiveFile = %v, want %v", got, test.archive)
			}
		})
	}
}

func TestQualifiesAsBundle(t *testing.T) {
	tests := []struct {
		name     string
		files    []FileMeta
		expected bool
	}{
		{"notation only", []FileMeta{{Name: "notes.chart"}}, true},
		{"audio only", []FileMeta{{Name: "song.ogg"}}, true},
		{"mixed with extras", testFiles(), true},
		{"images only", []FileMeta{{Name: "a.png"}, {Name: "b.jpg"}}, false},
		{"empty", nil, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := QualifiesAsBundle(test.files); got != test.expected {
				t.Errorf("QualifiesAsBundle = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestResultMapKeepLast(t *testing.T) {
	rm := make(ResultMap)

	first := &Bundle{RootID: "root1", Name: "First", Fingerprint: "abc"}
	second := &Bundle{RootID: "root1", Name: "Second", Fingerprint: "abc"}
	other := &Bundle{RootID: "root2", Name: "Other", Fingerprint: "abc"}

	if prev := rm.Add(first); prev != nil {
		t.Error("Expected no previous bundle on first add")
	}
	if prev := rm.Add(second); prev != first {
		t.Error("Expected first bundle to be returned as previous")
	}
	if prev := rm.Add(other); prev != nil {
		t.Error("Expected no collision across different roots")
	}

	if rm.Count() != 2 {
		t.Errorf("Expected 2 bundles, got %d", rm.Count())
	}
	if rm["root1"]["abc"].Name != "Second" {
		t.Error("Expected the later bundle to win")
	}
}
