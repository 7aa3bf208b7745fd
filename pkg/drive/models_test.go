package drive

import (
	"testing"
	"time"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		expected string
	}{
		{
			"no original filename",
			Item{Name: "song.ogg"},
			"song.ogg",
		},
		{
			"matching extensions",
			Item{Name: "song.ogg", OriginalFilename: "upload.ogg"},
			"song.ogg",
		},
		{
			"matching extensions different case",
			Item{Name: "song.OGG", OriginalFilename: "upload.ogg"},
			"song.OGG",
		},
		{
			"display name lost its extension",
			Item{Name: "song", OriginalFilename: "song.ogg"},
			"song.ogg",
		},
		{
			"display name has wrong extension",
			Item{Name: "song.tmp", OriginalFilename: "song.ogg"},
			"song.tmp.ogg",
		},
		{
			"original has no extension",
			Item{Name: "song.ogg", OriginalFilename: "upload"},
			"song.ogg",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.item.DisplayName(); got != test.expected {
				t.Errorf("DisplayName() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestFileResourceToItem(t *testing.T) {
	res := fileResource{
		ID:           "id1",
		Name:         "song.ogg",
		MimeType:     "audio/ogg",
		Size:         "12345",
		MD5Checksum:  "abc",
		ModifiedTime: "2023-06-01T12:30:00Z",
		Parents:      []string{"parent1"},
	}
	res.Capabilities.CanDownload = true

	item := res.toItem()
	if item.Size != 12345 {
		t.Errorf("Expected size 12345, got %d", item.Size)
	}
	want := time.Date(2023, 6, 1, 12, 30, 0, 0, time.UTC)
	if !item.ModifiedTime.Equal(want) {
		t.Errorf("Expected modified time %v, got %v", want, item.ModifiedTime)
	}
	if !item.CanDownload {
		t.Error("Expected CanDownload to carry over")
	}
	if len(item.Parents) != 1 || item.Parents[0] != "parent1" {
		t.Errorf("Expected parents to carry over, got %v", item.Parents)
	}
}

func TestShortcutConversion(t *testing.T) {
	res := fileResource{
		ID:       "s1",
		Name:     "link",
		MimeType: MimeTypeShortcut,
		ShortcutDetails: &struct {
			TargetID       string `json:"targetId"`
			TargetMimeType string `json:"targetMimeType"`
		}{TargetID: "target1", TargetMimeType: MimeTypeFolder},
	}

	item := res.toItem()
	if !item.IsShortcut() {
		t.Error("Expected a shortcut item")
	}
	if item.ShortcutTargetID != "target1" {
		t.Errorf("Expected target id target1, got %s", item.ShortcutTargetID)
	}
	if !item.ShortcutTargetsFolder() {
		t.Error("Expected shortcut to target a folder")
	}
}
