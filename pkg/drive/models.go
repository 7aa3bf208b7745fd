package drive

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Google Drive mime types for non-file items.
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
)

// Item is a normalized remote item (file, folder, or shortcut).
type Item struct {
	ID               string
	Name             string
	OriginalFilename string
	MimeType         string
	Size             int64
	MD5Checksum      string
	ModifiedTime     time.Time
	CanDownload      bool
	Parents          []string

	// Shortcut target, set only for shortcut items.
	ShortcutTargetID       string
	ShortcutTargetMimeType string
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool {
	return i.MimeType == MimeTypeFolder
}

// IsShortcut reports whether the item is a shortcut (indirection).
func (i *Item) IsShortcut() bool {
	return i.MimeType == MimeTypeShortcut
}

// ShortcutTargetsFolder reports whether a shortcut points at a folder.
func (i *Item) ShortcutTargetsFolder() bool {
	return i.ShortcutTargetMimeType == MimeTypeFolder
}

// DisplayName returns the name to use for the item on disk. Drive sometimes
// reports a display name whose extension disagrees with the tracked original
// filename; the display name wins, but the original extension is appended so
// the file type is not lost.
func (i *Item) DisplayName() string {
	if i.OriginalFilename == "" {
		return i.Name
	}
	origExt := filepath.Ext(i.OriginalFilename)
	if origExt == "" {
		return i.Name
	}
	if strings.EqualFold(filepath.Ext(i.Name), origExt) {
		return i.Name
	}
	return i.Name + origExt
}

// fileResource is the Drive v3 wire representation of a file.
type fileResource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OriginalFilename string `json:"originalFilename"`
	MimeType         string `json:"mimeType"`
	// Drive returns size as a decimal string.
	Size         string `json:"size"`
	MD5Checksum  string   `json:"md5Checksum"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
	Capabilities struct {
		CanDownload bool `json:"canDownload"`
	} `json:"capabilities"`
	ShortcutDetails *struct {
		TargetID       string `json:"targetId"`
		TargetMimeType string `json:"targetMimeType"`
	} `json:"shortcutDetails"`
}

// fileList is the Drive v3 files.list response envelope.
type fileList struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// toItem converts the wire representation into a normalized Item.
func (f *fileResource) toItem() Item {
	item := Item{
		ID:               f.ID,
		Name:             f.Name,
		OriginalFilename: f.OriginalFilename,
		MimeType:         f.MimeType,
		MD5Checksum:      f.MD5Checksum,
		CanDownload:      f.Capabilities.CanDownload,
		Parents:          f.Parents,
	}
	if f.Size != "" {
		if size, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
			item.Size = size
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			item.ModifiedTime = t
		}
	}
	if f.ShortcutDetails != nil {
		item.ShortcutTargetID = f.ShortcutDetails.TargetID
		item.ShortcutTargetMimeType = f.ShortcutDetails.TargetMimeType
	}
	return item
}
