package bundle

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// FingerprintPrefixLen is the number of fingerprint hex characters appended
// to a bundle's destination folder name.
const FingerprintPrefixLen = 8

// Root is a configured top-level remote folder or file to scan.
type Root struct {
	ID string `yaml:"id" json:"id"`
	// Owner labels the root's destination subdirectory.
	Owner string `yaml:"owner" json:"owner"`
	// IsFile marks roots that resolve to a single file or archive rather
	// than a folder.
	IsFile bool `yaml:"is_file" json:"is_file"`
}

// FileMeta describes one constituent file of a bundle.
type FileMeta struct {
	ID           string
	Name         string
	Checksum     string
	Size         int64
	ModifiedTime time.Time
}

// Bundle is a deduplicated, classified unit of content (a qualifying folder
// or a single archive) discovered under a root.
type Bundle struct {
	RootID      string
	Name        string
	IsArchive   bool
	Fingerprint string
	Files       []FileMeta
	// DownloadPath is empty until the bundle has been materialized.
	DownloadPath string
}

// ResultMap maps root id -> fingerprint -> bundle.
type ResultMap map[string]map[string]*Bundle

// Add records a bundle under its root, keyed by fingerprint. It returns the
// previous bundle with the same fingerprint, if any; the new bundle replaces
// it (keep-last).
func (rm ResultMap) Add(b *Bundle) *Bundle {
	perRoot, ok := rm[b.RootID]
	if !ok {
		perRoot = make(map[string]*Bundle)
		rm[b.RootID] = perRoot
	}
	prev := perRoot[b.Fingerprint]
	perRoot[b.Fingerprint] = b
	return prev
}

// Count returns the total number of bundles across all roots.
func (rm ResultMap) Count() int {
	n := 0
	for _, perRoot := range rm {
		n += len(perRoot)
	}
	return n
}

// Fingerprint computes a deterministic, order-independent hash over the
// (checksum, id, name) triples of the given files. Permuting the files
// yields the same fingerprint; changing any checksum, id, or name changes it.
func Fingerprint(files []FileMeta) string {
	triples := make([]string, 0, len(files))
	for _, f := range files {
		triples = append(triples, f.Checksum+"\x00"+f.ID+"\x00"+f.Name)
	}
	sort.Strings(triples)

	h := blake3.New()
	for _, t := range triples {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FolderName returns the on-disk folder name for a bundle:
// "<sanitized-name> [<fingerprint-prefix>]". The prefix keeps renames of
// same-named bundles collision-resistant across runs.
func FolderName(name, fingerprint string) string {
	prefix := fingerprint
	if len(prefix) > FingerprintPrefixLen {
		prefix = prefix[:FingerprintPrefixLen]
	}
	return fmt.Sprintf("%s [%s]", SanitizeName(name), prefix)
}

// unsafeChars are characters stripped from names used as file or folder
// names on disk.
var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "",
)

// SanitizeName makes a display name safe to use as a single path element.
func SanitizeName(name string) string {
	s := unsafeChars.Replace(name)
	s = strings.Trim(s, " .")
	if s == "" {
		s = "unnamed"
	}
	return s
}

var (
	notationExtensions = map[string]bool{
		".chart": true,
		".mid":   true,
	}
	audioExtensions = map[string]bool{
		".ogg":  true,
		".mp3":  true,
		".wav":  true,
		".opus": true,
		".flac": true,
	}
	archiveExtensions = map[string]bool{
		".zip": true,
		".rar": true,
		".7z":  true,
	}
)

// IsNotationFile reports whether the name carries a chart-notation extension.
func IsNotationFile(name string) bool {
	return notationExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsAudioFile reports whether the name carries a recognized audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsArchiveFile reports whether the name carries a recognized archive
// extension (zip/rar/7z).
func IsArchiveFile(name string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(name))]
}

// QualifiesAsBundle reports whether a candidate file set satisfies the
// content heuristic: at least one notation file or one audio file.
func QualifiesAsBundle(files []FileMeta) bool {
	for _, f := range files {
		if IsNotationFile(f.Name) || IsAudioFile(f.Name) {
			return true
		}
	}
	return false
}
