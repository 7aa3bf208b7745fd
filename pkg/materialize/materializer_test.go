package materialize

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chartfetch/pkg/bundle"
	errs "chartfetch/pkg/errors"
	"chartfetch/pkg/logger"
	"chartfetch/pkg/ui"
)

func TestMain(m *testing.M) {
	ui.SetQuietMode(true)
	os.Exit(m.Run())
}

// fakeStreamClient serves canned file content by id.
type fakeStreamClient struct {
	content map[string]string
	fail    map[string]error
	opens   map[string]int
}

func newFakeStreamClient() *fakeStreamClient {
	return &fakeStreamClient{
		content: make(map[string]string),
		fail:    make(map[string]error),
		opens:   make(map[string]int),
	}
}

func (f *fakeStreamClient) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	f.opens[id]++
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.content[id])), nil
}

// fakePrompter answers every question with a fixed reply and records calls.
type fakePrompter struct {
	answer   bool
	confirms []string
	acks     []string
}

func (p *fakePrompter) Confirm(question string, defaultAnswer bool) bool {
	p.confirms = append(p.confirms, question)
	return p.answer
}

func (p *fakePrompter) Acknowledge(message string) {
	p.acks = append(p.acks, message)
}

func testBundle(name string, files ...bundle.FileMeta) *bundle.Bundle {
	return &bundle.Bundle{
		RootID:      "root",
		Name:        name,
		Fingerprint: bundle.Fingerprint(files),
		Files:       files,
	}
}

func bundleMap(bundles ...*bundle.Bundle) map[string]*bundle.Bundle {
	m := make(map[string]*bundle.Bundle, len(bundles))
	for _, b := range bundles {
		m[b.Fingerprint] = b
	}
	return m
}

func TestMaterializeRootDownloadsBundle(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["f1"] = "audio bytes"

	modTime := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	b := testBundle("Cool Song", bundle.FileMeta{
		ID: "f1", Name: "song.ogg", Checksum: "aaa", Size: 11, ModifiedTime: modTime,
	})

	m := New(client, baseDir, "true", &fakePrompter{}, logger.NewTestLogger())
	summary, err := m.MaterializeRoot(context.Background(), bundle.Root{ID: "root", Owner: "Charter"}, bundleMap(b))
	if err != nil {
		t.Fatalf("MaterializeRoot failed: %v", err)
	}
	if summary.Downloaded != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	path := filepath.Join(baseDir, "Charter", bundle.FolderName("Cool Song", b.Fingerprint), "song.ogg")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected downloaded file at %s: %v", path, err)
	}
	if string(data) != "audio bytes" {
		t.Errorf("Unexpected content: %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(modTime) {
		t.Errorf("Expected restored modification time %v, got %v", modTime, info.ModTime())
	}

	if b.DownloadPath == "" {
		t.Error("Expected DownloadPath to be set on the bundle")
	}
}

func TestMaterializeRootIdempotent(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["f1"] = "audio bytes"

	b := testBundle("Cool Song", bundle.FileMeta{ID: "f1", Name: "song.ogg", Checksum: "aaa"})
	root := bundle.Root{ID: "root", Owner: "Charter"}

	m := New(client, baseDir, "true", &fakePrompter{}, logger.NewTestLogger())
	if _, err := m.MaterializeRoot(context.Background(), root, bundleMap(b)); err != nil {
		t.Fatal(err)
	}

	// Second run against the same destination: everything is skipped. The
	// prompter declines the destination-delete offer.
	summary, err := m.MaterializeRoot(context.Background(), root, bundleMap(b))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Downloaded != 0 {
		t.Errorf("Expected everything skipped on re-run, got %+v", summary)
	}
	if client.opens["f1"] != 1 {
		t.Errorf("Expected no re-download, got %d opens", client.opens["f1"])
	}
}

func TestMaterializeRootDeletesOnConfirm(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["f1"] = "audio bytes"

	b := testBundle("Cool Song", bundle.FileMeta{ID: "f1", Name: "song.ogg", Checksum: "aaa"})
	root := bundle.Root{ID: "root", Owner: "Charter"}

	m := New(client, baseDir, "true", &fakePrompter{}, logger.NewTestLogger())
	if _, err := m.MaterializeRoot(context.Background(), root, bundleMap(b)); err != nil {
		t.Fatal(err)
	}

	prompter := &fakePrompter{answer: true}
	m2 := New(client, baseDir, "true", prompter, logger.NewTestLogger())
	summary, err := m2.MaterializeRoot(context.Background(), root, bundleMap(b))
	if err != nil {
		t.Fatal(err)
	}
	if len(prompter.confirms) != 1 {
		t.Fatalf("Expected one delete confirmation, got %d", len(prompter.confirms))
	}
	if summary.Downloaded != 1 || summary.Skipped != 0 {
		t.Errorf("Expected a fresh download after deletion, got %+v", summary)
	}
	if client.opens["f1"] != 2 {
		t.Errorf("Expected a re-download after deletion, got %d opens", client.opens["f1"])
	}
}

func TestMaterializeRootFailedBundleDoesNotAbortBatch(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["good"] = "audio bytes"
	client.fail["bad"] = errs.New(errs.ErrorTypePermission, 404, "item not accessible")

	good := testBundle("Good", bundle.FileMeta{ID: "good", Name: "song.ogg", Checksum: "aaa"})
	bad := testBundle("Bad", bundle.FileMeta{ID: "bad", Name: "other.ogg", Checksum: "bbb"})
	root := bundle.Root{ID: "root", Owner: "Charter"}

	m := New(client, baseDir, "true", &fakePrompter{}, logger.NewTestLogger())
	summary, err := m.MaterializeRoot(context.Background(), root, bundleMap(good, bad))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Downloaded != 1 || summary.Failed != 1 {
		t.Errorf("Expected one success and one failure, got %+v", summary)
	}

	// The failed bundle's partial folder is removed.
	badDir := filepath.Join(baseDir, "Charter", bundle.FolderName("Bad", bad.Fingerprint))
	if _, err := os.Stat(badDir); !os.IsNotExist(err) {
		t.Errorf("Expected failed bundle folder to be removed: %v", err)
	}
}

func TestMaterializeArchiveExtractionFailureKeepsArchive(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["a1"] = "not a real archive"

	b := testBundle("Pack", bundle.FileMeta{ID: "a1", Name: "pack.zip", Checksum: "aaa"})
	b.IsArchive = true
	root := bundle.Root{ID: "root", Owner: "Charter"}

	prompter := &fakePrompter{}
	// "false" exits non-zero, simulating a failed extraction.
	m := New(client, baseDir, "false", prompter, logger.NewTestLogger())
	summary, err := m.MaterializeRoot(context.Background(), root, bundleMap(b))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Downloaded != 1 {
		t.Errorf("Expected the bundle to count as downloaded, got %+v", summary)
	}
	if len(prompter.acks) != 1 {
		t.Errorf("Expected a manual-extraction checkpoint, got %d", len(prompter.acks))
	}

	archive := filepath.Join(baseDir, "Charter", bundle.FolderName("Pack", b.Fingerprint), "pack.zip")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("Expected the archive to remain for manual extraction: %v", err)
	}
}

func TestMaterializeArchiveDeletedAfterExtraction(t *testing.T) {
	baseDir := t.TempDir()
	client := newFakeStreamClient()
	client.content["a1"] = "archive bytes"

	b := testBundle("Pack", bundle.FileMeta{ID: "a1", Name: "pack.zip", Checksum: "aaa"})
	b.IsArchive = true
	root := bundle.Root{ID: "root", Owner: "Charter"}

	// "true" always succeeds, simulating a clean extraction.
	m := New(client, baseDir, "true", &fakePrompter{}, logger.NewTestLogger())
	if _, err := m.MaterializeRoot(context.Background(), root, bundleMap(b)); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(baseDir, "Charter", bundle.FolderName("Pack", b.Fingerprint), "pack.zip")
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Errorf("Expected the archive to be deleted after extraction: %v", err)
	}
}
