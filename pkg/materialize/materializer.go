package materialize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"chartfetch/pkg/bundle"
	errs "chartfetch/pkg/errors"
	"chartfetch/pkg/logger"
	"chartfetch/pkg/ui"
)

// Client is the remote access the materializer needs.
type Client interface {
	OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error)
}

// Summary counts per-root materialization outcomes. A failed bundle is
// neither downloaded nor skipped.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Add accumulates another summary.
func (s *Summary) Add(other Summary) {
	s.Downloaded += other.Downloaded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// Materializer turns discovered bundles into on-disk content, idempotently
// across repeated runs, tolerating isolated per-bundle failure without
// aborting the batch.
type Materializer struct {
	client    Client
	baseDir   string
	extractor string
	prompter  ui.Prompter
	logger    logger.Logger
}

// New creates a Materializer writing under baseDir. extractor is the path
// of the external archive-extraction executable.
func New(client Client, baseDir, extractor string, prompter ui.Prompter, log logger.Logger) *Materializer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Materializer{
		client:    client,
		baseDir:   baseDir,
		extractor: extractor,
		prompter:  prompter,
		logger:    log,
	}
}

// MaterializeRoot downloads every bundle of one root into the root's
// destination subdirectory. An existing destination prompts for deletion
// first; declining leaves it in place and per-bundle existence checks still
// apply.
func (m *Materializer) MaterializeRoot(ctx context.Context, root bundle.Root, bundles map[string]*bundle.Bundle) (Summary, error) {
	var summary Summary

	rootDir := filepath.Join(m.baseDir, bundle.SanitizeName(root.Owner))
	if _, err := os.Stat(rootDir); err == nil {
		question := fmt.Sprintf("Destination %q already exists. Delete it before materializing?", rootDir)
		if m.prompter.Confirm(question, false) {
			if err := os.RemoveAll(rootDir); err != nil {
				return summary, errs.New(errs.ErrorTypeLocalIO, 0, "failed to delete %s: %v", rootDir, err)
			}
		}
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return summary, errs.New(errs.ErrorTypeLocalIO, 0, "failed to create %s: %v", rootDir, err)
	}

	for _, b := range sortedBundles(bundles) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		dest := filepath.Join(rootDir, bundle.FolderName(b.Name, b.Fingerprint))
		if _, err := os.Stat(dest); err == nil {
			m.logger.DebugWithFields("bundle already materialized", map[string]interface{}{
				"bundle": b.Name,
				"dest":   dest,
			})
			summary.Skipped++
			continue
		}

		if err := m.materializeBundle(ctx, b, dest); err != nil {
			summary.Failed++
			ui.PrintWarning(fmt.Sprintf("failed to materialize %q", b.Name), err)
			m.logger.ErrorWithFields("bundle abandoned", map[string]interface{}{
				"bundle": b.Name,
				"error":  err.Error(),
			})
			continue
		}

		b.DownloadPath = dest
		summary.Downloaded++
	}

	m.logger.InfoWithFields("root materialized", map[string]interface{}{
		"root":       root.Owner,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	})
	return summary, nil
}

// materializeBundle downloads one bundle into dest. On failure the partial
// destination folder is removed, except after an extraction failure, where
// the downloaded archive is intentionally left for manual handling.
func (m *Materializer) materializeBundle(ctx context.Context, b *bundle.Bundle, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return errs.New(errs.ErrorTypeLocalIO, 0, "failed to create bundle folder: %v", err)
	}

	for _, f := range b.Files {
		if err := m.downloadFile(ctx, f, dest); err != nil {
			os.RemoveAll(dest)
			return err
		}
	}

	if b.IsArchive {
		archivePath := filepath.Join(dest, bundle.SanitizeName(b.Files[0].Name))
		if err := m.extract(ctx, archivePath, dest); err != nil {
			// The archive stays on disk for the operator.
			ui.PrintError(fmt.Sprintf("extraction failed for %q", archivePath), err)
			m.prompter.Acknowledge(fmt.Sprintf("Extract %q into %q manually.", archivePath, dest))
			return nil
		}
		if err := os.Remove(archivePath); err != nil {
			m.logger.WithError(err).WithField("archive", archivePath).Warn("failed to delete extracted archive")
		}
	}

	return nil
}

// downloadFile streams one constituent file into dest and restores its
// remote modification time. Timestamp restore is best-effort.
func (m *Materializer) downloadFile(ctx context.Context, f bundle.FileMeta, dest string) error {
	stream, err := m.client.OpenDownloadStream(ctx, f.ID)
	if err != nil {
		return err
	}
	defer stream.Close()

	path := filepath.Join(dest, bundle.SanitizeName(f.Name))
	out, err := os.Create(path)
	if err != nil {
		return errs.New(errs.ErrorTypeLocalIO, 0, "failed to create %s: %v", path, err)
	}

	progress := ui.NewProgressWriter(f.Name, f.Size)
	_, copyErr := io.Copy(io.MultiWriter(out, progress), stream)
	closeErr := out.Close()
	progress.Finish()

	if copyErr != nil {
		return errs.New(errs.ErrorTypeNetwork, 0, "failed to download %s: %v", f.Name, copyErr)
	}
	if closeErr != nil {
		return errs.New(errs.ErrorTypeLocalIO, 0, "failed to close %s: %v", path, closeErr)
	}

	if !f.ModifiedTime.IsZero() {
		if err := os.Chtimes(path, f.ModifiedTime, f.ModifiedTime); err != nil {
			m.logger.WithError(err).WithField("file", path).Warn("failed to restore modification time")
		}
	}
	return nil
}

// sortedBundles returns the bundles in deterministic order (name, then
// fingerprint for same-named bundles).
func sortedBundles(bundles map[string]*bundle.Bundle) []*bundle.Bundle {
	out := make([]*bundle.Bundle, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}
