package materialize

import (
	"context"
	"os/exec"
	"strings"

	errs "chartfetch/pkg/errors"
)

// extract invokes the configured external extractor with the archive path
// and the destination directory as its two arguments.
func (m *Materializer) extract(ctx context.Context, archivePath, destDir string) error {
	if m.extractor == "" {
		return errs.New(errs.ErrorTypeExtraction, 0, "no extractor configured")
	}

	cmd := exec.CommandContext(ctx, m.extractor, archivePath, destDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		preview := strings.TrimSpace(string(output))
		if len(preview) > 200 {
			preview = preview[:200]
		}
		m.logger.ErrorWithFields("extractor failed", map[string]interface{}{
			"archive": archivePath,
			"output":  preview,
		})
		return errs.New(errs.ErrorTypeExtraction, 0, "extractor %s failed: %v", m.extractor, err)
	}

	m.logger.DebugWithFields("archive extracted", map[string]interface{}{
		"archive": archivePath,
		"dest":    destDir,
	})
	return nil
}
