package scanner

import (
	"context"
	"errors"
	"fmt"

	"chartfetch/pkg/config"
	"chartfetch/pkg/crawler"
	"chartfetch/pkg/drive"
	"chartfetch/pkg/logger"
	"chartfetch/pkg/materialize"
	"chartfetch/pkg/ratelimit"
	"chartfetch/pkg/ui"
)

// ErrAborted is returned when the operator declines to continue after scan
// errors.
var ErrAborted = errors.New("scan aborted by operator")

// Scanner runs the full pipeline: crawl every configured root, checkpoint on
// scan errors, then materialize the discovered bundles onto disk.
type Scanner struct {
	cfg      *config.Config
	client   *drive.Client
	crawler  *crawler.Crawler
	prompter ui.Prompter
	logger   logger.Logger
}

// New wires a Scanner from configuration and a bearer token.
func New(cfg *config.Config, token string, prompter ui.Prompter, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.GetLogger()
	}
	if prompter == nil {
		prompter = ui.NewTerminalPrompter()
	}

	sched := ratelimit.NewScheduler(cfg.RateLimit.MaxInFlight, cfg.RateLimit.DispatchSpacing)
	client := drive.NewClient(token, cfg.Drive.RequestTimeout, sched, log)
	if cfg.Drive.BaseURL != "" {
		client.SetBaseURL(cfg.Drive.BaseURL)
	}

	return &Scanner{
		cfg:      cfg,
		client:   client,
		crawler:  crawler.New(client, cfg.Download.MaxFileSize, log),
		prompter: prompter,
		logger:   log,
	}
}

// Run executes one scan over all configured roots.
func (s *Scanner) Run(ctx context.Context) error {
	ui.PrintHighlight(fmt.Sprintf("Scanning %d root(s)...", len(s.cfg.Roots)))

	result, err := s.crawler.Crawl(ctx, s.cfg.Roots)
	if err != nil {
		return err
	}

	ui.PrintInfo("Bundles discovered", fmt.Sprintf("%d", result.Bundles.Count()))
	for _, w := range result.Warnings {
		if w.IsError {
			ui.PrintWarning(w.String())
		}
	}

	if n := result.ErrorCount(); n > 0 {
		question := fmt.Sprintf("%d error(s) occurred during the scan; some content may be missed. Continue with downloads?", n)
		if !s.prompter.Confirm(question, true) {
			return ErrAborted
		}
	}

	mat := materialize.New(s.client, s.cfg.Output.BaseDirectory, s.cfg.Extract.Extractor, s.prompter, s.logger)

	var total materialize.Summary
	for _, root := range s.cfg.Roots {
		bundles := result.Bundles[root.ID]
		if len(bundles) == 0 {
			ui.PrintInfo(root.Owner, "no bundles found")
			continue
		}

		summary, err := mat.MaterializeRoot(ctx, root, bundles)
		total.Add(summary)
		if err != nil {
			return fmt.Errorf("materializing root %s: %w", root.ID, err)
		}
	}

	ui.PrintSuccess(fmt.Sprintf("Done: %d downloaded, %d already present, %d failed",
		total.Downloaded, total.Skipped, total.Failed))
	if total.Failed > 0 {
		return fmt.Errorf("%d bundle(s) failed to materialize", total.Failed)
	}
	return nil
}
