package crawler

import (
	"context"
	"fmt"
	"strings"

	"chartfetch/pkg/bundle"
	"chartfetch/pkg/drive"
	errs "chartfetch/pkg/errors"
	"chartfetch/pkg/logger"
)

// Client is the remote access the crawler needs.
type Client interface {
	ListChildren(ctx context.Context, folderID string) ([]drive.Item, error)
	GetItem(ctx context.Context, id string) (*drive.Item, error)
}

// Warning records a recoverable per-item problem encountered during a crawl.
type Warning struct {
	ItemID  string
	Message string
	// IsError marks recoverable errors (failed listings, permission
	// denials, malformed responses) as opposed to informational skips.
	IsError bool
}

func (w Warning) String() string {
	if w.ItemID == "" {
		return w.Message
	}
	return fmt.Sprintf("%s (%s)", w.Message, w.ItemID)
}

// Result is the outcome of crawling a root set.
type Result struct {
	Bundles  bundle.ResultMap
	Warnings []Warning
}

// ErrorCount returns the number of recoverable errors in the result.
func (r *Result) ErrorCount() int {
	n := 0
	for _, w := range r.Warnings {
		if w.IsError {
			n++
		}
	}
	return n
}

// Crawler explores each root's reachable hierarchy, classifies subtrees as
// bundles vs. plain folders, resolves shortcuts, and emits the deduplicated
// bundle map. All traversal state is explicit on the instance; a Crawler
// drives a single crawl at a time.
type Crawler struct {
	client      Client
	maxFileSize int64
	logger      logger.Logger

	visited  map[string]bool
	frontier frontier
	rootIDs  map[string]bool
	result   *Result
}

// New creates a Crawler. maxFileSize bounds individual candidate files;
// zero means unbounded.
func New(client Client, maxFileSize int64, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		client:      client,
		maxFileSize: maxFileSize,
		logger:      log,
	}
}

// Crawl traverses every configured root and returns the deduplicated bundle
// map. Per-item failures become warnings; only a root's initial fetch
// failure aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context, roots []bundle.Root) (*Result, error) {
	c.visited = make(map[string]bool)
	c.frontier = frontier{}
	c.rootIDs = make(map[string]bool, len(roots))
	c.result = &Result{Bundles: make(bundle.ResultMap)}

	for _, r := range roots {
		c.rootIDs[r.ID] = true
	}
	// Seed in reverse so the tail-pop loop visits roots in configured order.
	for i := len(roots) - 1; i >= 0; i-- {
		r := roots[i]
		c.frontier.pushBack(task{
			id:         r.ID,
			name:       r.Owner,
			rootID:     r.ID,
			isFile:     r.IsFile,
			isRootTask: true,
		})
	}

	for {
		t, ok := c.frontier.popBack()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Cycle guard: a shortcut target we already visited is skipped.
		if t.fromShortcut && c.visited[t.id] {
			c.logger.DebugWithFields("skipping already visited shortcut target", map[string]interface{}{
				"item_id": t.id,
			})
			continue
		}
		c.visited[t.id] = true

		var err error
		if t.isFile {
			err = c.processFileTask(ctx, t)
		} else {
			err = c.processFolderTask(ctx, t)
		}
		if err != nil {
			if t.isRootTask {
				return nil, fmt.Errorf("fetching root %s: %w", t.id, err)
			}
			c.recordError(t.id, err)
		}
	}

	c.logger.InfoWithFields("crawl finished", map[string]interface{}{
		"bundles":  c.result.Bundles.Count(),
		"warnings": len(c.result.Warnings),
	})
	return c.result, nil
}

// processFolderTask lists a folder's children and classifies them.
func (c *Crawler) processFolderTask(ctx context.Context, t task) error {
	children, err := c.client.ListChildren(ctx, t.id)
	if err != nil {
		return err
	}

	var candidates []bundle.FileMeta
	for i := range children {
		child := &children[i]

		// A configured root rediscovered as nested content is never
		// treated as this root's child.
		if c.rootIDs[child.ID] {
			c.logger.DebugWithFields("dropping child matching a configured root", map[string]interface{}{
				"item_id": child.ID,
				"parent":  t.id,
			})
			continue
		}

		switch {
		case child.IsShortcut():
			c.pushShortcutTarget(t, child)

		case child.IsFolder():
			// Explored next, before siblings at this depth.
			c.frontier.pushBack(task{
				id:         child.ID,
				name:       child.Name,
				parentID:   t.id,
				parentName: t.name,
				rootID:     t.rootID,
			})

		case bundle.IsArchiveFile(child.DisplayName()):
			c.recordArchiveBundle(t.rootID, child)

		default:
			if meta, ok := c.fileCandidate(child); ok {
				candidates = append(candidates, meta)
			}
		}
	}

	if bundle.QualifiesAsBundle(candidates) {
		c.recordBundle(t.rootID, t.name, false, candidates)
	}
	return nil
}

// processFileTask handles tasks that target a single file: file roots and
// file-target shortcuts.
func (c *Crawler) processFileTask(ctx context.Context, t task) error {
	item, err := c.client.GetItem(ctx, t.id)
	if err != nil {
		return err
	}

	if bundle.IsArchiveFile(item.DisplayName()) {
		c.recordArchiveBundle(t.rootID, item)
		return nil
	}

	meta, ok := c.fileCandidate(item)
	if !ok {
		return nil
	}
	candidates := []bundle.FileMeta{meta}
	if !bundle.QualifiesAsBundle(candidates) {
		return nil
	}

	// A lone file takes its parent folder's identity.
	name := t.parentName
	if name == "" && len(item.Parents) > 0 {
		if parent, err := c.client.GetItem(ctx, item.Parents[0]); err == nil {
			name = parent.Name
		}
	}
	if name == "" {
		name = strings.TrimSuffix(item.DisplayName(), ".")
	}
	c.recordBundle(t.rootID, name, false, candidates)
	return nil
}

// pushShortcutTarget queues a shortcut's target for exploration after all
// directly reachable items at the current depth.
func (c *Crawler) pushShortcutTarget(t task, child *drive.Item) {
	targetID := child.ShortcutTargetID
	if targetID == "" {
		c.recordWarning(child.ID, fmt.Sprintf("shortcut %q has no target", child.Name))
		return
	}
	if c.rootIDs[targetID] {
		c.logger.DebugWithFields("dropping shortcut targeting a configured root", map[string]interface{}{
			"item_id": child.ID,
			"target":  targetID,
		})
		return
	}
	c.frontier.pushFront(task{
		id:           targetID,
		name:         child.Name,
		parentID:     t.id,
		parentName:   t.name,
		rootID:       t.rootID,
		isFile:       !child.ShortcutTargetsFolder(),
		fromShortcut: true,
	})
}

// fileCandidate converts a file item into candidate metadata, applying the
// size limit and download capability checks.
func (c *Crawler) fileCandidate(item *drive.Item) (bundle.FileMeta, bool) {
	name := item.DisplayName()

	if c.maxFileSize > 0 && item.Size > c.maxFileSize {
		c.recordWarning(item.ID, fmt.Sprintf("skipping %q: size %d exceeds limit %d", name, item.Size, c.maxFileSize))
		return bundle.FileMeta{}, false
	}
	if !item.CanDownload {
		c.recordWarning(item.ID, fmt.Sprintf("skipping %q: not downloadable", name))
		return bundle.FileMeta{}, false
	}

	return bundle.FileMeta{
		ID:           item.ID,
		Name:         name,
		Checksum:     item.MD5Checksum,
		Size:         item.Size,
		ModifiedTime: item.ModifiedTime,
	}, true
}

// recordArchiveBundle records a one-file bundle for a recognized archive.
func (c *Crawler) recordArchiveBundle(rootID string, item *drive.Item) {
	name := item.DisplayName()
	meta := bundle.FileMeta{
		ID:           item.ID,
		Name:         name,
		Checksum:     item.MD5Checksum,
		Size:         item.Size,
		ModifiedTime: item.ModifiedTime,
	}
	displayName := strings.TrimSuffix(name, "."+extOf(name))
	c.recordBundle(rootID, displayName, true, []bundle.FileMeta{meta})
}

// recordBundle fingerprints and stores a discovered bundle. Two distinct
// folders in the same root producing an identical fingerprint keep the
// latest entry, surfaced as a warning.
func (c *Crawler) recordBundle(rootID, name string, isArchive bool, files []bundle.FileMeta) {
	b := &bundle.Bundle{
		RootID:      rootID,
		Name:        name,
		IsArchive:   isArchive,
		Fingerprint: bundle.Fingerprint(files),
		Files:       files,
	}
	if prev := c.result.Bundles.Add(b); prev != nil {
		c.recordWarning("", fmt.Sprintf("bundles %q and %q share fingerprint %s; keeping %q",
			prev.Name, b.Name, b.Fingerprint[:bundle.FingerprintPrefixLen], b.Name))
	}

	c.logger.InfoWithFields("bundle discovered", map[string]interface{}{
		"root_id":     rootID,
		"name":        name,
		"archive":     isArchive,
		"files":       len(files),
		"fingerprint": b.Fingerprint[:bundle.FingerprintPrefixLen],
	})
}

// recordWarning records an informational skip.
func (c *Crawler) recordWarning(itemID, message string) {
	c.result.Warnings = append(c.result.Warnings, Warning{ItemID: itemID, Message: message})
	c.logger.WarnWithFields(message, map[string]interface{}{"item_id": itemID})
}

// recordError records a recoverable error; the subtree is abandoned and the
// crawl continues.
func (c *Crawler) recordError(itemID string, err error) {
	msg := err.Error()
	switch {
	case errs.IsPermission(err):
		msg = "permission denied: " + msg
	case errs.IsMalformed(err):
		msg = "malformed response: " + msg
	}
	c.result.Warnings = append(c.result.Warnings, Warning{ItemID: itemID, Message: msg, IsError: true})
	c.logger.ErrorWithFields("subtree abandoned", map[string]interface{}{
		"item_id": itemID,
		"error":   err.Error(),
	})
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return ""
}
