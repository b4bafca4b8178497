package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"glyphprep/internal/codec"
	"glyphprep/internal/pipeline"
)

// settleDelay is how long a file must stay quiet before it is picked up, so
// half-written uploads are not decoded.
const settleDelay = 200 * time.Millisecond

// pendingFile is an inbox file waiting for its settle timer.
type pendingFile struct {
	timer *time.Timer
}

// Watch processes every image that appears in the configured inbox directory
// until ctx or the application is canceled. Outputs go to the output
// directory, or next to the input when none is configured.
func (a *Application) Watch(ctx context.Context) error {
	inbox := a.cfg.Watch.InboxDir
	if inbox == "" {
		return fmt.Errorf("no inbox directory configured")
	}

	outDir := a.cfg.Watch.OutputDir
	if outDir == "" {
		outDir = inbox
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(inbox); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inbox, err)
	}

	a.logger.Info("InboxWatcher", "watching inbox", map[string]interface{}{
		"inbox":  inbox,
		"output": outDir,
		"policy": a.cfg.Pipeline.Policy,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		mu      sync.Mutex
		pending = make(map[string]*pendingFile)
	)

	defer func() {
		mu.Lock()
		for _, entry := range pending {
			if entry.timer.Stop() {
				a.wg.Done()
			}
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("InboxWatcher", "stopped", nil)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			path := event.Name
			if !isInboxImage(path) {
				continue
			}

			mu.Lock()
			if entry, exists := pending[path]; exists && entry.timer.Stop() {
				entry.timer.Reset(settleDelay)
				mu.Unlock()
				continue
			}

			entry := &pendingFile{}
			pending[path] = entry
			a.wg.Add(1)
			entry.timer = time.AfterFunc(settleDelay, func() {
				defer a.wg.Done()

				mu.Lock()
				if pending[path] == entry {
					delete(pending, path)
				}
				mu.Unlock()

				a.processInboxFile(ctx, path, outDir)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("InboxWatcher", err, nil)
		}
	}
}

func (a *Application) processInboxFile(ctx context.Context, path, outDir string) {
	if ctx.Err() != nil {
		return
	}

	format := a.cfg.Pipeline.OutputFormat
	inv, err := a.ProcessFile(ctx, path, OutputPath(path, outDir, format))
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		a.logger.Info("InboxWatcher", "superseded by newer upload", map[string]interface{}{
			"path": path,
		})
	case errors.Is(err, context.Canceled):
	case err != nil:
		a.logger.Error("InboxWatcher", err, map[string]interface{}{
			"path": path,
		})
	default:
		a.logger.Debug("InboxWatcher", "inbox file done", map[string]interface{}{
			"path":       path,
			"generation": inv.Generation,
		})
	}
}

// isInboxImage skips hidden files, temporary files and our own outputs.
func isInboxImage(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}

	if strings.Contains(base, ".prep.") {
		return false
	}

	return codec.FormatFromPath(path, "") != "unknown"
}
