package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/ironrun/internal/ctxlog"
)

// watch re-runs documents after they change on disk. Each re-run gets a
// fresh runtime and a fresh discovery snapshot. Events are debounced so an
// editor's write burst triggers a single run. It returns when ctx is done.
func (a *App) watch(ctx context.Context, docs []string) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are watched rather than files so that editors replacing a
	// file by rename keep being noticed.
	watched := make(map[string]bool, len(docs))
	dirs := make(map[string]bool)
	for _, doc := range docs {
		watched[filepath.Clean(doc)] = true
		dirs[filepath.Dir(doc)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	logger.Info("Watching documents for changes.", "documents", len(docs), "debounce", a.config.WatchDebounce.String())

	var (
		timer  *time.Timer
		timerC <-chan time.Time
		dirty  = make(map[string]bool)
	)
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(a.config.WatchDebounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(a.config.WatchDebounce)
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("Stopped watching documents.")
			return nil
		case <-timerC:
			timerC = nil
			for _, path := range sortedKeys(dirty) {
				if _, err := a.runDocument(ctx, path); err != nil {
					logger.Error("Document re-run failed.", "document", path, "error", err)
				}
			}
			dirty = make(map[string]bool)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldRerun(evt, watched) {
				logger.Debug("Document changed.", "document", evt.Name, "op", evt.Op.String())
				dirty[filepath.Clean(evt.Name)] = true
				resetTimer()
			}
		}
	}
}

// shouldRerun reports whether evt touches one of the watched documents in a
// way that leaves new content behind.
func shouldRerun(evt fsnotify.Event, watched map[string]bool) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	return watched[filepath.Clean(evt.Name)]
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
