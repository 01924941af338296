package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// StartWatching begins watching the given directories for source
// changes and reports the transformations each change would apply.
// Watch mode never writes output files.
func (e *Engine) StartWatching(dirs []string) error {
	if e.isWatching {
		return fmt.Errorf("already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	e.watcher = watcher

	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return e.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			_ = e.watcher.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	e.isWatching = true
	go e.watchLoop()
	return nil
}

func (e *Engine) StopWatching() error {
	if !e.isWatching {
		e.logger.Warn("not watching")
		return nil
	}

	e.isWatching = false
	return e.watcher.Close()
}

func (e *Engine) watchLoop() {
	for e.isWatching {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.handleFileEvent(event)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Write != fsnotify.Write {
		return
	}
	if !isSourceFile(event.Name) {
		return
	}
	// wait for a while after file change to consider multiple changes as one
	time.Sleep(100 * time.Millisecond)
	result, err := e.Run(event.Name)
	if err != nil {
		e.logger.Error("watch run failed", zap.String("file", event.Name), zap.Error(err))
		return
	}
	e.reportChanges(event.Name, result)
}

func (e *Engine) reportChanges(filename string, result *Result) {
	if len(result.Changes) == 0 {
		e.logger.Info("no transformations apply", zap.String("file", filename))
		return
	}
	e.logger.Info("transformations apply",
		zap.String("file", filename), zap.Int("count", len(result.Changes)))
	for _, c := range result.Changes {
		e.logger.Info("change", zap.String("pass", c.Pass), zap.String("routine", c.Routine), zap.String("message", c.Message))
	}
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".f90") || strings.HasSuffix(name, ".f") || strings.HasSuffix(name, ".f95")
}
