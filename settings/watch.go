package settings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of writes from editors.
const reloadDebounce = 150 * time.Millisecond

// Watch reloads the settings file whenever it changes on disk until ctx is
// done. Reloads are handed to dispatch so that change notifications run on
// the event loop.
//
// The containing directory is watched rather than the file itself so that
// atomic replace-by-rename writes are seen.
func (s *Store) Watch(ctx context.Context, dispatch func(func())) error {
	if s.path == "" {
		return errors.New("watch settings: store has no file")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.processEvents(ctx, fsw, dispatch)

	return nil
}

func (s *Store) processEvents(ctx context.Context, fsw *fsnotify.Watcher, dispatch func(func())) {
	defer fsw.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				s.reload(dispatch)
			})
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("settings watcher error", "error", err)
		}
	}
}

// reload reads the file off the loop and applies it on the loop.
func (s *Store) reload(dispatch func(func())) {
	next, err := readValues(s.path)
	if err != nil {
		s.logger.Warn("failed to reload settings", "path", s.path, "error", err)
		return
	}

	dispatch(func() {
		changed := s.apply(next)
		if len(changed) > 0 {
			s.logger.Info("settings reloaded", "changed", changed)
		}
	})
}
