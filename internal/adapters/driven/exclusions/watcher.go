package exclusions

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/betterinformatics/shtocker/internal/logger"
)

// Watch reloads the store whenever its list file changes, until the
// context is cancelled. Editors that replace the file rather than
// writing in place show up as Create events, so both are handled.
// Returns immediately if the store has no file.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					logger.Warn("Could not reload known-bad list: %v", err)
					continue
				}
				logger.Info("Known-bad list reloaded (%d identities)", s.Len())

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Known-bad watcher: %v", err)
			}
		}
	}()

	return nil
}
