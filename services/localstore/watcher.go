package localstore

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch feeds writes made by other processes into the same subscriber
// channels as local writes, the way a browser tab observes storage events
// from its siblings. Only meaningful when the store sits on the OS
// filesystem; memory-backed stores (tests) get a no-op.
//
// The watcher runs until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(s.dir); err != nil {
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
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				key := keyFromPath(event.Name)
				if key == "" {
					continue
				}
				s.notifyExternal(key)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[localstore] watch error: %v", err)
			}
		}
	}()

	return nil
}

// notifyExternal re-reads the document for key and broadcasts it. External
// writers already replaced the file, so the raw bytes come from disk.
func (s *Store) notifyExternal(key string) {
	var raw any
	if err := s.Read(key, &raw); err != nil {
		return
	}

	s.mu.RLock()
	subs := make([]chan Change, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.RUnlock()

	s.broadcast(subs, Change{Key: key})
}

func keyFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") {
		return ""
	}
	return strings.TrimSuffix(base, ".json")
}
