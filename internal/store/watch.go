package store

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// Watch calls fn whenever the config document changes on disk, until ctx is
// done. It watches the parent directory rather than the file so atomic
// rename-over writes (and editors that replace the file) are observed.
//
// The host UI uses this to reload the dialog state when the document is
// edited out-of-band, for example by the llmfill CLI.
func (s *FileStore) Watch(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return errors.Wrap(err, "watching config directory")
	}

	name := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watching config file")
		}
	}
}
