package transport

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

// SecretsWatcher watches the secrets envelope file for external rotation
// (an operator re-running secrets.Create with a new passphrase) and invokes
// onRotate so the running session can re-unlock before its next cull or
// archive cycle, rather than keep using stale keys.
type SecretsWatcher struct {
	watcher *fsnotify.Watcher
	log     *logrus.Entry
}

// NewSecretsWatcher starts watching path.
func NewSecretsWatcher(path string, log *logrus.Entry) (*SecretsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "transport.NewSecretsWatcher", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, ctxerr.New(ctxerr.KindIO, "transport.NewSecretsWatcher", err)
	}
	return &SecretsWatcher{watcher: w, log: log}, nil
}

// Close stops the watcher.
func (s *SecretsWatcher) Close() error {
	return s.watcher.Close()
}

// Run blocks, invoking onRotate whenever the secrets file is written or
// replaced (editors and atomic-rename rotation both surface as one of
// Write, Create or Rename), until ctx is cancelled.
func (s *SecretsWatcher) Run(ctx context.Context, onRotate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.log.WithField("path", ev.Name).Info("secrets file changed, triggering rotation")
				onRotate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("secrets watcher error")
		}
	}
}
