package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"portfolio-agent/internal/platform/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a Holder when its corpus file changes on disk.
type Watcher struct {
	holder   *Holder
	log      *logger.Logger
	debounce time.Duration
	onReload func(*Corpus)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWatcher(holder *Holder, log *logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create corpus watcher failed: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		holder:   holder,
		log:      log,
		debounce: defaultDebounce,
		watcher:  w,
	}, nil
}

// Start watches the directory containing the corpus file. Editors and the
// builder replace the file, so the directory is watched rather than the file.
func (w *Watcher) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}
	target := filepath.Clean(w.holder.Path())
	if err := w.watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch corpus dir failed: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-watchCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("corpus watcher error", "error", err)
			case <-fire:
				fire = nil
				next, err := w.holder.Reload()
				if err != nil {
					w.log.Warn("corpus reload failed, keeping previous snapshot", "path", target, "error", err)
					continue
				}
				w.log.Info("corpus reloaded", "path", target, "chunks", next.Len())
				if w.onReload != nil {
					w.onReload(next)
				}
			}
		}
	}()
	return nil
}

func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.watcher.Close()
}
