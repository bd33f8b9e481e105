package settings

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a FileStore whenever its file changes on disk and then
// invokes the change callback with the reload error, if any.
type Watcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	onChange func(error)
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// Watch starts watching the directory that holds store's file. Editors that
// replace the file atomically still trigger a reload.
func Watch(store *FileStore, onChange func(error)) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("settings: watch requires a file store")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("settings: watch %s: %w", store.Path(), err)
	}
	w := &Watcher{
		store:    store,
		watcher:  fw,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.notify(w.store.Reload())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("settings: watch: %w", err))
		}
	}
}

func (w *Watcher) notify(err error) {
	if w.onChange != nil {
		w.onChange(err)
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
