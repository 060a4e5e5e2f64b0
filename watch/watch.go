// Package watch notifies the event loop when the open PDF file changes on
// disk, so app.go can reload it in place. Grounded on the teacher's
// editor/editor.go setupFileWatcher (fsnotify.Watcher plus a debounce timer
// collecting events over a quiet period before firing), narrowed from the
// teacher's recursive-directory watch to a single file since a PDF viewer
// only ever has one document open at a time.
package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 150 * time.Millisecond

// Watcher emits a value on Changed whenever the watched file is written,
// replaced, or renamed back into place (the common "editor saved the
// file" pattern: some editors replace rather than write-in-place).
type Watcher struct {
	fsw     *fsnotify.Watcher
	Changed chan struct{}
	Errors  chan error
}

// New starts watching path immediately.
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		Changed: make(chan struct{}, 1),
		Errors:  make(chan error, 4),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Rename != 0 {
				// some editors save by renaming a temp file over the
				// original, which drops the inode fsnotify was watching
				w.fsw.Add(event.Name)
			}
			pending = true
			timer.Reset(debounce)

		case <-timer.C:
			if pending {
				pending = false
				select {
				case w.Changed <- struct{}{}:
				default:
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
