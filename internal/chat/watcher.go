package chat

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const watchDebounce = 100 * time.Millisecond

type dbChangedMsg struct{}

// dbWatcher reports writes to the database (and its WAL) made by other
// processes, such as `tavern post` in another terminal.
type dbWatcher struct {
	watcher *fsnotify.Watcher
	base    string
	log     zerolog.Logger
	changed chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
	wg       sync.WaitGroup
}

func newDBWatcher(dbPath string, log zerolog.Logger) (*dbWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w := &dbWatcher{
		watcher: watcher,
		base:    filepath.Base(dbPath),
		log:     log,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *dbWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("db watcher error")
		}
	}
}

func (w *dbWatcher) handle(event fsnotify.Event) {
	if !strings.HasPrefix(filepath.Base(event.Name), w.base) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
		w.schedule()
	}
}

func (w *dbWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, func() {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	})
}

// wait blocks until the next debounced change.
func (w *dbWatcher) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w.changed:
			return dbChangedMsg{}
		case <-w.done:
			return nil
		}
	}
}

func (w *dbWatcher) close() {
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	_ = w.watcher.Close()
	w.wg.Wait()
}
