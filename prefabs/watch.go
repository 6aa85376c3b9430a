package prefabs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/milk9111/rigidcore/common"
	"github.com/milk9111/rigidcore/ecs/component"
)

const debounce = 100 * time.Millisecond

type ChangeKind uint8

const (
	ChangeSpec ChangeKind = iota + 1
	ChangeScript
)

// Change is one debounced edit of a spec or script file.
type Change struct {
	Path string
	Kind ChangeKind
}

type Watcher struct {
	watcher *fsnotify.Watcher
	Changes chan Change
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// run coalesces bursts: a file is reported once it has been quiet for the
// debounce interval, so a save that truncates and then writes is read whole.
func (w *Watcher) run() {
	defer close(w.Changes)
	defer close(w.Errors)

	pending := make(map[string]ChangeKind)
	timer := time.NewTimer(debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			kind, ok := classify(event.Name)
			if !ok {
				continue
			}
			pending[event.Name] = kind
			timer.Reset(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			for path, kind := range pending {
				select {
				case w.Changes <- Change{Path: path, Kind: kind}:
				case <-w.closeCh:
					return
				}
			}
			clear(pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			timer.Stop()
			return
		}
	}
}

func classify(path string) (ChangeKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ChangeSpec, true
	case ".tengo":
		return ChangeScript, true
	default:
		return 0, false
	}
}

// Reloader applies watcher changes: world.yaml edits update the gravity
// cell, script edits are handed to OnScript. Follow runs off the step
// goroutine, so OnScript must hand the source over rather than touch the
// world.
type Reloader struct {
	Gravity  *component.GravityCell
	OnScript func(name string, src []byte)
	Log      common.Logger

	stamps map[string]time.Time
}

// Follow consumes changes until ctx ends or the watcher closes.
func (r *Reloader) Follow(ctx context.Context, w *Watcher) {
	log := r.Log
	if log == nil {
		log = common.NopLogger
	}
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("prefabs: watcher error", "err", err)
		case change, ok := <-w.Changes:
			if !ok {
				return
			}
			r.apply(change, log)
		}
	}
}

func (r *Reloader) apply(change Change, log common.Logger) {
	stamp, stamped := ModTime(change.Path)
	if prev, ok := r.stamps[change.Path]; ok && stamped && prev.Equal(stamp) {
		log.Debug("prefabs: reload skipped, file unchanged", "path", change.Path)
		return
	}

	data, err := os.ReadFile(change.Path)
	if err != nil {
		log.Warn("prefabs: reload read", "path", change.Path, "err", err)
		return
	}
	if stamped {
		if r.stamps == nil {
			r.stamps = make(map[string]time.Time)
		}
		r.stamps[change.Path] = stamp
	}

	switch change.Kind {
	case ChangeSpec:
		if filepath.Base(change.Path) != WorldSettingsFile || r.Gravity == nil {
			return
		}
		settings, err := ParseWorldSettings(data)
		if err != nil {
			log.Warn("prefabs: reload settings", "path", change.Path, "err", err)
			return
		}
		version := r.Gravity.Set(settings.GravityValue())
		log.Info("prefabs: gravity reloaded", "gravity", settings.Gravity, "version", version)
	case ChangeScript:
		if r.OnScript != nil {
			r.OnScript(filepath.Base(change.Path), data)
		}
	}
}
