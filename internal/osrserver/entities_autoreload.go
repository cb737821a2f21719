package osrserver

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/r9s-ai/open-sync-router/pkg/config"
)

// installEntitiesAutoReload watches the environments and credentials files
// and reloads both after a quiet period. Parent directories are watched so
// editors that replace files by rename are still seen.
func installEntitiesAutoReload(cfg *config.Config, st *state, mu *sync.Mutex) (io.Closer, error) {
	if cfg == nil || st == nil || mu == nil {
		return nil, nil
	}
	if !cfg.Entities.AutoReload.Enabled {
		return nil, nil
	}

	files := watchedFiles(cfg)
	if len(files) == 0 {
		return nil, nil
	}
	debounce := time.Duration(cfg.Entities.AutoReload.DebounceMs) * time.Millisecond

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range watchedDirs(files) {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	triggerCh := make(chan struct{}, 1)

	go func() {
		defer close(doneCh)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			timerC = timer.C
		}
		runReload := func() {
			mu.Lock()
			res, err := reloadRuntime(cfg, st)
			mu.Unlock()
			if err != nil {
				log.Printf("reload failed (entities auto): %v", err)
				return
			}
			log.Printf("reload ok (entities auto): changed_entities=%s", namesForLog(res.ChangedEntities))
			logEnvironments(st.Snapshot(), true)
		}

		for {
			select {
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				runReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("entities auto-reload watcher error: %v", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldTriggerEntitiesReload(evt, files) {
					select {
					case triggerCh <- struct{}{}:
					default:
					}
				}
			case <-triggerCh:
				resetTimer()
			}
		}
	}()

	log.Printf(
		"entities auto-reload enabled: environments_file=%q credentials_file=%q debounce_ms=%d",
		cfg.Environments.File,
		cfg.Credentials.File,
		cfg.Entities.AutoReload.DebounceMs,
	)
	return closerFunc(func() error {
		close(stopCh)
		_ = watcher.Close()
		<-doneCh
		return nil
	}), nil
}

func watchedFiles(cfg *config.Config) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range []string{cfg.Environments.File, cfg.Credentials.File} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out[filepath.Clean(p)] = struct{}{}
	}
	return out
}

func watchedDirs(files map[string]struct{}) []string {
	seen := map[string]struct{}{}
	var out []string
	for f := range files {
		dir := filepath.Dir(f)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

func shouldTriggerEntitiesReload(evt fsnotify.Event, files map[string]struct{}) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
		return false
	}
	name := evt.Name
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	_, ok := files[filepath.Clean(name)]
	return ok
}
