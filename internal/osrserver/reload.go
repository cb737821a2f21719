package osrserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/r9s-ai/open-sync-router/internal/logx"
	"github.com/r9s-ai/open-sync-router/pkg/config"
)

type reloadResult struct {
	ChangedEntities []string
}

func loadSnapshot(cfg *config.Config) (*snapshot, error) {
	if cfg == nil {
		return nil, errors.New("load: nil cfg")
	}
	envs, err := config.LoadEnvironments(cfg.Environments.File)
	if err != nil {
		return nil, fmt.Errorf("load environments file %q: %w", cfg.Environments.File, err)
	}
	if name := strings.TrimSpace(cfg.Environments.Default); name != "" {
		if _, err := envs.Get(name); err != nil {
			return nil, fmt.Errorf("environments.default: %w", err)
		}
	}
	creds, err := config.LoadCredentials(cfg.Credentials.File)
	if err != nil {
		return nil, fmt.Errorf("load credentials file %q: %w", cfg.Credentials.File, err)
	}
	return &snapshot{envs: envs, creds: creds}, nil
}

// reloadRuntime swaps in freshly loaded files. On error the running
// snapshot stays in place.
func reloadRuntime(cfg *config.Config, st *state) (reloadResult, error) {
	if cfg == nil || st == nil {
		return reloadResult{}, errors.New("reload: nil cfg/state")
	}
	next, err := loadSnapshot(cfg)
	if err != nil {
		return reloadResult{}, err
	}
	prev := st.Swap(next)
	var before map[string]string
	if prev != nil {
		before = entityFingerprints(prev.envs)
	}
	return reloadResult{
		ChangedEntities: diffChangedNames(before, entityFingerprints(next.envs)),
	}, nil
}

func installReloadSignalHandler(cfg *config.Config, st *state, mu *sync.Mutex) {
	if cfg == nil || st == nil || mu == nil {
		return
	}
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		for range ch {
			mu.Lock()
			res, err := reloadRuntime(cfg, st)
			mu.Unlock()
			if err != nil {
				log.Printf("reload failed (signal): %v", err)
				continue
			}
			log.Printf(
				"reload ok (signal): environments_file=%q credentials_file=%q changed_entities=%s",
				cfg.Environments.File,
				cfg.Credentials.File,
				namesForLog(res.ChangedEntities),
			)
		}
	}()
}

func logEnvironments(snap *snapshot, reloading bool) {
	if snap == nil || snap.envs == nil {
		return
	}
	phase := "load"
	if reloading {
		phase = "reload"
	}
	for _, name := range snap.envs.Names() {
		env, err := snap.envs.Get(name)
		if err != nil {
			continue
		}
		log.Printf("[environments/%s] env=%q source=%q target=%q entities=%d", phase, name, env.Source.BaseURL, env.Target.BaseURL, len(env.Entities))
		if _, ok := snap.creds.HeadersFor(env.Target.BaseURL); !ok {
			warn := "WARNING"
			if logx.ColorEnabled() {
				warn = "\x1b[1;33mWARNING\x1b[0m"
			}
			log.Printf("%s [environments/%s] env=%q no credentials for target host; target requests will fail", warn, phase, name)
		}
	}
}

func namesForLog(names []string) string {
	if len(names) == 0 {
		return "<none>"
	}
	return strings.Join(names, ",")
}

// entityFingerprints keys every entity map as env/source->target.
func entityFingerprints(envs *config.Environments) map[string]string {
	out := map[string]string{}
	if envs == nil {
		return out
	}
	for _, name := range envs.Names() {
		env, err := envs.Get(name)
		if err != nil {
			continue
		}
		for _, em := range env.Entities {
			b, err := json.Marshal(struct {
				Source any
				Target any
				Map    any
			}{env.Source, env.Target, em})
			if err != nil {
				continue
			}
			out[name+"/"+em.SourceEntityName+"->"+em.TargetEntityName] = string(b)
		}
	}
	return out
}

func diffChangedNames(before map[string]string, after map[string]string) []string {
	changed := make([]string, 0)
	for name, prev := range before {
		next, ok := after[name]
		if !ok || next != prev {
			changed = append(changed, name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}
