package osrserver

import (
	"sync"

	"github.com/r9s-ai/open-sync-router/pkg/config"
)

// snapshot is the read-only configuration one request works against.
type snapshot struct {
	envs  *config.Environments
	creds *config.Credentials
}

type state struct {
	mu   sync.RWMutex
	snap *snapshot
}

func newState(envs *config.Environments, creds *config.Credentials) *state {
	return &state{snap: &snapshot{envs: envs, creds: creds}}
}

func (s *state) Snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *state) Swap(next *snapshot) *snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snap
	s.snap = next
	return prev
}
