package artifact

import (
	"sort"
	"sync"
)

// key addresses one artifact within its owning task.
type key struct {
	taskID     string
	artifactID string
}

// InMemoryStore keeps artifacts in process memory, addressed by task and
// artifact id. Bytes are copied on both save and retrieval so callers can
// never alias the stored buffers. It carries no retention or quota logic;
// deployments that must survive restarts swap in a durable implementation.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[key][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[key][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given task and id.
func (s *InMemoryStore) Save(taskID, artifactID string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{taskID, artifactID}] = cp
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (s *InMemoryStore) Get(taskID, artifactID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[key{taskID, artifactID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the artifact ids stored for the task in lexical order, so the
// REST listing endpoint is stable across calls.
func (s *InMemoryStore) List(taskID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for k := range s.entries {
		if k.taskID == taskID {
			ids = append(ids, k.artifactID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(taskID, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{taskID, artifactID}
	if _, ok := s.entries[k]; !ok {
		return ErrNotFound
	}
	delete(s.entries, k)
	return nil
}
