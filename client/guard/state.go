package guard

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/czhcheng27/project-playground/client/api"
)

// AuthorizationState is the persisted credential and grant snapshot. Only
// the guard controller writes it.
type AuthorizationState struct {
	Token       string          `json:"token"`
	Expired     int64           `json:"expired"`
	Permissions api.Permissions `json:"permissions"`
	Phase       Phase           `json:"phase"`
}

// HasToken reports whether a credential is present.
func (s AuthorizationState) HasToken() bool {
	return s.Token != ""
}

// StateRepository persists authorization state across process restarts.
type StateRepository interface {
	Load() (AuthorizationState, error)
	Save(state AuthorizationState) error
	Clear() error
}

// FileStateRepository stores state as JSON on disk. Saves are atomic: the
// new state lands in a temp file that is renamed over the old one, so a
// failed write leaves the previous state intact.
type FileStateRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileStateRepository constructs a repository at path.
func NewFileStateRepository(path string) *FileStateRepository {
	return &FileStateRepository{path: path}
}

// Load reads the persisted state. A missing file is an empty state.
func (r *FileStateRepository) Load() (AuthorizationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AuthorizationState{}, nil
		}
		return AuthorizationState{}, err
	}
	var state AuthorizationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return AuthorizationState{}, err
	}
	return state, nil
}

// Save writes the state atomically. Last write wins.
func (r *FileStateRepository) Save(state AuthorizationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".authstate-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, r.path)
}

// Clear removes the persisted state.
func (r *FileStateRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStateRepository keeps state in memory, for tests and ephemeral
// sessions.
type MemoryStateRepository struct {
	mu    sync.Mutex
	state AuthorizationState
	set   bool
}

// NewMemoryStateRepository constructs an empty repository.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

// Load returns the stored state, empty when nothing was saved.
func (r *MemoryStateRepository) Load() (AuthorizationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return AuthorizationState{}, nil
	}
	return r.state, nil
}

// Save stores the state.
func (r *MemoryStateRepository) Save(state AuthorizationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.set = true
	return nil
}

// Clear drops the stored state.
func (r *MemoryStateRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = AuthorizationState{}
	r.set = false
	return nil
}
