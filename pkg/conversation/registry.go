package conversation

import (
	"errors"
	"sync"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
)

var ErrSessionNotFound = errors.New("conversation session not found")

// Registry owns the live sessions served over HTTP.
type Registry struct {
	provider llm.ResponseProvider
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(provider llm.ResponseProvider, opts Options) *Registry {
	return &Registry{
		provider: provider,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create(principal models.Principal) *Session {
	s := NewSession(principal, r.provider, r.opts)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
