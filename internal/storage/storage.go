package storage

import (
	"sync"
	"time"

	"github.com/pintuan-hub/publisher/internal/draft"
)

// Entry is a live draft session plus the notices and prompts it raised since
// the client last looked.
type Entry struct {
	Session   *draft.Session
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	notices  []draft.Notice
	prompts  []draft.DuplicatePrompt
}

// Touch records client activity on the entry.
func (e *Entry) Touch(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = now
}

// LastSeen is the latest activity, or CreatedAt when there was none.
func (e *Entry) LastSeen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSeen.IsZero() {
		return e.CreatedAt
	}
	return e.lastSeen
}

func (e *Entry) Notify(n draft.Notice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, n)
}

func (e *Entry) Prompt(p draft.DuplicatePrompt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, p)
}

// Drain returns and clears the pending notices and prompts.
func (e *Entry) Drain() ([]draft.Notice, []draft.DuplicatePrompt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	notices, prompts := e.notices, e.prompts
	e.notices, e.prompts = nil, nil
	return notices, prompts
}

type SessionStore struct {
	sessions map[string]*Entry
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Entry),
	}
}

// Open starts a session on the pipeline and registers it under its draft id.
func (s *SessionStore) Open(p *draft.Pipeline) *Entry {
	entry := &Entry{CreatedAt: time.Now()}
	entry.Session = p.NewSession(
		draft.WithNotifier(entry.Notify),
		draft.WithDuplicatePrompt(entry.Prompt),
	)
	s.Set(entry.Session.Snapshot().ID, entry)
	return entry
}

func (s *SessionStore) Get(draftID string) (*Entry, bool) {
	s.mu.RLock()
	entry, exists := s.sessions[draftID]
	s.mu.RUnlock()
	if exists {
		entry.Touch(time.Now())
	}
	return entry, exists
}

func (s *SessionStore) Set(draftID string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[draftID] = entry
}

func (s *SessionStore) GetAll() map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*Entry, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, draftID)
}

// Expire removes entries idle since before cutoff and returns how many went.
func (s *SessionStore) Expire(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if entry.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
