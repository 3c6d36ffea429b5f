package listings

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps listings in process. Used for local runs and tests.
type MemoryStore struct {
	listings map[string]*Listing
	byLink   map[string]string
	mu       sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[string]*Listing),
		byLink:   make(map[string]string),
	}
}

func (s *MemoryStore) FindByLink(ctx context.Context, link string) (*Listing, error) {
	link = NormalizeLink(link)
	if link == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byLink[link]
	if !ok {
		return nil, nil
	}
	l := *s.listings[id]
	return &l, nil
}

func (s *MemoryStore) Create(ctx context.Context, l *Listing) (string, error) {
	stored := *l
	stored.ID = uuid.NewString()
	stored.OrderLink = NormalizeLink(stored.OrderLink)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[stored.ID] = &stored
	if stored.OrderLink != "" {
		if _, exists := s.byLink[stored.OrderLink]; !exists {
			s.byLink[stored.OrderLink] = stored.ID
		}
	}
	return stored.ID, nil
}

// All returns a copy of every stored listing
func (s *MemoryStore) All() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		result = append(result, *l)
	}
	return result
}
