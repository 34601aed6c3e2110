package api

import "sync"

// DefaultStoreSize is the number of translations kept for lookup by id.
const DefaultStoreSize = 256

// TranslationStore keeps the most recent translations so clients can fetch a
// result again by id. The oldest entry is evicted when the store is full.
type TranslationStore struct {
	mu      sync.Mutex
	limit   int
	order   []string
	entries map[string]TranslateResponse
}

func NewTranslationStore(limit int) *TranslationStore {
	if limit <= 0 {
		limit = DefaultStoreSize
	}
	return &TranslationStore{
		limit:   limit,
		entries: make(map[string]TranslateResponse, limit),
	}
}

func (s *TranslationStore) Put(resp TranslateResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[resp.ID]; !ok {
		s.order = append(s.order, resp.ID)
	}
	s.entries[resp.ID] = resp
	for len(s.order) > s.limit {
		delete(s.entries, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *TranslationStore) Get(id string) (TranslateResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.entries[id]
	return resp, ok
}

func (s *TranslationStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *TranslationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
