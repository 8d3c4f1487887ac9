package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuthorHistory is what the agent remembers about one author.
type AuthorHistory struct {
	AuthorID  string    `json:"author_id"`
	Replies   int       `json:"replies"`
	LastReply time.Time `json:"last_reply"`
}

// State is the agent's persisted reply memory: which posts it answered and
// when it last replied to each author.
type State struct {
	mu sync.RWMutex

	Replied    map[string]time.Time      `json:"replied"`
	Authors    map[string]*AuthorHistory `json:"authors"`
	LastActive time.Time                 `json:"last_active"`

	// Persistence path
	dataPath string
	// previous LastReply of authors with an open claim
	prevReply map[string]time.Time
}

// NewState creates an empty state persisted under dataPath.
func NewState(dataPath string) *State {
	return &State{
		Replied:  make(map[string]time.Time),
		Authors:  make(map[string]*AuthorHistory),
		dataPath: dataPath,
	}
}

// HasReplied reports whether postID was already answered.
func (s *State) HasReplied(postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.Replied[postID]
	return ok
}

// LastReplyTo returns when authorID was last answered.
func (s *State) LastReplyTo(authorID string) (time.Time, bool) {
	if authorID == "" {
		return time.Time{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.Authors[authorID]
	if !ok {
		return time.Time{}, false
	}
	return h.LastReply, true
}

// RecordReply remembers a reply.
func (s *State) RecordReply(postID, authorID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(postID, authorID, at)
}

// Claim records a reply to postID unless the post was already answered or
// authorID is still inside cooldown. Check and record happen under one lock,
// so of two concurrent claims for the same post only one succeeds.
func (s *State) Claim(postID, authorID string, cooldown time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Replied[postID]; postID != "" && ok {
		return false
	}
	h, known := s.Authors[authorID]
	if authorID != "" && known {
		if cooldown > 0 && now.Sub(h.LastReply) < cooldown {
			return false
		}
		if s.prevReply == nil {
			s.prevReply = make(map[string]time.Time)
		}
		s.prevReply[authorID] = h.LastReply
	}
	s.record(postID, authorID, now)
	return true
}

// Release undoes a Claim made at the same instant for a reply that never
// went out.
func (s *State) Release(postID, authorID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.Replied[postID]; ok && t.Equal(at) {
		delete(s.Replied, postID)
	}
	h, ok := s.Authors[authorID]
	if !ok || !h.LastReply.Equal(at) {
		return
	}
	prev, had := s.prevReply[authorID]
	delete(s.prevReply, authorID)
	if h.Replies <= 1 || !had {
		delete(s.Authors, authorID)
		return
	}
	h.Replies--
	h.LastReply = prev
}

func (s *State) record(postID, authorID string, at time.Time) {
	if postID != "" {
		s.Replied[postID] = at
	}
	if authorID != "" {
		h, ok := s.Authors[authorID]
		if !ok {
			h = &AuthorHistory{AuthorID: authorID}
			s.Authors[authorID] = h
		}
		h.Replies++
		h.LastReply = at
	}
	s.LastActive = at
}

// Prune forgets replies and authors older than retention and returns how many
// posts were dropped.
func (s *State) Prune(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-retention)
	dropped := 0
	for id, at := range s.Replied {
		if at.Before(cutoff) {
			delete(s.Replied, id)
			dropped++
		}
	}
	for id, h := range s.Authors {
		if h.LastReply.Before(cutoff) {
			delete(s.Authors, id)
		}
	}
	return dropped
}

// Save persists the state to disk. A state without a path is memory-only.
func (s *State) Save() error {
	if s.dataPath == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataPath, "state.json"), data, 0644)
}

// Load loads the state from disk.
func (s *State) Load() error {
	if s.dataPath == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dataPath, "state.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state to load
		}
		return err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return err
	}
	if s.Replied == nil {
		s.Replied = make(map[string]time.Time)
	}
	if s.Authors == nil {
		s.Authors = make(map[string]*AuthorHistory)
	}
	return nil
}

// LoadState loads a state from a path.
func LoadState(dataPath string) (*State, error) {
	state := NewState(dataPath)
	if err := state.Load(); err != nil {
		return nil, err
	}
	return state, nil
}
