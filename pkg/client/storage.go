package client

import (
	"os"
	"strings"
	"sync"
)

// TokenStore holds the single persisted token value. No other credential
// material is ever stored client-side.
type TokenStore interface {
	Token() string
	Set(token string) error
	Clear() error
}

// MemoryTokenStore lives for the process only, the session-scoped choice.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// FileTokenStore survives restarts, the durable "remember me" choice.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *FileTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SplitTokenStore routes the token to one of two backing stores depending on
// the caller's remember-me choice, and reads from whichever holds it.
type SplitTokenStore struct {
	mu      sync.Mutex
	durable TokenStore
	session TokenStore
}

func NewSplitTokenStore(durable, session TokenStore) *SplitTokenStore {
	return &SplitTokenStore{durable: durable, session: session}
}

func (s *SplitTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok := s.durable.Token(); tok != "" {
		return tok
	}
	return s.session.Token()
}

// Set without a remember-me choice defaults to the session-scoped store.
func (s *SplitTokenStore) Set(token string) error {
	return s.SetRemembered(token, false)
}

func (s *SplitTokenStore) SetRemembered(token string, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.durable.Clear(); err != nil {
		return err
	}
	if err := s.session.Clear(); err != nil {
		return err
	}
	if remember {
		return s.durable.Set(token)
	}
	return s.session.Set(token)
}

func (s *SplitTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.durable.Clear(); err != nil {
		return err
	}
	return s.session.Clear()
}
