package oauth2

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"httpcraft/pkg/logging"
)

// keyringService is the service name token records are filed under in
// the OS keychain.
const keyringService = "httpcraft-oauth2"

// tokenStore persists tokens across invocations. Implementations are
// best-effort: a read miss or write failure degrades to re-acquisition,
// never to request failure.
type tokenStore interface {
	Get(key string) (*Token, bool)
	Put(key string, t *Token)
	Delete(key string)
}

// newTokenStore selects the storage tier. An explicit hint picks that
// tier; auto probes the OS keychain first, then the token directory,
// then falls back to process memory.
func newTokenStore(hint, dir string) tokenStore {
	switch hint {
	case storageKeychain:
		return &keychainStore{}
	case storageFile:
		if fs, err := newFileStore(dir); err == nil {
			return fs
		}
		return newMemoryStore()
	case storageMemory:
		return newMemoryStore()
	}
	if keychainAvailable() {
		return &keychainStore{}
	}
	if fs, err := newFileStore(dir); err == nil {
		return fs
	}
	logging.Debug("OAuth2", "no persistent token storage available, tokens held in memory")
	return newMemoryStore()
}

// defaultTokenDir is where the file tier keeps encrypted records.
func defaultTokenDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "httpcraft", "tokens")
}

func keychainAvailable() bool {
	const probe = "httpcraft-availability-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, probe)
	return true
}

// keychainStore keeps token records in the OS keychain, one entry per
// cache key. The keychain is already access-controlled, so records are
// stored as plain JSON.
type keychainStore struct{}

func (s *keychainStore) Get(key string) (*Token, bool) {
	raw, err := keyring.Get(keyringService, key)
	if err != nil {
		return nil, false
	}
	var t Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		logging.Debug("OAuth2", "discarding unreadable keychain record: %v", err)
		return nil, false
	}
	return &t, true
}

func (s *keychainStore) Put(key string, t *Token) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		logging.Debug("OAuth2", "keychain write failed: %v", err)
	}
}

func (s *keychainStore) Delete(key string) {
	if err := keyring.Delete(keyringService, key); err != nil && err != keyring.ErrNotFound {
		logging.Debug("OAuth2", "keychain delete failed: %v", err)
	}
}

// fileStore keeps one encrypted record per cache key under dir. The
// directory is owner-only and records are sealed with a key derived from
// fixed parameters, so files are unreadable outside this tool.
type fileStore struct {
	dir string
	key []byte
}

func newFileStore(dir string) (*fileStore, error) {
	if dir == "" {
		return nil, os.ErrNotExist
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	key, err := deriveKey()
	if err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, key: key}, nil
}

func (s *fileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *fileStore) Get(key string) (*Token, bool) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	plain, err := decryptRecord(s.key, strings.TrimSpace(string(raw)))
	if err != nil {
		logging.Debug("OAuth2", "discarding unreadable token record %s: %v", key, err)
		return nil, false
	}
	var t Token
	if err := json.Unmarshal(plain, &t); err != nil {
		logging.Debug("OAuth2", "discarding unreadable token record %s: %v", key, err)
		return nil, false
	}
	return &t, true
}

func (s *fileStore) Put(key string, t *Token) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	record, err := encryptRecord(s.key, data)
	if err != nil {
		logging.Debug("OAuth2", "sealing token record failed: %v", err)
		return
	}
	if err := os.WriteFile(s.path(key), []byte(record), 0o600); err != nil {
		logging.Debug("OAuth2", "writing token record failed: %v", err)
	}
}

func (s *fileStore) Delete(key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		logging.Debug("OAuth2", "removing token record failed: %v", err)
	}
}

// memoryStore holds tokens for the lifetime of the process only.
type memoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: map[string]*Token{}}
}

func (s *memoryStore) Get(key string) (*Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[key]
	return t, ok
}

func (s *memoryStore) Put(key string, t *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = t
}

func (s *memoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
}
