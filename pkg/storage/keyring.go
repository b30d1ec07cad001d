package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the identifier used for all flowcanvas credentials in the system keyring.
	ServiceName = "flowcanvas"

	indexKey = "__flowcanvas_index__"
)

// ErrCredentialNotFound is returned when the keyring has no entry for a key
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore defines the interface for secure credential storage.
type CredentialStore interface {
	// Set stores a credential securely
	Set(key string, value string) error
	// Get retrieves a credential
	Get(key string) (string, error)
	// Delete removes a credential
	Delete(key string) error
	// List returns all credential keys (not the values)
	List() ([]string, error)
}

// KeyringCredentialStore implements CredentialStore using the system keyring.
// - macOS: Uses Keychain
// - Windows: Uses Credential Manager
// - Linux: Uses Secret Service (GNOME Keyring, KWallet)
type KeyringCredentialStore struct {
	service string
}

// NewKeyringCredentialStore creates a new keyring-based credential store.
func NewKeyringCredentialStore() *KeyringCredentialStore {
	return &KeyringCredentialStore{
		service: ServiceName,
	}
}

// Set stores a credential securely in the system keyring.
// The key is used as the account name, and value is the password.
func (s *KeyringCredentialStore) Set(key string, value string) error {
	if key == "" {
		return fmt.Errorf("credential key cannot be empty")
	}

	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	// the credential is stored even if the index cannot be updated
	if err := s.addToIndex(key); err != nil {
		log.Printf("storage: credential index not updated: %v", err)
	}

	return nil
}

// Get retrieves a credential from the system keyring.
func (s *KeyringCredentialStore) Get(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("credential key cannot be empty")
	}

	value, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
		}
		return "", fmt.Errorf("failed to retrieve credential: %w", err)
	}

	return value, nil
}

// Delete removes a credential from the system keyring.
func (s *KeyringCredentialStore) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("credential key cannot be empty")
	}

	if err := keyring.Delete(s.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCredentialNotFound, key)
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	if err := s.removeFromIndex(key); err != nil {
		log.Printf("storage: credential index not updated: %v", err)
	}

	return nil
}

// List returns all credential keys stored by flowcanvas, read from an
// index entry kept alongside them.
func (s *KeyringCredentialStore) List() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, indexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve credential index: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(indexJSON), &keys); err != nil {
		return nil, fmt.Errorf("failed to parse credential index: %w", err)
	}

	return keys, nil
}

func (s *KeyringCredentialStore) addToIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return s.saveIndex(append(keys, key))
}

func (s *KeyringCredentialStore) removeFromIndex(key string) error {
	keys, err := s.List()
	if err != nil {
		return err
	}
	newKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			newKeys = append(newKeys, k)
		}
	}
	return s.saveIndex(newKeys)
}

func (s *KeyringCredentialStore) saveIndex(keys []string) error {
	indexJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal credential index: %w", err)
	}
	if err := keyring.Set(s.service, indexKey, string(indexJSON)); err != nil {
		return fmt.Errorf("failed to save credential index: %w", err)
	}
	return nil
}

// TokenKey is the keyring account under which the bearer token for a
// backend is stored. Each backend URL has its own token.
func TokenKey(baseURL string) string {
	return "backend:" + strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// TokenStore keeps backend bearer tokens in a CredentialStore
type TokenStore struct {
	Store CredentialStore
}

// Token returns the token for baseURL, or "" if none is stored
func (t TokenStore) Token(baseURL string) (string, error) {
	v, err := t.Store.Get(TokenKey(baseURL))
	if errors.Is(err, ErrCredentialNotFound) {
		return "", nil
	}
	return v, err
}

// SetToken stores the token for baseURL
func (t TokenStore) SetToken(baseURL, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}
	return t.Store.Set(TokenKey(baseURL), token)
}

// DeleteToken removes the token for baseURL
func (t TokenStore) DeleteToken(baseURL string) error {
	return t.Store.Delete(TokenKey(baseURL))
}

// Backends lists the backend URLs that have a stored token
func (t TokenStore) Backends() ([]string, error) {
	keys, err := t.Store.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if url, ok := strings.CutPrefix(k, "backend:"); ok {
			out = append(out, url)
		}
	}
	return out, nil
}
