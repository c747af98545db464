// Package credential resolves the AI credential for a session.
package credential

import (
	"context"
	"fmt"
	"sync"

	"ipscope/internal/ai"
	"ipscope/internal/logger"
	"ipscope/internal/storage"
)

// StorageKey is the KV key of the user's stored override.
const StorageKey = "geminiApiKey"

type Status string

const (
	StatusFromEnv Status = "from_env"
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusMissing Status = "missing"
)

// Usable reports whether a key resolved with this status may be used.
func (s Status) Usable() bool {
	return s == StatusFromEnv || s == StatusValid
}

// Validator checks a key against the AI service.
type Validator interface {
	ValidateCredential(ctx context.Context, key string) bool
}

// Manager picks the session credential. The environment key always wins over
// a stored one. A stored key is validated once per Manager; Save and Clear
// update the remembered result.
type Manager struct {
	kv        storage.KV
	validator Validator
	envKey    string

	mu       sync.Mutex
	resolved bool
	key      string
	status   Status
}

func NewManager(kv storage.KV, v Validator, envKey string) *Manager {
	return &Manager{kv: kv, validator: v, envKey: envKey}
}

// Resolve returns the key to use and how it was obtained. A stored key that
// fails validation is removed.
func (m *Manager) Resolve(ctx context.Context) (string, Status) {
	if m.envKey != "" {
		return m.envKey, StatusFromEnv
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return m.key, m.status
	}

	stored, ok, err := m.kv.Get(StorageKey)
	if err != nil {
		logger.Log.Errorf("Failed to read stored credential: %v", err)
		return "", StatusMissing
	}
	m.remember(m.checkStored(ctx, stored, ok))
	return m.key, m.status
}

func (m *Manager) checkStored(ctx context.Context, stored string, ok bool) (string, Status) {
	if !ok || stored == "" {
		return "", StatusMissing
	}

	if m.validator.ValidateCredential(ctx, stored) {
		return stored, StatusValid
	}

	logger.Log.Warn("Stored AI credential was rejected, clearing it")
	if err := m.kv.Remove(StorageKey); err != nil {
		logger.Log.Errorf("Failed to clear rejected credential: %v", err)
	}
	return "", StatusInvalid
}

// Save validates key and stores it. Rejected keys are not stored.
func (m *Manager) Save(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key == "" || !m.validator.ValidateCredential(ctx, key) {
		m.remember("", StatusInvalid)
		return ai.ErrInvalidCredential
	}
	if err := m.kv.Set(StorageKey, key); err != nil {
		m.resolved = false
		return fmt.Errorf("failed to store credential: %w", err)
	}
	m.remember(key, StatusValid)
	return nil
}

func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Remove(StorageKey); err != nil {
		m.resolved = false
		return err
	}
	m.remember("", StatusMissing)
	return nil
}

func (m *Manager) remember(key string, status Status) {
	m.key, m.status, m.resolved = key, status, true
}

// FromEnv reports whether the session key comes from the environment.
func (m *Manager) FromEnv() bool {
	return m.envKey != ""
}
