// Package history keeps a bounded, newest-first log of successful analyses.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ipscope/internal/logger"
	"ipscope/internal/model"
	"ipscope/internal/storage"
)

// LogKey is the storage key holding the JSON array of entries.
const LogKey = "ipDashboardLog"

const (
	DefaultMaxEntries   = 20
	DefaultDedupeWindow = 60 * time.Second
)

var ErrFailedLookup = errors.New("failed lookups are not recorded")

// Store is the history port. List never fails; a broken backing state reads as empty.
type Store interface {
	List() []model.LogEntry
	Append(entry model.LogEntry) error
	Clear() error
}

// Options tune a KVStore. Zero values take the defaults; a negative
// DedupeWindow disables de-duplication.
type Options struct {
	MaxEntries   int
	DedupeWindow time.Duration
}

// KVStore keeps the log as one JSON value in a storage.KV.
// Writes are serialized so concurrent appends never drop entries.
type KVStore struct {
	mu   sync.Mutex
	kv   storage.KV
	opts Options
}

func NewKVStore(kv storage.KV, opts Options) *KVStore {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	switch {
	case opts.DedupeWindow == 0:
		opts.DedupeWindow = DefaultDedupeWindow
	case opts.DedupeWindow < 0:
		opts.DedupeWindow = 0
	}
	return &KVStore{kv: kv, opts: opts}
}

func (s *KVStore) List() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *KVStore) list() []model.LogEntry {
	raw, ok, err := s.kv.Get(LogKey)
	if err != nil {
		logger.Log.Errorf("Failed to read history: %v", err)
		return []model.LogEntry{}
	}
	if !ok || raw == "" {
		return []model.LogEntry{}
	}

	var entries []model.LogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Log.Warnf("History state is corrupt, treating as empty: %v", err)
		return []model.LogEntry{}
	}
	if entries == nil {
		return []model.LogEntry{}
	}
	return entries
}

// Append records an entry. A second entry for the same IP inside the
// de-duplication window only replaces the newest one when it adds trace data
// that one lacks; otherwise it is dropped.
func (s *KVStore) Append(entry model.LogEntry) error {
	if !entry.Result.Geo.OK() {
		return ErrFailedLookup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.list()

	if len(entries) > 0 && s.isDuplicate(entries[0], entry) {
		if entries[0].Result.Trace == nil && entry.Result.Trace != nil {
			entries[0] = entry
			logger.Log.Debugf("History: enriched entry for %s with trace data", entry.Result.Geo.Query)
			return s.save(entries)
		}
		logger.Log.Debugf("History: skipped duplicate entry for %s", entry.Result.Geo.Query)
		return nil
	}

	entries = append([]model.LogEntry{entry}, entries...)
	if len(entries) > s.opts.MaxEntries {
		entries = entries[:s.opts.MaxEntries]
	}
	return s.save(entries)
}

func (s *KVStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(LogKey)
}

func (s *KVStore) isDuplicate(last, next model.LogEntry) bool {
	if last.Result.Geo.Query != next.Result.Geo.Query {
		return false
	}
	delta := next.CreatedAt().Sub(last.CreatedAt())
	if delta < 0 {
		delta = -delta
	}
	return delta < s.opts.DedupeWindow
}

func (s *KVStore) save(entries []model.LogEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Set(LogKey, string(data)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
