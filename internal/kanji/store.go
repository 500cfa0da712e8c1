package kanji

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/logging"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/storage"
)

var (
	// ErrUnknownRecord is returned by Update when no record has the given id.
	ErrUnknownRecord = errors.New("unknown record id")
	// ErrMalformedSnapshot marks persisted store data that could not be used.
	ErrMalformedSnapshot = errors.New("malformed persisted store")
)

// SavedMessage is the notification text for a committed edit.
const SavedMessage = "Changes saved successfully!"

// Store holds every Kanji record grouped by level and persists the whole
// mapping after each change.
type Store struct {
	mu       sync.RWMutex
	data     levelMap
	kv       storage.KV
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewStore returns an uninitialized store. Call Initialize before use.
func NewStore(kv storage.KV, notifier notify.Notifier, logger *zap.Logger) *Store {
	return &Store{
		data:     levelMap{},
		kv:       kv,
		notifier: notifier,
		logger:   logging.OrNop(logger),
	}
}

// Initialize loads the persisted store, falling back to the seed dataset
// when nothing usable is stored. It only fails if the seed itself is broken.
func (s *Store) Initialize() error {
	data, source := s.loadPersisted()
	if data == nil {
		seed, err := Seed()
		if err != nil {
			return err
		}
		data, source = seed, "seed"
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()

	s.logger.Info("character store initialized",
		zap.String("source", source),
		zap.Int("levels", len(data)),
	)
	return nil
}

func (s *Store) loadPersisted() (levelMap, string) {
	if s.kv == nil {
		return nil, ""
	}
	raw, err := s.kv.Get(storage.KeyKanjiData)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Warn("read persisted store failed; using seed", zap.Error(err))
		}
		return nil, ""
	}
	data, err := decode(raw)
	if err != nil {
		s.logger.Warn("discarding persisted store",
			zap.Error(fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)),
		)
		return nil, ""
	}
	return data, "storage"
}

// Update applies changes to the record with id. Only fields whose value
// differs from the current one are written; when nothing differs the store
// is left untouched and no notification is sent. It reports whether the
// record changed.
func (s *Store) Update(id string, changes Changes) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	level, idx, ok := s.locate(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}

	current := s.data[level][idx]
	next := current
	changed := false
	if changes.Mnemonic != nil && *changes.Mnemonic != current.Mnemonic {
		next.Mnemonic = *changes.Mnemonic
		changed = true
	}
	if changes.Image != nil && *changes.Image != current.Image {
		next.Image = *changes.Image
		changed = true
	}
	if !changed {
		return false, nil
	}

	list := make([]Record, len(s.data[level]))
	copy(list, s.data[level])
	list[idx] = next
	updated := make(levelMap, len(s.data))
	for k, v := range s.data {
		updated[k] = v
	}
	updated[level] = list
	s.data = updated

	if s.notifier != nil {
		s.notifier.Success(SavedMessage)
	}
	s.persistLocked()
	return true, nil
}

// persistLocked re-serializes the whole store. Failures are logged only.
func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	raw, err := encode(s.data)
	if err != nil {
		s.logger.Error("encode store failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(storage.KeyKanjiData, raw); err != nil {
		s.logger.Error("persist store failed", zap.Error(err))
		return
	}
	s.logger.Debug("store persisted", zap.Int("bytes", len(raw)))
}

// locate finds a record by id, trying the level encoded in the id first.
func (s *Store) locate(id string) (int, int, bool) {
	if level, ok := LevelFromID(id); ok {
		for i, rec := range s.data[level] {
			if rec.ID == id {
				return level, i, true
			}
		}
	}
	for level, records := range s.data {
		for i, rec := range records {
			if rec.ID == id {
				return level, i, true
			}
		}
	}
	return 0, 0, false
}

// Levels returns every level in ascending order.
func (s *Store) Levels() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedLevels(s.data)
}

// Level returns a copy of the records for level, in seed order.
func (s *Store) Level(level int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.data[level])
}

// Get returns the record with id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	level, idx, ok := s.locate(id)
	if !ok {
		return Record{}, false
	}
	return s.data[level][idx], true
}

// Find returns the record for a character within a level.
func (s *Store) Find(level int, character string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.data[level] {
		if rec.Character == character {
			return rec, true
		}
	}
	return Record{}, false
}

// All returns a copy of the whole mapping.
func (s *Store) All() map[int][]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]Record, len(s.data))
	for level, records := range s.data {
		out[level] = cloneRecords(records)
	}
	return out
}

func cloneRecords(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
