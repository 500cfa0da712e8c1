package kanji

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed seed.json
var seedJSON []byte

// levelMap is the in-memory shape of the store: level → ordered records.
type levelMap map[int][]Record

// Seed returns a fresh copy of the bundled seed dataset.
func Seed() (map[int][]Record, error) {
	data, err := decode(seedJSON)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return data, nil
}

// decode parses the persisted layout (level-string → []Record) and checks
// the store invariants: positive levels, non-empty ids and characters,
// unique ids, and unique (level, character) pairs.
func decode(raw []byte) (levelMap, error) {
	var wire map[string][]Record
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, fmt.Errorf("store is null")
	}

	out := make(levelMap, len(wire))
	ids := make(map[string]struct{})
	for key, records := range wire {
		level, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || level <= 0 {
			return nil, fmt.Errorf("invalid level key %q", key)
		}
		glyphs := make(map[string]struct{}, len(records))
		list := make([]Record, 0, len(records))
		for i, rec := range records {
			if rec.ID == "" || rec.Character == "" {
				return nil, fmt.Errorf("level %d record %d: missing id or character", level, i)
			}
			if rec.Level == 0 {
				rec.Level = level
			}
			if rec.Level != level {
				return nil, fmt.Errorf("record %s: level %d filed under %d", rec.ID, rec.Level, level)
			}
			if _, dup := ids[rec.ID]; dup {
				return nil, fmt.Errorf("duplicate id %s", rec.ID)
			}
			if _, dup := glyphs[rec.Character]; dup {
				return nil, fmt.Errorf("duplicate character %s in level %d", rec.Character, level)
			}
			ids[rec.ID] = struct{}{}
			glyphs[rec.Character] = struct{}{}
			list = append(list, rec)
		}
		out[level] = list
	}
	return out, nil
}

// encode serializes the whole store in the persisted layout.
func encode(data levelMap) ([]byte, error) {
	wire := make(map[string][]Record, len(data))
	for level, records := range data {
		if records == nil {
			records = []Record{}
		}
		wire[strconv.Itoa(level)] = records
	}
	return json.Marshal(wire)
}

func sortedLevels(data levelMap) []int {
	levels := make([]int, 0, len(data))
	for level := range data {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}
