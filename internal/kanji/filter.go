package kanji

import "strings"

// FilterMode selects which records a view shows.
type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterLearned FilterMode = "learned"
)

// ParseFilterMode maps user input onto a mode, defaulting to FilterAll.
func ParseFilterMode(s string) FilterMode {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterLearned)) {
		return FilterLearned
	}
	return FilterAll
}

// Next returns the other mode.
func (m FilterMode) Next() FilterMode {
	if m == FilterLearned {
		return FilterAll
	}
	return FilterLearned
}

// LevelGroup is one level's records after filtering.
type LevelGroup struct {
	Level   int      `json:"level"`
	Records []Record `json:"records"`
}

// KeepLearned keeps the records whose character is in learned. An empty
// learned set disables filtering.
func KeepLearned(records []Record, learned map[string]struct{}) []Record {
	if len(learned) == 0 {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, ok := learned[rec.Character]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Groups returns the store grouped by ascending level. In FilterLearned mode
// with a non-empty learned set, records are filtered and levels left empty
// are dropped; otherwise every level is returned as stored.
func (s *Store) Groups(mode FilterMode, learned map[string]struct{}) []LevelGroup {
	filtering := mode == FilterLearned && len(learned) > 0
	levels := s.Levels()
	out := make([]LevelGroup, 0, len(levels))
	for _, level := range levels {
		records := s.Level(level)
		if filtering {
			records = KeepLearned(records, learned)
			if len(records) == 0 {
				continue
			}
		}
		out = append(out, LevelGroup{Level: level, Records: records})
	}
	return out
}

// GroupFor returns a single level's records under the same filter rules as
// Groups, without dropping the level when it ends up empty.
func (s *Store) GroupFor(level int, mode FilterMode, learned map[string]struct{}) LevelGroup {
	records := s.Level(level)
	if mode == FilterLearned {
		records = KeepLearned(records, learned)
	}
	return LevelGroup{Level: level, Records: records}
}
