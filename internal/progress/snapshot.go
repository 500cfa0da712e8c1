package progress

import "time"

// Detail is the remote progress for one learned character.
type Detail struct {
	SubjectID int       `json:"subjectId"`
	Stage     int       `json:"srsStage"`
	StageName string    `json:"srsStageName"`
	PassedAt  time.Time `json:"passedAt,omitzero"`
}

// Snapshot is the result of the most recent sync. A failed sync replaces it
// with an empty snapshot carrying only LastError.
type Snapshot struct {
	HasProfile        bool              `json:"hasProfile"`
	Level             int               `json:"level,omitempty"`
	Username          string            `json:"username,omitempty"`
	HasLearnedCount   bool              `json:"-"`
	LearnedCount      int               `json:"learnedCount,omitempty"`
	LearnedCharacters []string          `json:"learnedCharacters"`
	DetailByCharacter map[string]Detail `json:"details"`
	LastError         string            `json:"lastError,omitempty"`
	LastSynced        time.Time         `json:"lastSynced,omitzero"`
}

// IsLearned reports whether glyph was among the learned characters.
func (s Snapshot) IsLearned(glyph string) bool {
	for _, c := range s.LearnedCharacters {
		if c == glyph {
			return true
		}
	}
	return false
}

// LearnedSet returns the learned characters as a set. It is nil when
// nothing is learned.
func (s Snapshot) LearnedSet() map[string]struct{} {
	if len(s.LearnedCharacters) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(s.LearnedCharacters))
	for _, c := range s.LearnedCharacters {
		out[c] = struct{}{}
	}
	return out
}

// DetailFor returns the progress detail stored for glyph.
func (s Snapshot) DetailFor(glyph string) (Detail, bool) {
	d, ok := s.DetailByCharacter[glyph]
	return d, ok
}

// clone deep-copies s. The collections are never nil in the copy, so an
// empty snapshot encodes as [] and {} rather than null.
func (s Snapshot) clone() Snapshot {
	out := s
	out.LearnedCharacters = append(make([]string, 0, len(s.LearnedCharacters)), s.LearnedCharacters...)
	out.DetailByCharacter = make(map[string]Detail, len(s.DetailByCharacter))
	for k, v := range s.DetailByCharacter {
		out.DetailByCharacter[k] = v
	}
	return out
}

var stageNames = map[int]string{
	0: "Locked",
	1: "Apprentice I",
	2: "Apprentice II",
	3: "Apprentice III",
	4: "Apprentice IV",
	5: "Guru I",
	6: "Guru II",
	7: "Master",
	8: "Enlightened",
	9: "Burned",
}

// StageName maps an SRS stage number to its display name.
func StageName(stage int) string {
	if name, ok := stageNames[stage]; ok {
		return name
	}
	return "Unknown"
}
