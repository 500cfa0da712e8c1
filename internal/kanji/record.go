package kanji

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one Kanji character and the user's edits for it.
//
// Descriptive fields come from the seed dataset and never change. Mnemonic
// and Image are the only user-editable fields; the empty string is their
// canonical blank value.
type Record struct {
	ID                  string   `json:"id"`
	Level               int      `json:"level"`
	Character           string   `json:"character"`
	Meaning             string   `json:"meaning"`
	Reading             string   `json:"reading"`
	AlternativeMeanings []string `json:"alternativeMeanings,omitempty"`
	Onyomi              []string `json:"onyomi,omitempty"`
	Kunyomi             []string `json:"kunyomi,omitempty"`
	Nanori              []string `json:"nanori,omitempty"`
	WaniKaniMnemonic    string   `json:"wanikaniMnemonic,omitempty"`
	Mnemonic            string   `json:"mnemonic,omitempty"`
	Image               string   `json:"image,omitempty"`
}

// EffectiveMnemonic returns the user's mnemonic, falling back to the
// externally supplied one when the user has not written any.
func (r Record) EffectiveMnemonic() string {
	if r.Mnemonic != "" {
		return r.Mnemonic
	}
	return r.WaniKaniMnemonic
}

// HasImage reports whether an image payload is attached.
func (r Record) HasImage() bool {
	return r.Image != ""
}

// Changes is a partial update of a record's editable fields. A nil field is
// "not provided" and is left untouched.
type Changes struct {
	Mnemonic *string `json:"mnemonic,omitempty"`
	Image    *string `json:"image,omitempty"`
}

// Empty reports whether no field is provided.
func (c Changes) Empty() bool {
	return c.Mnemonic == nil && c.Image == nil
}

// merge overlays later onto c; fields set in later win.
func (c Changes) merge(later Changes) Changes {
	if later.Mnemonic != nil {
		c.Mnemonic = later.Mnemonic
	}
	if later.Image != nil {
		c.Image = later.Image
	}
	return c
}

// SetMnemonic is a convenience constructor for a mnemonic-only change.
func SetMnemonic(text string) Changes {
	return Changes{Mnemonic: &text}
}

// SetImage is a convenience constructor for an image-only change. An empty
// payload clears the image.
func SetImage(payload string) Changes {
	return Changes{Image: &payload}
}

// LevelFromID extracts the level prefix encoded in a record id.
func LevelFromID(id string) (int, bool) {
	prefix, _, found := strings.Cut(id, "_")
	if !found {
		return 0, false
	}
	level, err := strconv.Atoi(prefix)
	if err != nil || level <= 0 {
		return 0, false
	}
	return level, true
}

// MakeID builds the id for the n-th record of a level.
func MakeID(level, n int) string {
	return fmt.Sprintf("%d_%d", level, n)
}
