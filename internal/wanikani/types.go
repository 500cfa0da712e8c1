package wanikani

import (
	"strings"
	"time"
)

// User is the subset of /user the sync cares about.
type User struct {
	Level    int    `json:"level"`
	Username string `json:"username"`
}

type userEnvelope struct {
	Data User `json:"data"`
}

// Assignment is a passed Kanji assignment.
type Assignment struct {
	SubjectID int    `json:"subject_id"`
	SRSStage  int    `json:"srs_stage"`
	PassedAt  string `json:"passed_at"`
}

// ParsedPassedAt returns the passed_at timestamp, or the zero time when it
// is missing or unparseable.
func (a Assignment) ParsedPassedAt() time.Time {
	return parseTimestamp(a.PassedAt)
}

// AssignmentPage is one page of the assignments collection.
type AssignmentPage struct {
	TotalCount  int
	Assignments []Assignment
	// NextURL is the absolute URL of the following page, empty on the last.
	NextURL string
}

type assignmentCollection struct {
	TotalCount int `json:"total_count"`
	Pages      struct {
		NextURL *string `json:"next_url"`
	} `json:"pages"`
	Data []struct {
		ID   int        `json:"id"`
		Data Assignment `json:"data"`
	} `json:"data"`
}

func (c assignmentCollection) page() AssignmentPage {
	out := AssignmentPage{
		TotalCount:  c.TotalCount,
		Assignments: make([]Assignment, 0, len(c.Data)),
	}
	if c.Pages.NextURL != nil {
		out.NextURL = strings.TrimSpace(*c.Pages.NextURL)
	}
	for _, item := range c.Data {
		out.Assignments = append(out.Assignments, item.Data)
	}
	return out
}

// Subject is a Kanji subject reduced to its id and glyph.
type Subject struct {
	ID         int    `json:"id"`
	Characters string `json:"characters"`
}

type subjectCollection struct {
	Data []struct {
		ID   int `json:"id"`
		Data struct {
			Characters *string `json:"characters"`
		} `json:"data"`
	} `json:"data"`
}

func (c subjectCollection) subjects() []Subject {
	out := make([]Subject, 0, len(c.Data))
	for _, item := range c.Data {
		subject := Subject{ID: item.ID}
		if item.Data.Characters != nil {
			subject.Characters = *item.Data.Characters
		}
		out = append(out, subject)
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
