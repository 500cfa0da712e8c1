package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/logging"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/wanikani"
)

// SubjectBatchSize is the most subject ids sent in one lookup.
const SubjectBatchSize = 100

// Sync stages reported in FetchError.
const (
	StageProfile     = "profile"
	StageAssignments = "assignments"
	StageSubjects    = "subjects"
)

const (
	missingCredentialMessage = "WaniKani API Key not set."
	missingCredentialError   = "API Key not set."
)

// ErrMissingCredential is returned by Sync when no API key is configured.
var ErrMissingCredential = errors.New("api key not set")

// FetchError is a failed sync step. Detail is the user-facing message.
type FetchError struct {
	Stage  string
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Stage, e.Detail)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Syncer pulls remote progress and keeps the latest Snapshot.
type Syncer struct {
	run sync.Mutex

	mu   sync.RWMutex
	snap Snapshot

	fetcher  wanikani.Fetcher
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncer returns a Syncer with an empty snapshot.
func NewSyncer(fetcher wanikani.Fetcher, notifier notify.Notifier, logger *zap.Logger) *Syncer {
	return &Syncer{
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// Snapshot returns a deep copy of the current snapshot.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// ClearError drops the recorded error, keeping any synced data.
func (s *Syncer) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = ""
}

// Sync fetches the profile, every passed Kanji assignment and the glyphs for
// those subjects, then replaces the snapshot. On failure the snapshot is
// reset and the error is both notified and returned. Concurrent calls run
// one after another.
func (s *Syncer) Sync(ctx context.Context, credential string) error {
	s.run.Lock()
	defer s.run.Unlock()

	credential = strings.TrimSpace(credential)
	if credential == "" {
		s.mu.Lock()
		s.snap.LastError = missingCredentialError
		s.mu.Unlock()
		s.notifyError(missingCredentialMessage)
		return ErrMissingCredential
	}

	started := s.now()
	snap, err := s.fetch(ctx, credential)
	if err != nil {
		detail := err.Error()
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			detail = fetchErr.Detail
		}
		s.mu.Lock()
		s.snap = Snapshot{LastError: detail}
		s.mu.Unlock()

		s.logger.Warn("progress sync failed", zap.Error(err))
		s.notifyError("WaniKani API Error: " + detail)
		return err
	}

	snap.LastSynced = s.now()
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("progress synced",
		zap.String("username", snap.Username),
		zap.Int("level", snap.Level),
		zap.Int("learned", snap.LearnedCount),
		zap.Int("characters", len(snap.LearnedCharacters)),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	if s.notifier != nil {
		s.notifier.Success(fmt.Sprintf("WaniKani: %s (Lvl %d), %d Kanji learned (%d chars fetched)!",
			snap.Username, snap.Level, snap.LearnedCount, len(snap.LearnedCharacters)))
	}
	return nil
}

func (s *Syncer) fetch(ctx context.Context, token string) (Snapshot, error) {
	user, err := s.fetcher.FetchUser(ctx, token)
	if err != nil {
		return Snapshot{}, stageError(StageProfile, err, "")
	}

	page, err := s.fetcher.FetchAssignments(ctx, token)
	if err != nil {
		return Snapshot{}, stageError(StageAssignments, err, "Error fetching assignments: %d")
	}
	total := page.TotalCount
	assignments := append([]wanikani.Assignment(nil), page.Assignments...)
	for page.NextURL != "" {
		page, err = s.fetcher.FetchAssignmentsPage(ctx, token, page.NextURL)
		if err != nil {
			return Snapshot{}, stageError(StageAssignments, err, "Error fetching next page of assignments: %d")
		}
		assignments = append(assignments, page.Assignments...)
	}

	details := make(map[int]Detail, len(assignments))
	ids := make([]int, 0, len(assignments))
	for _, a := range assignments {
		details[a.SubjectID] = Detail{
			SubjectID: a.SubjectID,
			Stage:     a.SRSStage,
			StageName: StageName(a.SRSStage),
			PassedAt:  a.ParsedPassedAt(),
		}
		ids = append(ids, a.SubjectID)
	}

	learned := make([]string, 0, len(ids))
	byChar := make(map[string]Detail, len(ids))
	for start := 0; start < len(ids); start += SubjectBatchSize {
		end := min(start+SubjectBatchSize, len(ids))
		subjects, err := s.fetcher.FetchSubjects(ctx, token, ids[start:end])
		if err != nil {
			return Snapshot{}, stageError(StageSubjects, err, "Error fetching subjects: %d")
		}
		for _, subject := range subjects {
			learned = append(learned, subject.Characters)
			if d, ok := details[subject.ID]; ok {
				byChar[subject.Characters] = d
			}
		}
	}

	return Snapshot{
		HasProfile:        true,
		Level:             user.Level,
		Username:          user.Username,
		HasLearnedCount:   true,
		LearnedCount:      total,
		LearnedCharacters: learned,
		DetailByCharacter: byChar,
	}, nil
}

// stageError converts a client error into a FetchError. The server's own
// message wins; otherwise API errors use generic (a format taking the status
// code) or, for the profile stage, "Error <status>: <reason>".
func stageError(stage string, err error, generic string) *FetchError {
	detail := err.Error()
	var apiErr *wanikani.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Message != "" || generic == "":
			detail = apiErr.Detail()
		default:
			detail = fmt.Sprintf(generic, apiErr.Status)
		}
	}
	return &FetchError{Stage: stage, Detail: detail, Err: err}
}

func (s *Syncer) notifyError(msg string) {
	if s.notifier != nil {
		s.notifier.Error(msg)
	}
}
