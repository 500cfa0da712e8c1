package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/config"
	"github.com/five82/kanjidex/internal/credential"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/logging"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/prefs"
	"github.com/five82/kanjidex/internal/progress"
	"github.com/five82/kanjidex/internal/storage"
	"github.com/five82/kanjidex/internal/wanikani"
)

// Options configure the kanjidex application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses $XDG_CONFIG_HOME/kanjidex/prefs.toml
	Version    string
	// InMemory keeps the database in memory. Used by tests and dry runs.
	InMemory bool
}

// App wires the services together. Every front end (TUI, HTTP API, CLI
// commands) talks to the same App.
type App struct {
	Config    config.Config
	PrefsPath string
	Logger    *zap.Logger

	db          *storage.DB
	notes       *notify.Log
	kanji       *kanji.Store
	autosave    *kanji.Autosaver
	progress    *progress.Syncer
	credentials *credential.Store
	images      *imageimport.Importer
}

// Open loads configuration, opens storage and builds every service.
func Open(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := storage.Open(storage.Options{Path: cfg.DataDir, InMemory: opts.InMemory})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	ua := "kanjidex"
	if opts.Version != "" {
		ua += "/" + opts.Version
	}
	client, err := wanikani.NewClient(cfg.APIBaseURL,
		wanikani.WithTimeout(cfg.RequestTimeout),
		wanikani.WithUserAgent(ua),
	)
	if err != nil {
		_ = db.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("init wanikani client: %w", err)
	}

	a, err := New(cfg, db, client, logger)
	if err != nil {
		_ = db.Close()
		_ = logger.Sync()
		return nil, err
	}
	a.db = db
	a.PrefsPath = opts.PrefsPath
	if a.PrefsPath == "" {
		a.PrefsPath = prefs.DefaultPath()
	}
	return a, nil
}

// New builds an App over an existing store and API client. The caller keeps
// ownership of kv.
func New(cfg config.Config, kv storage.KV, fetcher wanikani.Fetcher, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	notes := notify.NewLog()

	store := kanji.NewStore(kv, notes, logger.Named("kanji"))
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("init character store: %w", err)
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		notes:       notes,
		kanji:       store,
		autosave:    kanji.NewAutosaver(store, cfg.AutosaveDelay, logger.Named("autosave")),
		progress:    progress.NewSyncer(fetcher, notes, logger.Named("progress")),
		credentials: credential.New(kv),
		images:      imageimport.New(cfg.MaxImageBytes),
	}, nil
}

// Close flushes pending edits, closes storage and syncs the logger, in
// that order.
func (a *App) Close() error {
	a.autosave.Close()
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// Groups returns the store grouped by level under mode, using the current
// learned set.
func (a *App) Groups(mode kanji.FilterMode) []kanji.LevelGroup {
	return a.kanji.Groups(mode, a.progress.Snapshot().LearnedSet())
}

// Group returns a single level under mode. ok is false for unknown levels.
func (a *App) Group(level int, mode kanji.FilterMode) (kanji.LevelGroup, bool) {
	if len(a.kanji.Level(level)) == 0 {
		return kanji.LevelGroup{}, false
	}
	return a.kanji.GroupFor(level, mode, a.progress.Snapshot().LearnedSet()), true
}

// Find looks a record up by level and glyph.
func (a *App) Find(level int, character string) (kanji.Record, bool) {
	return a.kanji.Find(level, character)
}

// Get looks a record up by id.
func (a *App) Get(id string) (kanji.Record, bool) {
	return a.kanji.Get(id)
}

// Update commits changes immediately, after any pending autosave.
func (a *App) Update(id string, changes kanji.Changes) (bool, error) {
	a.autosave.Flush()
	return a.kanji.Update(id, changes)
}

// ScheduleEdit queues a debounced edit.
func (a *App) ScheduleEdit(id string, changes kanji.Changes) error {
	return a.autosave.Schedule(id, changes)
}

// FlushEdits commits any pending debounced edit.
func (a *App) FlushEdits() {
	a.autosave.Flush()
}

// ImportImage encodes r and attaches it to the record. Content that is not
// an image is reported as imageimport.ErrNotImage and leaves the record
// untouched.
func (a *App) ImportImage(id string, r io.Reader) (bool, error) {
	payload, err := a.images.FromReader(r)
	if err != nil {
		return false, err
	}
	return a.Update(id, kanji.SetImage(payload))
}

// ImportImageFile is ImportImage for a file on disk.
func (a *App) ImportImageFile(id, path string) (bool, error) {
	payload, err := a.images.FromFile(path)
	if err != nil {
		return false, err
	}
	return a.Update(id, kanji.SetImage(payload))
}

// Progress returns the latest progress snapshot.
func (a *App) Progress() progress.Snapshot {
	return a.progress.Snapshot()
}

// SyncNow runs a progress sync with the stored credential.
func (a *App) SyncNow(ctx context.Context) error {
	key, err := a.credentials.Load()
	if err != nil {
		a.Logger.Error("load credential failed", zap.Error(err))
	}
	return a.progress.Sync(ctx, key)
}

// HasCredential reports whether an API key is stored.
func (a *App) HasCredential() bool {
	key, err := a.credentials.Load()
	return err == nil && key != ""
}

// Credential returns the stored API key.
func (a *App) Credential() (string, error) {
	return a.credentials.Load()
}

// SaveCredential stores key, clears the previous sync error and syncs
// right away. A blank key returns credential.ErrBlank without syncing.
func (a *App) SaveCredential(ctx context.Context, key string) error {
	if err := a.StoreCredential(key); err != nil {
		return err
	}
	return a.progress.Sync(ctx, strings.TrimSpace(key))
}

// StoreCredential stores key without syncing.
func (a *App) StoreCredential(key string) error {
	if err := a.credentials.Save(key); err != nil {
		return err
	}
	a.progress.ClearError()
	a.Logger.Info("api key saved")
	return nil
}

// ClearCredential forgets the stored API key. Periodic and startup syncs
// stop until a new key is saved.
func (a *App) ClearCredential() error {
	if err := a.credentials.Clear(); err != nil {
		return err
	}
	a.Logger.Info("api key cleared")
	return nil
}

// SyncIfConfigured runs a sync only when a credential is stored.
func (a *App) SyncIfConfigured(ctx context.Context) (bool, error) {
	if !a.HasCredential() {
		return false, nil
	}
	return true, a.SyncNow(ctx)
}

// Notifications lists the notification log, most recent first.
func (a *App) Notifications() []notify.Notification {
	return a.notes.List()
}

// Dismiss removes a notification.
func (a *App) Dismiss(id string) bool {
	return a.notes.Dismiss(id)
}

// Prefs loads the user preferences.
func (a *App) Prefs() prefs.Prefs {
	p, _ := prefs.Load(a.PrefsPath)
	return p
}

// SavePrefs persists the user preferences. Failures are logged only.
func (a *App) SavePrefs(p prefs.Prefs) {
	if err := prefs.Save(a.PrefsPath, p); err != nil {
		a.Logger.Warn("save prefs failed", zap.Error(err))
	}
}
