package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/kanjidex/internal/config"
	"github.com/five82/kanjidex/internal/credential"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/prefs"
	"github.com/five82/kanjidex/internal/storage"
	"github.com/five82/kanjidex/internal/wanikani"
)

func fakeWaniKani(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","code":401}`))
			return
		}
		switch r.URL.Path {
		case "/v2/user":
			_, _ = w.Write([]byte(`{"data":{"level":3,"username":"kani"}}`))
		case "/v2/assignments":
			_, _ = w.Write([]byte(`{"total_count":2,"pages":{"next_url":null},"data":[
				{"data":{"subject_id":440,"srs_stage":5,"passed_at":"2024-03-01T00:00:00Z"}},
				{"data":{"subject_id":450,"srs_stage":9}}]}`))
		case "/v2/subjects":
			_, _ = w.Write([]byte(`{"data":[{"id":440,"data":{"characters":"一"}},{"id":450,"data":{"characters":"日"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T) (*App, *storage.Memory) {
	t.Helper()
	server := fakeWaniKani(t)
	client, err := wanikani.NewClient(server.URL + "/v2")
	require.NoError(t, err)

	kv := storage.NewMemory()
	cfg := config.Default()
	cfg.AutosaveDelay = time.Hour
	a, err := New(cfg, kv, client, nil)
	require.NoError(t, err)
	a.PrefsPath = t.TempDir() + "/prefs.toml"
	t.Cleanup(func() { _ = a.Close() })
	return a, kv
}

func TestSaveCredential_SyncsImmediately(t *testing.T) {
	a, kv := newTestApp(t)
	ctx := context.Background()

	ran, err := a.SyncIfConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "no key stored yet")

	require.NoError(t, a.SaveCredential(ctx, " good "))
	assert.True(t, a.HasCredential())
	raw, _ := kv.Get(storage.KeyCredential)
	assert.Equal(t, "good", string(raw))

	snap := a.Progress()
	assert.True(t, snap.HasProfile)
	assert.Equal(t, []string{"一", "日"}, snap.LearnedCharacters)

	notes := a.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, "WaniKani: kani (Lvl 3), 2 Kanji learned (2 chars fetched)!", notes[0].Message)
}

func TestSaveCredential_BlankIsRejected(t *testing.T) {
	a, _ := newTestApp(t)

	err := a.SaveCredential(context.Background(), "   ")
	assert.ErrorIs(t, err, credential.ErrBlank)
	assert.Empty(t, a.Notifications())
	assert.False(t, a.HasCredential())
}

func TestSaveCredential_ClearsPreviousError(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	require.Error(t, a.SyncNow(ctx))
	assert.Equal(t, "API Key not set.", a.Progress().LastError)

	require.Error(t, a.SaveCredential(ctx, "bad"))
	assert.Equal(t, "Unauthorized", a.Progress().LastError)

	require.NoError(t, a.SaveCredential(ctx, "good"))
	assert.Empty(t, a.Progress().LastError)
}

func TestGroups_UseLearnedSet(t *testing.T) {
	a, _ := newTestApp(t)

	assert.Len(t, a.Groups(kanji.FilterLearned), 3, "nothing learned yet, filter is a no-op")

	require.NoError(t, a.SaveCredential(context.Background(), "good"))
	groups := a.Groups(kanji.FilterLearned)
	require.Len(t, groups, 2)
	assert.Equal(t, "一", groups[0].Records[0].Character)
	assert.Equal(t, "日", groups[1].Records[0].Character)

	group, ok := a.Group(2, kanji.FilterLearned)
	assert.True(t, ok)
	assert.Empty(t, group.Records)
	_, ok = a.Group(99, kanji.FilterAll)
	assert.False(t, ok)
}

func TestUpdate_FlushesPendingEdit(t *testing.T) {
	a, _ := newTestApp(t)

	require.NoError(t, a.ScheduleEdit("1_1", kanji.SetMnemonic("a single line")))
	_, err := a.Update("1_2", kanji.SetMnemonic("two lines"))
	require.NoError(t, err)

	rec, _ := a.Get("1_1")
	assert.Equal(t, "a single line", rec.Mnemonic)
	assert.Len(t, a.Notifications(), 2)
}

func TestImportImage(t *testing.T) {
	a, _ := newTestApp(t)

	changed, err := a.ImportImage("2_1", strings.NewReader("plain text"))
	assert.ErrorIs(t, err, imageimport.ErrNotImage)
	assert.False(t, changed)
	rec, _ := a.Get("2_1")
	assert.False(t, rec.HasImage())

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	changed, err = a.ImportImage("2_1", bytes.NewReader(gif))
	require.NoError(t, err)
	assert.True(t, changed)
	rec, _ = a.Get("2_1")
	assert.True(t, strings.HasPrefix(rec.Image, "data:image/gif;base64,"))
}

func TestDismissNotification(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.Update("1_3", kanji.SetMnemonic("three"))
	require.NoError(t, err)

	notes := a.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.SeveritySuccess, notes[0].Severity)
	assert.True(t, a.Dismiss(notes[0].ID))
	assert.False(t, a.Dismiss(notes[0].ID))
	assert.Empty(t, a.Notifications())
}

func TestPrefsRoundTrip(t *testing.T) {
	a, _ := newTestApp(t)

	p := a.Prefs()
	assert.Equal(t, kanji.FilterAll, p.Filter)
	p.Filter = kanji.FilterLearned
	a.SavePrefs(p)
	assert.Equal(t, kanji.FilterLearned, a.Prefs().Filter)
}

func TestSavePrefs_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a, err := New(config.Default(), storage.NewMemory(), nil, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	a.PrefsPath = filepath.Join(blocker, "prefs.toml")

	a.SavePrefs(prefs.Prefs{Theme: "Slate", Filter: kanji.FilterLearned})

	entries := logs.FilterMessage("save prefs failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestClearCredential(t *testing.T) {
	a, kv := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.SaveCredential(ctx, "good"))
	require.NoError(t, a.ClearCredential())
	assert.False(t, a.HasCredential())
	_, err := kv.Get(storage.KeyCredential)
	assert.True(t, storage.IsNotFound(err))

	ran, err := a.SyncIfConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestOpen_InMemory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := dir + "/config.toml"
	require.NoError(t, writeFile(cfgPath, "log_file = \""+dir+"/kanjidex.log\"\n"))

	a, err := Open(Options{ConfigPath: cfgPath, PrefsPath: dir + "/prefs.toml", InMemory: true, Version: "test"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, a.kanji.Levels())
	require.NoError(t, a.Close())
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
