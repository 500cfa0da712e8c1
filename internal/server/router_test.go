package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/credential"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/progress"
	"github.com/five82/kanjidex/internal/storage"
)

type fakeBackend struct {
	store    *kanji.Store
	notes    *notify.Log
	snap     progress.Snapshot
	syncErr  error
	savedKey string
	syncs    int
	syncCtx  context.Context
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	notes := notify.NewLog()
	store := kanji.NewStore(storage.NewMemory(), notes, nil)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return &fakeBackend{store: store, notes: notes}
}

func (f *fakeBackend) Groups(mode kanji.FilterMode) []kanji.LevelGroup {
	return f.store.Groups(mode, f.snap.LearnedSet())
}

func (f *fakeBackend) Group(level int, mode kanji.FilterMode) (kanji.LevelGroup, bool) {
	if len(f.store.Level(level)) == 0 {
		return kanji.LevelGroup{}, false
	}
	return f.store.GroupFor(level, mode, f.snap.LearnedSet()), true
}

func (f *fakeBackend) Find(level int, character string) (kanji.Record, bool) {
	return f.store.Find(level, character)
}

func (f *fakeBackend) Update(id string, changes kanji.Changes) (bool, error) {
	return f.store.Update(id, changes)
}

func (f *fakeBackend) ImportImage(id string, r io.Reader) (bool, error) {
	payload, err := imageimport.New(0).FromReader(r)
	if err != nil {
		return false, err
	}
	return f.store.Update(id, kanji.SetImage(payload))
}

func (f *fakeBackend) Progress() progress.Snapshot { return f.snap }

func (f *fakeBackend) SyncNow(ctx context.Context) error {
	f.syncs++
	f.syncCtx = ctx
	return f.syncErr
}

func (f *fakeBackend) SaveCredential(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return credential.ErrBlank
	}
	f.savedKey = strings.TrimSpace(key)
	return f.SyncNow(ctx)
}

func (f *fakeBackend) Notifications() []notify.Notification { return f.notes.List() }

func (f *fakeBackend) Dismiss(id string) bool { return f.notes.Dismiss(id) }

func newTestRouter(t *testing.T, backend Backend) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{Backend: backend, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewHTTPHandler: %v", err)
	}
	return handler
}

func serve(handler http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, body)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
}

func TestNewHTTPHandlerRequiresBackend(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestListLevelsAppliesLearnedFilter(t *testing.T) {
	backend := newFakeBackend(t)
	backend.snap = progress.Snapshot{HasProfile: true, LearnedCharacters: []string{"山", "木"}}
	handler := newTestRouter(t, backend)

	recorder := serve(handler, http.MethodGet, "/api/levels?filter=learned", nil, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload levelsResponsePayload
	decodeBody(t, recorder, &payload)
	if payload.Filter != kanji.FilterLearned || len(payload.Levels) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Levels[0].Level != 1 || payload.Levels[0].Records[0].Character != "山" {
		t.Fatalf("unexpected first level %+v", payload.Levels[0])
	}

	recorder = serve(handler, http.MethodGet, "/api/levels", nil, "")
	decodeBody(t, recorder, &payload)
	if payload.Filter != kanji.FilterAll || len(payload.Levels) != 3 {
		t.Fatalf("unexpected unfiltered payload %+v", payload)
	}
}

func TestGetLevel(t *testing.T) {
	handler := newTestRouter(t, newFakeBackend(t))

	cases := []struct {
		target string
		status int
	}{
		{"/api/levels/2", http.StatusOK},
		{"/api/levels/0", http.StatusBadRequest},
		{"/api/levels/abc", http.StatusBadRequest},
		{"/api/levels/42", http.StatusNotFound},
	}
	for _, tc := range cases {
		recorder := serve(handler, http.MethodGet, tc.target, nil, "")
		if recorder.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.target, tc.status, recorder.Code)
		}
	}
}

func TestGetKanjiIncludesProgress(t *testing.T) {
	backend := newFakeBackend(t)
	backend.snap = progress.Snapshot{
		LearnedCharacters: []string{"一"},
		DetailByCharacter: map[string]progress.Detail{"一": {SubjectID: 440, Stage: 8, StageName: "Enlightened"}},
	}
	handler := newTestRouter(t, backend)

	recorder := serve(handler, http.MethodGet, "/api/kanji/1/"+url.PathEscape("一"), nil, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload kanjiResponsePayload
	decodeBody(t, recorder, &payload)
	if payload.Record.ID != "1_1" || !payload.Learned {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Progress == nil || payload.Progress.StageName != "Enlightened" {
		t.Fatalf("expected progress detail, got %+v", payload.Progress)
	}
	if payload.Mnemonic == "" {
		t.Fatalf("expected fallback mnemonic for 一")
	}

	recorder = serve(handler, http.MethodGet, "/api/kanji/2/"+url.PathEscape("一"), nil, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for glyph on wrong level, got %d", recorder.Code)
	}
}

func TestUpdateKanji(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	recorder := serve(handler, http.MethodPatch, "/api/kanji/1_5", strings.NewReader(`{"mnemonic":"a person walking"}`), "application/json")
	if recorder.Code != http.StatusOK || recorder.Body.String() != `{"changed":true}` {
		t.Fatalf("unexpected response %d %s", recorder.Code, recorder.Body.String())
	}
	recorder = serve(handler, http.MethodPatch, "/api/kanji/1_5", strings.NewReader(`{"mnemonic":"a person walking"}`), "application/json")
	if recorder.Body.String() != `{"changed":false}` {
		t.Fatalf("expected idempotent update, got %s", recorder.Body.String())
	}
	if len(backend.notes.List()) != 1 {
		t.Fatalf("expected one notification, got %d", len(backend.notes.List()))
	}

	recorder = serve(handler, http.MethodPatch, "/api/kanji/9_9", strings.NewReader(`{"mnemonic":"x"}`), "application/json")
	if recorder.Code != http.StatusNotFound || recorder.Body.String() != `{"error":"kanji_not_found"}` {
		t.Fatalf("unexpected response %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = serve(handler, http.MethodPatch, "/api/kanji/1_5", strings.NewReader(`{`), "application/json")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", recorder.Code)
	}

	recorder = serve(handler, http.MethodPatch, "/api/kanji/1_5", strings.NewReader(`{"image":"https://example.com/x.png"}`), "application/json")
	if recorder.Code != http.StatusBadRequest || recorder.Body.String() != `{"error":"invalid_image"}` {
		t.Fatalf("unexpected response %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = serve(handler, http.MethodPatch, "/api/kanji/1_5", strings.NewReader(`{"image":""}`), "application/json")
	if recorder.Body.String() != `{"changed":false}` {
		t.Fatalf("clearing an absent image should be a no-op, got %s", recorder.Body.String())
	}
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	body, contentType := multipartBody(t, "file", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	recorder := serve(handler, http.MethodPost, "/api/kanji/3_3/image", body, contentType)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	record, _ := backend.store.Get("3_3")
	if !strings.HasPrefix(record.Image, "data:image/gif;base64,") {
		t.Fatalf("image not stored: %q", record.Image)
	}

	body, contentType = multipartBody(t, "file", []byte("%PDF-1.4 not an image"))
	recorder = serve(handler, http.MethodPost, "/api/kanji/3_4/image", body, contentType)
	if recorder.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", recorder.Code)
	}
	record, _ = backend.store.Get("3_4")
	if record.HasImage() {
		t.Fatalf("non-image upload must not change the record")
	}

	body, contentType = multipartBody(t, "other", []byte("x"))
	recorder = serve(handler, http.MethodPost, "/api/kanji/3_4/image", body, contentType)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file field, got %d", recorder.Code)
	}
}

func TestSyncReportsStage(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	backend.syncErr = &progress.FetchError{Stage: progress.StageProfile, Detail: "Unauthorized"}
	recorder := serve(handler, http.MethodPost, "/api/progress/sync", nil, "")
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
	var payload syncErrorPayload
	decodeBody(t, recorder, &payload)
	if payload.Stage != "profile" || payload.Detail != "Unauthorized" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	backend.syncErr = progress.ErrMissingCredential
	recorder = serve(handler, http.MethodPost, "/api/progress/sync", nil, "")
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}

	backend.syncErr = nil
	backend.snap = progress.Snapshot{HasProfile: true, Username: "kani", Level: 5}
	recorder = serve(handler, http.MethodPost, "/api/progress/sync", nil, "")
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"username":"kani"`) {
		t.Fatalf("unexpected response %d %s", recorder.Code, recorder.Body.String())
	}
	if backend.syncs != 3 {
		t.Fatalf("expected 3 syncs, got %d", backend.syncs)
	}
}

func TestSyncOutlivesCancelledRequest(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	for _, tc := range []struct {
		target string
		body   string
	}{
		{target: "/api/progress/sync"},
		{target: "/api/credential", body: `{"key":"good"}`},
	} {
		method := http.MethodPost
		if tc.body != "" {
			method = http.MethodPut
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		request := httptest.NewRequest(method, tc.target, strings.NewReader(tc.body)).WithContext(ctx)
		if tc.body != "" {
			request.Header.Set("Content-Type", "application/json")
		}
		backend.syncCtx = nil
		handler.ServeHTTP(httptest.NewRecorder(), request)

		if backend.syncCtx == nil {
			t.Fatalf("%s: sync not started", tc.target)
		}
		if err := backend.syncCtx.Err(); err != nil {
			t.Fatalf("%s: sync context err = %v, want nil", tc.target, err)
		}
	}
}

func TestSaveCredential(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	recorder := serve(handler, http.MethodPut, "/api/credential", strings.NewReader(`{"key":"  "}`), "application/json")
	if recorder.Code != http.StatusBadRequest || !strings.Contains(recorder.Body.String(), credential.BlankMessage) {
		t.Fatalf("unexpected response %d %s", recorder.Code, recorder.Body.String())
	}
	if backend.syncs != 0 {
		t.Fatalf("blank key must not sync")
	}

	backend.syncErr = &progress.FetchError{Stage: progress.StageProfile, Detail: "Unauthorized"}
	recorder = serve(handler, http.MethodPut, "/api/credential", strings.NewReader(`{"key":"abc"}`), "application/json")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 even when the follow-up sync fails, got %d", recorder.Code)
	}
	if backend.savedKey != "abc" || backend.syncs != 1 {
		t.Fatalf("key=%q syncs=%d", backend.savedKey, backend.syncs)
	}
}

func TestNotifications(t *testing.T) {
	backend := newFakeBackend(t)
	handler := newTestRouter(t, backend)

	recorder := serve(handler, http.MethodGet, "/api/notifications", nil, "")
	if recorder.Body.String() != `{"notifications":[]}` {
		t.Fatalf("unexpected empty list %s", recorder.Body.String())
	}

	note := backend.notes.Push("hello", notify.SeverityError)
	recorder = serve(handler, http.MethodGet, "/api/notifications", nil, "")
	if !strings.Contains(recorder.Body.String(), `"type":"error"`) {
		t.Fatalf("unexpected list %s", recorder.Body.String())
	}

	recorder = serve(handler, http.MethodDelete, "/api/notifications/"+note.ID, nil, "")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	recorder = serve(handler, http.MethodDelete, "/api/notifications/"+note.ID, nil, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second dismiss, got %d", recorder.Code)
	}
}

func TestCORSMiddlewareAllowsLoopbackOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(corsMiddleware("https://notes.example.com/"))
	router.OPTIONS("/api/levels", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	preflight := func(origin string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodOptions, "/api/levels", http.NoBody)
		request.Header.Set("Origin", origin)
		request.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:3000", "https://notes.example.com"} {
		recorder := preflight(origin)
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("%s: expected status %d, got %d", origin, http.StatusNoContent, recorder.Code)
		}
		if recorder.Header().Get("Access-Control-Allow-Origin") != origin {
			t.Fatalf("%s: unexpected allow origin %q", origin, recorder.Header().Get("Access-Control-Allow-Origin"))
		}
	}

	recorder := preflight("https://evil.example.com")
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected foreign origin to be rejected, got %d", recorder.Code)
	}
}
