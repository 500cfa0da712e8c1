package wanikani

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if got := u.String(); got != DefaultBaseURL+"/" {
		t.Fatalf("base = %q, want %q", got, DefaultBaseURL+"/")
	}

	u, err = parseBaseURL("example.com/v2?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "/v2/" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL+"/v2", WithUserAgent("kanjidex-test"))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_SendsAuthAndRevisionHeaders(t *testing.T) {
	var got http.Header
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"data":{"level":7,"username":"koichi"}}`))
	})

	user, err := c.FetchUser(testContext(t), " secret ")
	if err != nil {
		t.Fatalf("FetchUser returned error: %v", err)
	}
	if user.Level != 7 || user.Username != "koichi" {
		t.Fatalf("user = %#v", user)
	}
	if gotPath != "/v2/user" {
		t.Fatalf("path = %q, want /v2/user", gotPath)
	}
	if got.Get("Authorization") != "Bearer secret" {
		t.Fatalf("authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Wanikani-Revision") != Revision {
		t.Fatalf("revision = %q", got.Get("Wanikani-Revision"))
	}
	if got.Get("User-Agent") != "kanjidex-test" {
		t.Fatalf("user agent = %q", got.Get("User-Agent"))
	}
}

func TestClient_AssignmentsQueryAndPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/assignments" && r.URL.Query().Get("page_after_id") == "":
			q := r.URL.Query()
			if q.Get("subject_types") != "kanji" || q.Get("passed") != "true" {
				t.Errorf("unexpected query %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"total_count":3,"pages":{"next_url":"` + server.URL + `/v2/assignments?page_after_id=2"},
				"data":[{"id":1,"data":{"subject_id":440,"srs_stage":5,"passed_at":"2024-01-02T03:04:05.123456Z"}},
				        {"id":2,"data":{"subject_id":441,"srs_stage":9,"passed_at":null}}]}`))
		case r.URL.Path == "/v2/assignments":
			_, _ = w.Write([]byte(`{"total_count":3,"pages":{"next_url":null},
				"data":[{"id":3,"data":{"subject_id":442,"srs_stage":1}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL + "/v2")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := testContext(t)

	first, err := c.FetchAssignments(ctx, "tok")
	if err != nil {
		t.Fatalf("FetchAssignments returned error: %v", err)
	}
	if first.TotalCount != 3 || len(first.Assignments) != 2 {
		t.Fatalf("first page = %#v", first)
	}
	if first.Assignments[0].SubjectID != 440 || first.Assignments[0].SRSStage != 5 {
		t.Fatalf("first assignment = %#v", first.Assignments[0])
	}
	if first.Assignments[0].ParsedPassedAt().IsZero() {
		t.Fatalf("expected passed_at to parse")
	}
	if !first.Assignments[1].ParsedPassedAt().IsZero() {
		t.Fatalf("expected null passed_at to be zero")
	}
	if !strings.HasSuffix(first.NextURL, "page_after_id=2") {
		t.Fatalf("next url = %q", first.NextURL)
	}

	second, err := c.FetchAssignmentsPage(ctx, "tok", first.NextURL)
	if err != nil {
		t.Fatalf("FetchAssignmentsPage returned error: %v", err)
	}
	if len(second.Assignments) != 1 || second.Assignments[0].SubjectID != 442 || second.NextURL != "" {
		t.Fatalf("second page = %#v", second)
	}
}

func TestClient_FetchSubjectsJoinsIDs(t *testing.T) {
	var gotIDs, gotTypes string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		gotTypes = r.URL.Query().Get("types")
		_, _ = w.Write([]byte(`{"data":[{"id":440,"data":{"characters":"一"}},{"id":441,"data":{"characters":null}}]}`))
	})

	subjects, err := c.FetchSubjects(testContext(t), "tok", []int{440, 441})
	if err != nil {
		t.Fatalf("FetchSubjects returned error: %v", err)
	}
	if gotIDs != "440,441" || gotTypes != "kanji" {
		t.Fatalf("query ids=%q types=%q", gotIDs, gotTypes)
	}
	if len(subjects) != 2 || subjects[0].Characters != "一" || subjects[1].Characters != "" {
		t.Fatalf("subjects = %#v", subjects)
	}

	none, err := c.FetchSubjects(testContext(t), "tok", nil)
	if err != nil || none != nil {
		t.Fatalf("empty ids: got %v, %v", none, err)
	}
}

func TestClient_APIErrorCarriesBodyMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized. Nice try.","code":401}`))
	})

	_, err := c.FetchUser(testContext(t), "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.StatusText != "Unauthorized" {
		t.Fatalf("status = %d %q", apiErr.Status, apiErr.StatusText)
	}
	if apiErr.Detail() != "Unauthorized. Nice try." {
		t.Fatalf("detail = %q", apiErr.Detail())
	}
}

func TestClient_APIErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("<html>down</html>"))
	})

	_, err := c.FetchAssignments(testContext(t), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Detail() != "Error 503: Service Unavailable" {
		t.Fatalf("detail = %q", apiErr.Detail())
	}
	if !strings.Contains(apiErr.Error(), "/v2/assignments") {
		t.Fatalf("error = %q", apiErr.Error())
	}
}

func TestClient_NonSuccessStatusIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})

	_, err := c.FetchUser(testContext(t), "key")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", apiErr.Status)
	}
}

func TestClient_DecodeErrorIsWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	})

	_, err := c.FetchUser(testContext(t), "tok")
	if err == nil || !strings.HasPrefix(err.Error(), "decode response:") {
		t.Fatalf("err = %v", err)
	}
}

func TestClient_MissingTokenSkipsNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := c.FetchUser(testContext(t), "  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
	if called {
		t.Fatalf("request was sent without a token")
	}
}
