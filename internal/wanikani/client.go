package wanikani

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fetcher is the read-only slice of the WaniKani API used by sync.
// *Client implements it; tests substitute their own.
type Fetcher interface {
	FetchUser(ctx context.Context, token string) (User, error)
	FetchAssignments(ctx context.Context, token string) (AssignmentPage, error)
	FetchAssignmentsPage(ctx context.Context, token, nextURL string) (AssignmentPage, error)
	FetchSubjects(ctx context.Context, token string, ids []int) ([]Subject, error)
}

var _ Fetcher = (*Client)(nil)

const (
	// DefaultBaseURL is the public v2 API root.
	DefaultBaseURL = "https://api.wanikani.com/v2"
	// Revision is sent as the Wanikani-Revision header.
	Revision = "20170710"

	defaultUserAgent = "kanjidex/0.1"
	defaultTimeout   = 15 * time.Second
	maxErrorBody     = 64 << 10
)

// ErrMissingToken is returned when a request is attempted without a token.
var ErrMissingToken = errors.New("api token required")

// APIError is a non-2xx response.
type APIError struct {
	Path       string
	Status     int
	StatusText string
	// Message is the "error" field of the response body, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// Detail returns the server-provided message, or "Error <status>: <text>"
// when the body carried none.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Error %d: %s", e.Status, e.StatusText)
}

// Client talks to the WaniKani v2 API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client rooted at baseURL. An empty baseURL uses
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchUser retrieves the authenticated user's profile.
func (c *Client) FetchUser(ctx context.Context, token string) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var payload userEnvelope
	if err := c.do(ctx, token, &url.URL{Path: "user"}, &payload); err != nil {
		return User{}, err
	}
	return payload.Data, nil
}

// FetchAssignments retrieves the first page of passed Kanji assignments.
func (c *Client) FetchAssignments(ctx context.Context, token string) (AssignmentPage, error) {
	if c == nil {
		return AssignmentPage{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("subject_types", "kanji")
	values.Set("passed", "true")
	rel := &url.URL{Path: "assignments", RawQuery: values.Encode()}
	var payload assignmentCollection
	if err := c.do(ctx, token, rel, &payload); err != nil {
		return AssignmentPage{}, err
	}
	return payload.page(), nil
}

// FetchAssignmentsPage follows a pages.next_url link verbatim.
func (c *Client) FetchAssignmentsPage(ctx context.Context, token, nextURL string) (AssignmentPage, error) {
	if c == nil {
		return AssignmentPage{}, fmt.Errorf("client is nil")
	}
	next, err := url.Parse(strings.TrimSpace(nextURL))
	if err != nil {
		return AssignmentPage{}, fmt.Errorf("parse next url %q: %w", nextURL, err)
	}
	var payload assignmentCollection
	if err := c.do(ctx, token, next, &payload); err != nil {
		return AssignmentPage{}, err
	}
	return payload.page(), nil
}

// FetchSubjects resolves subject ids to Kanji glyphs in a single request.
// Callers batch ids; the API caps how many fit in one query string.
func (c *Client) FetchSubjects(ctx context.Context, token string, ids []int) ([]Subject, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	values := url.Values{}
	values.Set("ids", strings.Join(parts, ","))
	values.Set("types", "kanji")
	rel := &url.URL{Path: "subjects", RawQuery: values.Encode()}
	var payload subjectCollection
	if err := c.do(ctx, token, rel, &payload); err != nil {
		return nil, err
	}
	return payload.subjects(), nil
}

func (c *Client) do(ctx context.Context, token string, rel *url.URL, dest any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Wanikani-Revision", Revision)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(reqURL.Path, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(path string, resp *http.Response) *APIError {
	apiErr := &APIError{
		Path:       path,
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		var body errorBody
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Message = strings.TrimSpace(body.Error)
		}
	}
	return apiErr
}

// statusText extracts the reason phrase from resp.Status ("401 Unauthorized").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api base url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
