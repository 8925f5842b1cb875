// Package github is a minimal wrapper around GitHub's REST API v3.
// It covers just the endpoints the review pipeline requires.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// fetchConcurrency bounds parallel blob downloads.
const fetchConcurrency = 10

// ErrNotFound indicates the requested GitHub resource does not exist.
var ErrNotFound = errors.New("github: not found")

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// TreeEntry is one blob in a repository tree.
type TreeEntry struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// FileContent is one fetched file with its decoded content.
type FileContent struct {
	Path    string
	Content string
	Size    int64
}

// Client talks to the GitHub REST API. The zero value is not usable;
// construct with NewClient.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

// ClientOption is a functional option for Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a ready-to-use GitHub API client. Tokens are passed
// per call since every operation acts on behalf of a specific user.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   DefaultBaseURL,
		userAgent: "codeowl",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRepoTree recursively fetches the full file tree of a branch and
// returns blob entries only. When the requested branch is "main" and it
// does not exist, "master" is tried before giving up.
func (c *Client) FetchRepoTree(ctx context.Context, token, owner, repo, branch string) ([]TreeEntry, error) {
	if branch == "" {
		branch = "main"
	}

	entries, err := c.fetchTree(ctx, token, owner, repo, branch)
	if errors.Is(err, ErrNotFound) && branch == "main" {
		entries, err = c.fetchTree(ctx, token, owner, repo, "master")
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) fetchTree(ctx context.Context, token, owner, repo, branch string) ([]TreeEntry, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	var payload struct {
		Tree []TreeEntry `json:"tree"`
	}
	if err := c.getJSON(ctx, token, u, &payload); err != nil {
		return nil, fmt.Errorf("fetch tree %s/%s@%s: %w", owner, repo, branch, err)
	}

	blobs := make([]TreeEntry, 0, len(payload.Tree))
	for _, entry := range payload.Tree {
		if entry.Type == "blob" {
			blobs = append(blobs, entry)
		}
	}
	return blobs, nil
}

// FetchFileContents downloads blob contents in parallel. Files that fail
// to download are skipped rather than failing the whole batch.
func (c *Client) FetchFileContents(ctx context.Context, token, owner, repo string, entries []TreeEntry) ([]FileContent, error) {
	results := make([]*FileContent, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if entry.Path == "" || entry.SHA == "" {
				return nil
			}
			content, err := c.fetchBlob(gctx, token, owner, repo, entry.SHA)
			if err != nil {
				// Per-file failures are tolerated; the caller counts
				// what it actually received.
				return nil
			}
			results[i] = &FileContent{
				Path:    entry.Path,
				Content: content,
				Size:    entry.Size,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]FileContent, 0, len(entries))
	for _, r := range results {
		if r != nil {
			files = append(files, *r)
		}
	}
	return files, nil
}

func (c *Client) fetchBlob(ctx context.Context, token, owner, repo, sha string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(sha))

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.getJSON(ctx, token, u, &payload); err != nil {
		return "", err
	}

	if payload.Encoding == "base64" {
		// GitHub inserts newlines into base64 blob payloads.
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode blob %s: %w", sha, err)
		}
		return string(decoded), nil
	}
	return payload.Content, nil
}

// FetchPRDiff fetches a pull request as a unified diff.
func (c *Client) FetchPRDiff(ctx context.Context, token, owner, repo string, number int) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	c.addHeaders(req, token)
	req.Header.Set("Accept", "application/vnd.github.v3.diff")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return "", responseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read diff: %w", err)
	}
	return string(body), nil
}

// PostComment posts a comment on a pull request and returns its web URL.
func (c *Client) PostComment(ctx context.Context, token, owner, repo string, number int, body string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)

	var payload struct {
		HTMLURL string `json:"html_url"`
	}
	if err := c.postJSON(ctx, token, u, map[string]string{"body": body}, &payload); err != nil {
		return "", fmt.Errorf("post comment on %s/%s#%d: %w", owner, repo, number, err)
	}
	return payload.HTMLURL, nil
}

// addHeaders sets authentication and Accept headers.
func (c *Client) addHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)
}

// getJSON executes a GET request and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, token, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.addHeaders(req, token)
	return c.do(req, v)
}

// postJSON executes a POST request with a JSON body and decodes the response.
func (c *Client) postJSON(ctx context.Context, token, u string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	c.addHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

// do executes the HTTP request and decodes JSON into v.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func responseError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
}
