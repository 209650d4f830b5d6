package gameground

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ErrPostNotFound is returned when a slug does not resolve to a post.
var ErrPostNotFound = errors.New("post not found")

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 8 << 20

// ContentClient fetches posts from the external content API.
type ContentClient interface {
	ListPosts(ctx context.Context, maxResults int) ([]Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
}

// APIError is the error object the content API returns instead of data.
// Blogger sends {"error": {"code": 404, "message": "..."}}; a bare string
// is accepted as well.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("content api error %d: %s", e.Code, e.Message)
	}
	return "content api error: " + e.Message
}

func (e *APIError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}
	type plain APIError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = APIError(p)
	return nil
}

type listResponse struct {
	Items []Post    `json:"items"`
	Error *APIError `json:"error,omitempty"`
}

type postResponse struct {
	Post
	Error *APIError `json:"error,omitempty"`
}

// BloggerClient talks to the Blogger v3 REST API.
type BloggerClient struct {
	base       string
	blogID     string
	apiKey     string
	httpClient *http.Client
}

// NewBloggerClient creates a client from the content settings in cfg.
func NewBloggerClient(cfg SiteConfig) *BloggerClient {
	return &BloggerClient{
		base:   cfg.ContentAPIBase,
		blogID: cfg.BlogID,
		apiKey: cfg.ContentAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

func (b *BloggerClient) endpoint(postID string, query url.Values) string {
	u := b.base + "/" + url.PathEscape(b.blogID) + "/posts"
	if postID != "" {
		u += "/" + url.PathEscape(postID)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", b.apiKey)
	return u + "?" + query.Encode()
}

// ListPosts returns the most recent posts, newest first.
func (b *BloggerClient) ListPosts(ctx context.Context, maxResults int) ([]Post, error) {
	q := url.Values{}
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}
	var resp listResponse
	if err := b.get(ctx, b.endpoint("", q), &resp); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list posts: %w", resp.Error)
	}
	if resp.Items == nil {
		return []Post{}, nil
	}
	return resp.Items, nil
}

// GetPost fetches one post by id. A missing post, reported either by status
// or by an error body, yields an error wrapping ErrPostNotFound.
func (b *BloggerClient) GetPost(ctx context.Context, id string) (Post, error) {
	if id == "" {
		return Post{}, ErrPostNotFound
	}
	var resp postResponse
	if err := b.get(ctx, b.endpoint(id, nil), &resp); err != nil {
		return Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	if resp.Error != nil {
		if resp.Error.Code == 0 || resp.Error.Code == http.StatusNotFound {
			return Post{}, fmt.Errorf("get post %s: %w: %v", id, ErrPostNotFound, resp.Error)
		}
		return Post{}, fmt.Errorf("get post %s: %w", id, resp.Error)
	}
	if resp.Post.ID == "" {
		return Post{}, fmt.Errorf("get post %s: %w", id, ErrPostNotFound)
	}
	return resp.Post, nil
}

// get performs one GET and decodes the JSON body into dst. Error bodies are
// decoded too so callers can inspect the API's error object.
func (b *BloggerClient) get(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return ErrPostNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil // the decoded error object carries the detail
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return nil
}
