package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"locus/pkg/store"

	"github.com/go-playground/validator/v10"
)

// HTTPClient calls the server's HTTP endpoints. Failed requests are not
// retried.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client

	mu       sync.RWMutex
	token    string
	validate *validator.Validate
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		validate: validator.New(),
	}
}

// SetToken sets the bearer token sent with every request. An empty token
// sends none.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) ListContent(ctx context.Context) ([]store.Document, error) {
	var out []store.Document
	if err := c.do(ctx, http.MethodGet, "/content", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListHighlights(ctx context.Context) ([]store.Highlight, error) {
	var out []store.Highlight
	if err := c.do(ctx, http.MethodGet, "/highlights", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListChats(ctx context.Context) ([]store.Transcript, error) {
	var out []store.Transcript
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateHighlight persists a highlight and returns it with its server id.
func (c *HTTPClient) CreateHighlight(ctx context.Context, req CreateHighlightRequest) (store.Highlight, error) {
	var out store.Highlight
	if err := c.do(ctx, http.MethodPost, "/create_highlight", req, &out); err != nil {
		return store.Highlight{}, err
	}
	return out, nil
}

// SaveDocument saves a rich-text document. A save the server refused is
// reported as ErrSaveRejected.
func (c *HTTPClient) SaveDocument(ctx context.Context, req SaveRequest) (SaveResult, error) {
	var out SaveResult
	if err := c.do(ctx, http.MethodPost, "/save_quill", req, &out); err != nil {
		return SaveResult{}, err
	}
	if out.Error != "" {
		return out, fmt.Errorf("%w: %s", ErrSaveRejected, out.Error)
	}
	return out, nil
}

func (c *HTTPClient) DownloadAttachment(ctx context.Context, req DownloadRequest) error {
	return c.do(ctx, http.MethodPost, "/dl_zotero", req, nil)
}

func (c *HTTPClient) Sync(ctx context.Context) (SyncResult, error) {
	var out SyncResult
	if err := c.do(ctx, http.MethodPost, "/sync", nil, &out); err != nil {
		return SyncResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (store.User, error) {
	var out authResult
	if err := c.do(ctx, http.MethodPost, "/login", req, &out); err != nil {
		return store.User{}, err
	}
	return out.User, nil
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	var out authResult
	if err := c.do(ctx, http.MethodPost, "/register", req, &out); err != nil {
		return store.User{}, err
	}
	return out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Attachment streams a stored attachment into w.
func (c *HTTPClient) Attachment(ctx context.Context, filename string, w io.Writer) error {
	path := "/attachment/" + url.PathEscape(filename)
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return statusError(http.MethodGet, path, resp.StatusCode, body)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// do sends the request and decodes the data of the response envelope into
// out, which may be nil when no data is expected.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ShapeError{Path: path, Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if reflect.Indirect(reflect.ValueOf(out)).Kind() == reflect.Slice {
			// an empty list may be sent as null
			return nil
		}
		return &ShapeError{Path: path, Err: errors.New("missing data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ShapeError{Path: path, Err: err}
	}
	if err := c.check(out); err != nil {
		return &ShapeError{Path: path, Err: err}
	}
	return nil
}

// check validates a decoded struct, or each struct of a decoded slice.
func (c *HTTPClient) check(out any) error {
	v := reflect.Indirect(reflect.ValueOf(out))
	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Interface())
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			el := reflect.Indirect(v.Index(i))
			if el.Kind() != reflect.Struct {
				continue
			}
			if err := c.validate.Struct(el.Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

func statusError(method, path string, code int, body []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, Code: code}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		e.Message = env.Message
	}
	return e
}
