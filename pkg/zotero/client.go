// Package zotero is a client for the parts of the Zotero web API locus
// uses: collections, items changed since a library version, deletions and
// attachment files.
package zotero

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

	"golang.org/x/time/rate"
)

const (
	apiVersion = "3"
	pageSize   = 100
)

var ErrCollectionNotFound = errors.New("zotero: collection not found")

// APIError is a non-2xx reply.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zotero: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	BaseURL string
	UserID  string
	APIKey  string
	HTTP    *http.Client

	limiter *rate.Limiter
}

func NewClient(baseURL, userID, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		UserID:  userID,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
}

func (c *Client) userPath(format string, args ...any) string {
	return "/users/" + url.PathEscape(c.UserID) + fmt.Sprintf(format, args...)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	if c.APIKey != "" {
		req.Header.Set("Zotero-API-Key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zotero: GET %s: %w", path, err)
	}
	c.backoff(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Method: http.MethodGet, Path: path, Status: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// backoff slows the limiter down when the server asks for it.
func (c *Client) backoff(h http.Header) {
	secs, err := strconv.Atoi(h.Get("Backoff"))
	if err != nil {
		secs, err = strconv.Atoi(h.Get("Retry-After"))
	}
	if err != nil || secs <= 0 {
		return
	}
	c.limiter.SetBurst(1)
	c.limiter.SetLimitAt(time.Now(), rate.Every(time.Duration(secs)*time.Second))
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("zotero: decode %s: %w", path, err)
	}
	return resp.Header, nil
}

// everything follows pagination until all results are read. It returns the
// library version reported by the last page.
func (c *Client) everything(ctx context.Context, path string, query url.Values) ([]Item, int, error) {
	var (
		items   []Item
		version int
	)
	for start := 0; ; start += pageSize {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("format", "json")
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("start", strconv.Itoa(start))

		var page []Item
		h, err := c.getJSON(ctx, path, q, &page)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, page...)
		if v, err := strconv.Atoi(h.Get("Last-Modified-Version")); err == nil {
			version = v
		}

		total, err := strconv.Atoi(h.Get("Total-Results"))
		if err != nil || len(page) == 0 || start+len(page) >= total {
			return items, version, nil
		}
	}
}

// CollectionKey finds the key of the collection called name.
func (c *Client) CollectionKey(ctx context.Context, name string) (string, error) {
	var collections []struct {
		Key  string `json:"key"`
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	q := url.Values{"limit": {strconv.Itoa(pageSize)}}
	if _, err := c.getJSON(ctx, c.userPath("/collections"), q, &collections); err != nil {
		return "", err
	}
	for _, col := range collections {
		if col.Data.Name == name {
			return col.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
}

// CollectionItems lists the non-attachment items of a collection modified
// after version since; 0 lists them all. It also returns the current
// library version.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string, since int) ([]Item, int, error) {
	q := url.Values{"itemType": {"-" + ItemTypeAttachment}}
	if since > 0 {
		q.Set("since", strconv.Itoa(since))
	}
	return c.everything(ctx, c.userPath("/collections/%s/items", url.PathEscape(collectionKey)), q)
}

// Deleted lists the keys of items deleted after version since.
func (c *Client) Deleted(ctx context.Context, since int) ([]string, error) {
	var out struct {
		Items []string `json:"items"`
	}
	q := url.Values{"since": {strconv.Itoa(since)}}
	if _, err := c.getJSON(ctx, c.userPath("/deleted"), q, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Children(ctx context.Context, itemKey string) ([]Item, error) {
	var out []Item
	q := url.Values{"format": {"json"}}
	if _, err := c.getJSON(ctx, c.userPath("/items/%s/children", url.PathEscape(itemKey)), q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// File copies the stored file of an attachment item into w.
func (c *Client) File(ctx context.Context, attachmentKey string, w io.Writer) error {
	resp, err := c.get(ctx, c.userPath("/items/%s/file", url.PathEscape(attachmentKey)), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("zotero: read file %s: %w", attachmentKey, err)
	}
	return nil
}
