package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/metrics"
	"locus/internal/pkg/serverutils"
	"locus/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "controller-secret"

type fakeContent struct {
	docs  []store.Document
	saved *dto.SaveQuillRequest
}

func (f *fakeContent) List(context.Context) ([]store.Document, error) { return f.docs, nil }

func (f *fakeContent) Show(_ context.Context, id uuid.UUID) (*store.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, serverutils.NotFound("Content not found")
}

func (f *fakeContent) SaveQuill(_ context.Context, req *dto.SaveQuillRequest) (*dto.SaveQuillResponse, error) {
	f.saved = req
	return &dto.SaveQuillResponse{Message: "Saved", SavedContent: f.docs, Id: uuid.New()}, nil
}

type fakeHighlights struct{}

func (fakeHighlights) List(context.Context) ([]store.Highlight, error) { return nil, nil }

func (fakeHighlights) Create(_ context.Context, req *dto.CreateHighlightRequest) (*store.Highlight, error) {
	return &store.Highlight{ID: uuid.New(), DocID: req.Content.DocId, Text: req.HighlightText}, nil
}

type fakeAuth struct {
	loggedOut *serverutils.Claims
}

func (f *fakeAuth) Register(_ context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	return &dto.AuthResponse{Message: "User registered and logged in", User: store.User{ID: uuid.New(), Username: req.Username}}, nil
}

func (f *fakeAuth) Login(_ context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Password != "secret" {
		return nil, serverutils.Unauthorized("Invalid email or password")
	}
	return &dto.AuthResponse{Message: "Logged in successfully", User: store.User{ID: uuid.New(), Username: req.Username}}, nil
}

func (f *fakeAuth) Logout(_ context.Context, claims *serverutils.Claims) error {
	f.loggedOut = claims
	return nil
}

func (f *fakeAuth) UserName(context.Context, *serverutils.Claims) (string, error) { return "ada", nil }

type fakeZotero struct {
	dir string
}

func (f fakeZotero) Sync(context.Context) (*dto.SyncResponse, error) {
	return &dto.SyncResponse{Version: 42, Updated: 3}, nil
}

func (f fakeZotero) Download(_ context.Context, req *dto.DownloadRequest) (*dto.DownloadResponse, error) {
	if req.ContentType != "zotero_entry" {
		return nil, serverutils.BadRequest("Not a zotero entry")
	}
	return &dto.DownloadResponse{Filename: "paper.pdf"}, nil
}

func (f fakeZotero) AttachmentPath(filename string) (string, error) {
	if filename != "paper.pdf" {
		return "", serverutils.NotFound("Attachment not found")
	}
	return filepath.Join(f.dir, filename), nil
}

func newTestApp(t *testing.T) (*fiber.App, *fakeContent, *fakeAuth) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("%PDF-1.4"), 0o644))

	content := &fakeContent{docs: []store.Document{{ID: uuid.New(), Title: "Notes", ContentType: store.ContentType("note")}}}
	auth := &fakeAuth{}
	requireAuth := serverutils.JwtMiddleware(secret, nil)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	for _, c := range []Controller{
		NewContentController(content, requireAuth),
		NewHighlightController(fakeHighlights{}, requireAuth),
		NewAuthController(auth, requireAuth),
		NewZoteroController(fakeZotero{dir: dir}, requireAuth),
		NewSystemController(metrics.New()),
	} {
		c.RegisterRoutes(app)
	}
	return app, content, auth
}

func bearer(t *testing.T) string {
	t.Helper()
	token, _, err := serverutils.GenerateToken(secret, uuid.New(), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (int, serverutils.Response[json.RawMessage]) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out serverutils.Response[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestWriteEndpointsRequireToken(t *testing.T) {
	app, _, _ := newTestApp(t)

	for _, path := range []string{"/save_quill", "/create_highlight", "/sync", "/dl_zotero", "/logout"} {
		t.Run(path, func(t *testing.T) {
			code, body := call(t, app, "POST", path, "", map[string]string{})
			assert.Equal(t, 401, code)
			assert.False(t, body.Success)
		})
	}
}

func TestContentController(t *testing.T) {
	app, content, _ := newTestApp(t)

	t.Run("list", func(t *testing.T) {
		code, body := call(t, app, "GET", "/content", "", nil)
		require.Equal(t, 200, code)
		var docs []store.Document
		require.NoError(t, json.Unmarshal(body.Data, &docs))
		assert.Len(t, docs, 1)
	})

	t.Run("show unknown", func(t *testing.T) {
		code, body := call(t, app, "GET", "/content/"+uuid.NewString(), "", nil)
		assert.Equal(t, 404, code)
		assert.Equal(t, "Content not found", body.Message)
	})

	t.Run("show malformed id", func(t *testing.T) {
		code, _ := call(t, app, "GET", "/content/nope", "", nil)
		assert.Equal(t, 400, code)
	})

	t.Run("save validates", func(t *testing.T) {
		code, body := call(t, app, "POST", "/save_quill", bearer(t), map[string]string{"title": "x"})
		assert.Equal(t, 400, code)
		assert.Contains(t, body.Message, "Delta")
	})

	t.Run("save", func(t *testing.T) {
		code, body := call(t, app, "POST", "/save_quill", bearer(t), map[string]interface{}{
			"title": "Draft",
			"type":  "note",
			"delta": `{"ops":[{"insert":"hi\n"}]}`,
		})
		require.Equal(t, 200, code)
		assert.Equal(t, "Saved", body.Message)
		require.NotNil(t, content.saved)
		assert.Equal(t, "Draft", content.saved.Title)

		var res dto.SaveQuillResponse
		require.NoError(t, json.Unmarshal(body.Data, &res))
		assert.NotEqual(t, uuid.Nil, res.Id)
		assert.Len(t, res.SavedContent, 1)
	})
}

func TestHighlightController(t *testing.T) {
	app, _, _ := newTestApp(t)
	docID := uuid.New()

	code, body := call(t, app, "POST", "/create_highlight", bearer(t), map[string]interface{}{
		"content":        map[string]interface{}{"doc_id": docID, "position": map[string]int{"page": 1}},
		"highlight_text": "quoted",
	})
	require.Equal(t, 200, code)
	var h store.Highlight
	require.NoError(t, json.Unmarshal(body.Data, &h))
	assert.Equal(t, docID, h.DocID)
	assert.Equal(t, "quoted", h.Text)

	code, _ = call(t, app, "POST", "/create_highlight", bearer(t), map[string]interface{}{
		"content": map[string]interface{}{"position": map[string]int{"page": 1}},
	})
	assert.Equal(t, 400, code)
}

func TestAuthController(t *testing.T) {
	app, _, auth := newTestApp(t)

	t.Run("register", func(t *testing.T) {
		code, body := call(t, app, "POST", "/register", "", map[string]string{
			"username": "ada", "password": "secret", "first_name": "Ada", "last_name": "Lovelace",
		})
		assert.Equal(t, 201, code)
		assert.Equal(t, 201, body.Code)
		assert.Equal(t, "User registered and logged in", body.Message)
	})

	t.Run("register validates", func(t *testing.T) {
		code, _ := call(t, app, "POST", "/register", "", map[string]string{"username": "ada"})
		assert.Equal(t, 400, code)
	})

	t.Run("login", func(t *testing.T) {
		code, body := call(t, app, "POST", "/login", "", map[string]string{"username": "ada", "password": "secret"})
		require.Equal(t, 200, code)
		var res dto.AuthResponse
		require.NoError(t, json.Unmarshal(body.Data, &res))
		assert.Equal(t, "ada", res.User.Username)
	})

	t.Run("login wrong password", func(t *testing.T) {
		code, body := call(t, app, "POST", "/login", "", map[string]string{"username": "ada", "password": "nope"})
		assert.Equal(t, 401, code)
		assert.Equal(t, "Invalid email or password", body.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/login", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("logout revokes the presented token", func(t *testing.T) {
		code, _ := call(t, app, "POST", "/logout", bearer(t), nil)
		assert.Equal(t, 200, code)
		require.NotNil(t, auth.loggedOut)
		assert.NotEmpty(t, auth.loggedOut.ID)
	})
}

func TestZoteroController(t *testing.T) {
	app, _, _ := newTestApp(t)

	t.Run("sync", func(t *testing.T) {
		code, body := call(t, app, "POST", "/sync", bearer(t), nil)
		require.Equal(t, 200, code)
		assert.JSONEq(t, `{"version":42,"updated":3,"deleted":0}`, string(body.Data))
	})

	t.Run("download rejects other types", func(t *testing.T) {
		code, body := call(t, app, "POST", "/dl_zotero", bearer(t), map[string]interface{}{
			"id": uuid.New(), "content_type": "note",
		})
		assert.Equal(t, 400, code)
		assert.Equal(t, "Not a zotero entry", body.Message)
	})

	t.Run("attachment", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/attachment/paper.pdf", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-1.4", string(raw))
	})

	t.Run("missing attachment", func(t *testing.T) {
		code, _ := call(t, app, "GET", "/attachment/other.pdf", "", nil)
		assert.Equal(t, 404, code)
	})
}

func TestSystemController(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Hello, Locus!", string(raw))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "go_goroutines")
}
