// Package workspace is the application context of the client. A Workspace
// owns the open session, its navigation history, the highlight index, the
// catalog and the chat state, and is the only thing that mutates them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"locus/internal/pkg/logger"
	"locus/pkg/chat"
	"locus/pkg/citation"
	"locus/pkg/client"
	"locus/pkg/editor"
	"locus/pkg/store"

	"github.com/google/uuid"
)

const module = "Workspace"

var (
	ErrNotFound    = errors.New("workspace: not found")
	ErrUnsaved     = errors.New("workspace: document has not been saved")
	ErrNotRichText = errors.New("workspace: document is not rich text")
	ErrNoCitation  = errors.New("workspace: no citation is being typed")
	ErrOffline     = errors.New("workspace: chat channel is not connected")
)

// Collaborator is the server as seen by the workspace.
type Collaborator interface {
	ListContent(ctx context.Context) ([]store.Document, error)
	ListHighlights(ctx context.Context) ([]store.Highlight, error)
	ListChats(ctx context.Context) ([]store.Transcript, error)
	CreateHighlight(ctx context.Context, req client.CreateHighlightRequest) (store.Highlight, error)
	SaveDocument(ctx context.Context, req client.SaveRequest) (client.SaveResult, error)
	DownloadAttachment(ctx context.Context, req client.DownloadRequest) error
	Sync(ctx context.Context) (client.SyncResult, error)
	Login(ctx context.Context, req client.LoginRequest) (store.User, error)
	Register(ctx context.Context, req client.RegisterRequest) (store.User, error)
	Logout(ctx context.Context) error
	SetToken(token string)
}

// Channel carries chat messages to the assistant.
type Channel interface {
	Send(msg client.UserMessage) error
}

// UserStore keeps the logged-in user between runs.
type UserStore interface {
	Load() (store.User, bool, error)
	Save(u store.User) error
	Clear() error
}

// Notice is a failed operation, reported to the user. The state of the
// workspace is left as it was before the operation.
type Notice struct {
	Op   string
	Err  error
	Time time.Time
}

func (n *Notice) Error() string { return n.Op + ": " + n.Err.Error() }

func (n *Notice) Unwrap() error { return n.Err }

type Options struct {
	Trigger      citation.Trigger
	NoticeBuffer int
}

type Workspace struct {
	mu sync.Mutex

	api     Collaborator
	channel Channel
	users   UserStore
	log     logger.ILogger
	trigger citation.Trigger

	session    *editor.Store
	nav        *editor.Navigation
	highlights *editor.HighlightIndex
	catalog    store.Catalog
	exchange   *chat.Exchange
	chats      *chat.Library
	user       *store.User

	notices chan Notice
}

// New builds a workspace and restores the persisted login, if any.
func New(api Collaborator, users UserStore, log logger.ILogger, opts Options) (*Workspace, error) {
	if opts.Trigger.Open == "" {
		opts.Trigger = citation.DefaultTrigger
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = 32
	}

	w := &Workspace{
		api:        api,
		users:      users,
		log:        log,
		trigger:    opts.Trigger,
		session:    editor.NewStore(),
		nav:        editor.NewNavigation(),
		highlights: editor.NewHighlightIndex(),
		exchange:   chat.NewExchange(),
		chats:      chat.NewLibrary(),
		notices:    make(chan Notice, opts.NoticeBuffer),
	}

	u, ok, err := users.Load()
	if err != nil {
		return nil, fmt.Errorf("restore login: %w", err)
	}
	if ok {
		w.user = &u
		api.SetToken(u.Token)
	}
	return w, nil
}

// SetChannel attaches (or with nil, detaches) the chat channel.
func (w *Workspace) SetChannel(ch Channel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.channel = ch
}

// Notices delivers failures as they happen. Notices are dropped when nobody
// reads them fast enough.
func (w *Workspace) Notices() <-chan Notice {
	return w.notices
}

// fail logs err, publishes it as a notice and returns it.
func (w *Workspace) fail(op string, err error) error {
	n := Notice{Op: op, Err: err, Time: time.Now()}
	w.log.Warn(module, "Operation failed", map[string]interface{}{"op": op, "error": err.Error()})
	select {
	case w.notices <- n:
	default:
	}
	return &n
}

func (w *Workspace) Session() editor.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Session()
}

func (w *Workspace) Catalog() store.Catalog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.catalog)
}

// NavigationDepth is how many citations deep the session is.
func (w *Workspace) NavigationDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nav.Depth()
}

// User returns the logged-in user.
func (w *Workspace) User() (store.User, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.user == nil {
		return store.User{}, false
	}
	return *w.user, true
}

func (w *Workspace) RefreshCatalog(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshCatalog(ctx)
}

func (w *Workspace) refreshCatalog(ctx context.Context) error {
	docs, err := w.api.ListContent(ctx)
	if err != nil {
		return w.fail("refresh catalog", err)
	}
	w.catalog = docs
	return nil
}

func (w *Workspace) RefreshHighlights(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshHighlights(ctx)
}

func (w *Workspace) refreshHighlights(ctx context.Context) error {
	hs, err := w.api.ListHighlights(ctx)
	if err != nil {
		return w.fail("refresh highlights", err)
	}
	w.highlights.SetAll(hs)
	return nil
}

func (w *Workspace) RefreshChats(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts, err := w.api.ListChats(ctx)
	if err != nil {
		return w.fail("refresh chats", err)
	}
	w.chats.SetAll(ts)
	return nil
}

// Refresh reloads the catalog, the highlights and the chats.
func (w *Workspace) Refresh(ctx context.Context) error {
	return errors.Join(w.RefreshCatalog(ctx), w.RefreshHighlights(ctx), w.RefreshChats(ctx))
}

// Open loads a catalog document into the session.
func (w *Workspace) Open(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.catalog.Find(id)
	if !ok {
		return w.fail("open", fmt.Errorf("%w: document %s", ErrNotFound, id))
	}
	if err := w.session.Load(doc); err != nil {
		return w.fail("open", err)
	}
	return nil
}

// New starts an unsaved note.
func (w *Workspace) New() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.Reset()
	_ = w.session.SetField(editor.FieldType, store.TypeNote)
}

// SetTitle renames the open document.
func (w *Workspace) SetTitle(title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.SetField(editor.FieldTitle, title)
}

// FollowCitation opens a cited document, remembering the current session so
// Restore can return to it.
func (w *Workspace) FollowCitation(docID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.catalog.Find(docID)
	if !ok {
		return w.fail("follow citation", fmt.Errorf("%w: document %s", ErrNotFound, docID))
	}

	w.nav.Push(w.session)
	if err := w.session.Load(doc); err != nil {
		w.nav.Discard()
		return w.fail("follow citation", err)
	}
	return nil
}

// Restore returns to the session left by the last followed citation. It
// reports false when there is nothing to return to.
func (w *Workspace) Restore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nav.Pop(w.session)
}

// Highlights returns the highlights of a document.
func (w *Workspace) Highlights(docID uuid.UUID) []store.Highlight {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Collect(w.highlights.ByDocument(docID))
}

// CreateHighlight persists a highlight on the open document and makes it
// the current one. Nothing is recorded locally unless the server accepts it.
func (w *Workspace) CreateHighlight(ctx context.Context, position []byte, text, comment string) (store.Highlight, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.session.Session()
	if s.ID == nil {
		return store.Highlight{}, w.fail("create highlight", ErrUnsaved)
	}

	h, err := w.api.CreateHighlight(ctx, client.CreateHighlightRequest{
		Content: client.HighlightContent{
			DocID:    *s.ID,
			Title:    s.Title,
			Position: position,
			Comment:  comment,
		},
		HighlightText: text,
	})
	if err != nil {
		return store.Highlight{}, w.fail("create highlight", err)
	}

	id := w.highlights.Add(h)
	w.session.SetCurrentHighlight(&id)
	return h, nil
}

// SelectHighlight makes a highlight current and asks the viewer to scroll to
// it, opening its document first when another one is shown.
func (w *Workspace) SelectHighlight(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	h, ok := w.highlights.Get(id)
	if !ok {
		return w.fail("select highlight", fmt.Errorf("%w: highlight %s", ErrNotFound, id))
	}

	s := w.session.Session()
	if s.ID == nil || *s.ID != h.DocID {
		doc, ok := w.catalog.Find(h.DocID)
		if !ok {
			return w.fail("select highlight", fmt.Errorf("%w: document %s", ErrNotFound, h.DocID))
		}
		if err := w.session.Load(doc); err != nil {
			return w.fail("select highlight", err)
		}
	}

	w.session.SetCurrentHighlight(&id)
	w.session.ScrollTo(editor.ScrollTarget{HighlightID: id, Position: h.Position})
	return nil
}

// CurrentHighlight returns the highlight the session points at.
func (w *Workspace) CurrentHighlight() (store.Highlight, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentHighlight()
}

func (w *Workspace) currentHighlight() (store.Highlight, bool) {
	s := w.session.Session()
	if s.CurrentHighlight == nil {
		return store.Highlight{}, false
	}
	return w.highlights.Get(*s.CurrentHighlight)
}

// TakeScrollTarget hands the pending scroll instruction to the viewer.
func (w *Workspace) TakeScrollTarget() (editor.ScrollTarget, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.TakeScrollTarget()
}

// DownloadAttachment asks the server to fetch the attachment of an external
// reference, then reloads the catalog to pick up its filename.
func (w *Workspace) DownloadAttachment(ctx context.Context, id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.catalog.Find(id)
	if !ok {
		return w.fail("download attachment", fmt.Errorf("%w: document %s", ErrNotFound, id))
	}
	err := w.api.DownloadAttachment(ctx, client.DownloadRequest{
		ID:          doc.ID,
		ZoteroKey:   doc.ZoteroKey,
		ContentType: doc.ContentType,
	})
	if err != nil {
		return w.fail("download attachment", err)
	}
	return w.refreshCatalog(ctx)
}

// Sync asks the server to pull the external library and reloads the
// catalog. It returns the library version the server reached.
func (w *Workspace) Sync(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := w.api.Sync(ctx)
	if err != nil {
		return 0, w.fail("sync", err)
	}
	if err := w.refreshCatalog(ctx); err != nil {
		return res.Version, err
	}
	return res.Version, nil
}
