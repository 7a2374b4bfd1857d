package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"locus/internal/entity"
	"locus/internal/repository/contract"
	"locus/internal/repository/specification"
	"locus/internal/repository/unitofwork"
	"locus/pkg/events"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the database. It understands the
// specifications the services filter by and ignores the rest.
type memStore struct {
	mu       sync.Mutex
	contents map[uuid.UUID]*entity.Content
	authors  []entity.Author
	users    map[uuid.UUID]*entity.User
	versions []int
	commits  int
}

func newMemStore() *memStore {
	return &memStore{
		contents: map[uuid.UUID]*entity.Content{},
		users:    map[uuid.UUID]*entity.User{},
	}
}

func (s *memStore) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{store: s}
}

func (s *memStore) put(c entity.Content) *entity.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.contents[c.Id] = &c
	return &c
}

func (s *memStore) get(id uuid.UUID) *entity.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Begin(context.Context) error { return nil }
func (u *memUnitOfWork) Commit() error {
	u.store.mu.Lock()
	u.store.commits++
	u.store.mu.Unlock()
	return nil
}
func (u *memUnitOfWork) Rollback() error { return nil }

func (u *memUnitOfWork) UserRepository() contract.UserRepository     { return memUsers{u.store} }
func (u *memUnitOfWork) AuthorRepository() contract.AuthorRepository { return memAuthors{u.store} }
func (u *memUnitOfWork) ContentRepository() contract.ContentRepository {
	return memContents{u.store}
}
func (u *memUnitOfWork) ZoteroVersionRepository() contract.ZoteroVersionRepository {
	return memVersions{u.store}
}

type memContents struct{ s *memStore }

func (r memContents) Create(_ context.Context, c *entity.Content) error {
	cp := *c
	r.s.mu.Lock()
	r.s.contents[c.Id] = &cp
	r.s.mu.Unlock()
	return nil
}

func (r memContents) Update(_ context.Context, c *entity.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	if cp.Authors == nil {
		if old, ok := r.s.contents[c.Id]; ok {
			cp.Authors = old.Authors
		}
	}
	r.s.contents[c.Id] = &cp
	return nil
}

func (r memContents) UpdateFilename(_ context.Context, id uuid.UUID, filename string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.contents[id]; ok {
		c.Filename = filename
	}
	return nil
}

func (r memContents) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.contents[id]; ok {
		c.IsDeleted = true
	}
	return nil
}

func (r memContents) Restore(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.contents[id]; ok {
		c.IsDeleted = false
	}
	return nil
}

func (r memContents) SoftDeleteByZoteroKeys(_ context.Context, keys []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.contents {
		for _, k := range keys {
			if c.ZoteroKey == k && !c.IsDeleted {
				c.IsDeleted = true
				n++
			}
		}
	}
	return n, nil
}

func (r memContents) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Content, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r memContents) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Content, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Content
	for _, c := range r.s.contents {
		if matches(c, specs) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memContents) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func matches(c *entity.Content, specs []specification.Specification) bool {
	includeDeleted := false
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.IncludeDeleted:
			includeDeleted = true
		case specification.ByID:
			if c.Id != s.ID {
				return false
			}
		case specification.ByContentType:
			if c.ContentType != s.ContentType {
				return false
			}
		case specification.ByZoteroKey:
			if c.ZoteroKey != s.Key {
				return false
			}
		}
	}
	return includeDeleted || !c.IsDeleted
}

type memAuthors struct{ s *memStore }

func (r memAuthors) FindOrCreate(_ context.Context, a *entity.Author) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.authors {
		if existing.FirstName == a.FirstName && existing.LastName == a.LastName {
			a.Id = existing.Id
			return nil
		}
	}
	a.Id = uuid.New()
	r.s.authors = append(r.s.authors, *a)
	return nil
}

func (r memAuthors) FindAll(context.Context, ...specification.Specification) ([]*entity.Author, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Author, len(r.s.authors))
	for i := range r.s.authors {
		a := r.s.authors[i]
		out[i] = &a
	}
	return out, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	cp := *u
	r.s.mu.Lock()
	r.s.users[u.Id] = &cp
	r.s.mu.Unlock()
	return nil
}

func (r memUsers) FindOne(_ context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByUsername:
				ok = ok && u.Username == s.Username
			case specification.ByID:
				ok = ok && u.Id == s.ID
			}
		}
		if ok {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) Count(context.Context, ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

type memVersions struct{ s *memStore }

func (r memVersions) Latest(context.Context) (*entity.ZoteroVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.versions) == 0 {
		return nil, nil
	}
	return &entity.ZoteroVersion{Version: r.s.versions[len(r.s.versions)-1], Timestamp: time.Now()}, nil
}

func (r memVersions) Store(_ context.Context, version int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.versions = append(r.s.versions, version)
	return nil
}

// recordingBus collects published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventType()
	}
	return out
}
