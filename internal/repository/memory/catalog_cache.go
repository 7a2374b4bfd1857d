package memory

import (
	"time"

	"locus/pkg/store"

	"github.com/patrickmn/go-cache"
)

const (
	keyDocuments  = "documents"
	keyHighlights = "highlights"
	keyChats      = "chats"
)

// CatalogCache keeps the listing endpoints' results until the catalog
// changes or the entries expire.
type CatalogCache struct {
	cache *cache.Cache
}

func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CatalogCache) Documents() ([]store.Document, bool) {
	if x, found := r.cache.Get(keyDocuments); found {
		return x.([]store.Document), true
	}
	return nil, false
}

func (r *CatalogCache) SetDocuments(docs []store.Document) {
	r.cache.Set(keyDocuments, docs, cache.DefaultExpiration)
}

func (r *CatalogCache) Highlights() ([]store.Highlight, bool) {
	if x, found := r.cache.Get(keyHighlights); found {
		return x.([]store.Highlight), true
	}
	return nil, false
}

func (r *CatalogCache) SetHighlights(highlights []store.Highlight) {
	r.cache.Set(keyHighlights, highlights, cache.DefaultExpiration)
}

func (r *CatalogCache) Chats() ([]store.Transcript, bool) {
	if x, found := r.cache.Get(keyChats); found {
		return x.([]store.Transcript), true
	}
	return nil, false
}

func (r *CatalogCache) SetChats(chats []store.Transcript) {
	r.cache.Set(keyChats, chats, cache.DefaultExpiration)
}

// Invalidate drops every cached listing.
func (r *CatalogCache) Invalidate() {
	r.cache.Flush()
}
