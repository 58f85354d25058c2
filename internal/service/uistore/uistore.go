// Package uistore holds the HTML resources produced by rendering tools.
//
// Resources are addressed by a "ui://" URI and stored base64-encoded, ready to
// be embedded in a tool result or served via resources/read. The store lives
// only in memory and does not survive restarts.
package uistore

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashita-ai/moltbot/internal/model"
)

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries caps the number of stored resources. When a Put of a new URI
// would exceed the cap, the oldest entry is evicted. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithEvictHook registers fn to be called, outside the store lock, with the
// URI of every evicted resource.
func WithEvictHook(fn func(uri string)) Option {
	return func(s *Store) { s.onEvict = fn }
}

// Store is a concurrency-safe map of URI to UI resource that remembers
// insertion order.
type Store struct {
	maxEntries int
	onEvict    func(uri string)

	mu      sync.RWMutex
	entries map[string]model.UIResource
	order   []string
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{entries: make(map[string]model.UIResource)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores html under uri, replacing any previous content. Replacing keeps
// the URI's original position in List order.
func (s *Store) Put(uri, html string) model.UIResource {
	res := model.UIResource{
		URI:      uri,
		MIMEType: model.UIResourceMIMEType,
		Blob:     base64.StdEncoding.EncodeToString([]byte(html)),
	}

	var evicted []string
	s.mu.Lock()
	if _, exists := s.entries[uri]; !exists {
		s.order = append(s.order, uri)
	}
	s.entries[uri] = res
	if s.maxEntries > 0 {
		for len(s.order) > s.maxEntries {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.entries, oldest)
			evicted = append(evicted, oldest)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, uri := range evicted {
			s.onEvict(uri)
		}
	}
	return res
}

// Get returns the resource stored under uri.
func (s *Store) Get(uri string) (model.UIResource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.entries[uri]
	return res, ok
}

// HTML returns the decoded HTML stored under uri.
func (s *Store) HTML(uri string) (string, bool) {
	res, ok := s.Get(uri)
	if !ok {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(res.Blob)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// List returns all resources in insertion order.
func (s *Store) List() []model.UIResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UIResource, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.entries[uri])
	}
	return out
}

// Len returns the number of stored resources.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases title and collapses every run of non-alphanumerics to a
// single hyphen. An empty result becomes "untitled".
func Slug(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// lastStamp is the most recent suffix handed out by NewURI.
var lastStamp atomic.Int64

// NewURI builds "ui://<kind>/<slug>-<stamp>". Titles that slug the same
// ("A B", "a-b") share the prefix, so uniqueness rests on the stamp: the
// current UnixNano, bumped past the previous stamp when the clock has not
// advanced. Every call in the process returns a distinct URI.
func NewURI(kind, title string) string {
	return fmt.Sprintf("ui://%s/%s-%d", kind, Slug(title), nextStamp())
}

func nextStamp() int64 {
	for {
		last := lastStamp.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if lastStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}
