package uistore

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/moltbot/internal/model"
)

func TestPutGet(t *testing.T) {
	s := New()
	res := s.Put("ui://alert/hello-1", "<p>hi</p>")

	assert.Equal(t, "ui://alert/hello-1", res.URI)
	assert.Equal(t, model.UIResourceMIMEType, res.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<p>hi</p>")), res.Blob)

	got, ok := s.Get("ui://alert/hello-1")
	require.True(t, ok)
	assert.Equal(t, res, got)

	html, ok := s.HTML("ui://alert/hello-1")
	require.True(t, ok)
	assert.Equal(t, "<p>hi</p>", html)
}

func TestGet_Missing(t *testing.T) {
	s := New()
	_, ok := s.Get("ui://nothing/here")
	assert.False(t, ok)
	_, ok = s.HTML("ui://nothing/here")
	assert.False(t, ok)
}

func TestPut_OverwriteKeepsPosition(t *testing.T) {
	s := New()
	s.Put("ui://a/1", "one")
	s.Put("ui://b/2", "two")
	s.Put("ui://a/1", "uno")

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "ui://a/1", list[0].URI)
	html, _ := s.HTML("ui://a/1")
	assert.Equal(t, "uno", html)
}

func TestList_InsertionOrderAndNames(t *testing.T) {
	s := New()
	s.Put("ui://weather/london-1", "x")
	s.Put("ui://table/sales-2", "y")

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "london-1", list[0].Name())
	assert.Equal(t, "sales-2", list[1].Name())
}

func TestMaxEntries_EvictsOldest(t *testing.T) {
	var evicted []string
	s := New(WithMaxEntries(2), WithEvictHook(func(uri string) { evicted = append(evicted, uri) }))
	s.Put("ui://a/1", "1")
	s.Put("ui://a/2", "2")
	s.Put("ui://a/3", "3")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"ui://a/1"}, evicted)
	_, ok := s.Get("ui://a/1")
	assert.False(t, ok)
	_, ok = s.Get("ui://a/3")
	assert.True(t, ok)
}

func TestMaxEntries_ZeroIsUnbounded(t *testing.T) {
	s := New(WithMaxEntries(0))
	for i := range 50 {
		s.Put(fmt.Sprintf("ui://a/%d", i), "x")
	}
	assert.Equal(t, 50, s.Len())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "san-francisco", Slug("San Francisco"))
	assert.Equal(t, "q1-sales-report", Slug("  Q1 -- Sales Report!! "))
	assert.Equal(t, "untitled", Slug("!!!"))
	assert.Equal(t, "untitled", Slug(""))
}

func TestNewURI_DistinctTitles(t *testing.T) {
	a := NewURI("weather", "London")
	b := NewURI("weather", "Paris")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "ui://weather/london-"), a)
	assert.True(t, strings.HasPrefix(b, "ui://weather/paris-"), b)
}

func TestNewURI_CollidingSlugs(t *testing.T) {
	assert.Equal(t, Slug("A B"), Slug("a-b"))

	const n = 1000
	seen := make(map[string]struct{}, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title := "A B"
			if i%2 == 1 {
				title = "a-b"
			}
			uri := NewURI("alert", title)
			mu.Lock()
			seen[uri] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n, "every call yields a distinct URI")
}

func TestConcurrentPut(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Put(fmt.Sprintf("ui://c/%d", i), "x")
			s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, s.Len())
}
