package rwviews

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type book struct {
	ID     int
	Title  string
	Secret string
	TagIDs []int

	tags        []string
	tagsFetched bool
}

func (b *book) InvalidatePrefetchedObjects() {
	b.tags = nil
	b.tagsFetched = false
}

type bookStore struct {
	mu    sync.Mutex
	next  int
	books map[int]book
	tags  map[int]string
}

func newBookStore(n int) *bookStore {
	s := &bookStore{
		books: make(map[int]book),
		tags:  map[int]string{1: "go", 2: "rest", 3: "databases"},
	}
	for i := 0; i < n; i++ {
		s.next++
		s.books[s.next] = book{ID: s.next, Title: fmt.Sprintf("book %d", s.next), Secret: "s3cret", TagIDs: []int{1}}
	}
	return s
}

func (s *bookStore) tagNames(ids []int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.tags[id])
	}
	return names
}

func (s *bookStore) Get(_ context.Context, lookup string) (book, error) {
	id, err := strconv.Atoi(lookup)
	if err != nil {
		return book{}, ErrNotFound
	}
	s.mu.Lock()
	b, ok := s.books[id]
	s.mu.Unlock()
	if !ok {
		return book{}, ErrNotFound
	}
	b.tags = s.tagNames(b.TagIDs)
	b.tagsFetched = true
	return b, nil
}

func (s *bookStore) Queryset(*gin.Context) (Queryset[book], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(SliceQueryset[book], 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *bookStore) Create(_ context.Context, b book) (book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	b.ID = s.next
	s.books[b.ID] = b
	return b, nil
}

// Update stores the entity and hands it back unchanged, prefetched tags
// included.
func (s *bookStore) Update(_ context.Context, b book) (book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := b
	stored.InvalidatePrefetchedObjects()
	s.books[b.ID] = stored
	return b, nil
}

func (s *bookStore) Delete(_ context.Context, b book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, b.ID)
	return nil
}

// readOnlyBookStore hides the write methods of bookStore.
type readOnlyBookStore struct {
	s *bookStore
}

func (r readOnlyBookStore) Get(ctx context.Context, lookup string) (book, error) {
	return r.s.Get(ctx, lookup)
}

func (r readOnlyBookStore) Queryset(c *gin.Context) (Queryset[book], error) {
	return r.s.Queryset(c)
}

type bookReader struct {
	sc    SerializerContext
	store *bookStore
}

func (r bookReader) ToRepresentation(_ context.Context, b book) (any, error) {
	tags := b.tags
	if !b.tagsFetched {
		tags = r.store.tagNames(b.TagIDs)
	}
	return map[string]any{
		"id":    b.ID,
		"url":   fmt.Sprintf("http://%s/books/%d", r.sc.Request.Host, b.ID),
		"title": b.Title,
		"tags":  tags,
	}, nil
}

type bookReadClass struct {
	store *bookStore
	built atomic.Int32
}

func (c *bookReadClass) NewReadSerializer(sc SerializerContext) ReadSerializer[book] {
	c.built.Add(1)
	return bookReader{sc: sc, store: c.store}
}

type bookInput struct {
	Title  *string `json:"title" validate:"required,min=1,max=50"`
	Secret *string `json:"secret" validate:"required,min=4"`
	TagIDs []int   `json:"tag_ids"`
}

type bookWriter struct{}

func (bookWriter) Validate(_ context.Context, payload []byte, instance *book, partial bool) (book, error) {
	var in bookInput
	if err := DecodeAndValidate(payload, &in, partial); err != nil {
		return book{}, err
	}
	var out book
	if instance != nil {
		out = *instance
	}
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Secret != nil {
		out.Secret = *in.Secret
	}
	if in.TagIDs != nil || !partial {
		out.TagIDs = in.TagIDs
	}
	return out, nil
}

type bookWriteClass struct {
	built atomic.Int32
}

func (c *bookWriteClass) NewWriteSerializer(SerializerContext) WriteSerializer[book] {
	c.built.Add(1)
	return bookWriter{}
}

// bookClass serves both directions and exposes every field but the secret.
type bookClass struct {
	store *bookStore
}

func (c bookClass) NewReadSerializer(sc SerializerContext) ReadSerializer[book] {
	return bookReader{sc: sc, store: c.store}
}

func (c bookClass) NewWriteSerializer(SerializerContext) WriteSerializer[book] {
	return bookWriter{}
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	var out []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	return r
}
