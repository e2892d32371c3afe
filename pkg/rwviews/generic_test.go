package rwviews

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testContext(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestResolveFallbackOnly(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	fallback := bookClass{store: store}
	v, err := NewGenericView(Config[book]{SerializerClass: fallback, Store: store})
	require.NoError(t, err)

	c := testContext("/books")
	read, err := v.ReadSerializerClass(c)
	require.NoError(t, err)
	require.Equal(t, fallback, read)

	write, err := v.WriteSerializerClass(c)
	require.NoError(t, err)
	require.Equal(t, fallback, write)
}

func TestResolveReadSpecificWithFallback(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	fallback := bookClass{store: store}
	reader := &bookReadClass{store: store}
	v, err := NewGenericView(Config[book]{
		SerializerClass:     fallback,
		ReadSerializerClass: reader,
		Store:               store,
	})
	require.NoError(t, err)

	c := testContext("/books")
	read, err := v.ReadSerializerClass(c)
	require.NoError(t, err)
	require.Same(t, reader, read)

	write, err := v.WriteSerializerClass(c)
	require.NoError(t, err)
	require.Equal(t, fallback, write)
}

func TestResolveWriteSpecificWithFallback(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	fallback := bookClass{store: store}
	writer := &bookWriteClass{}
	v, err := NewGenericView(Config[book]{
		SerializerClass:      fallback,
		WriteSerializerClass: writer,
		Store:                store,
	})
	require.NoError(t, err)

	c := testContext("/books")
	read, err := v.ReadSerializerClass(c)
	require.NoError(t, err)
	require.Equal(t, fallback, read)

	write, err := v.WriteSerializerClass(c)
	require.NoError(t, err)
	require.Same(t, writer, write)
}

func TestConstructionFailsWithoutSerializers(t *testing.T) {
	t.Parallel()

	_, err := NewGenericView(Config[book]{Name: "BookView", Store: newBookStore(0)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrImproperlyConfigured))
	require.Contains(t, err.Error(), "'BookView'")
}

func TestConstructionFailsWithoutWriteSerializerForWritableView(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	_, err := NewListCreateAPIView(Config[book]{
		Name:                "BookList",
		ReadSerializerClass: &bookReadClass{store: store},
		Store:               store,
	})
	require.True(t, errors.Is(err, ErrImproperlyConfigured))
	require.Contains(t, err.Error(), "WriteSerializerClass")

	// a read-only view needs no write serializer
	_, err = NewListAPIView(Config[book]{
		Name:                "BookList",
		ReadSerializerClass: &bookReadClass{store: store},
		Store:               store,
	})
	require.NoError(t, err)
}

func TestConstructionFailsWhenStoreCannotPersist(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	_, err := NewModelViewSet(Config[book]{
		Name:            "Books",
		SerializerClass: bookClass{store: store},
		Store:           readOnlyBookStore{s: store},
	})
	require.True(t, errors.Is(err, ErrImproperlyConfigured))
	require.Contains(t, err.Error(), "cannot create")

	_, err = NewReadOnlyModelViewSet(Config[book]{
		Name:            "Books",
		SerializerClass: bookClass{store: store},
		Store:           readOnlyBookStore{s: store},
	})
	require.NoError(t, err)
}

func TestResolutionFailsAtFirstUseWhenSelectorReturnsNothing(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	v, err := NewGenericView(Config[book]{
		Name:               "DynamicBooks",
		ReadSerializerFor:  func(*gin.Context) ReadSerializerClass[book] { return nil },
		WriteSerializerFor: func(*gin.Context) WriteSerializerClass[book] { return &bookWriteClass{} },
		Store:              store,
	})
	require.NoError(t, err)

	_, err = v.ReadSerializerClass(testContext("/books"))
	require.True(t, errors.Is(err, ErrImproperlyConfigured))
	require.Contains(t, err.Error(), "'DynamicBooks'")

	_, err = v.WriteSerializerClass(testContext("/books"))
	require.NoError(t, err)
}

func TestSelectorsPickPerRequest(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	staff := &bookReadClass{store: store}
	public := &bookReadClass{store: store}
	v, err := NewGenericView(Config[book]{
		SerializerClass:     bookClass{store: store},
		ReadSerializerClass: public,
		ReadSerializerFor: func(c *gin.Context) ReadSerializerClass[book] {
			if c.GetHeader("X-Role") == "staff" {
				return staff
			}
			return nil
		},
		Store: store,
	})
	require.NoError(t, err)

	c := testContext("/books")
	cls, err := v.ReadSerializerClass(c)
	require.NoError(t, err)
	require.Same(t, public, cls)

	c.Request.Header.Set("X-Role", "staff")
	cls, err = v.ReadSerializerClass(c)
	require.NoError(t, err)
	require.Same(t, staff, cls)
}

func TestSerializerContextCarriesRequestViewAndFormat(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	v, err := NewGenericView(Config[book]{Name: "Books", SerializerClass: bookClass{store: store}, Store: store})
	require.NoError(t, err)

	c := testContext("/books?format=api")
	sc := v.SerializerContext(c)
	require.Same(t, c.Request, sc.Request)
	require.Same(t, v, sc.View)
	require.Equal(t, "Books", sc.View.Name())
	require.Equal(t, "id", sc.View.LookupParam())
	require.Equal(t, "api", sc.Format)

	c = testContext("/books")
	c.Request.Header.Set("Accept", "application/xml")
	require.Equal(t, "xml", v.SerializerContext(c).Format)

	require.Equal(t, "json", v.SerializerContext(testContext("/books")).Format)
}

func TestSerializerContextAbsoluteURL(t *testing.T) {
	t.Parallel()

	c := testContext("/books?page=2")
	sc := SerializerContext{Request: c.Request}
	require.Equal(t, "http://example.com/books/7", sc.AbsoluteURL("/books/7"))

	c.Request.Header.Set("X-Forwarded-Proto", "https")
	require.Equal(t, "https://example.com/books/7", sc.AbsoluteURL("/books/7"))

	require.Equal(t, "/books/7", SerializerContext{}.AbsoluteURL("/books/7"))
}

func TestDefaultNameUsesEntityType(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	v, err := NewGenericView(Config[book]{SerializerClass: bookClass{store: store}, Store: store})
	require.NoError(t, err)
	require.Equal(t, "rwviews.book view", v.Name())
	require.Equal(t, "id", v.LookupParam())
}

func TestSuccessHeaders(t *testing.T) {
	t.Parallel()

	store := newBookStore(0)
	v, err := NewGenericView(Config[book]{SerializerClass: bookClass{store: store}, Store: store})
	require.NoError(t, err)

	h := v.SuccessHeaders(map[string]any{"url": "http://example.com/books/1"})
	require.Equal(t, "http://example.com/books/1", h.Get("Location"))

	require.Empty(t, v.SuccessHeaders(map[string]any{"id": 1}).Get("Location"))
	require.Empty(t, v.SuccessHeaders([]any{}).Get("Location"))
}
