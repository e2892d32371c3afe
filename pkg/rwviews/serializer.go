package rwviews

import (
	"context"
	"net/http"
)

// SerializerContext is handed to every serializer built for a request so
// nested representations can build links and read request state.
type SerializerContext struct {
	Request *http.Request

	// View is the view serving the request. It is nil outside a view.
	View   ViewInfo
	Format string
}

// ViewInfo is the view state serializers may consult.
type ViewInfo interface {
	Name() string
	LookupParam() string
}

// AbsoluteURL resolves path against the scheme and host of the request.
func (sc SerializerContext) AbsoluteURL(path string) string {
	if sc.Request == nil {
		return path
	}
	u := absoluteURL(sc.Request)
	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ReadSerializer encodes an entity into the representation sent to clients.
type ReadSerializer[M any] interface {
	ToRepresentation(ctx context.Context, instance M) (any, error)
}

// WriteSerializer decodes and validates a request payload.
//
// instance is nil when creating. When updating it points at the stored entity
// and Validate returns that entity with the changes applied. Implementations
// return a *ValidationError for bad input.
type WriteSerializer[M any] interface {
	Validate(ctx context.Context, payload []byte, instance *M, partial bool) (M, error)
}

// ReadSerializerClass builds request scoped read serializers.
type ReadSerializerClass[M any] interface {
	NewReadSerializer(sc SerializerContext) ReadSerializer[M]
}

// WriteSerializerClass builds request scoped write serializers.
type WriteSerializerClass[M any] interface {
	NewWriteSerializer(sc SerializerContext) WriteSerializer[M]
}

// SerializerClass serves both directions. It is the fallback used when no
// direction specific class is configured.
type SerializerClass[M any] interface {
	ReadSerializerClass[M]
	WriteSerializerClass[M]
}

// PrefetchedObjectsCache is implemented by entities that carry eagerly loaded
// relations. Updates call InvalidatePrefetchedObjects before the entity is
// represented again, since the relations may have changed.
type PrefetchedObjectsCache interface {
	InvalidatePrefetchedObjects()
}

// Locator lets a representation name its own URL for the Location header.
type Locator interface {
	Location() string
}

// RepresentMany encodes every item with the same serializer.
func RepresentMany[M any](ctx context.Context, s ReadSerializer[M], items []M) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		rep, err := s.ToRepresentation(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func invalidatePrefetched[M any](instance *M) {
	if cache, ok := any(instance).(PrefetchedObjectsCache); ok {
		cache.InvalidatePrefetchedObjects()
		return
	}
	if cache, ok := any(*instance).(PrefetchedObjectsCache); ok {
		cache.InvalidatePrefetchedObjects()
	}
}
