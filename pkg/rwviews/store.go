package rwviews

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Counter reports the size of a collection.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Queryset is a lazily evaluated collection of entities.
type Queryset[M any] interface {
	Counter
	// Fetch returns up to limit entities starting at offset. A negative limit
	// fetches everything from offset on.
	Fetch(ctx context.Context, offset, limit int) ([]M, error)
}

// Getter looks up a single entity by the value of the view's lookup param.
// It returns ErrNotFound (possibly wrapped) when nothing matches.
type Getter[M any] interface {
	Get(ctx context.Context, lookup string) (M, error)
}

// QuerysetProvider returns the base collection for list operations.
type QuerysetProvider[M any] interface {
	Queryset(c *gin.Context) (Queryset[M], error)
}

// ReadStore is the minimum a view needs.
type ReadStore[M any] interface {
	Getter[M]
	QuerysetProvider[M]
}

// Creator persists a new entity and returns it as stored.
type Creator[M any] interface {
	Create(ctx context.Context, instance M) (M, error)
}

// Updater persists changes to an existing entity and returns it as stored.
type Updater[M any] interface {
	Update(ctx context.Context, instance M) (M, error)
}

// Destroyer removes an entity.
type Destroyer[M any] interface {
	Delete(ctx context.Context, instance M) error
}

// FilterBackend narrows a queryset for a request.
type FilterBackend[M any] interface {
	FilterQueryset(c *gin.Context, qs Queryset[M]) (Queryset[M], error)
}

// FilterFunc adapts a function to FilterBackend.
type FilterFunc[M any] func(c *gin.Context, qs Queryset[M]) (Queryset[M], error)

func (f FilterFunc[M]) FilterQueryset(c *gin.Context, qs Queryset[M]) (Queryset[M], error) {
	return f(c, qs)
}

// SliceQueryset is a Queryset over an in-memory slice.
type SliceQueryset[M any] []M

func (s SliceQueryset[M]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s SliceQueryset[M]) Fetch(_ context.Context, offset, limit int) ([]M, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) {
		return []M{}, nil
	}
	end := len(s)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]M, end-offset)
	copy(out, s[offset:end])
	return out, nil
}
