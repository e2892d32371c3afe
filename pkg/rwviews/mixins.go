package rwviews

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// CreateMixin validates with the write serializer and answers with the read
// serializer's representation of the stored entity.
type CreateMixin[M any] struct {
	view *GenericView[M]
}

func (m CreateMixin[M]) Create(c *gin.Context) {
	v := m.view
	ctx := c.Request.Context()

	payload, err := c.GetRawData()
	if err != nil {
		v.handleError(c, errors.Wrap(err, "read request body"))
		return
	}

	ws, err := v.WriteSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	instance, err := ws.Validate(ctx, payload, nil, false)
	if err != nil {
		v.handleError(c, err)
		return
	}

	created, err := v.creator.Create(ctx, instance)
	if err != nil {
		v.handleError(c, err)
		return
	}

	rs, err := v.ReadSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	data, err := rs.ToRepresentation(ctx, created)
	if err != nil {
		v.handleError(c, err)
		return
	}

	for key, values := range v.SuccessHeaders(data) {
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
	c.JSON(http.StatusCreated, data)
}

// RetrieveMixin answers with the read representation of one entity.
type RetrieveMixin[M any] struct {
	view *GenericView[M]
}

func (m RetrieveMixin[M]) Retrieve(c *gin.Context) {
	v := m.view

	instance, err := v.GetObject(c)
	if err != nil {
		v.handleError(c, err)
		return
	}

	rs, err := v.ReadSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	data, err := rs.ToRepresentation(c.Request.Context(), instance)
	if err != nil {
		v.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// UpdateMixin applies a full or partial update through the write serializer
// and answers with the read representation.
type UpdateMixin[M any] struct {
	view *GenericView[M]
}

func (m UpdateMixin[M]) Update(c *gin.Context) {
	m.update(c, false)
}

func (m UpdateMixin[M]) PartialUpdate(c *gin.Context) {
	m.update(c, true)
}

func (m UpdateMixin[M]) update(c *gin.Context, partial bool) {
	v := m.view
	ctx := c.Request.Context()

	instance, err := v.GetObject(c)
	if err != nil {
		v.handleError(c, err)
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		v.handleError(c, errors.Wrap(err, "read request body"))
		return
	}

	ws, err := v.WriteSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	changed, err := ws.Validate(ctx, payload, &instance, partial)
	if err != nil {
		v.handleError(c, err)
		return
	}

	updated, err := v.updater.Update(ctx, changed)
	if err != nil {
		v.handleError(c, err)
		return
	}
	// Relations loaded with the entity may no longer match what was stored.
	invalidatePrefetched(&updated)

	rs, err := v.ReadSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	data, err := rs.ToRepresentation(ctx, updated)
	if err != nil {
		v.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// ListMixin answers with the read representation of a collection, paginated
// when the view has a paginator.
type ListMixin[M any] struct {
	view *GenericView[M]
}

func (m ListMixin[M]) List(c *gin.Context) {
	v := m.view
	ctx := c.Request.Context()

	qs, err := v.FilteredQueryset(c)
	if err != nil {
		v.handleError(c, err)
		return
	}

	var page *Page
	if v.paginator != nil {
		if page, err = v.paginator.Paginate(c, qs); err != nil {
			v.handleError(c, err)
			return
		}
	}

	offset, limit := 0, -1
	if page != nil {
		offset, limit = page.Offset, page.Limit
	}
	items, err := qs.Fetch(ctx, offset, limit)
	if err != nil {
		v.handleError(c, err)
		return
	}

	rs, err := v.ReadSerializer(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	results, err := RepresentMany(ctx, rs, items)
	if err != nil {
		v.handleError(c, err)
		return
	}

	if page != nil {
		c.JSON(http.StatusOK, v.paginator.Response(c, page, results))
		return
	}
	c.JSON(http.StatusOK, results)
}

// DestroyMixin deletes one entity and answers 204.
type DestroyMixin[M any] struct {
	view *GenericView[M]
}

func (m DestroyMixin[M]) Destroy(c *gin.Context) {
	v := m.view

	instance, err := v.GetObject(c)
	if err != nil {
		v.handleError(c, err)
		return
	}
	if err := v.destroyer.Delete(c.Request.Context(), instance); err != nil {
		v.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
