package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"gin-rw-views/pkg/rwviews"
)

// Searchable is a queryset that can narrow itself by a search term, usually
// in the database.
type Searchable[M any] interface {
	Search(term string) rwviews.Queryset[M]
}

// NameSearch filters a queryset by the query param named param. Querysets
// that implement Searchable do the matching themselves. Others are loaded and
// matched case-insensitively against name.
func NameSearch[M any](param string, name func(M) string) rwviews.FilterFunc[M] {
	return func(c *gin.Context, qs rwviews.Queryset[M]) (rwviews.Queryset[M], error) {
		term := strings.TrimSpace(c.Query(param))
		if term == "" {
			return qs, nil
		}
		if s, ok := qs.(Searchable[M]); ok {
			return s.Search(term), nil
		}

		all, err := qs.Fetch(c.Request.Context(), 0, -1)
		if err != nil {
			return nil, err
		}
		term = strings.ToLower(term)
		return rwviews.SliceQueryset[M](lo.Filter(all, func(item M, _ int) bool {
			return strings.Contains(strings.ToLower(name(item)), term)
		})), nil
	}
}
