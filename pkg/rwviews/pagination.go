package rwviews

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page is the window of a collection served by one list response.
type Page struct {
	Offset int
	Limit  int
	Count  int
	// Next and Previous are absolute URLs, empty at the ends.
	Next     string
	Previous string
}

// Paginator splits list responses into pages.
type Paginator interface {
	// Paginate returns the window to serve, or nil when the request is not
	// paginated. Out of range requests return ErrInvalidPage.
	Paginate(c *gin.Context, counter Counter) (*Page, error)
	// Response wraps the represented page items with page metadata.
	Response(c *gin.Context, page *Page, results []any) any
}

// PageNumberPagination serves pages addressed by number, e.g. ?page=3.
type PageNumberPagination struct {
	// PageSize is the default page size. Zero disables pagination unless the
	// client asks for a size through PageSizeQueryParam.
	PageSize int
	// PageQueryParam defaults to "page". The value "last" selects the final page.
	PageQueryParam string
	// PageSizeQueryParam lets clients choose the size. Empty disables it.
	PageSizeQueryParam string
	// MaxPageSize caps client chosen sizes when positive.
	MaxPageSize int
}

func (p *PageNumberPagination) pageParam() string {
	if p.PageQueryParam == "" {
		return "page"
	}
	return p.PageQueryParam
}

func (p *PageNumberPagination) pageSize(c *gin.Context) int {
	if p.PageSizeQueryParam != "" {
		if n, err := strconv.Atoi(c.Query(p.PageSizeQueryParam)); err == nil && n > 0 {
			if p.MaxPageSize > 0 && n > p.MaxPageSize {
				return p.MaxPageSize
			}
			return n
		}
	}
	return p.PageSize
}

func (p *PageNumberPagination) Paginate(c *gin.Context, counter Counter) (*Page, error) {
	size := p.pageSize(c)
	if size <= 0 {
		return nil, nil
	}

	count, err := counter.Count(c.Request.Context())
	if err != nil {
		return nil, err
	}
	numPages := (count + size - 1) / size
	if numPages == 0 {
		numPages = 1
	}

	number := 1
	if raw := c.Query(p.pageParam()); raw != "" {
		if raw == "last" {
			number = numPages
		} else if number, err = strconv.Atoi(raw); err != nil {
			return nil, ErrInvalidPage
		}
	}
	if number < 1 || number > numPages {
		return nil, ErrInvalidPage
	}

	page := &Page{Offset: (number - 1) * size, Limit: size, Count: count}
	base := absoluteURL(c.Request)
	if number < numPages {
		page.Next = withQuery(base, map[string]string{p.pageParam(): strconv.Itoa(number + 1)})
	}
	if number > 1 {
		if number == 2 {
			page.Previous = withoutQuery(base, p.pageParam())
		} else {
			page.Previous = withQuery(base, map[string]string{p.pageParam(): strconv.Itoa(number - 1)})
		}
	}
	return page, nil
}

func (p *PageNumberPagination) Response(_ *gin.Context, page *Page, results []any) any {
	return envelope(page, results)
}

// LimitOffsetPagination serves windows addressed by ?limit=&offset=.
type LimitOffsetPagination struct {
	// DefaultLimit applies when the client sends no limit. Zero disables
	// pagination for such requests.
	DefaultLimit int
	// MaxLimit caps the limit when positive.
	MaxLimit int
	// LimitQueryParam and OffsetQueryParam default to "limit" and "offset".
	LimitQueryParam  string
	OffsetQueryParam string
}

func (p *LimitOffsetPagination) params() (string, string) {
	limit, offset := p.LimitQueryParam, p.OffsetQueryParam
	if limit == "" {
		limit = "limit"
	}
	if offset == "" {
		offset = "offset"
	}
	return limit, offset
}

func (p *LimitOffsetPagination) Paginate(c *gin.Context, counter Counter) (*Page, error) {
	limitParam, offsetParam := p.params()

	limit := p.DefaultLimit
	if n, err := strconv.Atoi(c.Query(limitParam)); err == nil && n > 0 {
		limit = n
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if limit <= 0 {
		return nil, nil
	}

	offset := 0
	if n, err := strconv.Atoi(c.Query(offsetParam)); err == nil && n > 0 {
		offset = n
	}

	count, err := counter.Count(c.Request.Context())
	if err != nil {
		return nil, err
	}

	page := &Page{Offset: offset, Limit: limit, Count: count}
	base := absoluteURL(c.Request)
	if offset+limit < count {
		page.Next = withQuery(base, map[string]string{
			limitParam:  strconv.Itoa(limit),
			offsetParam: strconv.Itoa(offset + limit),
		})
	}
	if offset > 0 {
		if offset-limit <= 0 {
			page.Previous = withQuery(withoutQueryURL(base, offsetParam), map[string]string{limitParam: strconv.Itoa(limit)})
		} else {
			page.Previous = withQuery(base, map[string]string{
				limitParam:  strconv.Itoa(limit),
				offsetParam: strconv.Itoa(offset - limit),
			})
		}
	}
	return page, nil
}

func (p *LimitOffsetPagination) Response(_ *gin.Context, page *Page, results []any) any {
	return envelope(page, results)
}

func envelope(page *Page, results []any) gin.H {
	return gin.H{
		"count":    page.Count,
		"next":     nullable(page.Next),
		"previous": nullable(page.Previous),
		"results":  results,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	return &u
}

func withQuery(u *url.URL, set map[string]string) string {
	out := *u
	q := out.Query()
	for k, v := range set {
		q.Set(k, v)
	}
	out.RawQuery = q.Encode()
	return out.String()
}

func withoutQueryURL(u *url.URL, key string) *url.URL {
	out := *u
	q := out.Query()
	q.Del(key)
	out.RawQuery = q.Encode()
	return &out
}

func withoutQuery(u *url.URL, key string) string {
	return withoutQueryURL(u, key).String()
}
