package rwviews

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// Actions maps HTTP methods to handlers for one route.
type Actions map[string]gin.HandlerFunc

// GenericViewSet is a GenericView that routes several actions under one
// prefix. Use Bind to attach custom action maps.
type GenericViewSet[M any] struct {
	*GenericView[M]
}

func NewGenericViewSet[M any](cfg Config[M]) (*GenericViewSet[M], error) {
	v, err := newGenericView(cfg, capRead)
	if err != nil {
		return nil, err
	}
	return &GenericViewSet[M]{GenericView: v}, nil
}

// Bind registers every action of actions on path.
func (s *GenericViewSet[M]) Bind(r gin.IRouter, path string, actions Actions) {
	methods := make([]string, 0, len(actions))
	for method := range actions {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		r.Handle(strings.ToUpper(method), path, actions[method])
	}
}

// DetailPath returns the detail route below prefix, e.g. "/users/:id".
func (s *GenericViewSet[M]) DetailPath(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/:" + s.lookupParam
}

// ModelViewSet serves list, create, retrieve, update, partial update and
// destroy.
type ModelViewSet[M any] struct {
	*GenericViewSet[M]
	CreateMixin[M]
	RetrieveMixin[M]
	UpdateMixin[M]
	DestroyMixin[M]
	ListMixin[M]
}

func NewModelViewSet[M any](cfg Config[M]) (*ModelViewSet[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capGet|capList|capCreate|capUpdate|capDestroy)
	if err != nil {
		return nil, err
	}
	return &ModelViewSet[M]{
		GenericViewSet: &GenericViewSet[M]{GenericView: v},
		CreateMixin:    CreateMixin[M]{view: v},
		RetrieveMixin:  RetrieveMixin[M]{view: v},
		UpdateMixin:    UpdateMixin[M]{view: v},
		DestroyMixin:   DestroyMixin[M]{view: v},
		ListMixin:      ListMixin[M]{view: v},
	}, nil
}

// Register mounts the collection on prefix and the detail routes below it.
func (s *ModelViewSet[M]) Register(r gin.IRouter, prefix string) {
	s.Bind(r, prefix, Actions{
		http.MethodGet:  s.List,
		http.MethodPost: s.Create,
	})
	s.Bind(r, s.DetailPath(prefix), Actions{
		http.MethodGet:    s.Retrieve,
		http.MethodPut:    s.Update,
		http.MethodPatch:  s.PartialUpdate,
		http.MethodDelete: s.Destroy,
	})
}

// ReadOnlyModelViewSet serves list and retrieve.
type ReadOnlyModelViewSet[M any] struct {
	*GenericViewSet[M]
	RetrieveMixin[M]
	ListMixin[M]
}

func NewReadOnlyModelViewSet[M any](cfg Config[M]) (*ReadOnlyModelViewSet[M], error) {
	v, err := newGenericView(cfg, capRead|capGet|capList)
	if err != nil {
		return nil, err
	}
	return &ReadOnlyModelViewSet[M]{
		GenericViewSet: &GenericViewSet[M]{GenericView: v},
		RetrieveMixin:  RetrieveMixin[M]{view: v},
		ListMixin:      ListMixin[M]{view: v},
	}, nil
}

func (s *ReadOnlyModelViewSet[M]) Register(r gin.IRouter, prefix string) {
	s.Bind(r, prefix, Actions{http.MethodGet: s.List})
	s.Bind(r, s.DetailPath(prefix), Actions{http.MethodGet: s.Retrieve})
}
