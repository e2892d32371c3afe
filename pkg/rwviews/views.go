package rwviews

import "github.com/gin-gonic/gin"

// CreateAPIView serves POST.
type CreateAPIView[M any] struct {
	*GenericView[M]
	CreateMixin[M]
}

func NewCreateAPIView[M any](cfg Config[M]) (*CreateAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capCreate)
	if err != nil {
		return nil, err
	}
	return &CreateAPIView[M]{GenericView: v, CreateMixin: CreateMixin[M]{view: v}}, nil
}

func (v *CreateAPIView[M]) Post(c *gin.Context) { v.Create(c) }

func (v *CreateAPIView[M]) Register(r gin.IRouter, path string) {
	r.POST(path, v.Post)
}

// UpdateAPIView serves PUT and PATCH.
type UpdateAPIView[M any] struct {
	*GenericView[M]
	UpdateMixin[M]
}

func NewUpdateAPIView[M any](cfg Config[M]) (*UpdateAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capGet|capUpdate)
	if err != nil {
		return nil, err
	}
	return &UpdateAPIView[M]{GenericView: v, UpdateMixin: UpdateMixin[M]{view: v}}, nil
}

func (v *UpdateAPIView[M]) Put(c *gin.Context) { v.Update(c) }

func (v *UpdateAPIView[M]) Patch(c *gin.Context) { v.PartialUpdate(c) }

func (v *UpdateAPIView[M]) Register(r gin.IRouter, path string) {
	r.PUT(path, v.Put)
	r.PATCH(path, v.Patch)
}

// ListAPIView serves GET on a collection.
type ListAPIView[M any] struct {
	*GenericView[M]
	ListMixin[M]
}

func NewListAPIView[M any](cfg Config[M]) (*ListAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capList)
	if err != nil {
		return nil, err
	}
	return &ListAPIView[M]{GenericView: v, ListMixin: ListMixin[M]{view: v}}, nil
}

func (v *ListAPIView[M]) Get(c *gin.Context) { v.List(c) }

func (v *ListAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
}

// RetrieveAPIView serves GET on a single entity.
type RetrieveAPIView[M any] struct {
	*GenericView[M]
	RetrieveMixin[M]
}

func NewRetrieveAPIView[M any](cfg Config[M]) (*RetrieveAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capGet)
	if err != nil {
		return nil, err
	}
	return &RetrieveAPIView[M]{GenericView: v, RetrieveMixin: RetrieveMixin[M]{view: v}}, nil
}

func (v *RetrieveAPIView[M]) Get(c *gin.Context) { v.Retrieve(c) }

func (v *RetrieveAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
}

// ListCreateAPIView serves GET and POST on a collection.
type ListCreateAPIView[M any] struct {
	*GenericView[M]
	ListMixin[M]
	CreateMixin[M]
}

func NewListCreateAPIView[M any](cfg Config[M]) (*ListCreateAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capList|capCreate)
	if err != nil {
		return nil, err
	}
	return &ListCreateAPIView[M]{
		GenericView: v,
		ListMixin:   ListMixin[M]{view: v},
		CreateMixin: CreateMixin[M]{view: v},
	}, nil
}

func (v *ListCreateAPIView[M]) Get(c *gin.Context) { v.List(c) }

func (v *ListCreateAPIView[M]) Post(c *gin.Context) { v.Create(c) }

func (v *ListCreateAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
	r.POST(path, v.Post)
}

// RetrieveDestroyAPIView serves GET and DELETE on a single entity.
type RetrieveDestroyAPIView[M any] struct {
	*GenericView[M]
	RetrieveMixin[M]
	DestroyMixin[M]
}

func NewRetrieveDestroyAPIView[M any](cfg Config[M]) (*RetrieveDestroyAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capGet|capDestroy)
	if err != nil {
		return nil, err
	}
	return &RetrieveDestroyAPIView[M]{
		GenericView:   v,
		RetrieveMixin: RetrieveMixin[M]{view: v},
		DestroyMixin:  DestroyMixin[M]{view: v},
	}, nil
}

func (v *RetrieveDestroyAPIView[M]) Get(c *gin.Context) { v.Retrieve(c) }

func (v *RetrieveDestroyAPIView[M]) Delete(c *gin.Context) { v.Destroy(c) }

func (v *RetrieveDestroyAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
	r.DELETE(path, v.Delete)
}

// RetrieveUpdateAPIView serves GET, PUT and PATCH on a single entity.
type RetrieveUpdateAPIView[M any] struct {
	*GenericView[M]
	RetrieveMixin[M]
	UpdateMixin[M]
}

func NewRetrieveUpdateAPIView[M any](cfg Config[M]) (*RetrieveUpdateAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capGet|capUpdate)
	if err != nil {
		return nil, err
	}
	return &RetrieveUpdateAPIView[M]{
		GenericView:   v,
		RetrieveMixin: RetrieveMixin[M]{view: v},
		UpdateMixin:   UpdateMixin[M]{view: v},
	}, nil
}

func (v *RetrieveUpdateAPIView[M]) Get(c *gin.Context) { v.Retrieve(c) }

func (v *RetrieveUpdateAPIView[M]) Put(c *gin.Context) { v.Update(c) }

func (v *RetrieveUpdateAPIView[M]) Patch(c *gin.Context) { v.PartialUpdate(c) }

func (v *RetrieveUpdateAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
	r.PUT(path, v.Put)
	r.PATCH(path, v.Patch)
}

// RetrieveUpdateDestroyAPIView serves GET, PUT, PATCH and DELETE on a single
// entity.
type RetrieveUpdateDestroyAPIView[M any] struct {
	*GenericView[M]
	RetrieveMixin[M]
	UpdateMixin[M]
	DestroyMixin[M]
}

func NewRetrieveUpdateDestroyAPIView[M any](cfg Config[M]) (*RetrieveUpdateDestroyAPIView[M], error) {
	v, err := newGenericView(cfg, capRead|capWrite|capGet|capUpdate|capDestroy)
	if err != nil {
		return nil, err
	}
	return &RetrieveUpdateDestroyAPIView[M]{
		GenericView:   v,
		RetrieveMixin: RetrieveMixin[M]{view: v},
		UpdateMixin:   UpdateMixin[M]{view: v},
		DestroyMixin:  DestroyMixin[M]{view: v},
	}, nil
}

func (v *RetrieveUpdateDestroyAPIView[M]) Get(c *gin.Context) { v.Retrieve(c) }

func (v *RetrieveUpdateDestroyAPIView[M]) Put(c *gin.Context) { v.Update(c) }

func (v *RetrieveUpdateDestroyAPIView[M]) Patch(c *gin.Context) { v.PartialUpdate(c) }

func (v *RetrieveUpdateDestroyAPIView[M]) Delete(c *gin.Context) { v.Destroy(c) }

func (v *RetrieveUpdateDestroyAPIView[M]) Register(r gin.IRouter, path string) {
	r.GET(path, v.Get)
	r.PUT(path, v.Put)
	r.PATCH(path, v.Patch)
	r.DELETE(path, v.Delete)
}
