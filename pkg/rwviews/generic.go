package rwviews

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config configures a view for entities of type M.
//
// For each direction a view serves, at least one of the direction specific
// class, its selector, SerializerClass or SerializerFor must be set.
type Config[M any] struct {
	// Name identifies the view in errors and logs. Defaults to the entity type.
	Name string

	// SerializerClass is the fallback for both directions.
	SerializerClass SerializerClass[M]
	// ReadSerializerClass encodes responses.
	ReadSerializerClass ReadSerializerClass[M]
	// WriteSerializerClass decodes and validates request bodies.
	WriteSerializerClass WriteSerializerClass[M]

	// SerializerFor, ReadSerializerFor and WriteSerializerFor pick a class
	// per request. A nil result falls back to the static configuration.
	SerializerFor      func(c *gin.Context) SerializerClass[M]
	ReadSerializerFor  func(c *gin.Context) ReadSerializerClass[M]
	WriteSerializerFor func(c *gin.Context) WriteSerializerClass[M]

	// Store must implement the store interfaces (Getter, QuerysetProvider,
	// Creator, Updater, Destroyer) that the view's operations use.
	Store any

	Filters   []FilterBackend[M]
	Paginator Paginator

	// LookupParam is the route param holding the entity key. Defaults to "id".
	LookupParam string
	// URLField is the representation key copied to the Location header on
	// create. Defaults to "url".
	URLField string
	// ValidationStatus is the status for rejected payloads. Defaults to 400.
	ValidationStatus int

	ExceptionHandler ExceptionHandler
	Logger           *zap.Logger
}

type capability uint8

const (
	capRead capability = 1 << iota
	capWrite
	capGet
	capList
	capCreate
	capUpdate
	capDestroy
)

// GenericView resolves serializers and store operations for the mixins.
// It is immutable after construction and safe for concurrent requests.
type GenericView[M any] struct {
	name string

	serializerClass      SerializerClass[M]
	readSerializerClass  ReadSerializerClass[M]
	writeSerializerClass WriteSerializerClass[M]
	serializerFor        func(c *gin.Context) SerializerClass[M]
	readSerializerFor    func(c *gin.Context) ReadSerializerClass[M]
	writeSerializerFor   func(c *gin.Context) WriteSerializerClass[M]

	getter    Getter[M]
	querysets QuerysetProvider[M]
	creator   Creator[M]
	updater   Updater[M]
	destroyer Destroyer[M]

	filters   []FilterBackend[M]
	paginator Paginator

	lookupParam      string
	urlField         string
	validationStatus int
	exceptionHandler ExceptionHandler
	logger           *zap.Logger
}

// NewGenericView builds a view that can serve every operation. The composed
// views call newGenericView with only the capabilities they expose.
func NewGenericView[M any](cfg Config[M]) (*GenericView[M], error) {
	return newGenericView(cfg, capRead|capWrite|capGet|capList|capCreate|capUpdate|capDestroy)
}

func newGenericView[M any](cfg Config[M], caps capability) (*GenericView[M], error) {
	v := &GenericView[M]{
		name:                 cfg.Name,
		serializerClass:      cfg.SerializerClass,
		readSerializerClass:  cfg.ReadSerializerClass,
		writeSerializerClass: cfg.WriteSerializerClass,
		serializerFor:        cfg.SerializerFor,
		readSerializerFor:    cfg.ReadSerializerFor,
		writeSerializerFor:   cfg.WriteSerializerFor,
		filters:              cfg.Filters,
		paginator:            cfg.Paginator,
		lookupParam:          cfg.LookupParam,
		urlField:             cfg.URLField,
		validationStatus:     cfg.ValidationStatus,
		exceptionHandler:     cfg.ExceptionHandler,
		logger:               cfg.Logger,
	}
	if v.name == "" {
		var zero M
		v.name = fmt.Sprintf("%T view", zero)
	}
	if v.lookupParam == "" {
		v.lookupParam = "id"
	}
	if v.urlField == "" {
		v.urlField = "url"
	}
	if v.validationStatus == 0 {
		v.validationStatus = http.StatusBadRequest
	}
	if v.exceptionHandler == nil {
		v.exceptionHandler = DefaultExceptionHandler
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}

	hasFallback := v.serializerClass != nil || v.serializerFor != nil
	if caps&capRead != 0 && !hasFallback && v.readSerializerClass == nil && v.readSerializerFor == nil {
		return nil, improperlyConfigured(
			"'%s' should either include one of SerializerClass and ReadSerializerClass, "+
				"or set one of SerializerFor and ReadSerializerFor", v.name)
	}
	if caps&capWrite != 0 && !hasFallback && v.writeSerializerClass == nil && v.writeSerializerFor == nil {
		return nil, improperlyConfigured(
			"'%s' should either include one of SerializerClass and WriteSerializerClass, "+
				"or set one of SerializerFor and WriteSerializerFor", v.name)
	}

	// Capabilities the view does not expose are picked up when present so
	// custom viewset actions can still use them.
	var ok bool
	if v.getter, ok = cfg.Store.(Getter[M]); !ok && caps&capGet != 0 {
		return nil, improperlyConfigured("'%s' store %T cannot look up entities", v.name, cfg.Store)
	}
	if v.querysets, ok = cfg.Store.(QuerysetProvider[M]); !ok && caps&capList != 0 {
		return nil, improperlyConfigured("'%s' store %T does not provide a queryset", v.name, cfg.Store)
	}
	if v.creator, ok = cfg.Store.(Creator[M]); !ok && caps&capCreate != 0 {
		return nil, improperlyConfigured("'%s' store %T cannot create entities", v.name, cfg.Store)
	}
	if v.updater, ok = cfg.Store.(Updater[M]); !ok && caps&capUpdate != 0 {
		return nil, improperlyConfigured("'%s' store %T cannot update entities", v.name, cfg.Store)
	}
	if v.destroyer, ok = cfg.Store.(Destroyer[M]); !ok && caps&capDestroy != 0 {
		return nil, improperlyConfigured("'%s' store %T cannot delete entities", v.name, cfg.Store)
	}

	return v, nil
}

// Name returns the view name used in errors and logs.
func (v *GenericView[M]) Name() string {
	return v.name
}

// LookupParam returns the route param holding the entity key.
func (v *GenericView[M]) LookupParam() string {
	return v.lookupParam
}

// SerializerClassFor returns the fallback class for the request.
func (v *GenericView[M]) SerializerClassFor(c *gin.Context) (SerializerClass[M], error) {
	if v.serializerFor != nil {
		if cls := v.serializerFor(c); cls != nil {
			return cls, nil
		}
	}
	if v.serializerClass == nil {
		return nil, improperlyConfigured(
			"'%s' should either include one of SerializerClass and ReadSerializerClass "+
				"or WriteSerializerClass, or return a class from one of the selectors", v.name)
	}
	return v.serializerClass, nil
}

// ReadSerializerClass returns the class that encodes output for the request.
func (v *GenericView[M]) ReadSerializerClass(c *gin.Context) (ReadSerializerClass[M], error) {
	if v.readSerializerFor != nil {
		if cls := v.readSerializerFor(c); cls != nil {
			return cls, nil
		}
	}
	if v.readSerializerClass != nil {
		return v.readSerializerClass, nil
	}
	cls, err := v.SerializerClassFor(c)
	if err != nil {
		return nil, err
	}
	return cls, nil
}

// WriteSerializerClass returns the class that validates input for the request.
func (v *GenericView[M]) WriteSerializerClass(c *gin.Context) (WriteSerializerClass[M], error) {
	if v.writeSerializerFor != nil {
		if cls := v.writeSerializerFor(c); cls != nil {
			return cls, nil
		}
	}
	if v.writeSerializerClass != nil {
		return v.writeSerializerClass, nil
	}
	cls, err := v.SerializerClassFor(c)
	if err != nil {
		return nil, err
	}
	return cls, nil
}

// ReadSerializer builds the output serializer for the request.
func (v *GenericView[M]) ReadSerializer(c *gin.Context) (ReadSerializer[M], error) {
	cls, err := v.ReadSerializerClass(c)
	if err != nil {
		return nil, err
	}
	return cls.NewReadSerializer(v.SerializerContext(c)), nil
}

// WriteSerializer builds the input serializer for the request.
func (v *GenericView[M]) WriteSerializer(c *gin.Context) (WriteSerializer[M], error) {
	cls, err := v.WriteSerializerClass(c)
	if err != nil {
		return nil, err
	}
	return cls.NewWriteSerializer(v.SerializerContext(c)), nil
}

// SerializerContext describes the request to serializers.
func (v *GenericView[M]) SerializerContext(c *gin.Context) SerializerContext {
	return SerializerContext{
		Request: c.Request,
		View:    v,
		Format:  requestFormat(c),
	}
}

func requestFormat(c *gin.Context) string {
	if f := c.Query("format"); f != "" {
		return f
	}
	switch c.NegotiateFormat(gin.MIMEJSON, gin.MIMEXML, gin.MIMEYAML) {
	case gin.MIMEXML:
		return "xml"
	case gin.MIMEYAML:
		return "yaml"
	default:
		return "json"
	}
}

// GetObject looks up the entity named by the request's lookup param.
func (v *GenericView[M]) GetObject(c *gin.Context) (M, error) {
	if v.getter == nil {
		var zero M
		return zero, improperlyConfigured("'%s' has no store that can look up entities", v.name)
	}
	lookup := c.Param(v.lookupParam)
	if lookup == "" {
		var zero M
		return zero, errors.Wrapf(ErrNotFound, "%s: empty %q", v.name, v.lookupParam)
	}
	return v.getter.Get(c.Request.Context(), lookup)
}

// FilteredQueryset returns the base queryset narrowed by every filter backend.
func (v *GenericView[M]) FilteredQueryset(c *gin.Context) (Queryset[M], error) {
	if v.querysets == nil {
		return nil, improperlyConfigured("'%s' has no store that provides a queryset", v.name)
	}
	qs, err := v.querysets.Queryset(c)
	if err != nil {
		return nil, err
	}
	for _, f := range v.filters {
		if qs, err = f.FilterQueryset(c, qs); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// SuccessHeaders returns the headers sent with a 201 response.
func (v *GenericView[M]) SuccessHeaders(data any) http.Header {
	h := http.Header{}
	switch rep := data.(type) {
	case Locator:
		if loc := rep.Location(); loc != "" {
			h.Set("Location", loc)
		}
	case map[string]any:
		if loc, ok := rep[v.urlField]; ok && loc != nil {
			h.Set("Location", fmt.Sprint(loc))
		}
	case gin.H:
		if loc, ok := rep[v.urlField]; ok && loc != nil {
			h.Set("Location", fmt.Sprint(loc))
		}
	}
	return h
}
