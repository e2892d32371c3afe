package api

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gin-rw-views/internal/db"
	"gin-rw-views/pkg/rwviews"
)

// UserStore is everything the user endpoints need from storage.
type UserStore interface {
	rwviews.ReadStore[db.User]
	rwviews.Creator[db.User]
	rwviews.Updater[db.User]
	rwviews.Destroyer[db.User]
}

// GroupStore is everything the group endpoints need from storage.
type GroupStore interface {
	rwviews.ReadStore[db.Group]
	GroupLookup
}

// Options wires the API to its stores.
type Options struct {
	Users  UserStore
	Groups GroupStore

	// PageSize is the default page size of both collections.
	PageSize    int
	MaxPageSize int
	// BcryptCost is passed to the password hashing serializers.
	BcryptCost int

	// Health reports whether backing services are reachable. Optional.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

// AdminRoleHeader selects the admin representation of users when it carries
// the value "admin".
const AdminRoleHeader = "X-Role"

const (
	usersPath  = "/users"
	groupsPath = "/groups"
	signupPath = "/signup"
)

// Register mounts every endpoint on r.
func Register(r gin.IRouter, opts Options) error {
	if opts.Users == nil || opts.Groups == nil {
		return errors.New("api: user and group stores are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	userRead := UserReadSerializer{Groups: opts.Groups, Path: usersPath}
	adminRead := AdminUserReadSerializer{Groups: opts.Groups, Path: usersPath}

	users, err := rwviews.NewModelViewSet(rwviews.Config[db.User]{
		Name:                 "UserViewSet",
		ReadSerializerClass:  userRead,
		WriteSerializerClass: UserWriteSerializer{Cost: opts.BcryptCost},
		ReadSerializerFor: func(c *gin.Context) rwviews.ReadSerializerClass[db.User] {
			if c.GetHeader(AdminRoleHeader) == "admin" {
				return adminRead
			}
			return nil
		},
		Store:   opts.Users,
		Filters: []rwviews.FilterBackend[db.User]{NameSearch("search", func(u db.User) string { return u.Name })},
		Paginator: &rwviews.PageNumberPagination{
			PageSize:           opts.PageSize,
			PageSizeQueryParam: "page_size",
			MaxPageSize:        opts.MaxPageSize,
		},
		Logger: opts.Logger,
	})
	if err != nil {
		return err
	}

	groups, err := rwviews.NewReadOnlyModelViewSet(rwviews.Config[db.Group]{
		Name:            "GroupViewSet",
		SerializerClass: GroupSerializer{Path: groupsPath},
		Store:           opts.Groups,
		Paginator: &rwviews.LimitOffsetPagination{
			DefaultLimit: opts.PageSize,
			MaxLimit:     opts.MaxPageSize,
		},
		Logger: opts.Logger,
	})
	if err != nil {
		return err
	}

	signup, err := rwviews.NewCreateAPIView(rwviews.Config[db.User]{
		Name:                 "SignupView",
		ReadSerializerClass:  userRead,
		WriteSerializerClass: SignupWriteSerializer{Cost: opts.BcryptCost},
		Store:                opts.Users,
		Logger:               opts.Logger,
	})
	if err != nil {
		return err
	}

	users.Register(r, usersPath)
	groups.Register(r, groupsPath)
	signup.Register(r, signupPath)
	r.GET("/healthz", healthHandler(opts.Health, opts.Logger))
	return nil
}

func healthHandler(check func(ctx context.Context) error, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "version": rwviews.Version})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": rwviews.Version})
	}
}
