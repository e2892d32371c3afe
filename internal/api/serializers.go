package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"gin-rw-views/internal/db"
	"gin-rw-views/pkg/rwviews"
)

// GroupLookup loads groups for users whose groups were not prefetched.
type GroupLookup interface {
	GroupsByID(ctx context.Context, ids []int) ([]db.Group, error)
}

// UserReadSerializer renders users for clients. The password hash and email
// are never part of it.
type UserReadSerializer struct {
	Groups GroupLookup
	// Path is the collection path used to build each user's url.
	Path string
}

func (s UserReadSerializer) NewReadSerializer(sc rwviews.SerializerContext) rwviews.ReadSerializer[db.User] {
	return userReader{sc: sc, groups: s.Groups, path: s.Path}
}

// AdminUserReadSerializer adds the email address to the user representation.
type AdminUserReadSerializer struct {
	Groups GroupLookup
	Path   string
}

func (s AdminUserReadSerializer) NewReadSerializer(sc rwviews.SerializerContext) rwviews.ReadSerializer[db.User] {
	return userReader{sc: sc, groups: s.Groups, path: s.Path, admin: true}
}

type userReader struct {
	sc     rwviews.SerializerContext
	groups GroupLookup
	path   string
	admin  bool
}

func (r userReader) ToRepresentation(ctx context.Context, u db.User) (any, error) {
	groups, ok := u.PrefetchedGroups()
	if !ok {
		var err error
		if groups, err = r.groups.GroupsByID(ctx, u.GroupIDs); err != nil {
			return nil, errors.Wrapf(err, "groups of user %d", u.ID)
		}
	}
	if groups == nil {
		groups = []db.Group{}
	}

	rep := map[string]any{
		"id":     u.ID,
		"url":    r.sc.AbsoluteURL(fmt.Sprintf("%s/%d", strings.TrimRight(r.path, "/"), u.ID)),
		"name":   u.Name,
		"groups": groups,
	}
	if r.admin {
		rep["email"] = u.Email
	}
	return rep, nil
}

type userInput struct {
	Name     *string `json:"name" validate:"required,min=1,max=150"`
	Email    *string `json:"email" validate:"required,email,max=254"`
	Password *string `json:"password" validate:"required,min=8,max=72"`
	GroupIDs []int   `json:"group_ids" validate:"max=10"`
}

// UserWriteSerializer validates user payloads. The password is write only and
// stored as a bcrypt hash.
type UserWriteSerializer struct {
	// Cost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	Cost int
}

func (s UserWriteSerializer) NewWriteSerializer(rwviews.SerializerContext) rwviews.WriteSerializer[db.User] {
	return userWriter{cost: s.Cost}
}

type userWriter struct {
	cost int
}

func (w userWriter) Validate(_ context.Context, payload []byte, instance *db.User, partial bool) (db.User, error) {
	var in userInput
	if err := rwviews.DecodeAndValidate(payload, &in, partial); err != nil {
		return db.User{}, err
	}

	var out db.User
	if instance != nil {
		out = *instance
	}
	if in.Name != nil {
		out.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		out.Email = strings.ToLower(*in.Email)
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password, w.cost)
		if err != nil {
			return db.User{}, err
		}
		out.PasswordHash = hash
	}
	if in.GroupIDs != nil || !partial {
		out = out.WithGroupIDs(lo.Uniq(in.GroupIDs))
	}
	return out, nil
}

type signupInput struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignupWriteSerializer accepts self registration. Group membership cannot be
// chosen by the new user.
type SignupWriteSerializer struct {
	Cost int
}

func (s SignupWriteSerializer) NewWriteSerializer(rwviews.SerializerContext) rwviews.WriteSerializer[db.User] {
	return signupWriter{cost: s.Cost}
}

type signupWriter struct {
	cost int
}

func (w signupWriter) Validate(_ context.Context, payload []byte, _ *db.User, _ bool) (db.User, error) {
	var in signupInput
	if err := rwviews.DecodeAndValidate(payload, &in, false); err != nil {
		return db.User{}, err
	}
	hash, err := hashPassword(in.Password, w.cost)
	if err != nil {
		return db.User{}, err
	}
	return db.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		GroupIDs:     []int{},
	}, nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			verr := rwviews.NewValidationError()
			verr.Add("password", "Ensure this field has no more than 72 bytes.")
			return "", verr
		}
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// GroupSerializer renders and validates groups in both directions.
type GroupSerializer struct {
	Path string
}

func (s GroupSerializer) NewReadSerializer(sc rwviews.SerializerContext) rwviews.ReadSerializer[db.Group] {
	return groupSerializer{sc: sc, path: s.Path}
}

func (s GroupSerializer) NewWriteSerializer(sc rwviews.SerializerContext) rwviews.WriteSerializer[db.Group] {
	return groupSerializer{sc: sc, path: s.Path}
}

type groupSerializer struct {
	sc   rwviews.SerializerContext
	path string
}

func (s groupSerializer) ToRepresentation(_ context.Context, g db.Group) (any, error) {
	return map[string]any{
		"id":   g.ID,
		"url":  s.sc.AbsoluteURL(fmt.Sprintf("%s/%d", strings.TrimRight(s.path, "/"), g.ID)),
		"name": g.Name,
	}, nil
}

type groupInput struct {
	Name *string `json:"name" validate:"required,min=1,max=80"`
}

func (s groupSerializer) Validate(_ context.Context, payload []byte, instance *db.Group, partial bool) (db.Group, error) {
	var in groupInput
	if err := rwviews.DecodeAndValidate(payload, &in, partial); err != nil {
		return db.Group{}, err
	}
	var out db.Group
	if instance != nil {
		out = *instance
	}
	if in.Name != nil {
		out.Name = *in.Name
	}
	return out, nil
}
