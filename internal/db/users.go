package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"gin-rw-views/internal/cache"
	"gin-rw-views/pkg/rwviews"
)

// User represents the persisted user entity.
type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
	GroupIDs     []int

	groups        []Group
	groupsFetched bool
	groupsChanged bool
}

// WithGroupIDs returns u with its memberships replaced by ids. Only users
// built this way have their memberships rewritten by UserStore.Update.
func (u User) WithGroupIDs(ids []int) User {
	u.GroupIDs = ids
	u.groupsChanged = true
	return u
}

// GroupIDsChanged reports whether GroupIDs was set through WithGroupIDs.
func (u User) GroupIDsChanged() bool {
	return u.groupsChanged
}

// WithGroups returns u carrying groups as its prefetched relation.
func (u User) WithGroups(groups []Group) User {
	u.groups = groups
	u.groupsFetched = true
	return u
}

// PrefetchedGroups returns the groups loaded together with the user, if any.
func (u User) PrefetchedGroups() ([]Group, bool) {
	return u.groups, u.groupsFetched
}

// InvalidatePrefetchedObjects drops the loaded groups so they are read again.
func (u *User) InvalidatePrefetchedObjects() {
	u.groups = nil
	u.groupsFetched = false
}

func membershipKey(userID int) string {
	return fmt.Sprintf("user:%d:groups", userID)
}

// UserStore serves users to the views.
type UserStore struct {
	s *Store
}

// Get fetches a user by id with its groups prefetched.
func (us *UserStore) Get(ctx context.Context, lookup string) (User, error) {
	id, err := parseID(lookup)
	if err != nil {
		return User{}, err
	}

	var user User
	err = us.s.pool.QueryRow(ctx, `SELECT id, name, email, password_hash FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errors.Wrapf(rwviews.ErrNotFound, "user %d", id)
		}
		return User{}, errors.Wrap(err, "select user")
	}

	if user.GroupIDs, err = us.groupIDs(ctx, id); err != nil {
		return User{}, err
	}
	groups, err := us.s.Groups().GroupsByID(ctx, user.GroupIDs)
	if err != nil {
		return User{}, err
	}
	return user.WithGroups(groups), nil
}

// groupIDs reads a user's memberships through the cache.
func (us *UserStore) groupIDs(ctx context.Context, userID int) ([]int, error) {
	return us.cachedGroupIDs(ctx, userID, func(ctx context.Context) ([]int, error) {
		return selectMemberships(ctx, us.s.pool, userID)
	})
}

// cachedGroupIDs returns the cached memberships of userID, calling load and
// caching its result on a miss. Cache failures are logged and never fail the
// read.
func (us *UserStore) cachedGroupIDs(ctx context.Context, userID int, load func(context.Context) ([]int, error)) ([]int, error) {
	key := membershipKey(userID)

	var ids []int
	found, err := us.s.cache.Get(ctx, key, &ids, cache.Options{})
	if err != nil {
		us.s.log.Warn("membership cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return ids, nil
	}

	ids, err = load(ctx)
	if err != nil {
		return nil, err
	}

	if err := us.s.cache.Set(ctx, key, ids, cache.Options{}); err != nil {
		us.s.log.Warn("membership cache write failed", zap.String("key", key), zap.Error(err))
	}
	return ids, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func selectMemberships(ctx context.Context, q querier, userID int) ([]int, error) {
	rows, err := q.Query(ctx, `SELECT group_id FROM user_groups WHERE user_id = $1 ORDER BY group_id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "select memberships")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, errors.Wrap(err, "scan memberships")
	}
	return ids, nil
}

func (us *UserStore) evict(ctx context.Context, userID int) {
	key := membershipKey(userID)
	if err := us.s.cache.Delete(ctx, key); err != nil {
		us.s.log.Warn("membership cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

// Queryset returns every user ordered by id.
func (us *UserStore) Queryset(*gin.Context) (rwviews.Queryset[User], error) {
	return &UserQueryset{s: us.s}, nil
}

// Create inserts the user and its memberships.
func (us *UserStore) Create(ctx context.Context, user User) (User, error) {
	err := pgx.BeginFunc(ctx, us.s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
            RETURNING id
        `, user.Name, user.Email, user.PasswordHash).Scan(&user.ID)
		if err != nil {
			return err
		}
		return replaceMemberships(ctx, tx, user.ID, user.GroupIDs)
	})
	if err != nil {
		return User{}, errors.Wrap(translateError(err), "create user")
	}
	us.evict(ctx, user.ID)
	if user.GroupIDs == nil {
		user.GroupIDs = []int{}
	}
	return user, nil
}

// Update writes every column of user. Memberships are replaced only when they
// were set with WithGroupIDs, otherwise they are read back from the
// transaction so a stale cached set is never written. The cached membership
// set is evicted once the transaction commits.
func (us *UserStore) Update(ctx context.Context, user User) (User, error) {
	err := pgx.BeginFunc(ctx, us.s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE users
               SET name = $2, email = $3, password_hash = $4
             WHERE id = $1
        `, user.ID, user.Name, user.Email, user.PasswordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(rwviews.ErrNotFound, "user %d", user.ID)
		}
		if user.GroupIDsChanged() {
			return replaceMemberships(ctx, tx, user.ID, user.GroupIDs)
		}
		user.GroupIDs, err = selectMemberships(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return User{}, errors.Wrap(translateError(err), "update user")
	}
	us.evict(ctx, user.ID)
	user.groupsChanged = false
	return user, nil
}

// Delete removes the user. Memberships cascade.
func (us *UserStore) Delete(ctx context.Context, user User) error {
	tag, err := us.s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(rwviews.ErrNotFound, "user %d", user.ID)
	}
	us.evict(ctx, user.ID)
	return nil
}

// UserQueryset is a lazily evaluated selection of users.
type UserQueryset struct {
	s      *Store
	search string
}

// Search narrows the selection to users whose name contains term, ignoring
// case.
func (q *UserQueryset) Search(term string) rwviews.Queryset[User] {
	return &UserQueryset{s: q.s, search: strings.TrimSpace(term)}
}

func (q *UserQueryset) Count(ctx context.Context) (int, error) {
	var n int
	err := q.s.pool.QueryRow(ctx, `
        SELECT count(*) FROM users
         WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
    `, q.search).Scan(&n)
	return n, errors.Wrap(err, "count users")
}

// Fetch loads a window of users and prefetches their groups with one extra
// query.
func (q *UserQueryset) Fetch(ctx context.Context, offset, limit int) ([]User, error) {
	var lim any
	if limit >= 0 {
		lim = limit
	}

	rows, err := q.s.pool.Query(ctx, `
        SELECT u.id, u.name, u.email, u.password_hash,
               COALESCE(array_agg(ug.group_id ORDER BY ug.group_id)
                        FILTER (WHERE ug.group_id IS NOT NULL), '{}')
          FROM users u
          LEFT JOIN user_groups ug ON ug.user_id = u.id
         WHERE $1 = '' OR u.name ILIKE '%' || $1 || '%'
         GROUP BY u.id
         ORDER BY u.id
        OFFSET $2
         LIMIT $3
    `, q.search, offset, lim)
	if err != nil {
		return nil, errors.Wrap(err, "select users")
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var (
			u   User
			ids []int32
		)
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &ids)
		u.GroupIDs = lo.Map(ids, func(id int32, _ int) int { return int(id) })
		return u, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan users")
	}

	allIDs := lo.Uniq(lo.FlatMap(users, func(u User, _ int) []int { return u.GroupIDs }))
	groups, err := q.s.Groups().GroupsByID(ctx, allIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(groups, func(g Group) int { return g.ID })
	for i, u := range users {
		users[i] = u.WithGroups(lo.FilterMap(u.GroupIDs, func(id int, _ int) (Group, bool) {
			g, ok := byID[id]
			return g, ok
		}))
	}
	return users, nil
}
