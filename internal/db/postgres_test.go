package db

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"gin-rw-views/internal/cache"
	"gin-rw-views/pkg/rwviews"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping integration test, POSTGRES_DSN not set")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l2, err := cache.NewRedisCache(client, "")
	require.NoError(t, err)
	c, err := cache.NewMultiLevelCache(nil, l2, cache.JSONCodec{}, cache.Config{Mode: cache.ModeL2Only})
	require.NoError(t, err)

	ctx := context.Background()
	store, err := NewStore(ctx, dsn, c, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	if err := store.Ping(ctx); err != nil {
		t.Skipf("skipping integration test, postgres unreachable: %v", err)
	}
	require.NoError(t, store.Init(ctx))
	return store, mr
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func TestIntegrationUserLifecycle(t *testing.T) {
	store, mr := setupStore(t)
	users := store.Users()
	ctx := context.Background()

	created, err := users.Create(ctx, User{Name: "Barbara Liskov", Email: uniqueEmail("barbara"), GroupIDs: []int{1, 3}})
	require.NoError(t, err)
	require.Positive(t, created.ID)
	lookup := strconv.Itoa(created.ID)

	got, err := users.Get(ctx, lookup)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, got.GroupIDs)
	groups, ok := got.PrefetchedGroups()
	require.True(t, ok)
	require.Equal(t, []Group{{ID: 1, Name: "admins"}, {ID: 3, Name: "viewers"}}, groups)
	require.True(t, mr.Exists(membershipKey(created.ID)), "memberships are cached after a read")

	_, err = users.Update(ctx, got.WithGroupIDs([]int{2}))
	require.NoError(t, err)
	require.False(t, mr.Exists(membershipKey(created.ID)), "update evicts the cached memberships")

	got, err = users.Get(ctx, lookup)
	require.NoError(t, err)
	require.Equal(t, []int{2}, got.GroupIDs)

	// A lagging cache entry must not be written back by an update that leaves
	// memberships alone.
	require.NoError(t, mr.Set(membershipKey(created.ID), "[1,3]"))
	stale, err := users.Get(ctx, lookup)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, stale.GroupIDs)
	stale.Name = "Barbara H. Liskov"
	updated, err := users.Update(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, []int{2}, updated.GroupIDs)

	got, err = users.Get(ctx, lookup)
	require.NoError(t, err)
	require.Equal(t, "Barbara H. Liskov", got.Name)
	require.Equal(t, []int{2}, got.GroupIDs)

	require.NoError(t, users.Delete(ctx, got))
	_, err = users.Get(ctx, lookup)
	require.True(t, errors.Is(err, rwviews.ErrNotFound))
	require.True(t, errors.Is(users.Delete(ctx, got), rwviews.ErrNotFound))
}

func TestIntegrationConstraintViolationsAreFieldErrors(t *testing.T) {
	store, _ := setupStore(t)
	users := store.Users()
	ctx := context.Background()

	email := uniqueEmail("dup")
	first, err := users.Create(ctx, User{Name: "First", Email: email})
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Delete(context.Background(), first) })

	_, err = users.Create(ctx, User{Name: "Second", Email: email})
	var verr *rwviews.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Contains(t, verr.Fields, "email")

	_, err = users.Create(ctx, User{Name: "Third", Email: uniqueEmail("third"), GroupIDs: []int{999}})
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Contains(t, verr.Fields, "group_ids")
}

func TestIntegrationUserQuerysetSearchAndWindow(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	qs, err := store.Users().Queryset(nil)
	require.NoError(t, err)

	all, err := qs.Fetch(ctx, 0, -1)
	require.NoError(t, err)
	total, err := qs.Count(ctx)
	require.NoError(t, err)
	require.Len(t, all, total)

	window, err := qs.Fetch(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, window, 1)
	require.Equal(t, all[1].ID, window[0].ID)

	found, err := qs.(*UserQueryset).Search("hopper").Fetch(ctx, 0, -1)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	for _, u := range found {
		require.Contains(t, u.Name, "Hopper")
		_, ok := u.PrefetchedGroups()
		require.True(t, ok)
	}
}

func TestIntegrationGroups(t *testing.T) {
	store, _ := setupStore(t)
	groups := store.Groups()
	ctx := context.Background()

	g, err := groups.Get(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, Group{ID: 2, Name: "editors"}, g)

	_, err = groups.Get(ctx, "nope")
	require.True(t, errors.Is(err, rwviews.ErrNotFound))

	byID, err := groups.GroupsByID(ctx, []int{3, 1, 404})
	require.NoError(t, err)
	require.Equal(t, []Group{{ID: 1, Name: "admins"}, {ID: 3, Name: "viewers"}}, byID)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("12")
	require.NoError(t, err)
	require.Equal(t, 12, id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID(bad)
		require.True(t, errors.Is(err, rwviews.ErrNotFound), bad)
	}
}

func TestInvalidateDropsPrefetchedGroups(t *testing.T) {
	t.Parallel()

	u := User{ID: 1}.WithGroups([]Group{{ID: 1, Name: "admins"}})
	_, ok := u.PrefetchedGroups()
	require.True(t, ok)

	u.InvalidatePrefetchedObjects()
	groups, ok := u.PrefetchedGroups()
	require.False(t, ok)
	require.Nil(t, groups)
}
