package db

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"gin-rw-views/pkg/rwviews"
)

// Group is a named set of users.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GroupStore serves groups to the views. Groups are read only over HTTP.
type GroupStore struct {
	s *Store
}

func (gs *GroupStore) Get(ctx context.Context, lookup string) (Group, error) {
	id, err := parseID(lookup)
	if err != nil {
		return Group{}, err
	}

	var g Group
	err = gs.s.pool.QueryRow(ctx, `SELECT id, name FROM groups WHERE id = $1`, id).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, errors.Wrapf(rwviews.ErrNotFound, "group %d", id)
		}
		return Group{}, errors.Wrap(err, "select group")
	}
	return g, nil
}

func (gs *GroupStore) Queryset(*gin.Context) (rwviews.Queryset[Group], error) {
	return groupQueryset{s: gs.s}, nil
}

// GroupsByID loads the named groups ordered by id. Unknown ids are skipped.
func (gs *GroupStore) GroupsByID(ctx context.Context, ids []int) ([]Group, error) {
	if len(ids) == 0 {
		return []Group{}, nil
	}
	rows, err := gs.s.pool.Query(ctx, `SELECT id, name FROM groups WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select groups")
	}
	groups, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Group])
	return groups, errors.Wrap(err, "scan groups")
}

type groupQueryset struct {
	s *Store
}

func (q groupQueryset) Count(ctx context.Context) (int, error) {
	var n int
	err := q.s.pool.QueryRow(ctx, `SELECT count(*) FROM groups`).Scan(&n)
	return n, errors.Wrap(err, "count groups")
}

func (q groupQueryset) Fetch(ctx context.Context, offset, limit int) ([]Group, error) {
	var lim any
	if limit >= 0 {
		lim = limit
	}
	rows, err := q.s.pool.Query(ctx, `SELECT id, name FROM groups ORDER BY id OFFSET $1 LIMIT $2`, offset, lim)
	if err != nil {
		return nil, errors.Wrap(err, "select groups")
	}
	groups, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Group])
	return groups, errors.Wrap(err, "scan groups")
}
