package db

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gin-rw-views/internal/cache"
	"gin-rw-views/pkg/rwviews"
)

// Store encapsulates database access.
type Store struct {
	pool  *pgxpool.Pool
	cache cache.Cache
	log   *zap.Logger
}

// NewStore connects to PostgreSQL using the provided DSN. Group memberships
// are read through c.
func NewStore(ctx context.Context, dsn string, c cache.Cache, log *zap.Logger) (*Store, error) {
	if c == nil {
		return nil, errors.New("membership cache is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	return &Store{pool: pool, cache: c, log: log}, nil
}

// Close releases the connection pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("store not initialized")
	}
	return s.pool.Ping(ctx)
}

// Users returns the user store.
func (s *Store) Users() *UserStore {
	return &UserStore{s: s}
}

// Groups returns the group store.
func (s *Store) Groups() *GroupStore {
	return &GroupStore{s: s}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS groups (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
    user_id  INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    group_id INTEGER NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
    PRIMARY KEY (user_id, group_id)
)`,
}

// Init ensures schema exists and seeds baseline data.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("store not initialized")
	}

	for _, ddl := range schema {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "create table")
		}
	}

	groups := []Group{
		{ID: 1, Name: "admins"},
		{ID: 2, Name: "editors"},
		{ID: 3, Name: "viewers"},
	}
	for _, g := range groups {
		if _, err := s.pool.Exec(ctx, `INSERT INTO groups (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, g.ID, g.Name); err != nil {
			return errors.Wrapf(err, "seed group %d", g.ID)
		}
	}

	users := []User{
		{Name: "Ada Lovelace", Email: "ada@example.com", GroupIDs: []int{1, 2}},
		{Name: "Grace Hopper", Email: "grace@example.com", GroupIDs: []int{2}},
		{Name: "Alan Turing", Email: "alan@example.com", GroupIDs: []int{3}},
	}
	for _, u := range users {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var id int
			err := tx.QueryRow(ctx, `
                INSERT INTO users (name, email) VALUES ($1, $2)
                ON CONFLICT (email) DO NOTHING
                RETURNING id
            `, u.Name, u.Email).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return err
			}
			return replaceMemberships(ctx, tx, id, u.GroupIDs)
		})
		if err != nil {
			return errors.Wrapf(err, "seed user %s", u.Email)
		}
	}

	return nil
}

func replaceMemberships(ctx context.Context, tx pgx.Tx, userID int, groupIDs []int) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "clear memberships")
	}
	if len(groupIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO user_groups (user_id, group_id)
        SELECT $1, g FROM unnest($2::int[]) AS g
        ON CONFLICT DO NOTHING
    `, userID, groupIDs)
	return errors.Wrap(err, "insert memberships")
}

// parseID turns a lookup value into a primary key. Anything that is not a
// positive integer cannot name a row.
func parseID(lookup string) (int, error) {
	id, err := strconv.Atoi(lookup)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(rwviews.ErrNotFound, "invalid id %q", lookup)
	}
	return id, nil
}

// translateError maps constraint violations to field errors clients can fix.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		if pgErr.ConstraintName == "users_email_key" {
			verr := rwviews.NewValidationError()
			verr.Add("email", "user with this email already exists.")
			return verr
		}
	case "23503":
		if pgErr.ConstraintName == "user_groups_group_id_fkey" {
			verr := rwviews.NewValidationError()
			verr.Add("group_ids", "Invalid pk - object does not exist.")
			return verr
		}
	}
	return err
}
