// Package pgstore provides PostgreSQL-backed implementations of the authz
// store interfaces, with embedded schema migrations.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/authz"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	ConnectionString string        `env:"PG_CONN_URL,required"`              // ConnectionString is the database connection URL.
	MaxConns         int32         `env:"PG_MAX_CONNS" envDefault:"10"`      // MaxConns is the maximum number of pooled connections.
	MinConns         int32         `env:"PG_MIN_CONNS" envDefault:"2"`       // MinConns is the number of connections kept open when idle.
	RetryAttempts    int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of connection attempts before giving up.
	RetryInterval    time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"` // RetryInterval is the base wait between attempts.
}

// Connection errors.
var (
	ErrFailedToParseConfig = errors.New("pgstore.failed_to_parse_config")
	ErrFailedToConnect     = errors.New("pgstore.failed_to_connect")
)

// Connect establishes a pgx connection pool with linear-backoff retry,
// verifying connectivity with a ping before returning.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrFailedToConnect
}

// Store implements authz.RoleStore, authz.UserStore, and authz.ShareStore
// over PostgreSQL. It only reads; role, user, and share administration is
// owned by the surrounding application.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on an existing pool. The caller owns the pool lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindRoleByID returns the role or (nil, nil) when absent.
func (s *Store) FindRoleByID(ctx context.Context, id uuid.UUID) (*authz.Role, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, parent_role_id, deleted FROM authz_roles WHERE id = $1`, id)
	return scanRole(row)
}

// FindRoleByName returns the role with the exact name or (nil, nil).
func (s *Store) FindRoleByName(ctx context.Context, name string) (*authz.Role, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, parent_role_id, deleted FROM authz_roles WHERE name = $1`, name)
	return scanRole(row)
}

// scanRole reads a role row, mapping pgx.ErrNoRows to (nil, nil).
func scanRole(row pgx.Row) (*authz.Role, error) {
	var role authz.Role
	err := row.Scan(&role.ID, &role.Name, &role.ParentID, &role.Deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// GetRoleClaims returns the role's direct claims.
func (s *Store) GetRoleClaims(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT claim FROM authz_role_claims WHERE role_id = $1 ORDER BY claim`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// FindUserByID returns the user or (nil, nil) when absent.
func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*authz.User, error) {
	var user authz.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM authz_users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserRoles returns the user's assigned role ids.
func (s *Store) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_id FROM authz_user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// FindShare returns the share for the triple or (nil, nil).
func (s *Store) FindShare(ctx context.Context, resourceType string, resourceID, userID uuid.UUID) (*authz.Share, error) {
	var share authz.Share
	err := s.pool.QueryRow(ctx,
		`SELECT resource_type, resource_id, user_id, level
		   FROM authz_resource_shares
		  WHERE resource_type = $1 AND resource_id = $2 AND user_id = $3`,
		resourceType, resourceID, userID).
		Scan(&share.ResourceType, &share.ResourceID, &share.UserID, &share.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ListShares returns all shares of the given resource type held by the user.
func (s *Store) ListShares(ctx context.Context, userID uuid.UUID, resourceType string) ([]authz.Share, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT resource_type, resource_id, user_id, level
		   FROM authz_resource_shares
		  WHERE user_id = $1 AND resource_type = $2
		  ORDER BY resource_id`,
		userID, resourceType)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (authz.Share, error) {
		var share authz.Share
		err := row.Scan(&share.ResourceType, &share.ResourceID, &share.UserID, &share.Level)
		return share, err
	})
}
