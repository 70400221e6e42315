// Package repository implements persistence for per-user wrapped data keys.
// Both PostgreSQL and MySQL are supported; the primary key on user_id provides the
// uniqueness guarantee that lazy provisioning relies on.
package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/nemory/userkeys/internal/database"
	apperrors "github.com/nemory/userkeys/internal/errors"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

const userKeysTable = "user_keys"

var userKeyColumns = []string{"user_id", "wrapped_dek", "key_version", "created_at", "updated_at"}

// PostgreSQLUserKeyRepository implements UserKey persistence for PostgreSQL databases.
type PostgreSQLUserKeyRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewPostgreSQLUserKeyRepository creates a new PostgreSQL UserKey repository.
func NewPostgreSQLUserKeyRepository(db *sql.DB) *PostgreSQLUserKeyRepository {
	return &PostgreSQLUserKeyRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a freshly provisioned key. A primary key violation means another
// writer got there first and is reported as ErrConcurrentProvisioning.
func (p *PostgreSQLUserKeyRepository) Create(ctx context.Context, key *userkeyDomain.UserKey) error {
	querier := database.GetTx(ctx, p.db)

	query, args, err := p.builder.
		Insert(userKeysTable).
		Columns(userKeyColumns...).
		Values(key.UserID, key.WrappedDEK, key.KeyVersion, key.CreatedAt, key.UpdatedAt).
		ToSql()
	if err != nil {
		return apperrors.Wrap(err, "failed to build user key insert")
	}

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return userkeyDomain.ErrConcurrentProvisioning
		}
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// FindByUserID returns the user's key record or ErrUserKeyNotFound.
func (p *PostgreSQLUserKeyRepository) FindByUserID(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	querier := database.GetTx(ctx, p.db)
	return findUserKey(ctx, querier, p.builder.
		Select(userKeyColumns...).
		From(userKeysTable).
		Where(sq.Eq{"user_id": userID}))
}

// FindByUserIDForUpdate is FindByUserID with a row lock held until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (p *PostgreSQLUserKeyRepository) FindByUserIDForUpdate(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	querier := database.GetTx(ctx, p.db)
	return findUserKey(ctx, querier, p.builder.
		Select(userKeyColumns...).
		From(userKeysTable).
		Where(sq.Eq{"user_id": userID}).
		Suffix("FOR UPDATE"))
}

// UpdateWrappedDEK replaces the wrapped key and bumps the version, but only if the
// stored version still equals expectedVersion.
func (p *PostgreSQLUserKeyRepository) UpdateWrappedDEK(
	ctx context.Context,
	key *userkeyDomain.UserKey,
	expectedVersion int,
) error {
	querier := database.GetTx(ctx, p.db)

	query, args, err := p.builder.
		Update(userKeysTable).
		Set("wrapped_dek", key.WrappedDEK).
		Set("key_version", key.KeyVersion).
		Set("updated_at", key.UpdatedAt).
		Where(sq.Eq{"user_id": key.UserID, "key_version": expectedVersion}).
		ToSql()
	if err != nil {
		return apperrors.Wrap(err, "failed to build user key update")
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update user key")
	}

	return checkRotated(result)
}

func findUserKey(
	ctx context.Context,
	querier database.Querier,
	selectBuilder sq.SelectBuilder,
) (*userkeyDomain.UserKey, error) {
	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build user key select")
	}

	var key userkeyDomain.UserKey
	err = querier.QueryRowContext(ctx, query, args...).Scan(
		&key.UserID,
		&key.WrappedDEK,
		&key.KeyVersion,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userkeyDomain.ErrUserKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user key")
	}

	return &key, nil
}

func checkRotated(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return userkeyDomain.ErrKeyVersionConflict
	}
	return nil
}

func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}
