package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/nemory/userkeys/internal/database"
	apperrors "github.com/nemory/userkeys/internal/errors"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLUserKeyRepository implements UserKey persistence for MySQL databases.
type MySQLUserKeyRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewMySQLUserKeyRepository creates a new MySQL UserKey repository.
func NewMySQLUserKeyRepository(db *sql.DB) *MySQLUserKeyRepository {
	return &MySQLUserKeyRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Create inserts a freshly provisioned key.
func (m *MySQLUserKeyRepository) Create(ctx context.Context, key *userkeyDomain.UserKey) error {
	querier := database.GetTx(ctx, m.db)

	query, args, err := m.builder.
		Insert(userKeysTable).
		Columns(userKeyColumns...).
		Values(key.UserID, key.WrappedDEK, key.KeyVersion, key.CreatedAt, key.UpdatedAt).
		ToSql()
	if err != nil {
		return apperrors.Wrap(err, "failed to build user key insert")
	}

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return userkeyDomain.ErrConcurrentProvisioning
		}
		return apperrors.Wrap(err, "failed to create user key")
	}
	return nil
}

// FindByUserID returns the user's key record or ErrUserKeyNotFound.
func (m *MySQLUserKeyRepository) FindByUserID(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	querier := database.GetTx(ctx, m.db)
	return findUserKey(ctx, querier, m.builder.
		Select(userKeyColumns...).
		From(userKeysTable).
		Where(sq.Eq{"user_id": userID}))
}

// FindByUserIDForUpdate is FindByUserID with a row lock held until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (m *MySQLUserKeyRepository) FindByUserIDForUpdate(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	querier := database.GetTx(ctx, m.db)
	return findUserKey(ctx, querier, m.builder.
		Select(userKeyColumns...).
		From(userKeysTable).
		Where(sq.Eq{"user_id": userID}).
		Suffix("FOR UPDATE"))
}

// UpdateWrappedDEK replaces the wrapped key if the stored version still equals
// expectedVersion.
func (m *MySQLUserKeyRepository) UpdateWrappedDEK(
	ctx context.Context,
	key *userkeyDomain.UserKey,
	expectedVersion int,
) error {
	querier := database.GetTx(ctx, m.db)

	query, args, err := m.builder.
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
