package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

var accountColumns = []string{
	"u.id",
	"u.username",
	"u.password_hash",
	"u.first_name",
	"u.last_name",
	"u.phone",
	"u.user_type_id",
	"ut.name",
	"ut.permissions",
	"u.failed_login_attempts",
	"u.locked_until",
	"u.active",
	"u.deleted",
	"u.last_login",
	"u.created_by",
	"u.created_at",
	"u.updated_at",
}

var userTypeColumns = []string{"id", "name", "description", "permissions"}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	sqlStmt, args, err := r.builder.Insert(usersTable).
		Columns(
			"id",
			"username",
			"password_hash",
			"first_name",
			"last_name",
			"phone",
			"user_type_id",
			"active",
			"created_by",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.Username,
			account.PasswordHash,
			account.FirstName,
			account.LastName,
			account.Phone,
			account.UserTypeID,
			account.Active,
			account.CreatedBy,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", repository.TranslatePgError(err))
	}

	return nil
}

// GetByID retrieves an account and its user type by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	sqlStmt, args, err := r.selectAccount().
		Where(squirrel.Eq{"u.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.queryAccount(ctx, sqlStmt, args)
}

// GetByUsername retrieves a non-deleted account by exact username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	sqlStmt, args, err := r.selectAccount().
		Where(squirrel.Eq{"u.username": username}).
		Where(squirrel.Eq{"u.deleted": false}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by username sql: %w", err)
	}

	return r.queryAccount(ctx, sqlStmt, args)
}

// GetUserType resolves a user type by name.
func (r *AccountRepository) GetUserType(ctx context.Context, name string) (*domain.UserType, error) {
	sqlStmt, args, err := r.builder.
		Select(userTypeColumns...).
		From(userTypesTable).
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user type sql: %w", err)
	}

	userType, err := scanUserType(r.exec.QueryRow(ctx, sqlStmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &userType, nil
}

// ListUserTypes returns every user type ordered by name.
func (r *AccountRepository) ListUserTypes(ctx context.Context) ([]domain.UserType, error) {
	sqlStmt, args, err := r.builder.
		Select(userTypeColumns...).
		From(userTypesTable).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user types sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list user types: %w", err)
	}
	defer rows.Close()

	userTypes := make([]domain.UserType, 0)
	for rows.Next() {
		userType, err := scanUserType(rows)
		if err != nil {
			return nil, err
		}
		userTypes = append(userTypes, userType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user types: %w", err)
	}

	return userTypes, nil
}

func scanUserType(row pgx.Row) (domain.UserType, error) {
	var (
		userType    domain.UserType
		permissions []byte
	)
	if err := row.Scan(&userType.ID, &userType.Name, &userType.Description, &permissions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserType{}, err
		}
		return domain.UserType{}, fmt.Errorf("scan user type: %w", err)
	}

	decoded, err := decodePermissions(permissions)
	if err != nil {
		return domain.UserType{}, err
	}
	userType.Permissions = decoded

	return userType, nil
}

// RegisterFailedLogin increments the failure counter and applies the lock within one UPDATE,
// so concurrent failures for the same account never lose an increment.
func (r *AccountRepository) RegisterFailedLogin(ctx context.Context, id string, policy domain.LockoutPolicy, at time.Time) (domain.LockoutState, error) {
	threshold := int64(policy.Threshold)
	if threshold <= 0 {
		threshold = math.MaxInt64
	}
	lockUntil := at.Add(policy.Duration)

	sqlStmt, args, err := r.builder.Update(usersTable).
		Set("failed_login_attempts", squirrel.Expr("failed_login_attempts + 1")).
		Set("locked_until", squirrel.Expr(
			"CASE WHEN failed_login_attempts + 1 >= ?::bigint THEN ?::timestamptz ELSE locked_until END",
			threshold, lockUntil,
		)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING failed_login_attempts, locked_until").
		ToSql()
	if err != nil {
		return domain.LockoutState{}, fmt.Errorf("build register failed login sql: %w", err)
	}

	var state domain.LockoutState
	if err := r.exec.QueryRow(ctx, sqlStmt, args...).Scan(&state.FailedLoginAttempts, &state.LockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LockoutState{}, repository.ErrNotFound
		}
		return domain.LockoutState{}, fmt.Errorf("register failed login: %w", err)
	}

	return state, nil
}

// RecordSuccessfulLogin resets lockout bookkeeping and stamps last_login.
func (r *AccountRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	sqlStmt, args, err := r.builder.Update(usersTable).
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActive flips the active flag of a non-deleted account.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	sqlStmt, args, err := r.builder.Update(usersTable).
		Set("active", active).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set active sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("set account active: %w", repository.TranslatePgError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SoftDelete flags the account as deleted and inactive.
func (r *AccountRepository) SoftDelete(ctx context.Context, id string) error {
	sqlStmt, args, err := r.builder.Update(usersTable).
		Set("deleted", true).
		Set("active", false).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete account: %w", repository.TranslatePgError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) selectAccount() squirrel.SelectBuilder {
	return r.builder.
		Select(accountColumns...).
		From(usersTable + " u").
		Join(userTypesTable + " ut ON ut.id = u.user_type_id")
}

func (r *AccountRepository) queryAccount(ctx context.Context, sqlStmt string, args []any) (*domain.Account, error) {
	var (
		account     domain.Account
		permissions []byte
	)

	if err := r.exec.QueryRow(ctx, sqlStmt, args...).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.UserTypeID,
		&account.UserType,
		&permissions,
		&account.Lockout.FailedLoginAttempts,
		&account.Lockout.LockedUntil,
		&account.Active,
		&account.Deleted,
		&account.LastLogin,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", repository.TranslatePgError(err))
	}

	decoded, err := decodePermissions(permissions)
	if err != nil {
		return nil, err
	}
	account.Permissions = decoded

	return &account, nil
}

func decodePermissions(raw []byte) (map[string]bool, error) {
	permissions := make(map[string]bool)
	if len(raw) == 0 {
		return permissions, nil
	}
	if err := json.Unmarshal(raw, &permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return permissions, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
