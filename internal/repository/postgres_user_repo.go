package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hitoshi/sitecms/internal/model"
)

const userColumns = `id, google_id, github_id, email, name, avatar_url, provider, role, is_active, created_at, updated_at`

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByProviderID はプロバイダー固有のIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByProviderID(ctx context.Context, provider model.Provider, providerUserID string) (*model.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, providerUserID)
}

// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Create はユーザーを作成する。一意制約違反の場合はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :google_id, :github_id, :email, :name, :avatar_url, :provider, :role, :is_active, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert user: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// LinkProvider は既存ユーザーにプロバイダーIDとアバターを紐付け、更新後のユーザーを返す。
func (r *PostgresUserRepo) LinkProvider(ctx context.Context, userID string, provider model.Provider, providerUserID, avatarURL string) (*model.User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	user, err := r.findOne(ctx,
		`UPDATE users SET `+column+` = $2, avatar_url = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, providerUserID, avatarURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to link provider: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}
	return user, nil
}

// UpdateName はユーザーの表示名を更新する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) UpdateName(ctx context.Context, id, name string) (*model.User, error) {
	return r.findOne(ctx,
		`UPDATE users SET name = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, name,
	)
}

// UpdateRoleByEmail はemailで指定したユーザーのroleを更新する。見つからない場合はnilを返す。
// emailの比較は管理者許可リストと同じく大文字小文字を区別しない。
func (r *PostgresUserRepo) UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error) {
	return r.findOne(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE lower(email) = lower($1) RETURNING `+userColumns,
		email, role,
	)
}

// Count は登録済みユーザー数を返す。
func (r *PostgresUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// findOne は1行を返すクエリを実行してユーザーにマッピングする。行が無い場合はnilを返す。
func (r *PostgresUserRepo) findOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// providerColumn はプロバイダーに対応するIDカラム名を返す。
func providerColumn(provider model.Provider) (string, error) {
	switch provider {
	case model.ProviderGoogle:
		return "google_id", nil
	case model.ProviderGitHub:
		return "github_id", nil
	default:
		return "", fmt.Errorf("unsupported provider: %q", provider)
	}
}

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
