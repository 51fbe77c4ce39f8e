// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/sitecms/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
// 同じemailやプロバイダーIDで同時にユーザー作成が走った場合に返る。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProviderID はプロバイダー固有のIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByProviderID(ctx context.Context, provider model.Provider, providerUserID string) (*model.User, error)

	// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// LinkProvider は既存ユーザーにプロバイダーIDとアバターを紐付け、更新後のユーザーを返す。
	LinkProvider(ctx context.Context, userID string, provider model.Provider, providerUserID, avatarURL string) (*model.User, error)

	// UpdateName はユーザーの表示名を更新する。見つからない場合はnilを返す。
	UpdateName(ctx context.Context, id, name string) (*model.User, error)

	// UpdateRoleByEmail はemailで指定したユーザーのroleを更新する。見つからない場合はnilを返す。
	UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error)

	// Count は登録済みユーザー数を返す。
	Count(ctx context.Context) (int, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。絶対有効期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Touch はセッションの最終アクセス日時を更新する。
	Touch(ctx context.Context, id string, at time.Time) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ContentRepository はサイトコンテンツ（シングルトン）の永続化インターフェース。
type ContentRepository interface {
	// GetOrCreate はサイトコンテンツを取得する。
	// 存在しない場合はdefaultsで1件だけ作成してから返す。
	// UpdatedBy は更新者の表示用情報に解決済みで返す。
	GetOrCreate(ctx context.Context, defaults model.SiteContent) (*model.SiteContent, error)

	// Update はサイトコンテンツを排他的に読み出してmutateを適用し、保存する。
	// 行が存在しない場合はdefaultsで作成してから適用する。
	// mutateがエラーを返した場合は何も保存せずにそのエラーを返す。
	// 保存のたびにVersionを1つ進める。
	Update(ctx context.Context, defaults model.SiteContent, mutate func(c *model.SiteContent) error) (*model.SiteContent, error)
}
