// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す。admin と user の2値のみを持つ。
type Role string

const (
	// RoleAdmin はサイトコンテンツを編集できる管理者。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザー。デフォルトの権限。
	RoleUser Role = "user"
)

// Valid はRoleが定義済みの値かを判定する。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Provider はOAuthプロバイダーの識別子を表す。
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Valid はProviderが対応済みのプロバイダーかを判定する。
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderGitHub
}

// User はサービス利用ユーザーを表す。
// GoogleID と GitHubID はそれぞれ未連携の場合nil。
// Email は両プロバイダーを通じて一意。
type User struct {
	ID        string    `db:"id"`
	GoogleID  *string   `db:"google_id"`
	GitHubID  *string   `db:"github_id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	AvatarURL string    `db:"avatar_url"`
	Provider  Provider  `db:"provider"`
	Role      Role      `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin はユーザーが管理者権限を持つかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ProviderID は指定プロバイダーに紐付いたIDを返す。未連携の場合は空文字列。
func (u *User) ProviderID(p Provider) string {
	var id *string
	switch p {
	case ProviderGoogle:
		id = u.GoogleID
	case ProviderGitHub:
		id = u.GitHubID
	}
	if id == nil {
		return ""
	}
	return *id
}

// Session はユーザーのログインセッションを表す。
// ExpiresAt は絶対有効期限、LastSeenAt はアイドルタイムアウトの判定に使う。
type Session struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	ExpiresAt  time.Time `db:"expires_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
	CreatedAt  time.Time `db:"created_at"`
}
