package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/sitecms/internal/model"
)

// RolePolicy は新規ユーザーに付与するroleを決める。
// 既存ユーザーのroleは変更しない。
type RolePolicy interface {
	RoleFor(ctx context.Context, email string) (model.Role, error)
}

// UserCounter は登録済みユーザー数を返す。
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// AllowlistPolicy は許可リストに含まれるemailのユーザーだけを管理者にする。
type AllowlistPolicy struct {
	emails map[string]struct{}
}

// NewAllowlistPolicy はAllowlistPolicyを生成する。emailの比較は大文字小文字を区別しない。
func NewAllowlistPolicy(emails []string) *AllowlistPolicy {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &AllowlistPolicy{emails: set}
}

// RoleFor はemailが許可リストにあればadmin、なければuserを返す。
func (p *AllowlistPolicy) RoleFor(_ context.Context, email string) (model.Role, error) {
	if _, ok := p.emails[strings.ToLower(email)]; ok {
		return model.RoleAdmin, nil
	}
	return model.RoleUser, nil
}

// BootstrapPolicy は最初に登録されたユーザーだけを管理者にする。
// 許可リストが設定されていない環境で、最初の管理者を用意するために使う。
type BootstrapPolicy struct {
	users UserCounter
}

// NewBootstrapPolicy はBootstrapPolicyを生成する。
func NewBootstrapPolicy(users UserCounter) *BootstrapPolicy {
	return &BootstrapPolicy{users: users}
}

// RoleFor はユーザーが1人も居なければadmin、居ればuserを返す。
func (p *BootstrapPolicy) RoleFor(ctx context.Context, _ string) (model.Role, error) {
	n, err := p.users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count users: %w", err)
	}
	if n == 0 {
		return model.RoleAdmin, nil
	}
	return model.RoleUser, nil
}

// NewRolePolicy は設定に応じたRolePolicyを返す。
// 許可リストが空でなければAllowlistPolicy、空ならBootstrapPolicy。
func NewRolePolicy(adminEmails []string, users UserCounter) RolePolicy {
	allow := NewAllowlistPolicy(adminEmails)
	if len(allow.emails) > 0 {
		return allow
	}
	return NewBootstrapPolicy(users)
}
