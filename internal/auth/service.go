// Package auth はOAuth認証フロー、ユーザー解決、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/sitecms/internal/model"
	"github.com/hitoshi/sitecms/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // 絶対有効期限
	IdleTimeout   time.Duration // 最終アクセスからの無操作タイムアウト。0なら無効
	TouchInterval time.Duration // 最終アクセス日時を書き戻す最小間隔
}

// DefaultTouchInterval は最終アクセス日時の更新間隔の既定値。
const DefaultTouchInterval = time.Minute

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	policy      RolePolicy
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	policy RolePolicy,
	config ServiceConfig,
) *Service {
	if config.TouchInterval <= 0 {
		config.TouchInterval = DefaultTouchInterval
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		policy:      policy,
		config:      config,
		now:         time.Now,
	}
}

// ResolveUser はOAuthプロバイダーのユーザー情報から対応するユーザーを返す。
//
// 解決順序:
//  1. プロバイダー固有IDで検索。見つかればそのまま返す（フィールドは更新しない）
//  2. emailで検索。見つかればプロバイダーIDとアバターを紐付けて返す（roleは変更しない）
//  3. どちらも無ければRolePolicyが決めたroleで新規作成する
//
// 同じemailで同時に初回ログインが走り一意制約違反になった場合は、1回だけ検索からやり直す。
func (s *Service) ResolveUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	if info == nil || !info.Provider.Valid() || info.ProviderUserID == "" || strings.TrimSpace(info.Email) == "" {
		return nil, fmt.Errorf("incomplete oauth user info")
	}

	user, err := s.resolveOnce(ctx, info)
	if errors.Is(err, repository.ErrDuplicate) {
		slog.Warn("concurrent first login detected, retrying lookup",
			slog.String("provider", string(info.Provider)),
		)
		user, err = s.resolveOnce(ctx, info)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) resolveOnce(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	// 1. プロバイダーIDで検索
	user, err := s.userRepo.FindByProviderID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider id: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", string(info.Provider)),
		)
		return user, nil
	}

	email := strings.TrimSpace(info.Email)

	// 2. emailで検索し、既存アカウントに紐付け
	user, err = s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user != nil {
		linked, err := s.userRepo.LinkProvider(ctx, user.ID, info.Provider, info.ProviderUserID, info.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("failed to link provider: %w", err)
		}
		if linked == nil {
			return nil, fmt.Errorf("user %s disappeared while linking", user.ID)
		}
		slog.Info("provider linked to existing user",
			slog.String("user_id", linked.ID),
			slog.String("provider", string(info.Provider)),
		)
		return linked, nil
	}

	// 3. 新規作成
	role, err := s.policy.RoleFor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to decide role: %w", err)
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := s.now()
	providerUserID := info.ProviderUserID
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		AvatarURL: info.AvatarURL,
		Provider:  info.Provider,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch info.Provider {
	case model.ProviderGoogle:
		newUser.GoogleID = &providerUserID
	case model.ProviderGitHub:
		newUser.GitHubID = &providerUserID
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", string(info.Provider)),
		slog.String("role", string(role)),
	)
	return newUser, nil
}

// SignIn はユーザーを解決してセッションを発行する。
func (s *Service) SignIn(ctx context.Context, info *OAuthUserInfo) (*model.User, *model.Session, error) {
	user, err := s.ResolveUser(ctx, info)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, fmt.Errorf("user %s is inactive", user.ID)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return user, session, nil
}

// ResolveSession はセッションIDからログイン中のユーザーを返す。
// セッションが無い・期限切れ・アイドルタイムアウト・ユーザーが無効の場合はnilを返す（エラーではない）。
// アイドルタイムアウトしたセッションはその場で削除する。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	now := s.now()
	if !session.ExpiresAt.After(now) {
		return nil, nil
	}
	idle := now.Sub(session.LastSeenAt)
	if s.config.IdleTimeout > 0 && idle > s.config.IdleTimeout {
		if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
			slog.Warn("failed to delete idle session", slog.String("error", err.Error()))
		}
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}

	if idle >= s.config.TouchInterval {
		if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
			slog.Warn("failed to touch session", slog.String("error", err.Error()))
		}
	}

	return user, nil
}

// Logout はセッションを破棄する。セッションIDが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// GrantAdmin は指定emailのユーザーを管理者にする。
// 管理者の明示的な払い出しに使う。
func (s *Service) GrantAdmin(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.UpdateRoleByEmail(ctx, strings.TrimSpace(email), model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to grant admin: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	slog.Info("admin role granted", slog.String("user_id", user.ID))
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:         sessionID,
		UserID:     userID,
		ExpiresAt:  now.Add(s.config.SessionMaxAge),
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}
