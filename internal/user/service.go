// Package user はログイン中ユーザーのプロフィール操作を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/sitecms/internal/model"
	"github.com/hitoshi/sitecms/internal/repository"
	"github.com/hitoshi/sitecms/internal/security"
)

// maxNameLength は表示名の最大文字数。
const maxNameLength = 100

// Service はプロフィールのサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizer
	validate  *validator.Validate
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		validate:  validator.New(),
	}
}

// GetProfile は最新のユーザー情報を返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateName は表示名を更新する。
// HTMLを除去した結果が空の場合は既存の名前を保ったまま現在のユーザーを返す。
func (s *Service) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	name = s.sanitizer.Clean(name)
	if name == "" {
		return s.GetProfile(ctx, userID)
	}

	if err := s.validate.Var(name, fmt.Sprintf("max=%d", maxNameLength)); err != nil {
		return nil, model.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}

	user, err := s.userRepo.UpdateName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to update user name: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user name updated", slog.String("user_id", userID))
	return user, nil
}
