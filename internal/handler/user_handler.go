package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

// ProfileService はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateName(ctx context.Context, userID, name string) (*model.User, error)
}

// UserHandler はログイン中ユーザーのプロフィールを扱うHTTPハンドラー。
// RequireAuthの後ろに配置する。
type UserHandler struct {
	service ProfileService
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service ProfileService) *UserHandler {
	return &UserHandler{service: service}
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

// GetProfile はプロフィールを返す。
// GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	current := middleware.UserFromContext(r.Context())
	if current == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	user, err := h.service.GetProfile(r.Context(), current.ID)
	if err != nil {
		handleServiceError(w, err, "Failed to fetch profile")
		return
	}

	resp := toUserResponse(user)
	resp.CreatedAt = &user.CreatedAt
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    resp,
	})
}

// UpdateProfile は表示名を更新する。空の名前は既存の名前を保つ。
// PUT /api/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current := middleware.UserFromContext(r.Context())
	if current == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateName(r.Context(), current.ID, req.Name)
	if err != nil {
		handleServiceError(w, err, "Failed to update profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
}
