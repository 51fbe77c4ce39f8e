// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sitecms/internal/auth"
	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

const oauthStateCookie = "oauth_state"

// LoginFlow は認証ハンドラーが必要とするOAuthログインフロー。
type LoginFlow interface {
	Begin(provider model.Provider) (*auth.Redirect, error)
	Complete(ctx context.Context, cb auth.Callback) (*auth.Result, error)
}

// SessionTerminator はログアウト時にセッションを破棄する。
type SessionTerminator interface {
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	ClientURL     string // ログイン後のリダイレクト先となる管理画面のURL
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	flow     LoginFlow
	sessions SessionTerminator
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(flow LoginFlow, sessions SessionTerminator, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		flow:     flow,
		sessions: sessions,
		config:   config,
	}
}

// Login はプロバイダーの認可画面へリダイレクトする。
// GET /api/auth/{provider}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))

	redirect, err := h.flow.Begin(provider)
	if err != nil {
		handleServiceError(w, err, "Failed to start login")
		return
	}

	h.setCookie(w, oauthStateCookie, redirect.State, int(auth.StateTTL.Seconds()))
	http.Redirect(w, r, redirect.URL, http.StatusTemporaryRedirect)
}

// Callback はプロバイダーからのコールバックを処理する。
// 成功時は管理画面へ、失敗時はログイン画面へエラー識別子付きでリダイレクトする。
// GET /api/auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	query := r.URL.Query()

	cb := auth.Callback{
		Provider:      provider,
		QueryState:    query.Get("state"),
		Code:          query.Get("code"),
		ProviderError: query.Get("error"),
	}
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		cb.CookieState = c.Value
	}
	// stateは一度きりなので結果に関わらず削除する
	h.setCookie(w, oauthStateCookie, "", -1)

	result, err := h.flow.Complete(r.Context(), cb)
	if err != nil {
		var flowErr *auth.FlowError
		if errors.As(err, &flowErr) {
			h.redirectToLogin(w, r, flowErr.Reason)
			return
		}
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			handleServiceError(w, err, "Authentication failed")
			return
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectToLogin(w, r, auth.FailureReason(provider))
		return
	}

	h.setCookie(w, middleware.SessionCookieName, result.Session.ID, h.config.SessionMaxAge)
	http.Redirect(w, r, h.config.ClientURL+"/admin", http.StatusTemporaryRedirect)
}

// CurrentUser は現在のログインユーザー情報を返す。
// GET /api/auth/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// Logout はセッションを破棄してCookieを削除する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError("Logout failed"))
			return
		}
	}

	h.setCookie(w, middleware.SessionCookieName, "", -1)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.config.ClientURL + "/login?error=" + url.QueryEscape(reason)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// setCookie はHTTP OnlyのCookieを設定する。maxAgeが負の場合は削除になる。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
