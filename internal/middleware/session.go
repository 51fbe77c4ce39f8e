// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sitecms/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey     = contextKey("user")
	requestLogStateKey = contextKey("request_log_state")
)

// SessionResolver はセッションIDから有効なユーザーを解決する。
// 無効・期限切れのセッションに対しては (nil, nil) を返す。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionLoader はCookieのセッションを解決し、ユーザーをコンテキストに注入するミドルウェアを返す。
// 未認証リクエストも拒否せずに通す。認可はRequireAuth / RequireAdminが行う。
// セッションストアの障害はログアウト扱いにせず500を返す。
func NewSessionLoader(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.ResolveSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストにユーザーを注入する。
// ロギングミドルウェア配下であれば、アクセスログにもユーザーIDを記録させる。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	if state, ok := ctx.Value(requestLogStateKey).(*requestLogState); ok && user != nil {
		state.userID = user.ID
	}
	return context.WithValue(ctx, userContextKey, user)
}
