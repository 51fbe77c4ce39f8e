package middleware

import (
	"net/http"

	"github.com/hitoshi/sitecms/internal/model"
)

// RequireAuth は認証済みユーザーのみを通過させる。
// 未認証の場合は後続ハンドラーを呼ばずに401を返す。
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin は管理者のみを通過させる。
// ユーザーが存在しない場合は403ではなく401を返す。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
			return
		}
		if !user.IsAdmin() {
			WriteErrorResponse(w, http.StatusForbidden, model.NewAdminRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}
