// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError はクライアントに返すエラーの分類を表す。
// Message はそのままレスポンスに載るため、内部エラーの詳細を含めてはならない。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeProviderNotFound = "PROVIDER_NOT_FOUND"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeVersionConflict  = "VERSION_CONFLICT"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewAuthenticationRequiredError は未認証エラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: "Authentication required"}
}

// NewNotAuthenticatedError は現在のユーザー取得時の未認証エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: "Not authenticated"}
}

// NewAdminRequiredError は管理者権限不足エラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: "Admin access required"}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Code: ErrCodeUserNotFound, Message: "User not found"}
}

// NewProviderNotFoundError は未対応のOAuthプロバイダーが指定された場合のエラーを生成する。
func NewProviderNotFoundError(provider string) *APIError {
	return &APIError{
		Code:    ErrCodeProviderNotFound,
		Message: fmt.Sprintf("Unsupported login provider: %s", provider),
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{Code: ErrCodeInvalidRequest, Message: "Invalid request body"}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("Invalid value for %s: %s", field, reason),
	}
}

// NewVersionConflictError はコンテンツが他の管理者に更新済みだった場合のエラーを生成する。
func NewVersionConflictError(current int) *APIError {
	return &APIError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("Content was modified by another editor (current version %d)", current),
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Code: ErrCodeRateLimited, Message: "Too many requests"}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録すること。
func NewInternalError(message string) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: message}
}
