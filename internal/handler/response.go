package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの上限（1MB）。
const maxRequestBodySize = 1 << 20

// userResponse はユーザー情報のレスポンス表現。
type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Avatar    string     `json:"avatar"`
	Role      model.Role `json:"role"`
	Provider  string     `json:"provider"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Avatar:   u.AvatarURL,
		Role:     u.Role,
		Provider: string(u.Provider),
	}
}

// editorResponse は最終更新者の表示用情報。
type editorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// siteContentResponse はサイトコンテンツのレスポンス表現。
type siteContentResponse struct {
	ID             int                  `json:"id"`
	CompanyName    string               `json:"companyName"`
	HomeContent    model.HomeContent    `json:"homeContent"`
	AboutContent   model.AboutContent   `json:"aboutContent"`
	ContactContent model.ContactContent `json:"contactContent"`
	UpdatedBy      *editorResponse      `json:"updatedBy"`
	Version        int                  `json:"version"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func toSiteContentResponse(c *model.SiteContent) siteContentResponse {
	resp := siteContentResponse{
		ID:             c.ID,
		CompanyName:    c.CompanyName,
		HomeContent:    c.HomeContent,
		AboutContent:   c.AboutContent,
		ContactContent: c.ContactContent,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if e := c.UpdatedBy; e != nil {
		resp.UpdatedBy = &editorResponse{ID: e.ID, Name: e.Name, Email: e.Email}
	}
	return resp
}

// decodeJSON はリクエストボディをdstにデコードする。
// 解析できない場合は INVALID_REQUEST のレスポンスを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		if !errors.Is(err, io.EOF) {
			slog.Debug("failed to decode request body", slog.String("error", err.Error()))
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// APIError以外は詳細をログにのみ残し、fallbackMessageで500を返す。
func handleServiceError(w http.ResponseWriter, err error, fallbackMessage string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError(fallbackMessage))
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeProviderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeVersionConflict:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
