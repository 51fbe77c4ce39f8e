package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

// ContentService はコンテンツハンドラーが必要とするサービスインターフェース。
type ContentService interface {
	Get(ctx context.Context) (*model.SiteContent, error)
	Update(ctx context.Context, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error)
	UpdateCompanyName(ctx context.Context, name *string, version *int, actor *model.User) (*model.SiteContent, error)
	UpdateHome(ctx context.Context, home *model.HomeContentPatch, version *int, actor *model.User) (*model.SiteContent, error)
	UpdateAbout(ctx context.Context, about *model.AboutContentPatch, version *int, actor *model.User) (*model.SiteContent, error)
	UpdateContact(ctx context.Context, contact *model.ContactContentPatch, version *int, actor *model.User) (*model.SiteContent, error)
}

// ContentHandler はサイトコンテンツのHTTPハンドラー。
// 更新系はRequireAuth / RequireAdminの後ろに配置する。
type ContentHandler struct {
	service ContentService
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

type companyNameRequest struct {
	CompanyName *string `json:"companyName"`
	Version     *int    `json:"version"`
}

type homeContentRequest struct {
	HomeContent *model.HomeContentPatch `json:"homeContent"`
	Version     *int                    `json:"version"`
}

type aboutContentRequest struct {
	AboutContent *model.AboutContentPatch `json:"aboutContent"`
	Version      *int                     `json:"version"`
}

type contactContentRequest struct {
	ContactContent *model.ContactContentPatch `json:"contactContent"`
	Version        *int                       `json:"version"`
}

// Get はサイトコンテンツを返す。未作成なら初期文言で作成される。
// GET /api/content
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Get(r.Context())
	if err != nil {
		handleServiceError(w, err, "Failed to fetch content")
		return
	}
	writeContent(w, content)
}

// Update は複数ブロックをまとめて部分更新する。
// PUT /api/content
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.SiteContentPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.service.Update(r.Context(), &req, middleware.UserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err, "Failed to update content")
		return
	}
	writeContent(w, content)
}

// UpdateCompanyName は会社名を更新する。
// PUT /api/content/company-name
func (h *ContentHandler) UpdateCompanyName(w http.ResponseWriter, r *http.Request) {
	var req companyNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.service.UpdateCompanyName(r.Context(), req.CompanyName, req.Version, middleware.UserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err, "Failed to update company name")
		return
	}
	writeContent(w, content)
}

// UpdateHome はトップページの文言を更新する。
// PUT /api/content/home
func (h *ContentHandler) UpdateHome(w http.ResponseWriter, r *http.Request) {
	var req homeContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.service.UpdateHome(r.Context(), req.HomeContent, req.Version, middleware.UserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err, "Failed to update home content")
		return
	}
	writeContent(w, content)
}

// UpdateAbout は会社概要の文言を更新する。
// PUT /api/content/about
func (h *ContentHandler) UpdateAbout(w http.ResponseWriter, r *http.Request) {
	var req aboutContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.service.UpdateAbout(r.Context(), req.AboutContent, req.Version, middleware.UserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err, "Failed to update about content")
		return
	}
	writeContent(w, content)
}

// UpdateContact はお問い合わせの文言を更新する。
// PUT /api/content/contact
func (h *ContentHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := h.service.UpdateContact(r.Context(), req.ContactContent, req.Version, middleware.UserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err, "Failed to update contact content")
		return
	}
	writeContent(w, content)
}

func writeContent(w http.ResponseWriter, content *model.SiteContent) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    toSiteContentResponse(content),
	})
}
