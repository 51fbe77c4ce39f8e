package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/sitecms/internal/model"
)

func TestContentGet_Envelope(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockContentService{
		getFn: func(context.Context) (*model.SiteContent, error) {
			return &model.SiteContent{
				ID:          model.SiteContentID,
				CompanyName: "Acme",
				HomeContent: model.HomeContent{Title: "Welcome"},
				ContactContent: model.ContactContent{
					SocialLinks: model.SocialLinks{Twitter: "https://x.com/acme"},
				},
				UpdatedBy: &model.Editor{ID: "admin-1", Name: "Admin", Email: "admin@example.com"},
				Version:   3,
				UpdatedAt: updated,
			}, nil
		},
	}

	w := httptest.NewRecorder()
	NewContentHandler(svc).Get(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if body["success"] != true || data["companyName"] != "Acme" || data["version"] != float64(3) {
		t.Fatalf("body = %v", body)
	}
	home, _ := data["homeContent"].(map[string]any)
	if home["title"] != "Welcome" {
		t.Errorf("homeContent = %v", home)
	}
	contact, _ := data["contactContent"].(map[string]any)
	social, _ := contact["socialLinks"].(map[string]any)
	if social["twitter"] != "https://x.com/acme" {
		t.Errorf("socialLinks = %v", social)
	}
	editor, _ := data["updatedBy"].(map[string]any)
	if editor["id"] != "admin-1" || editor["email"] != "admin@example.com" {
		t.Errorf("updatedBy = %v", editor)
	}
	if data["updatedAt"] != "2026-03-01T12:00:00Z" {
		t.Errorf("updatedAt = %v", data["updatedAt"])
	}
}

// 未更新のドキュメントではupdatedByがnullになることを検証する。
func TestContentGet_NullEditor(t *testing.T) {
	w := httptest.NewRecorder()
	NewContentHandler(&mockContentService{}).Get(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	data, _ := decodeBody(t, w)["data"].(map[string]any)
	if v, ok := data["updatedBy"]; !ok || v != nil {
		t.Errorf("updatedBy = %v (present=%v), want null", v, ok)
	}
}

func TestContentGet_Failure(t *testing.T) {
	svc := &mockContentService{err: fmt.Errorf("failed to get site content: %w", errors.New("pq: timeout"))}
	w := httptest.NewRecorder()
	NewContentHandler(svc).Get(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	assertErrorBody(t, w, http.StatusInternalServerError, model.ErrCodeInternal, "Failed to fetch content")
}

func TestContentUpdate_PassesPatchAndActor(t *testing.T) {
	svc := &mockContentService{
		updateFn: func(_ context.Context, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error) {
			if patch.CompanyName == nil || *patch.CompanyName != "Acme" {
				t.Errorf("companyName = %v", patch.CompanyName)
			}
			if patch.AboutContent == nil || patch.AboutContent.Mission == nil || *patch.AboutContent.Mission != "m" {
				t.Errorf("aboutContent = %+v", patch.AboutContent)
			}
			if patch.HomeContent != nil {
				t.Error("homeContent should be absent")
			}
			if patch.Version == nil || *patch.Version != 4 {
				t.Errorf("version = %v", patch.Version)
			}
			return &model.SiteContent{CompanyName: "Acme"}, nil
		},
	}

	req := withUser(jsonRequest(http.MethodPut, "/api/content", `{"companyName":"Acme","aboutContent":{"mission":"m"},"version":4}`), testAdmin)
	w := httptest.NewRecorder()
	NewContentHandler(svc).Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if svc.actor == nil || svc.actor.ID != "admin-1" {
		t.Errorf("actor = %+v", svc.actor)
	}
}

func TestContentUpdate_MalformedJSON(t *testing.T) {
	svc := &mockContentService{}
	h := NewContentHandler(svc)

	for _, body := range []string{"", "{", `{"companyName": 5}`} {
		w := httptest.NewRecorder()
		h.UpdateCompanyName(w, withUser(jsonRequest(http.MethodPut, "/api/content/company-name", body), testAdmin))
		assertErrorBody(t, w, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Invalid request body")
	}
	if svc.callCount() != 0 {
		t.Errorf("service calls = %d, want 0", svc.callCount())
	}
}

func TestContentSectionHandlers_RouteToService(t *testing.T) {
	tests := []struct {
		name    string
		handler func(h *ContentHandler) http.HandlerFunc
		body    string
		want    string
	}{
		{"会社名", func(h *ContentHandler) http.HandlerFunc { return h.UpdateCompanyName }, `{"companyName":"Acme"}`, "UpdateCompanyName"},
		{"トップ", func(h *ContentHandler) http.HandlerFunc { return h.UpdateHome }, `{"homeContent":{"title":"t"}}`, "UpdateHome"},
		{"会社概要", func(h *ContentHandler) http.HandlerFunc { return h.UpdateAbout }, `{"aboutContent":{"vision":"v"}}`, "UpdateAbout"},
		{"お問い合わせ", func(h *ContentHandler) http.HandlerFunc { return h.UpdateContact }, `{"contactContent":{"phone":"1"}}`, "UpdateContact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockContentService{}
			w := httptest.NewRecorder()
			tt.handler(NewContentHandler(svc))(w, withUser(jsonRequest(http.MethodPut, "/api/content/x", tt.body), testAdmin))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if len(svc.calls) != 1 || svc.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", svc.calls, tt.want)
			}
		})
	}
}

func TestContentUpdate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"検証エラー", model.NewValidationError("contactContent.email", "must be a valid email"), http.StatusBadRequest, model.ErrCodeValidationFailed, ""},
		{"バージョン競合", model.NewVersionConflictError(7), http.StatusConflict, model.ErrCodeVersionConflict, ""},
		{"未認証", model.NewAuthenticationRequiredError(), http.StatusUnauthorized, model.ErrCodeUnauthorized, "Authentication required"},
		{"永続化エラー", errors.New("pq: deadlock detected"), http.StatusInternalServerError, model.ErrCodeInternal, "Failed to update home content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockContentService{err: tt.err}
			w := httptest.NewRecorder()
			NewContentHandler(svc).UpdateHome(w, withUser(jsonRequest(http.MethodPut, "/api/content/home", `{"homeContent":{}}`), testAdmin))
			assertErrorBody(t, w, tt.wantStatus, tt.wantCode, tt.wantMsg)
		})
	}
}
