package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/sitecms/internal/auth"
	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

// --- モック定義 ---

type mockLoginFlow struct {
	beginFn    func(provider model.Provider) (*auth.Redirect, error)
	completeFn func(ctx context.Context, cb auth.Callback) (*auth.Result, error)
}

func (m *mockLoginFlow) Begin(provider model.Provider) (*auth.Redirect, error) {
	if m.beginFn != nil {
		return m.beginFn(provider)
	}
	return nil, model.NewProviderNotFoundError(string(provider))
}

func (m *mockLoginFlow) Complete(ctx context.Context, cb auth.Callback) (*auth.Result, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, cb)
	}
	return nil, &auth.FlowError{Provider: cb.Provider, Reason: auth.FailureReason(cb.Provider)}
}

type mockSessionTerminator struct {
	logoutFn func(ctx context.Context, sessionID string) error
}

func (m *mockSessionTerminator) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockProfileService struct {
	getProfileFn func(ctx context.Context, userID string) (*model.User, error)
	updateNameFn func(ctx context.Context, userID, name string) (*model.User, error)
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockProfileService) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, userID, name)
	}
	return nil, model.NewUserNotFoundError()
}

// mockContentService は呼び出しを記録するContentService。
type mockContentService struct {
	mu    sync.Mutex
	calls []string
	actor *model.User

	getFn    func(ctx context.Context) (*model.SiteContent, error)
	updateFn func(ctx context.Context, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error)
	err      error
}

func (m *mockContentService) record(name string, actor *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	m.actor = actor
}

func (m *mockContentService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockContentService) result() (*model.SiteContent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.SiteContent{ID: model.SiteContentID, CompanyName: "Acme", Version: 2}, nil
}

func (m *mockContentService) Get(ctx context.Context) (*model.SiteContent, error) {
	m.record("Get", nil)
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return m.result()
}

func (m *mockContentService) Update(ctx context.Context, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error) {
	m.record("Update", actor)
	if m.updateFn != nil {
		return m.updateFn(ctx, patch, actor)
	}
	return m.result()
}

func (m *mockContentService) UpdateCompanyName(_ context.Context, _ *string, _ *int, actor *model.User) (*model.SiteContent, error) {
	m.record("UpdateCompanyName", actor)
	return m.result()
}

func (m *mockContentService) UpdateHome(_ context.Context, _ *model.HomeContentPatch, _ *int, actor *model.User) (*model.SiteContent, error) {
	m.record("UpdateHome", actor)
	return m.result()
}

func (m *mockContentService) UpdateAbout(_ context.Context, _ *model.AboutContentPatch, _ *int, actor *model.User) (*model.SiteContent, error) {
	m.record("UpdateAbout", actor)
	return m.result()
}

func (m *mockContentService) UpdateContact(_ context.Context, _ *model.ContactContentPatch, _ *int, actor *model.User) (*model.SiteContent, error) {
	m.record("UpdateContact", actor)
	return m.result()
}

// sessionTable はセッションIDとユーザーの対応表によるSessionResolver。
type sessionTable map[string]*model.User

func (s sessionTable) ResolveSession(_ context.Context, id string) (*model.User, error) {
	return s[id], nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error {
	return m.err
}

// --- ヘルパー ---

var (
	testAdmin = &model.User{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin, Provider: model.ProviderGoogle, IsActive: true}
	testUser  = &model.User{ID: "user-1", Email: "user@example.com", Name: "User", Role: model.RoleUser, Provider: model.ProviderGitHub, IsActive: true}
)

// withUser はセッションローダー通過後と同じ状態のリクエストを作る。
func withUser(req *http.Request, user *model.User) *http.Request {
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if code != "" && body["code"] != code {
		t.Errorf("code = %v, want %s", body["code"], code)
	}
	if message != "" && body["error"] != message {
		t.Errorf("error = %v, want %q", body["error"], message)
	}
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
