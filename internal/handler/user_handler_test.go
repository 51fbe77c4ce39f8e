package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/sitecms/internal/model"
)

func TestGetProfile(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &mockProfileService{
		getProfileFn: func(_ context.Context, id string) (*model.User, error) {
			u := *testUser
			u.CreatedAt = created
			u.AvatarURL = "https://avatars.example.com/u.png"
			return &u, nil
		},
	}

	w := httptest.NewRecorder()
	NewUserHandler(svc).GetProfile(w, withUser(httptest.NewRequest(http.MethodGet, "/api/user/profile", nil), testUser))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	user, _ := decodeBody(t, w)["user"].(map[string]any)
	if user["id"] != "user-1" || user["avatar"] != "https://avatars.example.com/u.png" || user["provider"] != "github" {
		t.Errorf("user = %v", user)
	}
	if user["createdAt"] != "2026-01-02T03:04:05Z" {
		t.Errorf("createdAt = %v", user["createdAt"])
	}
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	w := httptest.NewRecorder()
	NewUserHandler(&mockProfileService{}).GetProfile(w, httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))
	assertErrorBody(t, w, http.StatusUnauthorized, model.ErrCodeUnauthorized, "Authentication required")
}

func TestUpdateProfile(t *testing.T) {
	var gotID, gotName string
	svc := &mockProfileService{
		updateNameFn: func(_ context.Context, id, name string) (*model.User, error) {
			gotID, gotName = id, name
			u := *testUser
			u.Name = name
			return &u, nil
		},
	}

	w := httptest.NewRecorder()
	NewUserHandler(svc).UpdateProfile(w, withUser(jsonRequest(http.MethodPut, "/api/user/profile", `{"name":"Renamed"}`), testUser))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotID != "user-1" || gotName != "Renamed" {
		t.Errorf("UpdateName(%q, %q)", gotID, gotName)
	}
	user, _ := decodeBody(t, w)["user"].(map[string]any)
	if user["name"] != "Renamed" {
		t.Errorf("user = %v", user)
	}
}

func TestUpdateProfile_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"ユーザー不在", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound, "User not found"},
		{"長すぎる名前", model.NewValidationError("name", "too long"), http.StatusBadRequest, model.ErrCodeValidationFailed, ""},
		{"内部エラー", errors.New("db"), http.StatusInternalServerError, model.ErrCodeInternal, "Failed to update profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockProfileService{
				updateNameFn: func(context.Context, string, string) (*model.User, error) { return nil, tt.err },
			}
			w := httptest.NewRecorder()
			NewUserHandler(svc).UpdateProfile(w, withUser(jsonRequest(http.MethodPut, "/api/user/profile", `{"name":"x"}`), testUser))
			assertErrorBody(t, w, tt.wantStatus, tt.wantCode, tt.wantMsg)
		})
	}
}
