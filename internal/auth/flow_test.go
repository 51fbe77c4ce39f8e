package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/hitoshi/sitecms/internal/model"
)

func newTestFlow(exchange func(ctx context.Context, code string) (*OAuthUserInfo, error)) (*LoginFlow, *memUserRepo, *memSessionRepo, *mockMetrics) {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	mc := newMockMetrics()
	flow := NewLoginFlow(
		newTestService(users, sessions, nil),
		NewStateSigner("flow-secret"),
		mc,
		&mockOAuthProvider{name: model.ProviderGoogle, exchangeFn: exchange},
	)
	return flow, users, sessions, mc
}

func TestLoginFlow_Begin(t *testing.T) {
	flow, _, _, _ := newTestFlow(nil)

	r, err := flow.Begin(model.ProviderGoogle)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if r.Next != StatePendingProviderRedirect {
		t.Errorf("Next = %v, want %v", r.Next, StatePendingProviderRedirect)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		t.Fatalf("invalid redirect URL: %v", err)
	}
	if u.Query().Get("state") != r.State {
		t.Error("redirect URL should carry the issued state")
	}
}

func TestLoginFlow_Begin_UnknownProvider(t *testing.T) {
	flow, _, _, _ := newTestFlow(nil)

	_, err := flow.Begin(model.ProviderGitHub)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProviderNotFound {
		t.Fatalf("err = %v, want PROVIDER_NOT_FOUND", err)
	}
}

func TestLoginFlow_Complete_Success(t *testing.T) {
	flow, users, sessions, mc := newTestFlow(func(_ context.Context, code string) (*OAuthUserInfo, error) {
		if code != "good-code" {
			return nil, errors.New("bad code")
		}
		return googleInfo("g-1", "a@x.com"), nil
	})

	r, _ := flow.Begin(model.ProviderGoogle)
	res, err := flow.Complete(context.Background(), Callback{
		Provider:    model.ProviderGoogle,
		CookieState: r.State,
		QueryState:  r.State,
		Code:        "good-code",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.State != StateAuthenticated {
		t.Errorf("State = %v, want authenticated", res.State)
	}
	if res.User.Email != "a@x.com" || res.Session.UserID != res.User.ID {
		t.Errorf("unexpected result: %+v", res)
	}
	if users.count() != 1 || len(sessions.sessions) != 1 {
		t.Errorf("users=%d sessions=%d, want 1 and 1", users.count(), len(sessions.sessions))
	}
	if mc.logins["google/success"] != 1 {
		t.Errorf("login metrics = %v", mc.logins)
	}
}

func TestLoginFlow_Complete_Failures(t *testing.T) {
	exchangeErr := errors.New("token endpoint down")

	tests := []struct {
		name     string
		cb       func(state string) Callback
		exchange func(context.Context, string) (*OAuthUserInfo, error)
	}{
		{
			name: "クッキーのstateが無い",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, QueryState: state, Code: "c"}
			},
		},
		{
			name: "クッキーとクエリのstateが不一致",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: state, QueryState: state + "x", Code: "c"}
			},
		},
		{
			name: "署名が不正なstate",
			cb: func(string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: "forged", QueryState: "forged", Code: "c"}
			},
		},
		{
			name: "プロバイダーがエラーを返した",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: state, QueryState: state, ProviderError: "access_denied"}
			},
		},
		{
			name: "認可コードが無い",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: state, QueryState: state}
			},
		},
		{
			name: "トークン交換の失敗",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: state, QueryState: state, Code: "c"}
			},
			exchange: func(context.Context, string) (*OAuthUserInfo, error) { return nil, exchangeErr },
		},
		{
			name: "ユーザー情報が不完全",
			cb: func(state string) Callback {
				return Callback{Provider: model.ProviderGoogle, CookieState: state, QueryState: state, Code: "c"}
			},
			exchange: func(context.Context, string) (*OAuthUserInfo, error) {
				return &OAuthUserInfo{Provider: model.ProviderGoogle, ProviderUserID: "g"}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, users, sessions, mc := newTestFlow(tt.exchange)
			r, _ := flow.Begin(model.ProviderGoogle)

			res, err := flow.Complete(context.Background(), tt.cb(r.State))
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			var flowErr *FlowError
			if !errors.As(err, &flowErr) {
				t.Fatalf("err = %v, want *FlowError", err)
			}
			if flowErr.Reason != "google_auth_failed" {
				t.Errorf("Reason = %q", flowErr.Reason)
			}
			if flowErr.State != StateAnonymous {
				t.Errorf("State = %v, want anonymous", flowErr.State)
			}
			if users.count() != 0 || len(sessions.sessions) != 0 {
				t.Errorf("no user or session should be created (users=%d sessions=%d)", users.count(), len(sessions.sessions))
			}
			if mc.logins["google/failure"] != 1 {
				t.Errorf("login metrics = %v", mc.logins)
			}
		})
	}
}

// GitHub向けに発行したstateをGoogleのコールバックに使い回せないことを検証する。
func TestLoginFlow_Complete_StateBoundToProvider(t *testing.T) {
	users := newMemUserRepo()
	signer := NewStateSigner("flow-secret")
	flow := NewLoginFlow(newTestService(users, newMemSessionRepo(), nil), signer, nil,
		&mockOAuthProvider{name: model.ProviderGoogle, exchangeFn: func(context.Context, string) (*OAuthUserInfo, error) {
			return googleInfo("g-1", "a@x.com"), nil
		}},
		&mockOAuthProvider{name: model.ProviderGitHub},
	)

	r, _ := flow.Begin(model.ProviderGitHub)
	_, err := flow.Complete(context.Background(), Callback{
		Provider: model.ProviderGoogle, CookieState: r.State, QueryState: r.State, Code: "c",
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestFlowState_String(t *testing.T) {
	if StatePendingProviderRedirect.String() != "pending_provider_redirect" {
		t.Errorf("String() = %q", StatePendingProviderRedirect.String())
	}
	if FlowState(99).String() != "FlowState(99)" {
		t.Errorf("String() = %q", FlowState(99).String())
	}
}
