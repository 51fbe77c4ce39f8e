package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hitoshi/sitecms/internal/model"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider はGoogle OAuth 2.0による認証を提供する。
type GoogleProvider struct {
	oauth       *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
}

// NewGoogleProvider はGoogleProviderを生成する。
// スコープにはopenid, email, profileを含む。
func NewGoogleProvider(cfg ProviderConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		httpClient:  cfg.HTTPClient,
		userInfoURL: userInfoURL,
	}
}

// Name はプロバイダーの識別子を返す。
func (p *GoogleProvider) Name() model.Provider {
	return model.ProviderGoogle
}

// AuthCodeURL はGoogleの認可画面のURLを生成する。
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = withHTTPClient(ctx, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}

	var info googleUserInfo
	if err := getJSON(ctx, p.oauth.Client(ctx, token), p.userInfoURL, "", &info); err != nil {
		return nil, fmt.Errorf("fetch google user info: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("empty sub in google user info")
	}
	// Googleアカウントは必ずメールアドレスを持つため、欠けている場合は不正な応答として扱う
	if info.Email == "" {
		return nil, fmt.Errorf("empty email in google user info")
	}

	return &OAuthUserInfo{
		Provider:       model.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		AvatarURL:      info.Picture,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleProvider)(nil)
