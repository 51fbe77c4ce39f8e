package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/hitoshi/sitecms/internal/model"
)

const (
	defaultGitHubUserURL   = "https://api.github.com/user"
	defaultGitHubEmailsURL = "https://api.github.com/user/emails"
	githubAcceptHeader     = "application/vnd.github+json"

	// githubFallbackEmailDomain はメールアドレスを公開していないGitHubユーザーに割り当てる擬似ドメイン。
	githubFallbackEmailDomain = "github.local"
)

// GitHubProvider はGitHub OAuthによる認証を提供する。
type GitHubProvider struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	userURL    string
	emailsURL  string
}

// NewGitHubProvider はGitHubProviderを生成する。
// スコープはuser:emailのみ。
func NewGitHubProvider(cfg ProviderConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userURL := cfg.UserInfoURL
	if userURL == "" {
		userURL = defaultGitHubUserURL
	}
	emailsURL := cfg.EmailsURL
	if emailsURL == "" {
		emailsURL = defaultGitHubEmailsURL
	}

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"user:email"},
		},
		httpClient: cfg.HTTPClient,
		userURL:    userURL,
		emailsURL:  emailsURL,
	}
}

// Name はプロバイダーの識別子を返す。
func (p *GitHubProvider) Name() model.Provider {
	return model.ProviderGitHub
}

// AuthCodeURL はGitHubの認可画面のURLを生成する。
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// プロフィールにメールアドレスが無い場合は /user/emails の検証済みプライマリを使い、
// それも無ければ "<login>@github.local" を割り当てる。
// 表示名が未設定の場合はloginを使う。
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = withHTTPClient(ctx, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	client := p.oauth.Client(ctx, token)

	var user githubUser
	if err := getJSON(ctx, client, p.userURL, githubAcceptHeader, &user); err != nil {
		return nil, fmt.Errorf("fetch github user: %w", err)
	}
	if user.ID == 0 || user.Login == "" {
		return nil, fmt.Errorf("incomplete github user info")
	}

	email := user.Email
	if email == "" {
		email = p.primaryEmail(ctx, client)
	}
	if email == "" {
		email = user.Login + "@" + githubFallbackEmailDomain
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &OAuthUserInfo{
		Provider:       model.ProviderGitHub,
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		Name:           name,
		AvatarURL:      user.AvatarURL,
	}, nil
}

// primaryEmail は検証済みのプライマリメールアドレスを返す。取得できない場合は空文字列。
// メールアドレス一覧の取得失敗はログイン自体を失敗させない。
func (p *GitHubProvider) primaryEmail(ctx context.Context, client *http.Client) string {
	var emails []githubEmail
	if err := getJSON(ctx, client, p.emailsURL, githubAcceptHeader, &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

// compile-time interface check
var _ OAuthProvider = (*GitHubProvider)(nil)
