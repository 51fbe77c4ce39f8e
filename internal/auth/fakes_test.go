package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/sitecms/internal/model"
	"github.com/hitoshi/sitecms/internal/repository"
)

// memUserRepo はテスト用のインメモリUserRepository。
// email・プロバイダーIDの一意制約をPostgreSQLと同じように検査する。
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	// 各メソッドのエラーを差し込むためのフック
	createErr error
	findErr   error
	creates   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) copyOf(u *model.User) *model.User {
	c := *u
	return &c
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u, ok := r.users[id]; ok {
		return r.copyOf(u), nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByProviderID(_ context.Context, provider model.Provider, providerUserID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.ProviderID(provider) == providerUserID {
			return r.copyOf(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return r.copyOf(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = r.copyOf(user)
	r.creates++
	return nil
}

func (r *memUserRepo) LinkProvider(_ context.Context, userID string, provider model.Provider, providerUserID, avatarURL string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	id := providerUserID
	switch provider {
	case model.ProviderGoogle:
		u.GoogleID = &id
	case model.ProviderGitHub:
		u.GitHubID = &id
	}
	u.AvatarURL = avatarURL
	u.UpdatedAt = time.Now()
	return r.copyOf(u), nil
}

func (r *memUserRepo) UpdateName(_ context.Context, id, name string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Name = name
	return r.copyOf(u), nil
}

func (r *memUserRepo) UpdateRoleByEmail(_ context.Context, email string, role model.Role) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			u.Role = role
			return r.copyOf(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *memUserRepo) count() int {
	n, _ := r.Count(context.Background())
	return n
}

// memSessionRepo はテスト用のインメモリSessionRepository。
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	touches  int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *memSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeenAt = at
		r.touches++
	}
	return nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// mockOAuthProvider はテスト用のOAuthProvider。
type mockOAuthProvider struct {
	name       model.Provider
	exchangeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) Name() model.Provider { return m.name }

func (m *mockOAuthProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (m *mockOAuthProvider) Exchange(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return nil, nil
}

// mockMetrics はログイン結果の記録を数える。
type mockMetrics struct {
	mu     sync.Mutex
	logins map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{logins: make(map[string]int)}
}

func (m *mockMetrics) RecordLogin(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[provider+"/"+outcome]++
}
func (m *mockMetrics) RecordContentUpdate(string)                            {}
func (m *mockMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *mockMetrics) RecordSessionsCleaned(int64)                          {}

func newTestService(users *memUserRepo, sessions *memSessionRepo, policy RolePolicy) *Service {
	if policy == nil {
		policy = NewBootstrapPolicy(users)
	}
	return NewService(users, sessions, policy, ServiceConfig{
		SessionMaxAge: 24 * time.Hour,
		IdleTimeout:   2 * time.Hour,
	})
}

var (
	_ repository.UserRepository    = (*memUserRepo)(nil)
	_ repository.SessionRepository = (*memSessionRepo)(nil)
)
