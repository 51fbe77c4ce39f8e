package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/sitecms/internal/model"
)

// StateTTL はOAuth stateトークンの有効期間。
const StateTTL = 10 * time.Minute

// ErrInvalidState はstateトークンが不正・期限切れ・別プロバイダー向けであることを表す。
var ErrInvalidState = errors.New("invalid oauth state")

// stateClaims はstateトークンのクレーム。jtiにnonceを入れる。
type stateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// StateSigner はOAuthのCSRF対策用stateトークンをHS256で署名・検証する。
// サーバー側にstateを保存しないため、複数インスタンスでもそのまま動作する。
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner はStateSignerを生成する。
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// Issue は指定プロバイダー向けのstateトークンを発行する。
func (s *StateSigner) Issue(provider model.Provider) (string, error) {
	nonce, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	claims := stateClaims{
		Provider: string(provider),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify はstateトークンの署名・有効期限・プロバイダーを検証する。
func (s *StateSigner) Verify(token string, provider model.Provider) error {
	if token == "" {
		return ErrInvalidState
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != string(provider) || claims.ID == "" {
		return ErrInvalidState
	}
	return nil
}

// randomHex は暗号的に安全な乱数をnバイト生成して16進文字列で返す。
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
