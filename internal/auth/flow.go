package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hitoshi/sitecms/internal/metrics"
	"github.com/hitoshi/sitecms/internal/model"
)

var tracer = otel.Tracer("github.com/hitoshi/sitecms/internal/auth")

// FlowState はログインフローの状態。
type FlowState int

const (
	// StateAnonymous は未ログイン。失敗したフローもここに戻る。
	StateAnonymous FlowState = iota
	// StatePendingProviderRedirect はプロバイダーの認可画面へリダイレクト済みで、コールバック待ち。
	StatePendingProviderRedirect
	// StateAuthenticated はセッションが発行された状態。
	StateAuthenticated
)

// String は状態名を返す。
func (s FlowState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StatePendingProviderRedirect:
		return "pending_provider_redirect"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// FlowError はログインフローの失敗を表す。
// Reason はクライアントへ返してよい識別子で、内部の詳細はErrに保持する。
type FlowError struct {
	Provider model.Provider
	Reason   string
	State    FlowState
	Err      error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// FailureReason はプロバイダー別のログイン失敗識別子を返す（例: google_auth_failed）。
func FailureReason(provider model.Provider) string {
	return string(provider) + "_auth_failed"
}

// Redirect はプロバイダーの認可画面への遷移情報。
// State はクッキーに保存し、コールバックのクエリと照合する。
type Redirect struct {
	URL   string
	State string
	Next  FlowState
}

// Callback はプロバイダーからのコールバックで受け取った値。
type Callback struct {
	Provider      model.Provider
	CookieState   string
	QueryState    string
	Code          string
	ProviderError string
}

// Result はログイン成功時の結果。
type Result struct {
	User    *model.User
	Session *model.Session
	State   FlowState
}

// LoginFlow はOAuthログインの状態遷移を扱う。
//
//	Anonymous --Begin--> PendingProviderRedirect --Complete--> Authenticated
//	                                             \--失敗-----> Anonymous
type LoginFlow struct {
	providers map[model.Provider]OAuthProvider
	signer    *StateSigner
	service   *Service
	metrics   metrics.MetricsCollector
}

// NewLoginFlow はLoginFlowを生成する。metricsはnilでもよい。
func NewLoginFlow(service *Service, signer *StateSigner, mc metrics.MetricsCollector, providers ...OAuthProvider) *LoginFlow {
	m := make(map[model.Provider]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &LoginFlow{providers: m, signer: signer, service: service, metrics: mc}
}

// HasProvider はプロバイダーが設定済みかを返す。
func (f *LoginFlow) HasProvider(provider model.Provider) bool {
	_, ok := f.providers[provider]
	return ok
}

// Begin はstateトークンを発行し、プロバイダーの認可画面URLを返す。
// 未設定のプロバイダーには PROVIDER_NOT_FOUND を返す。
func (f *LoginFlow) Begin(provider model.Provider) (*Redirect, error) {
	p, ok := f.providers[provider]
	if !ok {
		return nil, model.NewProviderNotFoundError(string(provider))
	}

	state, err := f.signer.Issue(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to issue state: %w", err)
	}

	return &Redirect{
		URL:   p.AuthCodeURL(state),
		State: state,
		Next:  StatePendingProviderRedirect,
	}, nil
}

// Complete はコールバックを検証し、ユーザーを解決してセッションを発行する。
// 失敗は全て *FlowError として返し、状態はAnonymousに戻る。
func (f *LoginFlow) Complete(ctx context.Context, cb Callback) (*Result, error) {
	ctx, span := tracer.Start(ctx, "auth.LoginFlow.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("auth.provider", string(cb.Provider)))

	result, err := f.complete(ctx, cb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		f.record(cb.Provider, metrics.LoginFailure)

		var flowErr *FlowError
		if errors.As(err, &flowErr) {
			slog.Warn("oauth login failed",
				slog.String("provider", string(cb.Provider)),
				slog.String("error", flowErr.Err.Error()),
			)
		}
		return nil, err
	}

	f.record(cb.Provider, metrics.LoginSuccess)
	return result, nil
}

func (f *LoginFlow) complete(ctx context.Context, cb Callback) (*Result, error) {
	fail := func(err error) error {
		return &FlowError{Provider: cb.Provider, Reason: FailureReason(cb.Provider), State: StateAnonymous, Err: err}
	}

	p, ok := f.providers[cb.Provider]
	if !ok {
		return nil, model.NewProviderNotFoundError(string(cb.Provider))
	}

	if cb.CookieState == "" || cb.CookieState != cb.QueryState {
		return nil, fail(fmt.Errorf("%w: state mismatch", ErrInvalidState))
	}
	if err := f.signer.Verify(cb.QueryState, cb.Provider); err != nil {
		return nil, fail(err)
	}
	if cb.ProviderError != "" {
		return nil, fail(fmt.Errorf("provider returned error: %s", cb.ProviderError))
	}
	if cb.Code == "" {
		return nil, fail(errors.New("missing authorization code"))
	}

	info, err := p.Exchange(ctx, cb.Code)
	if err != nil {
		return nil, fail(err)
	}

	user, session, err := f.service.SignIn(ctx, info)
	if err != nil {
		return nil, fail(err)
	}

	return &Result{User: user, Session: session, State: StateAuthenticated}, nil
}

func (f *LoginFlow) record(provider model.Provider, outcome string) {
	if f.metrics == nil {
		return
	}
	// 未設定のプロバイダー名でラベルが増えないようにする
	if !f.HasProvider(provider) {
		provider = "unknown"
	}
	f.metrics.RecordLogin(string(provider), outcome)
}
