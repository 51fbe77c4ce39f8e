// Package content はサイトコンテンツの取得と管理者による更新を提供する。
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hitoshi/sitecms/internal/metrics"
	"github.com/hitoshi/sitecms/internal/model"
	"github.com/hitoshi/sitecms/internal/repository"
	"github.com/hitoshi/sitecms/internal/security"
)

var tracer = otel.Tracer("github.com/hitoshi/sitecms/internal/content")

// Section は更新対象の範囲。メトリクスとログのラベルに使う。
type Section string

const (
	SectionAll         Section = "all"
	SectionCompanyName Section = "companyName"
	SectionHome        Section = "home"
	SectionAbout       Section = "about"
	SectionContact     Section = "contact"
)

// URLValidator はURLの静的検証を行う。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はサイトコンテンツのビジネスロジックを提供する。
type Service struct {
	repo      repository.ContentRepository
	sanitizer security.TextSanitizer
	urls      URLValidator
	validate  *validator.Validate
	metrics   metrics.MetricsCollector
	defaults  model.SiteContent
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	repo repository.ContentRepository,
	sanitizer security.TextSanitizer,
	urls URLValidator,
	mc metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		urls:      urls,
		validate:  newValidator(),
		metrics:   mc,
		defaults:  DefaultSiteContent(),
	}
}

// Get はサイトコンテンツを返す。未作成の場合は初期文言で作成してから返す。
func (s *Service) Get(ctx context.Context) (*model.SiteContent, error) {
	content, err := s.repo.GetOrCreate(ctx, s.defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to get site content: %w", err)
	}
	return content, nil
}

// Update は指定されたフィールドだけをキー単位でマージして保存する。
// 省略されたフィールドは保存済みの値を保つ。更新者はactorで記録する。
func (s *Service) Update(ctx context.Context, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, model.NewValidationError("body", "no content fields to update")
	}
	return s.apply(ctx, SectionAll, patch, actor)
}

// UpdateCompanyName は会社名だけを更新する。
func (s *Service) UpdateCompanyName(ctx context.Context, name *string, version *int, actor *model.User) (*model.SiteContent, error) {
	if name == nil {
		return nil, model.NewValidationError("companyName", "is required")
	}
	return s.apply(ctx, SectionCompanyName, &model.SiteContentPatch{CompanyName: name, Version: version}, actor)
}

// UpdateHome はトップページの文言だけを更新する。
func (s *Service) UpdateHome(ctx context.Context, home *model.HomeContentPatch, version *int, actor *model.User) (*model.SiteContent, error) {
	if home == nil {
		return nil, model.NewValidationError("homeContent", "is required")
	}
	return s.apply(ctx, SectionHome, &model.SiteContentPatch{HomeContent: home, Version: version}, actor)
}

// UpdateAbout は会社概要の文言だけを更新する。
func (s *Service) UpdateAbout(ctx context.Context, about *model.AboutContentPatch, version *int, actor *model.User) (*model.SiteContent, error) {
	if about == nil {
		return nil, model.NewValidationError("aboutContent", "is required")
	}
	return s.apply(ctx, SectionAbout, &model.SiteContentPatch{AboutContent: about, Version: version}, actor)
}

// UpdateContact はお問い合わせの文言だけを更新する。SNSリンクもキー単位でマージする。
func (s *Service) UpdateContact(ctx context.Context, contact *model.ContactContentPatch, version *int, actor *model.User) (*model.SiteContent, error) {
	if contact == nil {
		return nil, model.NewValidationError("contactContent", "is required")
	}
	return s.apply(ctx, SectionContact, &model.SiteContentPatch{ContactContent: contact, Version: version}, actor)
}

// apply はサニタイズ・検証のあと、行ロック下でマージと更新者の記録を行う。
func (s *Service) apply(ctx context.Context, section Section, patch *model.SiteContentPatch, actor *model.User) (*model.SiteContent, error) {
	ctx, span := tracer.Start(ctx, "content.Service.Update")
	defer span.End()
	span.SetAttributes(attribute.String("content.section", string(section)))

	if actor == nil {
		return nil, model.NewAuthenticationRequiredError()
	}

	patch.EachField(func(_ string, v *string) {
		*v = s.sanitizer.Clean(*v)
	})
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, s.defaults, func(c *model.SiteContent) error {
		if patch.Version != nil && *patch.Version != c.Version {
			return model.NewVersionConflictError(c.Version)
		}
		patch.ApplyTo(c)
		actorID := actor.ID
		c.UpdatedByID = &actorID
		return nil
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to update site content: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordContentUpdate(string(section))
	}
	slog.Info("site content updated",
		slog.String("section", string(section)),
		slog.String("user_id", actor.ID),
		slog.Int("version", updated.Version),
	)
	return updated, nil
}
