package content

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/sitecms/internal/model"
)

// urlFields はURLとして検証するフィールドのJSONパス。
var urlFields = map[string]bool{
	"homeContent.heroImage":              true,
	"contactContent.socialLinks.twitter":  true,
	"contactContent.socialLinks.linkedin": true,
	"contactContent.socialLinks.facebook": true,
}

// newValidator はエラーのフィールド名にJSONのキー名を使うvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePatch はサニタイズ済みのパッチを検証し、最初の違反をVALIDATION_FAILEDとして返す。
func (s *Service) validatePatch(patch *model.SiteContentPatch) error {
	if err := s.validate.Struct(patch); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return model.NewValidationError(fieldPath(fe.Namespace()), describeTag(fe))
		}
		return model.NewInvalidRequestError()
	}

	if patch.CompanyName != nil && *patch.CompanyName == "" {
		return model.NewValidationError("companyName", "must not be blank")
	}

	var firstErr error
	patch.EachField(func(path string, v *string) {
		if firstErr != nil || *v == "" {
			return
		}
		switch {
		case urlFields[path]:
			if err := s.urls.ValidateURL(*v); err != nil {
				firstErr = model.NewValidationError(path, "must be a public http(s) URL")
			}
		case path == "contactContent.email":
			if err := s.validate.Var(*v, "email"); err != nil {
				firstErr = model.NewValidationError(path, "must be a valid email address")
			}
		}
	})
	return firstErr
}

// fieldPath は "SiteContentPatch.homeContent.title" から型名を除いたパスを返す。
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed on '" + fe.Tag() + "' validation"
	}
}
