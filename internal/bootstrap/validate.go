package bootstrap

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/eugenenazirov/friendcircle/internal/backend"
)

// placeholderPatterns match whole template values only, so real identifiers
// that merely contain "your-" or a run of X stay valid.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^YOUR_[A-Z0-9_]+$`),
	regexp.MustCompile(`^G-X+$`),
	regexp.MustCompile(`^X{6,}$`),
	regexp.MustCompile(`^<.*>$`),
	regexp.MustCompile(`^\$\{.*\}$`),
	regexp.MustCompile(`^(?i)(changeme|change_me|replaceme|replace_me|placeholder)$`),
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// notblank is a non-standard validator; the error is impossible for a
	// fresh instance.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// missingFields returns a FieldError for every empty or blank field.
func missingFields(v *validator.Validate, cfg backend.Config) []FieldError {
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "record", Err: err}}
	}

	seen := make(map[string]bool, len(verrs))
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out = append(out, FieldError{Field: fe.Field(), Err: ErrMissingField})
	}
	return out
}

// IsPlaceholder reports whether value looks like an unfilled template value
// such as "YOUR_API_KEY_HERE" or a masked ID like "G-XXXXXXXXXX".
func IsPlaceholder(value string) bool {
	for _, p := range placeholderPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// placeholderFields returns a FieldError for every field holding a template value.
func placeholderFields(cfg backend.Config) []FieldError {
	var out []FieldError
	for _, f := range cfg.Fields() {
		if f.Value != "" && IsPlaceholder(f.Value) {
			out = append(out, FieldError{Field: f.Name, Err: ErrPlaceholderValue})
		}
	}
	return out
}
