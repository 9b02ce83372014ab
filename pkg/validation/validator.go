package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Init configures the global validator used by Gin's binding.
// - Uses JSON (or form) tag names in errors.
// - Registers the username rule and alias tags.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("form")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.IsSlug(fl.Field().String())
	})
	v.RegisterAlias("username", "min=1,max=150,username_chars")
	v.RegisterAlias("pwd", "min=1,max=128")
}

// ToDetails converts validation/binding errors into a map[field]message suitable for error bodies.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) {
		return map[string]string{"detail": "JSON parse error."}
	}
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "detail"
		}
		return map[string]string{field: "has the wrong type."}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"detail": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "uuid":
		return "Must be a valid UUID."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return "Must be one of: " + strings.Join(strings.Fields(param), ", ") + "."
	case "eqfield":
		return "Must match the " + param + " field."
	case "slug":
		return "Enter a valid slug consisting of lowercase letters, numbers or hyphens."
	case "pwd":
		return "This field may not be blank and must have no more than 128 characters."
	case "username_chars", "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "min":
		if isNumberKind(fe.Kind()) {
			return "Ensure this value is greater than or equal to " + param + "."
		}
		if param == "1" {
			return "This field may not be blank."
		}
		return "Ensure this field has at least " + param + " characters."
	case "max":
		if isNumberKind(fe.Kind()) {
			return "Ensure this value is less than or equal to " + param + "."
		}
		return "Ensure this field has no more than " + param + " characters."
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
