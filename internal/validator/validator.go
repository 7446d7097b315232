package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Languages accepted for code submissions, compared case-insensitively.
var Languages = []string{"python", "python3", "javascript", "typescript", "java", "cpp", "c", "go"}

var (
	setupOnce sync.Once
	trans     ut.Translator
)

type customTag struct {
	tag     string
	fn      govalidator.Func
	message string
}

var customTags = []customTag{
	{
		tag: "language",
		fn: func(fl govalidator.FieldLevel) bool {
			return slices.Contains(Languages, strings.ToLower(fl.Field().String()))
		},
		message: "{0} must be one of " + strings.Join(Languages, ", "),
	},
	{
		tag: "nonblank",
		fn: func(fl govalidator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		message: "{0} must not be blank",
	},
}

// Setup wires JSON field names, the custom tags and English messages into
// Gin's binding validator. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		locale := en.New()
		trans, _ = ut.New(locale, locale).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		for _, ct := range customTags {
			_ = v.RegisterValidation(ct.tag, ct.fn)
			_ = v.RegisterTranslation(ct.tag, trans,
				func(t ut.Translator) error { return t.Add(ct.tag, ct.message, true) },
				func(t ut.Translator, fe govalidator.FieldError) string {
					msg, _ := t.T(fe.Tag(), fe.Field())
					return msg
				})
		}
	})
}

// TranslateErrors turns a binding error into field -> message. Decode
// errors land under "body", or under the offending field for type mismatches.
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields[typeErr.Field] = fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind())
	case errors.As(err, &syntaxErr):
		fields["body"] = fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF):
		fields["body"] = "request body is empty"
	default:
		fields["body"] = err.Error()
	}
	return fields
}

// Bind decodes and validates the JSON body into dst, returning nil or the
// translated field errors.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Validate checks an already decoded struct, such as a websocket payload.
func Validate(dst any) map[string]string {
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
