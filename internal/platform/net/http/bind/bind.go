// Package bind decodes JSON request bodies and validates them with
// go-playground/validator. Field names in errors follow the json tags
package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// DefaultMaxBytes caps request bodies when Options.MaxBytes is zero
const DefaultMaxBytes = 1 << 20

// Options tunes ParseJSON
type Options struct {
	MaxBytes     int64
	AllowUnknown bool
	// AllowEmpty returns the zero T for an empty body instead of failing
	AllowEmpty bool
}

type checker struct {
	v  *validator.Validate
	tr ut.Translator
}

// short messages keyed by tag; {0} is the field, {1} the tag param
var messages = map[string]string{
	"required": "{0} is required",
	"min":      "{0} must be at least {1}",
	"max":      "{0} must be at most {1}",
	"oneof":    "{0} must be one of {1}",
}

var current = sync.OnceValue(func() *checker {
	loc := en.New()
	tr, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = entrans.RegisterDefaultTranslations(v, tr)
	for tag, text := range messages {
		_ = v.RegisterTranslation(tag, tr,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
				return msg
			},
		)
	}
	return &checker{v: v, tr: tr}
})

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// RegisterValidation adds a custom tag to the shared validator
func RegisterValidation(tag string, fn validator.Func) error {
	return current().v.RegisterValidation(tag, fn)
}

// Struct validates v and returns the first failure as a field scoped
// validation error
func Struct(v any) error {
	err := current().v.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("bind: validator misuse")
		return perr.JSONErrf("validation error")
	}
	field, msg := FirstError(err)
	return perr.WithField(perr.Validationf("%s", msg), field)
}

// FirstError returns the first failing field and its translated message
func FirstError(err error) (field, msg string) {
	if err == nil {
		return "", ""
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return ves[0].Field(), ves[0].Translate(current().tr)
	}
	return "", err.Error()
}

// ParseJSON decodes exactly one JSON value from the request body into T and
// validates it. Unknown fields and trailing data are rejected by default
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var out T
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	defer func() { _ = r.Body.Close() }()

	body := bufio.NewReader(http.MaxBytesReader(nil, r.Body, o.MaxBytes))
	if _, err := body.Peek(1); errors.Is(err, io.EOF) {
		if o.AllowEmpty || r.Method == http.MethodGet || r.Method == http.MethodDelete {
			return out, nil
		}
		return out, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(body)
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return out, perr.JSONErrf("body exceeds %d bytes", tooBig.Limit)
		}
		return out, perr.JSONErrf("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return out, perr.JSONErrf("unexpected data after JSON value")
	}
	if err := Struct(out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
