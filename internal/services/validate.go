package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/tbourn/go-chat-relay/internal/domain"
)

// PayloadValidator decodes and checks receive-data bodies.
type PayloadValidator struct {
	v *validator.Validate

	// MaxPromptRunes caps prompt_user after trimming; 0 disables the cap.
	MaxPromptRunes int
}

// NewPayloadValidator builds a validator that reports fields by their JSON
// names.
func NewPayloadValidator(maxPromptRunes int) *PayloadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PayloadValidator{v: v, MaxPromptRunes: maxPromptRunes}
}

// Decode reads one JSON payload from r. Unknown fields, type mismatches and
// trailing data are validation errors. The result is also validated.
func (p *PayloadValidator) Decode(r io.Reader) (*domain.ChatPayload, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var pl domain.ChatPayload
	if err := dec.Decode(&pl); err != nil {
		return nil, decodeError(err)
	}
	if dec.More() {
		return nil, invalid("body", "unexpected data after JSON object")
	}
	if err := p.Validate(&pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// Validate checks struct tags and the prompt length.
func (p *PayloadValidator) Validate(pl *domain.ChatPayload) error {
	if pl == nil {
		return invalid("body", "missing payload")
	}
	verr := &ValidationError{}
	if err := p.v.Struct(pl); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return invalid("body", err.Error())
		}
		for _, fe := range ves {
			verr.Fields = append(verr.Fields, FieldError{
				Field:  jsonPath(fe.Namespace()),
				Reason: reason(fe),
			})
		}
	}
	if p.MaxPromptRunes > 0 && utf8.RuneCountInString(strings.TrimSpace(pl.PromptUser)) > p.MaxPromptRunes {
		verr.Fields = append(verr.Fields, FieldError{
			Field:  "prompt_user",
			Reason: fmt.Sprintf("must be at most %d characters", p.MaxPromptRunes),
		})
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// jsonPath drops the root struct name: "ChatPayload.user_data.id" → "user_data.id".
func jsonPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return invalid(field, "must be of type "+typeErr.Type.String())
	case errors.As(err, &syntaxErr):
		return invalid("body", "malformed JSON")
	case errors.Is(err, io.EOF):
		return invalid("body", "empty body")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return invalid(strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`), "unknown field")
	default:
		return invalid("body", err.Error())
	}
}
