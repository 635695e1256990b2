package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

// Validator checks payloads against a Schema.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator backed by go-playground/validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate checks fields against s and returns the normalized values. Every
// failing field is reported in the returned *domain.ValidationError.
// Blank optional values are dropped; nil values count as absent.
func (sv *Validator) Validate(s Schema, fields map[string]any) (map[string]any, error) {
	verr := &domain.ValidationError{}
	out := make(map[string]any, len(fields))

	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if _, ok := s.Field(name); !ok {
			verr.Add(name, "is not a known field")
		}
	}

	for _, f := range s.Fields {
		raw, present := fields[f.Name]
		if !present || raw == nil {
			if f.Required {
				verr.Add(f.Name, "is required")
			}
			continue
		}

		val, ok := coerce(f.Kind, raw)
		if !ok {
			verr.Add(f.Name, "must be a "+kindLabel(f.Kind))
			continue
		}
		if blank(val) {
			if f.Required {
				verr.Add(f.Name, "is required")
			}
			continue
		}

		if f.Rules != "" {
			tag := f.Rules
			if f.Kind == KindStringList {
				tag = "dive," + tag
			}
			if err := sv.v.Var(val, tag); err != nil {
				verr.Add(f.Name, ruleFailure(err, f.Kind))
				continue
			}
		}
		out[f.Name] = val
	}

	return out, verr.OrNil()
}

func ruleFailure(err error, kind Kind) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		msg := RuleMessage(ve[0])
		if kind == KindStringList {
			return "every item " + msg
		}
		return msg
	}
	return "is invalid"
}

// RuleMessage renders one failed validator rule as a short predicate such as
// "must be a valid email".
func RuleMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #1a2b3c"
	case "lowercase":
		return "must be lowercase"
	case "datetime":
		return "must use the format " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max", "lte":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "min", "gte":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}

func kindLabel(k Kind) string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindStringList:
		return "list of strings"
	default:
		return "string"
	}
}

func coerce(k Kind, raw any) (any, bool) {
	switch k {
	case KindString:
		s, ok := raw.(string)
		return strings.TrimSpace(s), ok
	case KindBool:
		b, ok := raw.(bool)
		return b, ok
	case KindNumber:
		return toFloat(raw)
	case KindStringList:
		switch list := raw.(type) {
		case []string:
			return slices.Clone(list), true
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, strings.TrimSpace(s))
			}
			return out, true
		}
	}
	return nil, false
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func blank(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}

// Reserved holds the managed keys found in a payload.
type Reserved struct {
	Order   *int
	Visible *bool
}

// readOnly keys are echoed back by clients that PUT a full record; they are
// owned by the repository and silently dropped.
var readOnly = []string{domain.FieldID, "type", "created_at", "updated_at"}

// Split separates the managed keys from the type-specific fields of payload.
// Malformed order/visible values are reported into verr.
func Split(payload map[string]any, verr *domain.ValidationError) (map[string]any, Reserved) {
	var res Reserved
	fields := make(map[string]any, len(payload))
	for _, k := range slices.Sorted(maps.Keys(payload)) {
		v := payload[k]
		switch {
		case slices.Contains(readOnly, k):
		case k == domain.FieldOrder:
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
				verr.Add(domain.FieldOrder, "must be a non-negative integer")
				continue
			}
			n := int(f)
			res.Order = &n
		case k == domain.FieldVisible:
			if v == nil {
				continue
			}
			b, ok := v.(bool)
			if !ok {
				verr.Add(domain.FieldVisible, "must be a boolean")
				continue
			}
			res.Visible = &b
		default:
			fields[k] = v
		}
	}
	return fields, res
}
