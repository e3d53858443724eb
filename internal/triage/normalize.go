// Package triage turns loosely structured advisory replies into a validated
// model.Triage.
//
// Advisory backends are text generators; their replies routinely wrap the
// JSON in a markdown fence, express confidence as a percentage, or return
// causes as objects instead of strings. Normalize repairs those deviations
// and rejects anything it cannot coerce into shape.
package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aimonitor/internal/model"

	"github.com/go-playground/validator/v10"
)

// ErrRejected wraps every reason a reply could not be normalized.
var ErrRejected = errors.New("triage rejected")

var validate = validator.New(validator.WithRequiredStructEnabled())

// shape is the validated intermediate form. Pointers distinguish a missing
// field from a zero value.
type shape struct {
	Summary            *string        `validate:"required"`
	Severity           *string        `validate:"required,oneof=low medium high"`
	Confidence         *float64       `validate:"required,gte=0,lte=1"`
	SuspectedCauses    []string       `validate:"-"`
	RecommendedActions []model.Action `validate:"dive"`
}

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// Normalize parses raw into a Triage. Any failure returns an error wrapping
// ErrRejected; it never panics on malformed input.
func Normalize(raw string) (model.Triage, error) {
	body := ExtractJSON(raw)
	if body == "" {
		return model.Triage{}, reject("empty reply")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return model.Triage{}, reject("parse reply: %v", err)
	}

	var s shape
	if v, ok := lookup(doc, "summary"); ok {
		str, isStr := v.(string)
		if !isStr {
			return model.Triage{}, reject("summary is %T, want string", v)
		}
		s.Summary = &str
	}
	if v, ok := lookup(doc, "severity"); ok {
		str, isStr := v.(string)
		if !isStr {
			return model.Triage{}, reject("severity is %T, want string", v)
		}
		str = strings.ToLower(strings.TrimSpace(str))
		s.Severity = &str
	}
	if v, ok := lookup(doc, "confidence"); ok {
		c, err := coerceConfidence(v)
		if err != nil {
			return model.Triage{}, err
		}
		s.Confidence = &c
	}

	causes, err := coerceCauses(lookupAny(doc, "suspected_causes", "suspectedCauses"))
	if err != nil {
		return model.Triage{}, err
	}
	s.SuspectedCauses = causes

	actions, err := coerceActions(lookupAny(doc, "recommended_actions", "recommendedActions"))
	if err != nil {
		return model.Triage{}, err
	}
	s.RecommendedActions = actions

	if err := validate.Struct(s); err != nil {
		return model.Triage{}, reject("validate: %v", err)
	}

	return model.Triage{
		Summary:            *s.Summary,
		Severity:           model.Severity(*s.Severity),
		SuspectedCauses:    s.SuspectedCauses,
		RecommendedActions: s.RecommendedActions,
		Confidence:         *s.Confidence,
	}, nil
}

// ExtractJSON strips a markdown code fence, with or without a language tag,
// and returns the interior. Without a fence, or when the fence holds no
// object, it falls back to the outermost brace pair so that prose around the
// object is tolerated.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		// Drop the language tag line, e.g. "json".
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		} else if tag := strings.TrimSpace(rest); strings.HasPrefix(strings.ToLower(tag), "json") {
			rest = strings.TrimSpace(tag)[4:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		// A stray closing fence after a bare object leaves nothing inside.
		if inner := strings.TrimSpace(rest); strings.Contains(inner, "{") {
			return inner
		}
	}
	open := strings.IndexByte(text, '{')
	closing := strings.LastIndexByte(text, '}')
	if open >= 0 && closing > open {
		return text[open : closing+1]
	}
	return text
}

func lookup(doc map[string]any, key string) (any, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func lookupAny(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := lookup(doc, k); ok {
			return v
		}
	}
	return nil
}

// coerceConfidence rescales a 0-100 value into [0,1]. Values outside (1,100]
// pass through untouched and are left for validation to judge.
func coerceConfidence(v any) (float64, error) {
	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return 0, reject("confidence %q is not numeric", t)
		}
		c = parsed
	default:
		return 0, reject("confidence is %T, want number", v)
	}
	if c > 1 && c <= 100 {
		c /= 100
	}
	return c, nil
}

func coerceCauses(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, causeString(item))
		}
		return out, nil
	default:
		return nil, reject("suspected_causes is %T, want list", v)
	}
}

// causeString reduces one cause to text, preferring "reason", then "cause",
// then the whole object as JSON.
func causeString(item any) string {
	switch t := item.(type) {
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"reason", "cause"} {
			if s := stringify(t[key]); s != "" {
				return s
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return stringify(item)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func coerceActions(v any) ([]model.Action, error) {
	switch t := v.(type) {
	case nil:
		return []model.Action{}, nil
	case string:
		return []model.Action{alertAction(t)}, nil
	case []any:
		out := make([]model.Action, 0, len(t))
		for i, item := range t {
			a, err := coerceAction(item)
			if err != nil {
				return nil, reject("recommended_actions[%d]: %v", i, err)
			}
			out = append(out, a)
		}
		return out, nil
	default:
		return nil, reject("recommended_actions is %T, want list", v)
	}
}

func coerceAction(item any) (model.Action, error) {
	switch t := item.(type) {
	case string:
		return alertAction(t), nil
	case map[string]any:
		kind, ok := t["type"].(string)
		if !ok {
			return model.Action{}, fmt.Errorf("type is %T, want string", t["type"])
		}
		a := model.Action{Type: model.ActionType(strings.ToLower(strings.TrimSpace(kind)))}
		target, err := optionalString(t["target"])
		if err != nil {
			return model.Action{}, fmt.Errorf("target: %w", err)
		}
		reason, err := optionalString(t["reason"])
		if err != nil {
			return model.Action{}, fmt.Errorf("reason: %w", err)
		}
		a.Target, a.Reason = target, reason
		return a, nil
	default:
		return model.Action{}, fmt.Errorf("unsupported element %T", item)
	}
}

func optionalString(v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	default:
		return nil, fmt.Errorf("is %T, want string or null", v)
	}
}

func alertAction(reason string) model.Action {
	return model.Action{Type: model.ActionAlert, Reason: &reason}
}
