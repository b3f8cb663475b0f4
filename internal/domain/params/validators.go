// Package params turns untyped query values into typed, bounded request
// parameters. Every function here is pure.
package params

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "kvmd-streamer-go/internal/platform/errors"
)

// ValidationError reports a rejected parameter. It unwraps to a
// KindValidation error so callers can classify it with errors.IsKind.
type ValidationError struct {
	Name   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Name, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return apperrors.New(apperrors.KindValidation, "params."+e.Name, e.Reason)
}

func invalid(name, value, reason string, args ...any) *ValidationError {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &ValidationError{Name: name, Value: value, Reason: reason}
}

var (
	trueTokens  = map[string]struct{}{"1": {}, "true": {}, "yes": {}}
	falseTokens = map[string]struct{}{"0": {}, "false": {}, "no": {}}

	listSeparator = regexp.MustCompile(`[,\t ]+`)
)

// Bool accepts 1/true/yes and 0/false/no in any case. An absent value
// yields def.
func Bool(name, raw string, present bool, def bool) (bool, error) {
	if !present {
		return def, nil
	}
	token := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := trueTokens[token]; ok {
		return true, nil
	}
	if _, ok := falseTokens[token]; ok {
		return false, nil
	}
	return false, invalid(name, raw, "expected one of 1, true, yes, 0, false, no")
}

// IntRange parses a base-10 integer within [min, max].
func IntRange(name, raw string, present bool, def, min, max int) (int, error) {
	if !present {
		return def, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid(name, raw, "not an integer")
	}
	if value < min {
		return 0, invalid(name, raw, "must be >= %d", min)
	}
	if value > max {
		return 0, invalid(name, raw, "must be <= %d", max)
	}
	return value, nil
}

// Int parses any integer literal.
func Int(name, raw string, present bool, def int) (int, error) {
	return IntRange(name, raw, present, def, math.MinInt, math.MaxInt)
}

// IntF0 parses an integer >= 0.
func IntF0(name, raw string, present bool, def int) (int, error) {
	return IntRange(name, raw, present, def, 0, math.MaxInt)
}

const (
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 80
)

// Quality parses a JPEG quality in [1, 100]. Out-of-range values fail.
func Quality(name, raw string, present bool, def int) (int, error) {
	return IntRange(name, raw, present, def, MinQuality, MaxQuality)
}

// StringIn lower-cases raw and requires it to be one of variants.
func StringIn(name, raw string, variants []string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, v := range variants {
		if value == strings.ToLower(v) {
			return value, nil
		}
	}
	return "", invalid(name, raw, "must be one of [%s]", strings.Join(variants, ", "))
}

// StringList splits raw on commas, tabs and spaces and passes each
// non-empty element through sub. A nil sub keeps elements unchanged.
// Empty input yields an empty slice.
func StringList(name, raw string, sub func(string) (string, error)) ([]string, error) {
	out := []string{}
	for _, item := range listSeparator.Split(strings.TrimSpace(raw), -1) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if sub != nil {
			checked, err := sub(item)
			if err != nil {
				return nil, err
			}
			item = checked
		}
		out = append(out, item)
	}
	return out, nil
}
