package matchers

import (
	"fmt"
	"reflect"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// Optional is a value that may be absent.
type Optional interface {
	Get() (any, bool)
}

// unwrap reports the contained value of an optional-like actual: a pointer,
// an Optional, or a database/sql style struct with a Valid flag
// (sql.NullString, sql.Null[T], ...). nil counts as empty.
func unwrap(actual any) (value any, present bool, err error) {
	if actual == nil {
		return nil, false, nil
	}
	if o, ok := actual.(Optional); ok {
		value, present = o.Get()
		return value, present, nil
	}

	v := reflect.ValueOf(actual)
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, false, nil
		}
		return v.Elem().Interface(), true, nil
	case reflect.Struct:
		if value, present, ok := nullStruct(v); ok {
			return value, present, nil
		}
	}
	return nil, false, fmt.Errorf("expected a pointer, an Optional or a sql.Null value.  Got:\n%s", format.Object(actual, 1))
}

// nullStruct recognizes two-field structs where one field is "Valid bool".
func nullStruct(v reflect.Value) (value any, present, ok bool) {
	t := v.Type()
	if t.NumField() != 2 {
		return nil, false, false
	}
	for i := range 2 {
		f := t.Field(i)
		other := t.Field(1 - i)
		if f.Name != "Valid" || f.Type.Kind() != reflect.Bool || !other.IsExported() {
			continue
		}
		if !v.Field(i).Bool() {
			return nil, false, true
		}
		return v.Field(1 - i).Interface(), true, true
	}
	return nil, false, false
}

// IsPresent succeeds for optional values holding something.
func IsPresent() types.GomegaMatcher {
	return &presenceMatcher{want: true}
}

// IsEmpty succeeds for optional values holding nothing.
func IsEmpty() types.GomegaMatcher {
	return &presenceMatcher{want: false}
}

type presenceMatcher struct {
	want bool
}

func (matcher *presenceMatcher) Match(actual any) (success bool, err error) {
	_, present, err := unwrap(actual)
	if err != nil {
		return false, fmt.Errorf("%s matcher %w", matcher.name(), err)
	}
	return present == matcher.want, nil
}

func (matcher *presenceMatcher) name() string {
	if matcher.want {
		return "IsPresent"
	}
	return "IsEmpty"
}

func (matcher *presenceMatcher) expectation() string {
	if matcher.want {
		return "to be present"
	}
	return "to be empty"
}

func (matcher *presenceMatcher) FailureMessage(actual any) string {
	return format.Message(actual, matcher.expectation())
}

func (matcher *presenceMatcher) NegatedFailureMessage(actual any) string {
	return format.Message(actual, "not "+matcher.expectation())
}

// IsPresentAnd succeeds for optional values holding something that matches m.
func IsPresentAnd(m types.GomegaMatcher) types.GomegaMatcher {
	return &IsPresentAndMatcher{Matcher: m}
}

type IsPresentAndMatcher struct {
	Matcher types.GomegaMatcher
}

func (matcher *IsPresentAndMatcher) Match(actual any) (success bool, err error) {
	value, present, err := unwrap(actual)
	if err != nil {
		return false, fmt.Errorf("IsPresentAnd matcher %w", err)
	}
	if !present {
		return false, nil
	}
	return matcher.Matcher.Match(value)
}

func (matcher *IsPresentAndMatcher) FailureMessage(actual any) string {
	value, present, _ := unwrap(actual)
	if !present {
		return format.Message(actual, "to be present and match")
	}
	return "Present value:\n" + matcher.Matcher.FailureMessage(value)
}

func (matcher *IsPresentAndMatcher) NegatedFailureMessage(actual any) string {
	value, _, _ := unwrap(actual)
	return "Present value:\n" + matcher.Matcher.NegatedFailureMessage(value)
}
