// Package matchers provides gomega matchers whose failure messages name the
// method a lambda extractor refers to, such as "after call Pojo.getName".
package matchers

import (
	"fmt"
	"reflect"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"

	"github.com/daimatz/jlambda/pkg/lambda"
	"github.com/daimatz/jlambda/pkg/registry"
)

// Lambdas resolves extractors for failure messages. Replace it to describe
// classes outside the default JDK manifest.
var Lambdas = lambda.NewResolver(registry.Default())

func isNil(actual any) bool {
	if actual == nil {
		return true
	}
	switch v := reflect.ValueOf(actual); v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

// NotNull succeeds when actual is non-nil and matches m.
func NotNull(m types.GomegaMatcher) types.GomegaMatcher {
	return &NotNullMatcher{Matcher: m}
}

type NotNullMatcher struct {
	Matcher types.GomegaMatcher
}

func (matcher *NotNullMatcher) Match(actual any) (success bool, err error) {
	if isNil(actual) {
		return false, nil
	}
	return matcher.Matcher.Match(actual)
}

func (matcher *NotNullMatcher) FailureMessage(actual any) string {
	if isNil(actual) {
		return format.Message(actual, "to be not null and match")
	}
	return matcher.Matcher.FailureMessage(actual)
}

func (matcher *NotNullMatcher) NegatedFailureMessage(actual any) string {
	return matcher.Matcher.NegatedFailureMessage(actual)
}

// Predicate succeeds when fn returns true. description is the expectation
// shown on failure.
func Predicate[T any](fn func(T) bool, description string) types.GomegaMatcher {
	return &predicateMatcher[T]{fn: fn, description: description}
}

type predicateMatcher[T any] struct {
	fn          func(T) bool
	description string
}

func (matcher *predicateMatcher[T]) Match(actual any) (success bool, err error) {
	v, ok := actual.(T)
	if !ok {
		var zero T
		return false, fmt.Errorf("Predicate matcher expects %T.  Got:\n%s", zero, format.Object(actual, 1))
	}
	return matcher.fn(v), nil
}

func (matcher *predicateMatcher[T]) FailureMessage(actual any) string {
	return format.Message(actual, matcher.description)
}

func (matcher *predicateMatcher[T]) NegatedFailureMessage(actual any) string {
	return format.Message(actual, "not "+matcher.description)
}
