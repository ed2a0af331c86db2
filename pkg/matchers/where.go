package matchers

import (
	"fmt"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"

	"github.com/daimatz/jlambda/pkg/lambda"
)

// Where applies extractor to actual and matches the result with m. When the
// extractor is a method or constructor reference, failure messages name it.
//
//	Expect(pojo).To(Where(getName, Equal("name")))
func Where[T, R any](extractor lambda.Function[T, R], m types.GomegaMatcher) types.GomegaMatcher {
	return &WhereMatcher[T, R]{Extractor: extractor, Matcher: m}
}

type WhereMatcher[T, R any] struct {
	Extractor lambda.Function[T, R]
	Matcher   types.GomegaMatcher

	extracted any
}

func (matcher *WhereMatcher[T, R]) Match(actual any) (success bool, err error) {
	matcher.extracted = nil
	if isNil(actual) {
		return false, nil
	}
	item, ok := actual.(T)
	if !ok {
		var zero T
		return false, fmt.Errorf("Where matcher expects %T.  Got:\n%s", zero, format.Object(actual, 1))
	}
	v, err := matcher.Extractor.Apply(item)
	if err != nil {
		return false, fmt.Errorf("%s failed: %w", matcher.extraction(), err)
	}
	matcher.extracted = v
	return matcher.Matcher.Match(v)
}

// extraction names the extractor: "call String.toLowerCase" when it resolves,
// "being extracted" for plain functions. A reference that fails to resolve
// is reported with its error.
func (matcher *WhereMatcher[T, R]) extraction() string {
	ref, err := Lambdas.Describe(matcher.Extractor)
	switch {
	case err != nil:
		return fmt.Sprintf("call to an unresolvable reference (%v)", err)
	case ref != "":
		return "call " + ref
	}
	return "being extracted"
}

func (matcher *WhereMatcher[T, R]) FailureMessage(actual any) string {
	if isNil(actual) {
		return format.Message(actual, "to be an object that matches after "+matcher.extraction())
	}
	return fmt.Sprintf("Object that matches after %s:\n%s",
		matcher.extraction(), matcher.Matcher.FailureMessage(matcher.extracted))
}

func (matcher *WhereMatcher[T, R]) NegatedFailureMessage(actual any) string {
	return fmt.Sprintf("Object that does not match after %s:\n%s",
		matcher.extraction(), matcher.Matcher.NegatedFailureMessage(matcher.extracted))
}
