package matchers

import (
	"fmt"
	"regexp"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// MatchesRegexp succeeds when the whole of actual matches re, unlike gomega's
// MatchRegexp which accepts any substring match.
func MatchesRegexp(re *regexp.Regexp) types.GomegaMatcher {
	return newMatchesMatcher(re.String())
}

// MatchesPattern is MatchesRegexp for a pattern string. An invalid pattern
// is reported by Match.
func MatchesPattern(pattern string) types.GomegaMatcher {
	return newMatchesMatcher(pattern)
}

type MatchesMatcher struct {
	Pattern string

	re  *regexp.Regexp
	err error
}

func newMatchesMatcher(pattern string) *MatchesMatcher {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	return &MatchesMatcher{Pattern: pattern, re: re, err: err}
}

func (matcher *MatchesMatcher) Match(actual any) (success bool, err error) {
	s, ok := toString(actual)
	if !ok {
		return false, fmt.Errorf("MatchesPattern matcher requires a string or stringer.  Got:\n%s", format.Object(actual, 1))
	}
	if matcher.err != nil {
		return false, fmt.Errorf("MatchesPattern matcher: invalid pattern %q: %w", matcher.Pattern, matcher.err)
	}
	return matcher.re.MatchString(s), nil
}

func toString(actual any) (string, bool) {
	switch v := actual.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

func (matcher *MatchesMatcher) FailureMessage(actual any) string {
	s, _ := toString(actual)
	return fmt.Sprintf("Expected\n    actual was `%s`\nto match %s", s, matcher.Pattern)
}

func (matcher *MatchesMatcher) NegatedFailureMessage(actual any) string {
	s, _ := toString(actual)
	return fmt.Sprintf("Expected\n    actual was `%s`\nnot to match %s", s, matcher.Pattern)
}
