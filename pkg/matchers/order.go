package matchers

import (
	"cmp"
	"fmt"
	"reflect"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

const naturalComparator = "natural comparator"

// StrictOrdered succeeds for slices and arrays ordered by compare without
// equal neighbours. description names the ordering in failure messages; ""
// reads as "comparator".
func StrictOrdered[T any](compare func(a, b T) int, description string) types.GomegaMatcher {
	return &orderMatcher[T]{compare: compare, description: description}
}

// SoftOrdered is StrictOrdered allowing equal neighbours.
func SoftOrdered[T any](compare func(a, b T) int, description string) types.GomegaMatcher {
	return &orderMatcher[T]{compare: compare, allowEqual: true, description: description}
}

// StrictOrderedNatural is StrictOrdered by cmp.Compare.
func StrictOrderedNatural[T cmp.Ordered]() types.GomegaMatcher {
	return StrictOrdered(cmp.Compare[T], naturalComparator)
}

// SoftOrderedNatural is SoftOrdered by cmp.Compare.
func SoftOrderedNatural[T cmp.Ordered]() types.GomegaMatcher {
	return SoftOrdered(cmp.Compare[T], naturalComparator)
}

type orderMatcher[T any] struct {
	compare     func(a, b T) int
	allowEqual  bool
	description string

	mismatch string
}

func (matcher *orderMatcher[T]) Match(actual any) (success bool, err error) {
	matcher.mismatch = ""
	items, err := elements[T](actual)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(items); i++ {
		prev, next := items[i-1], items[i]
		switch c := matcher.compare(prev, next); {
		case c == 0 && !matcher.allowEqual:
			matcher.mismatch = fmt.Sprintf("Found equal elements %v and %v", prev, next)
			return false, nil
		case c > 0:
			matcher.mismatch = fmt.Sprintf("Found unordered elements %v and %v", prev, next)
			return false, nil
		}
	}
	return true, nil
}

func elements[T any](actual any) ([]T, error) {
	if items, ok := actual.([]T); ok {
		return items, nil
	}
	v := reflect.ValueOf(actual)
	if actual == nil || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		var zero T
		return nil, fmt.Errorf("Ordered matcher expects a slice or array of %T.  Got:\n%s", zero, format.Object(actual, 1))
	}
	items := make([]T, v.Len())
	for i := range items {
		item, ok := v.Index(i).Interface().(T)
		if !ok {
			return nil, fmt.Errorf("Ordered matcher expects elements of %T.  Got:\n%s", items[i], format.Object(v.Index(i).Interface(), 1))
		}
		items[i] = item
	}
	return items, nil
}

func (matcher *orderMatcher[T]) expectation() string {
	how := "Strictly"
	if matcher.allowEqual {
		how = "Softly"
	}
	by := matcher.description
	if by == "" {
		by = "comparator"
	}
	return how + " ordered by " + by
}

func (matcher *orderMatcher[T]) FailureMessage(actual any) string {
	return format.Message(actual, "to be "+matcher.expectation()) + "\n" + matcher.mismatch
}

func (matcher *orderMatcher[T]) NegatedFailureMessage(actual any) string {
	return format.Message(actual, "not to be "+matcher.expectation())
}
