package matchers_test

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/classfile/classfiletest"
	"github.com/daimatz/jlambda/pkg/classpath"
	"github.com/daimatz/jlambda/pkg/lambda"
	. "github.com/daimatz/jlambda/pkg/matchers"
	"github.com/daimatz/jlambda/pkg/registry"
)

type samplePojo struct {
	name string
}

var (
	getName = lambda.MethodRef("com/example/SamplePojo", "getName", "()Ljava/lang/String;",
		func(p *samplePojo) (string, error) { return p.name, nil })
	newInteger = lambda.ConstructorRef("java/lang/Integer", "(Ljava/lang/String;)V",
		func(s string) (int, error) { return strconv.Atoi(s) })
)

// useSamplePojo points Lambdas at a registry that knows com.example.SamplePojo
// from a compiled class file.
func useSamplePojo(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	data := classfiletest.New("com/example/SamplePojo").
		SourceFile("MoreMatchersTest.java").
		Method(classfile.AccPublic, "getName", "()Ljava/lang/String;", 10).
		Method(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic,
			"lambda$where$0", "(Lcom/example/SamplePojo;)Ljava/lang/String;", 77).
		Bytes()
	path := filepath.Join(dir, "com", "example", "SamplePojo.class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	prev := Lambdas
	files := registry.NewClassFileRegistry(classpath.NewDirClassLoader(dir, nil))
	Lambdas = lambda.NewResolver(registry.Chain{registry.Default(), files})
	t.Cleanup(func() { Lambdas = prev })
}

func TestWhere(t *testing.T) {
	useSamplePojo(t)
	g := NewWithT(t)

	pojo := &samplePojo{name: "name1"}
	g.Expect(pojo).To(Where(getName, Equal("name1")))
	g.Expect(pojo).NotTo(Where(getName, Equal("other")))
	g.Expect([]*samplePojo{pojo, {name: "name2"}}).To(ContainElement(Where(getName, Equal("name2"))))
	g.Expect([]*samplePojo{pojo, {name: "name2"}}).To(HaveEach(Where(getName, HavePrefix("name"))))

	t.Run("method reference in failure message", func(t *testing.T) {
		g := NewWithT(t)
		m := Where(getName, BeEmpty())
		ok, err := m.Match(pojo)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(ok).To(BeFalse())
		g.Expect(m.FailureMessage(pojo)).To(HavePrefix("Object that matches after call SamplePojo.getName:\n"))
		g.Expect(m.FailureMessage(pojo)).To(ContainSubstring("name1"))
	})

	t.Run("null safe", func(t *testing.T) {
		g := NewWithT(t)
		m := Where(getName, Equal("name"))
		var nilPojo *samplePojo
		ok, err := m.Match(nilPojo)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(ok).To(BeFalse())
		g.Expect(m.FailureMessage(nilPojo)).To(ContainSubstring("to be an object that matches after call SamplePojo.getName"))
	})

	t.Run("closure reports its source line", func(t *testing.T) {
		g := NewWithT(t)
		closure := lambda.Closure("com/example/SamplePojo", "lambda$where$0", "(Lcom/example/SamplePojo;)Ljava/lang/String;",
			func(p *samplePojo) (string, error) { return p.name, nil })
		m := Where(closure, BeEmpty())
		g.Expect(m.Match(pojo)).To(BeFalse())
		g.Expect(m.FailureMessage(pojo)).To(HavePrefix("Object that matches after call MoreMatchersTest.java:77:\n"))
	})

	t.Run("constructor reference", func(t *testing.T) {
		g := NewWithT(t)
		g.Expect([]string{"10", "20"}).To(HaveEach(Where(newInteger, BeNumerically(">", 5))))

		m := Where(newInteger, BeNumerically(">", 5))
		g.Expect(m.Match("1")).To(BeFalse())
		g.Expect(m.FailureMessage("1")).To(HavePrefix("Object that matches after call Integer(String):\n"))
	})

	t.Run("plain function", func(t *testing.T) {
		g := NewWithT(t)
		m := Where(lambda.Func[string, int](strconv.Atoi), Equal(2))
		g.Expect(m.Match("1")).To(BeFalse())
		g.Expect(m.FailureMessage("1")).To(HavePrefix("Object that matches after being extracted:\n"))
	})

	t.Run("unresolvable reference is reported", func(t *testing.T) {
		g := NewWithT(t)
		missing := lambda.MethodRef("com/example/Missing", "run", "()Ljava/lang/String;",
			func(s string) (string, error) { return s, nil })
		m := Where(missing, Equal("x"))
		g.Expect(m.Match("y")).To(BeFalse())
		g.Expect(m.FailureMessage("y")).To(HavePrefix("Object that matches after call to an unresolvable reference ("))
		g.Expect(m.FailureMessage("y")).To(ContainSubstring(registry.ErrTypeNotFound.Error()))
		g.Expect(m.NegatedFailureMessage("y")).To(ContainSubstring(registry.ErrTypeNotFound.Error()))

		var nilString *string
		m = Where(lambda.MethodRef("com/example/Missing", "run", "()Ljava/lang/String;",
			func(s *string) (string, error) { return *s, nil }), Equal("x"))
		g.Expect(m.Match(nilString)).To(BeFalse())
		g.Expect(m.FailureMessage(nilString)).To(ContainSubstring("unresolvable reference"))
	})

	t.Run("extractor error", func(t *testing.T) {
		g := NewWithT(t)
		_, err := Where(newInteger, Equal(1)).Match("x")
		g.Expect(err).To(MatchError(ContainSubstring("call Integer(String) failed")))
		g.Expect(errors.Is(err, strconv.ErrSyntax)).To(BeTrue())
	})

	t.Run("wrong type", func(t *testing.T) {
		g := NewWithT(t)
		_, err := Where(getName, Equal("x")).Match(42)
		g.Expect(err).To(MatchError(ContainSubstring("Where matcher expects *matchers_test.samplePojo")))
	})
}

func TestNotNull(t *testing.T) {
	g := NewWithT(t)

	g.Expect("value").To(NotNull(Equal("value")))
	g.Expect("value").NotTo(NotNull(Equal("other")))

	var nilPtr *samplePojo
	for _, v := range []any{nil, nilPtr, []int(nil)} {
		m := NotNull(BeNil())
		ok, err := m.Match(v)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(ok).To(BeFalse())
		g.Expect(m.FailureMessage(v)).To(ContainSubstring("to be not null and match"))
	}

	m := NotNull(Equal("other"))
	g.Expect(m.FailureMessage("value")).To(ContainSubstring("to equal"))
}

func TestPredicate(t *testing.T) {
	g := NewWithT(t)
	const arg = "str"

	g.Expect(arg).To(Predicate(func(s string) bool { return len(s) == len(arg) }, "Should have valid length"))

	m := Predicate(func(s string) bool { return len(s) != len(arg) }, "Should have invalid length")
	g.Expect(m.Match(arg)).To(BeFalse())
	g.Expect(m.FailureMessage(arg)).To(ContainSubstring("Should have invalid length"))

	_, err := m.Match(3)
	g.Expect(err).To(MatchError(ContainSubstring("Predicate matcher expects string")))
}

type box struct {
	v  any
	ok bool
}

func (b box) Get() (any, bool) { return b.v, b.ok }

func TestOptional(t *testing.T) {
	g := NewWithT(t)
	one := 1

	g.Expect(&one).To(IsPresent())
	g.Expect(&one).To(IsPresentAnd(Equal(1)))
	g.Expect(&one).NotTo(IsPresentAnd(Equal(int64(1))))
	g.Expect(&one).NotTo(IsEmpty())

	var none *int
	g.Expect(none).To(IsEmpty())
	g.Expect(none).NotTo(IsPresent())
	g.Expect(none).NotTo(IsPresentAnd(Equal(1)))
	g.Expect(nil).To(IsEmpty())

	g.Expect(box{v: "x", ok: true}).To(IsPresentAnd(Equal("x")))
	g.Expect(box{}).To(IsEmpty())

	g.Expect(sql.NullString{String: "s", Valid: true}).To(IsPresentAnd(Equal("s")))
	g.Expect(sql.NullString{String: "ignored"}).To(IsEmpty())
	g.Expect(sql.Null[int]{V: 3, Valid: true}).To(IsPresentAnd(BeNumerically("==", 3)))
	g.Expect(sql.Null[int]{}).NotTo(IsPresent())

	t.Run("messages", func(t *testing.T) {
		g := NewWithT(t)
		g.Expect(IsPresent().FailureMessage(none)).To(ContainSubstring("to be present"))
		g.Expect(IsEmpty().FailureMessage(&one)).To(ContainSubstring("to be empty"))
		g.Expect(IsPresentAnd(Equal(2)).FailureMessage(none)).To(ContainSubstring("to be present and match"))
		g.Expect(IsPresentAnd(Equal(2)).FailureMessage(&one)).To(HavePrefix("Present value:\n"))
	})

	t.Run("unsupported value", func(t *testing.T) {
		g := NewWithT(t)
		_, err := IsPresent().Match("plain")
		g.Expect(err).To(MatchError(ContainSubstring("IsPresent matcher expected a pointer")))
		_, err = IsPresentAnd(Equal(1)).Match(struct{ A, B int }{})
		g.Expect(err).To(HaveOccurred())
	})
}

func TestOrdered(t *testing.T) {
	g := NewWithT(t)

	g.Expect([]int{1}).To(StrictOrderedNatural[int]())
	g.Expect([]int{}).To(StrictOrderedNatural[int]())
	g.Expect([]int{1, 2}).To(StrictOrderedNatural[int]())
	g.Expect([]int{1, 1, 2}).To(SoftOrderedNatural[int]())
	g.Expect([3]string{"a", "b", "c"}).To(StrictOrderedNatural[string]())

	reverse := func(a, b int) int { return b - a }
	g.Expect([]int{2, 1}).To(StrictOrdered(reverse, "reverse order"))

	byLengthDesc := func(a, b string) int { return len(b) - len(a) }
	g.Expect([]string{"abc", "ab", "a"}).To(StrictOrdered(byLengthDesc, ""))

	nested := [][]int{{3, 2, 1}, {1, 2, 3}}
	g.Expect(nested).To(ContainElement(StrictOrderedNatural[int]()))
	g.Expect(nested).To(ContainElement(SoftOrderedNatural[int]()))

	t.Run("equal elements", func(t *testing.T) {
		g := NewWithT(t)
		m := StrictOrderedNatural[int]()
		g.Expect(m.Match([]int{1, 1})).To(BeFalse())
		msg := m.FailureMessage([]int{1, 1})
		g.Expect(msg).To(ContainSubstring("Strictly ordered by natural comparator"))
		g.Expect(msg).To(HaveSuffix("Found equal elements 1 and 1"))
	})

	t.Run("unordered elements", func(t *testing.T) {
		g := NewWithT(t)
		m := StrictOrdered(func(a, b int) int { return a - b }, "")
		g.Expect(m.Match([]int{1, 2, 0})).To(BeFalse())
		msg := m.FailureMessage([]int{1, 2, 0})
		g.Expect(msg).To(ContainSubstring("Strictly ordered by comparator"))
		g.Expect(msg).To(HaveSuffix("Found unordered elements 2 and 0"))

		soft := SoftOrderedNatural[int]()
		g.Expect(soft.Match([]int{2, 1})).To(BeFalse())
		g.Expect(soft.FailureMessage([]int{2, 1})).To(ContainSubstring("Softly ordered by natural comparator"))
	})

	t.Run("not a slice", func(t *testing.T) {
		g := NewWithT(t)
		_, err := StrictOrderedNatural[int]().Match(42)
		g.Expect(err).To(HaveOccurred())
		_, err = StrictOrderedNatural[int]().Match([]string{"a"})
		g.Expect(err).To(HaveOccurred())
	})
}

type name string

func (n name) String() string { return strings.ToUpper(string(n)) }

func TestMatchesPattern(t *testing.T) {
	g := NewWithT(t)

	g.Expect("123").To(MatchesPattern(`^\d+$`))
	g.Expect("123").To(MatchesPattern(`\d+`))
	g.Expect("ddd").NotTo(MatchesPattern(`^\d+$`))
	g.Expect("a123").NotTo(MatchesRegexp(regexp.MustCompile(`\d+`)))
	g.Expect([]byte("123")).To(MatchesRegexp(regexp.MustCompile(`\d+`)))
	g.Expect(name("abc")).To(MatchesPattern(`[A-Z]+`))
	g.Expect("ab").To(MatchesPattern(`a|ab`))

	m := MatchesPattern(`\d+`)
	g.Expect(m.FailureMessage("ddd")).To(ContainSubstring("actual was `ddd`"))
	g.Expect(m.FailureMessage("ddd")).To(HaveSuffix(`to match \d+`))

	for _, s := range []string{"1", "22", "333"} {
		g.Expect(m.Match(s)).To(BeTrue(), s)
	}
	g.Expect(m.Match("3a")).To(BeFalse())

	invalid := MatchesPattern(`(`)
	for range 2 {
		_, err := invalid.Match("x")
		g.Expect(err).To(MatchError(ContainSubstring("invalid pattern")))
	}
	_, err := MatchesRegexp(regexp.MustCompile(`a|ab`)).Match("ab")
	g.Expect(err).NotTo(HaveOccurred())
	_, err = m.Match(12)
	g.Expect(err).To(HaveOccurred())
}
