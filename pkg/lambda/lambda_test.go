package lambda_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/classfile/classfiletest"
	"github.com/daimatz/jlambda/pkg/classpath"
	"github.com/daimatz/jlambda/pkg/jtype"
	"github.com/daimatz/jlambda/pkg/lambda"
	"github.com/daimatz/jlambda/pkg/registry"
)

var (
	toLowerCase = lambda.MethodRef("java/lang/String", "toLowerCase", "()Ljava/lang/String;",
		func(s string) (string, error) { return strings.ToLower(s), nil })
	toLowerCaseLocale = lambda.MethodRef("java/lang/String", "toLowerCase", "(Ljava/util/Locale;)Ljava/lang/String;",
		func(s string) (string, error) { return strings.ToLower(s), nil })
	parseInt = lambda.StaticRef("java.lang.Integer", "parseInt", "(Ljava/lang/String;)I",
		func(s string) (int, error) { return strconv.Atoi(s) })
	parseIntRadix = lambda.StaticRef("java.lang.Integer", "parseInt", "(Ljava/lang/String;I)I",
		func(s string) (int, error) { return strconv.Atoi(s) })
	newInteger = lambda.ConstructorRef("java/lang/Integer", "(Ljava/lang/String;)V",
		func(s string) (int, error) { return strconv.Atoi(s) })
)

func TestRefApply(t *testing.T) {
	got, err := toLowerCase.Apply("ABC")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	n, err := lambda.Func[string, int](strconv.Atoi).Apply("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	d := parseInt.Descriptor()
	assert.Equal(t, "java/lang/Integer", d.ImplClass)
	assert.Equal(t, lambda.KindInvokeStatic, d.ImplKind)
	assert.Equal(t, "invokeStatic java/lang/Integer.parseInt:(Ljava/lang/String;)I", d.String())
}

type wrongShape struct{}

func (wrongShape) WriteReplace() (any, error) { return "not a lambda", nil }

type failing struct{}

func (failing) WriteReplace() (any, error) { return nil, errors.New("boom") }

type panicking struct{}

func (panicking) WriteReplace() (any, error) { panic("corrupt") }

// shadowed hides the promoted accessor behind one of another signature, so
// only the embedded walk can find it.
type shadowed struct {
	*lambda.Ref[string, string]
}

func (shadowed) WriteReplace() string { return "" }

// stopping declares its own accessor, which wins over the embedded one.
type stopping struct {
	*lambda.Ref[string, string]
}

func (stopping) WriteReplace() (any, error) { return 42, nil }

type Loop struct {
	*Loop
}

func TestExtractDescriptor(t *testing.T) {
	t.Run("method reference", func(t *testing.T) {
		d, err := lambda.ExtractDescriptor(toLowerCaseLocale)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "toLowerCase", d.ImplMethodName)
		assert.Equal(t, "(Ljava/util/Locale;)Ljava/lang/String;", d.ImplMethodSignature)
		assert.Equal(t, lambda.KindInvokeVirtual, d.ImplKind)
	})

	t.Run("descriptor is a copy", func(t *testing.T) {
		d, err := lambda.ExtractDescriptor(toLowerCase)
		require.NoError(t, err)
		d.ImplMethodName = "changed"
		assert.Equal(t, "toLowerCase", toLowerCase.Descriptor().ImplMethodName)
	})

	t.Run("values without descriptor", func(t *testing.T) {
		for _, v := range []any{nil, "plain", 42, struct{}{}, lambda.Func[string, int](strconv.Atoi), wrongShape{}, &wrongShape{}, stopping{toLowerCase}} {
			d, err := lambda.ExtractDescriptor(v)
			assert.NoError(t, err, "%T", v)
			assert.Nil(t, d, "%T", v)
		}
	})

	t.Run("embedded chain", func(t *testing.T) {
		d, err := lambda.ExtractDescriptor(shadowed{toLowerCase})
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "toLowerCase", d.ImplMethodName)

		d, err = lambda.ExtractDescriptor(shadowed{})
		assert.NoError(t, err)
		assert.Nil(t, d)

		var typedNil *lambda.Ref[string, string]
		d, err = lambda.ExtractDescriptor(typedNil)
		assert.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("self embedding terminates", func(t *testing.T) {
		s := &Loop{}
		s.Loop = s
		d, err := lambda.ExtractDescriptor(s)
		assert.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("failing accessor", func(t *testing.T) {
		for _, v := range []any{failing{}, panicking{}} {
			d, err := lambda.ExtractDescriptor(v)
			assert.ErrorIs(t, err, lambda.ErrInternal, "%T", v)
			assert.Nil(t, d)
		}
	})
}

func TestKind(t *testing.T) {
	for _, k := range []lambda.Kind{lambda.KindInvokeVirtual, lambda.KindInvokeStatic, lambda.KindInvokeSpecial, lambda.KindNewInvokeSpecial, lambda.KindInvokeInterface} {
		parsed, err := lambda.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "Kind(0)", lambda.Kind(0).String())
	_, err := lambda.ParseKind("invokeMagic")
	assert.Error(t, err)

	assert.True(t, lambda.KindInvokeInterface.IsMethodCall())
	assert.False(t, lambda.KindNewInvokeSpecial.IsMethodCall())
	assert.True(t, lambda.KindNewInvokeSpecial.IsConstructorCall())
	assert.False(t, lambda.Kind(classfile.RefGetField).IsMethodCall())
}

func TestResolveMethod(t *testing.T) {
	r := lambda.NewResolver(registry.Default())

	t.Run("no-arg overload", func(t *testing.T) {
		m, err := r.ResolveMethod(toLowerCase)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "toLowerCase", m.Name)
		assert.Empty(t, m.Params)
		assert.Equal(t, "String.toLowerCase", r.MethodShortReference(m))
	})

	t.Run("locale overload", func(t *testing.T) {
		m, err := r.ResolveMethod(toLowerCaseLocale)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, []jtype.Type{jtype.Reference("java.util.Locale")}, m.Params)
	})

	t.Run("static overloads", func(t *testing.T) {
		m, err := r.ResolveMethod(parseInt)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, []jtype.Type{jtype.Reference("java.lang.String")}, m.Params)
		assert.True(t, m.Static)

		m, err = r.ResolveMethod(parseIntRadix)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, []jtype.Type{jtype.Reference("java.lang.String"), jtype.Int}, m.Params)
		assert.Equal(t, "Integer.parseInt", r.MethodShortReference(m))
	})

	t.Run("constructor reference is not a method", func(t *testing.T) {
		m, err := r.ResolveMethod(newInteger)
		assert.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("no matching overload", func(t *testing.T) {
		ref := lambda.MethodRef("java/lang/String", "toLowerCase", "(I)Ljava/lang/String;",
			func(s string) (string, error) { return s, nil })
		m, err := r.ResolveMethod(ref)
		assert.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("plain function", func(t *testing.T) {
		m, err := r.ResolveMethod(lambda.Func[string, int](strconv.Atoi))
		assert.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("unknown class", func(t *testing.T) {
		ref := lambda.MethodRef("com/example/Missing", "run", "()V", func(s string) (string, error) { return s, nil })
		_, err := r.ResolveMethod(ref)
		assert.ErrorIs(t, err, registry.ErrTypeNotFound)
	})

	t.Run("malformed signature", func(t *testing.T) {
		ref := lambda.MethodRef("java/lang/String", "trim", "ThisDoesNotStartWithParen", func(s string) (string, error) { return s, nil })
		_, err := r.ResolveMethod(ref)
		assert.ErrorIs(t, err, jtype.ErrFormat)
	})

	t.Run("failing accessor", func(t *testing.T) {
		_, err := r.ResolveMethod(failing{})
		assert.ErrorIs(t, err, lambda.ErrInternal)
		_, err = r.ResolveConstructor(panicking{})
		assert.ErrorIs(t, err, lambda.ErrInternal)
	})
}

func TestResolveConstructor(t *testing.T) {
	r := lambda.NewResolver(registry.Default())

	c, err := r.ResolveConstructor(newInteger)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []jtype.Type{jtype.Reference("java.lang.String")}, c.Params)
	assert.Equal(t, "Integer(String)", lambda.ConstructorShortReference(c))

	c, err = r.ResolveConstructor(toLowerCase)
	assert.NoError(t, err)
	assert.Nil(t, c)

	noMatch := lambda.ConstructorRef("java/lang/Integer", "(J)V", func(s string) (int, error) { return 0, nil })
	c, err = r.ResolveConstructor(noMatch)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func classDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, data []byte) {
		path := filepath.Join(dir, filepath.FromSlash(name)+".class")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	write("com/example/Pojo", classfiletest.New("com/example/Pojo").
		SourceFile("Pojo.java").
		Method(classfile.AccPublic, "<init>", "()V", 3).
		Method(classfile.AccPublic, "getName", "()Ljava/lang/String;", 12).
		Method(classfile.AccPublic, "setAge", "(I)V", 16).
		Method(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic,
			"lambda$test$0", "(Lcom/example/Pojo;)Ljava/lang/String;", 42).
		Lambda("apply", "()Ljava/util/function/Function;", "(Ljava/lang/Object;)Ljava/lang/Object;",
			classfile.RefInvokeVirtual, "com/example/Pojo", "getName", "()Ljava/lang/String;",
			"(Lcom/example/Pojo;)Ljava/lang/String;").
		Lambda("apply", "()Ljava/util/function/Function;", "(Ljava/lang/Object;)Ljava/lang/Object;",
			classfile.RefInvokeStatic, "com/example/Pojo", "lambda$test$0", "(Lcom/example/Pojo;)Ljava/lang/String;",
			"(Lcom/example/Pojo;)Ljava/lang/String;").
		Lambda("accept", "()Ljava/util/function/ObjIntConsumer;", "(Ljava/lang/Object;I)V",
			classfile.RefInvokeVirtual, "com/example/Pojo", "setAge", "(I)V",
			"(Lcom/example/Pojo;I)V").
		Bytes())
	// Compiled without -g: no SourceFile and no LineNumberTable.
	write("com/example/Stripped", classfiletest.New("com/example/Stripped").
		Method(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic,
			"lambda$run$0", "(Ljava/lang/String;)Ljava/lang/String;", 0).
		Bytes())
	return dir
}

func TestClosureShortReference(t *testing.T) {
	files := registry.NewClassFileRegistry(classpath.NewDirClassLoader(classDir(t), nil))
	r := lambda.NewResolver(registry.Chain{registry.Default(), files})

	closure := lambda.Closure("com.example.Pojo", "lambda$test$0", "(Lcom/example/Pojo;)Ljava/lang/String;",
		func(s string) (string, error) { return s, nil })
	m, err := r.ResolveMethod(closure)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Synthetic)
	assert.Equal(t, "Pojo.java:42", r.MethodShortReference(m))
	assert.Equal(t, "Pojo.java:42", describe(t, r, closure))

	t.Run("no debug info falls back to the plain name", func(t *testing.T) {
		stripped := lambda.Closure("com/example/Stripped", "lambda$run$0", "(Ljava/lang/String;)Ljava/lang/String;",
			func(s string) (string, error) { return s, nil })
		assert.Equal(t, "Stripped.lambda$run$0", describe(t, r, stripped))
	})

	t.Run("registry without source locator", func(t *testing.T) {
		m, err := registry.ReadManifest(strings.NewReader(`
classes:
  - name: com/example/Pojo
    methods:
      - {name: "lambda$test$0", descriptor: "(Lcom/example/Pojo;)Ljava/lang/String;", static: true, synthetic: true}
`))
		require.NoError(t, err)
		manifest, err := registry.NewManifestRegistry(m)
		require.NoError(t, err)
		assert.Equal(t, "Pojo.lambda$test$0", describe(t, lambda.NewResolver(manifest), closure))
	})

	t.Run("unknown synthetic name does not resolve", func(t *testing.T) {
		other := lambda.Closure("com/example/Pojo", "lambda$other$7", "(Lcom/example/Pojo;)Ljava/lang/String;",
			func(s string) (string, error) { return s, nil })
		m, err := r.ResolveMethod(other)
		assert.NoError(t, err)
		assert.Nil(t, m)
		assert.Empty(t, describe(t, r, other))
	})
}

func describe(t *testing.T, r *lambda.Resolver, v any) string {
	t.Helper()
	ref, err := r.Describe(v)
	require.NoError(t, err)
	return ref
}

func TestDescribe(t *testing.T) {
	r := lambda.NewResolver(registry.Default())

	assert.Equal(t, "String.toLowerCase", describe(t, r, toLowerCase))
	assert.Equal(t, "Integer(String)", describe(t, r, newInteger))
	assert.Empty(t, describe(t, r, lambda.Func[string, int](strconv.Atoi)))
	assert.Empty(t, describe(t, r, lambda.MethodRef("java/lang/String", "toLowerCase", "(I)Ljava/lang/String;",
		func(s string) (string, error) { return s, nil })))

	ref, err := r.DescribeDescriptor(nil)
	assert.NoError(t, err)
	assert.Empty(t, ref)

	t.Run("resolution failures are returned", func(t *testing.T) {
		_, err := r.Describe(failing{})
		assert.ErrorIs(t, err, lambda.ErrInternal)

		_, err = r.Describe(lambda.MethodRef("com/example/Missing", "run", "()V",
			func(s string) (string, error) { return s, nil }))
		assert.ErrorIs(t, err, registry.ErrTypeNotFound)

		_, err = r.Describe(lambda.ConstructorRef("java/lang/Integer", "(Lvoid;)V",
			func(s string) (int, error) { return 0, nil }))
		assert.ErrorIs(t, err, registry.ErrTypeNotFound)

		_, err = r.Describe(lambda.StaticRef("java/lang/Integer", "parseInt", "Ljava/lang/String;",
			func(s string) (int, error) { return 0, nil }))
		assert.ErrorIs(t, err, jtype.ErrFormat)
	})
}

func TestDiscover(t *testing.T) {
	dir := classDir(t)
	cf, err := classfile.ParseFile(filepath.Join(dir, "com", "example", "Pojo.class"))
	require.NoError(t, err)

	sites, err := lambda.Discover(cf)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	assert.Equal(t, lambda.Descriptor{
		CapturingClass:                     "com/example/Pojo",
		FunctionalInterfaceClass:           "java/util/function/Function",
		FunctionalInterfaceMethodName:      "apply",
		FunctionalInterfaceMethodSignature: "(Ljava/lang/Object;)Ljava/lang/Object;",
		ImplKind:                           lambda.KindInvokeVirtual,
		ImplClass:                          "com/example/Pojo",
		ImplMethodName:                     "getName",
		ImplMethodSignature:                "()Ljava/lang/String;",
		InstantiatedMethodType:             "(Lcom/example/Pojo;)Ljava/lang/String;",
	}, sites[0])
	assert.Equal(t, lambda.KindInvokeStatic, sites[1].ImplKind)
	assert.Equal(t, "lambda$test$0", sites[1].ImplMethodName)
	assert.Equal(t, "java/util/function/ObjIntConsumer", sites[2].FunctionalInterfaceClass)

	files := registry.NewClassFileRegistry(classpath.NewDirClassLoader(dir, nil))
	r := lambda.NewResolver(registry.Chain{registry.Default(), files})
	var refs []string
	for i := range sites {
		ref, err := r.DescribeDescriptor(&sites[i])
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	assert.Equal(t, []string{"Pojo.getName", "Pojo.java:42", "Pojo.setAge"}, refs)

	t.Run("class without lambdas", func(t *testing.T) {
		cf, err := classfile.ParseBytes(classfiletest.New("Empty").Bytes())
		require.NoError(t, err)
		sites, err := lambda.Discover(cf)
		require.NoError(t, err)
		assert.Empty(t, sites)
	})
}
