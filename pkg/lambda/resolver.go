package lambda

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/daimatz/jlambda/pkg/jtype"
	"github.com/daimatz/jlambda/pkg/registry"
)

// Resolver maps lambda values to the members of Registry they target.
// It holds no mutable state and is safe for concurrent use as long as
// Registry is.
type Resolver struct {
	Registry registry.Registry
	Logger   *slog.Logger
}

// NewResolver creates a Resolver over r.
func NewResolver(r registry.Registry) *Resolver {
	return &Resolver{Registry: r}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// ResolveMethod returns the method v refers to. It returns (nil, nil) when v
// carries no descriptor, when the descriptor is not a method call, or when
// no declared method matches.
func (r *Resolver) ResolveMethod(v any) (*registry.Method, error) {
	d, err := ExtractDescriptor(v)
	if err != nil || d == nil {
		return nil, err
	}
	return r.MethodFor(d)
}

// MethodFor is ResolveMethod for an already extracted descriptor.
func (r *Resolver) MethodFor(d *Descriptor) (*registry.Method, error) {
	if d == nil || !d.ImplKind.IsMethodCall() {
		return nil, nil
	}
	class, params, err := r.lookup(d)
	if err != nil {
		return nil, err
	}
	for _, m := range class.Methods {
		if m.Name == d.ImplMethodName && slices.Equal(m.Params, params) {
			return m, nil
		}
	}
	return nil, nil
}

// ResolveConstructor returns the constructor v refers to, with the same
// (nil, nil) cases as ResolveMethod.
func (r *Resolver) ResolveConstructor(v any) (*registry.Constructor, error) {
	d, err := ExtractDescriptor(v)
	if err != nil || d == nil {
		return nil, err
	}
	return r.ConstructorFor(d)
}

// ConstructorFor is ResolveConstructor for an already extracted descriptor.
func (r *Resolver) ConstructorFor(d *Descriptor) (*registry.Constructor, error) {
	if d == nil || !d.ImplKind.IsConstructorCall() {
		return nil, nil
	}
	class, params, err := r.lookup(d)
	if err != nil {
		return nil, err
	}
	for _, c := range class.Constructors {
		if slices.Equal(c.Params, params) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *Resolver) lookup(d *Descriptor) (*registry.Class, []jtype.Type, error) {
	class, err := r.Registry.ResolveClass(d.ImplClass)
	if err != nil {
		return nil, nil, err
	}
	params, err := registry.ParseArgumentTypes(r.Registry, d.ImplMethodSignature)
	if err != nil {
		return nil, nil, fmt.Errorf("%s.%s: %w", class.Name, d.ImplMethodName, err)
	}
	return class, params, nil
}

// MethodShortReference formats m for a failure message. Direct references
// read "String.toLowerCase". Synthetic lambda bodies read "Pojo.java:42"
// when the registry can locate them, and fall back to the plain form
// otherwise.
func (r *Resolver) MethodShortReference(m *registry.Method) string {
	plain := m.Class.SimpleName() + "." + m.Name
	if !m.Synthetic {
		return plain
	}
	loc, ok := r.Registry.(registry.SourceLocator)
	if !ok {
		return plain
	}
	file, line, err := loc.SourceLocation(m.Class.Name, m.Name)
	if err != nil {
		r.logger().Debug("source location unavailable",
			slog.String("class", m.Class.Name),
			slog.String("method", m.Name),
			slog.Any("error", err),
		)
		return plain
	}
	return file + ":" + strconv.Itoa(line)
}

// ConstructorShortReference formats c as "Integer(String)".
func ConstructorShortReference(c *registry.Constructor) string {
	return c.Class.SimpleName() + "(" + registry.SimpleParamNames(c.Params) + ")"
}

// Describe returns the short reference of whatever v targets. It returns ""
// with a nil error when v is not a method or constructor reference, or when
// no declared member matches. Resolution failures are returned; only a
// missing source location falls back silently to the plain form.
func (r *Resolver) Describe(v any) (string, error) {
	d, err := ExtractDescriptor(v)
	if err != nil {
		return "", err
	}
	return r.DescribeDescriptor(d)
}

// DescribeDescriptor is Describe for an already extracted descriptor.
func (r *Resolver) DescribeDescriptor(d *Descriptor) (string, error) {
	if d == nil {
		return "", nil
	}
	m, err := r.MethodFor(d)
	if err != nil {
		return "", err
	}
	if m != nil {
		return r.MethodShortReference(m), nil
	}
	c, err := r.ConstructorFor(d)
	if err != nil {
		return "", err
	}
	if c != nil {
		return ConstructorShortReference(c), nil
	}
	return "", nil
}
