// Package registry resolves class names to their declared methods and
// constructors. A Registry is read-only from the caller's point of view and
// safe for concurrent lookups.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/daimatz/jlambda/pkg/jtype"
)

// ErrTypeNotFound is wrapped by ResolveClass when the class cannot be
// located.
var ErrTypeNotFound = errors.New("type not found")

// ErrNoSourceInfo is returned by a SourceLocator when the class carries no
// usable debug metadata for the method.
var ErrNoSourceInfo = errors.New("no source information")

// Registry resolves a class by its binary ("java.lang.String") or internal
// ("java/lang/String") name.
type Registry interface {
	ResolveClass(name string) (*Class, error)
}

// SourceLocator is an optional Registry capability: it reports the source
// file and the line of the first instruction of a method.
type SourceLocator interface {
	SourceLocation(className, methodName string) (file string, line int, err error)
}

// Class describes a loaded class.
type Class struct {
	// Name is the binary name, e.g. "java.util.Locale".
	Name       string
	Super      string
	SourceFile string

	Methods      []*Method
	Constructors []*Constructor

	primitive bool
}

// SimpleName returns the class name without package and enclosing classes.
func (c *Class) SimpleName() string {
	return jtype.SimpleName(c.Name)
}

// Type returns the type descriptor of the class.
func (c *Class) Type() jtype.Type {
	if c.primitive {
		t, _ := jtype.Primitive(c.Name)
		return t
	}
	return jtype.Reference(c.Name)
}

// IsPrimitive reports whether c stands for a primitive type such as int.
func (c *Class) IsPrimitive() bool {
	return c.primitive
}

// Method is a declared method.
type Method struct {
	Class      *Class
	Name       string
	Descriptor string
	Params     []jtype.Type
	Return     jtype.Type
	Static     bool
	// Synthetic is set for compiler-generated methods such as lambda bodies.
	Synthetic bool
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name + "(" + joinTypes(m.Params, jtype.Type.String) + ")"
}

// Constructor is a declared constructor.
type Constructor struct {
	Class      *Class
	Descriptor string
	Params     []jtype.Type
}

func (c *Constructor) String() string {
	return c.Class.Name + "(" + joinTypes(c.Params, jtype.Type.String) + ")"
}

func joinTypes(ts []jtype.Type, name func(jtype.Type) string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = name(t)
	}
	return strings.Join(parts, ", ")
}

// SimpleParamNames joins the simple names of the parameter types: "String, int".
func SimpleParamNames(params []jtype.Type) string {
	return joinTypes(params, jtype.Type.SimpleName)
}

var primitiveClasses = func() map[string]*Class {
	m := make(map[string]*Class)
	for _, name := range []string{"boolean", "byte", "char", "short", "int", "long", "float", "double", "void"} {
		m[name] = &Class{Name: name, primitive: true}
	}
	return m
}()

// PrimitiveClass returns the class object for a primitive keyword.
func PrimitiveClass(name string) (*Class, bool) {
	c, ok := primitiveClasses[name]
	return c, ok
}

// ParseArgumentTypes parses the argument types of a method signature and
// checks every referenced class against r. Primitive keywords such as int or
// void are not class names and fail like any unknown class.
func ParseArgumentTypes(r Registry, signature string) ([]jtype.Type, error) {
	return jtype.ParseArgumentTypes(signature, func(name string) (jtype.Type, error) {
		c, err := r.ResolveClass(name)
		if err != nil {
			return jtype.Type{}, err
		}
		if c.IsPrimitive() {
			return jtype.Type{}, notFound(jtype.NormalizeName(name), nil)
		}
		return c.Type(), nil
	})
}

func notFound(name string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to load class %s: %w", name, ErrTypeNotFound)
	}
	return fmt.Errorf("failed to load class %s: %w: %w", name, ErrTypeNotFound, cause)
}

// Chain consults each registry in order; the first that knows a class wins.
type Chain []Registry

func (c Chain) ResolveClass(name string) (*Class, error) {
	_, cls, err := c.owner(name)
	return cls, err
}

func (c Chain) owner(name string) (Registry, *Class, error) {
	var errs []error
	for _, r := range c {
		cls, err := r.ResolveClass(name)
		if err == nil {
			return r, cls, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, nil, notFound(jtype.NormalizeName(name), nil)
	}
	return nil, nil, errors.Join(errs...)
}

// SourceLocation forwards to the registry that owns the class, if that
// registry can locate sources.
func (c Chain) SourceLocation(className, methodName string) (string, int, error) {
	r, _, err := c.owner(className)
	if err != nil {
		return "", 0, err
	}
	loc, ok := r.(SourceLocator)
	if !ok {
		return "", 0, fmt.Errorf("%s: %w", className, ErrNoSourceInfo)
	}
	return loc.SourceLocation(className, methodName)
}
