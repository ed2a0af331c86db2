// Package lambda maps lambda and method-reference values back to the
// method or constructor they target, for use in failure diagnostics.
package lambda

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/daimatz/jlambda/pkg/classfile"
)

// ErrInternal marks failures that indicate a broken value rather than a
// value that simply carries no descriptor.
var ErrInternal = errors.New("internal error")

// Kind is the method handle reference kind of a lambda's implementation.
type Kind uint8

const (
	KindInvokeVirtual    Kind = classfile.RefInvokeVirtual
	KindInvokeStatic     Kind = classfile.RefInvokeStatic
	KindInvokeSpecial    Kind = classfile.RefInvokeSpecial
	KindNewInvokeSpecial Kind = classfile.RefNewInvokeSpecial
	KindInvokeInterface  Kind = classfile.RefInvokeInterface
)

var kindNames = map[Kind]string{
	classfile.RefGetField:  "getField",
	classfile.RefGetStatic: "getStatic",
	classfile.RefPutField:  "putField",
	classfile.RefPutStatic: "putStatic",
	KindInvokeVirtual:      "invokeVirtual",
	KindInvokeStatic:       "invokeStatic",
	KindInvokeSpecial:      "invokeSpecial",
	KindNewInvokeSpecial:   "newInvokeSpecial",
	KindInvokeInterface:    "invokeInterface",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown reference kind %q", s)
}

// IsMethodCall reports whether the kind invokes an ordinary method, either
// on an instance or statically.
func (k Kind) IsMethodCall() bool {
	switch k {
	case KindInvokeVirtual, KindInvokeStatic, KindInvokeSpecial, KindInvokeInterface:
		return true
	}
	return false
}

// IsConstructorCall reports whether the kind instantiates a class.
func (k Kind) IsConstructorCall() bool {
	return k == KindNewInvokeSpecial
}

// Descriptor is the serialized form of a lambda: the fields the JVM's
// SerializedLambda carries. Class names use the internal "/" form.
type Descriptor struct {
	CapturingClass                     string
	FunctionalInterfaceClass           string
	FunctionalInterfaceMethodName      string
	FunctionalInterfaceMethodSignature string

	ImplKind            Kind
	ImplClass           string
	ImplMethodName      string
	ImplMethodSignature string

	InstantiatedMethodType string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s.%s:%s", d.ImplKind, d.ImplClass, d.ImplMethodName, d.ImplMethodSignature)
}

// Serializable is implemented by values that can substitute themselves with
// a Descriptor, the way serializable JVM lambdas do through writeReplace.
type Serializable interface {
	WriteReplace() (any, error)
}

const accessorName = "WriteReplace"

// maxEmbedDepth bounds the walk for self-embedding pointer cycles.
const maxEmbedDepth = 64

// ExtractDescriptor looks for a WriteReplace accessor on v, then on its
// embedded first field, and so on down the embedding chain. The first
// accessor found decides the outcome: a Descriptor result is returned, any
// other result means v is not a lambda and yields (nil, nil). A failing
// accessor is reported as ErrInternal. Values without an accessor yield
// (nil, nil).
func ExtractDescriptor(v any) (*Descriptor, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for depth := 0; rv.IsValid() && depth < maxEmbedDepth; depth, rv = depth+1, embedded(rv) {
		if !rv.CanInterface() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
			break
		}
		m := rv.MethodByName(accessorName)
		if !m.IsValid() {
			continue
		}
		accessor, ok := m.Interface().(func() (any, error))
		if !ok {
			continue
		}

		replacement, err := call(accessor)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to call %s on %s: %w", ErrInternal, accessorName, rv.Type(), err)
		}
		switch d := replacement.(type) {
		case Descriptor:
			return &d, nil
		case *Descriptor:
			if d == nil {
				return nil, nil
			}
			copied := *d
			return &copied, nil
		default:
			return nil, nil
		}
	}
	return nil, nil
}

func call(accessor func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return accessor()
}

// embedded returns the first field of the struct behind rv when that field
// is embedded, or the zero Value.
func embedded(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.NumField() == 0 {
		return reflect.Value{}
	}
	if f := rv.Type().Field(0); !f.Anonymous || !f.IsExported() {
		return reflect.Value{}
	}
	return rv.Field(0)
}
