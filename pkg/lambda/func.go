package lambda

import "github.com/daimatz/jlambda/pkg/jtype"

// Function is a one-argument callable, the shape matchers extract with.
type Function[T, R any] interface {
	Apply(T) (R, error)
}

// Func adapts a plain Go function. It carries no descriptor, so it never
// resolves to a method.
type Func[T, R any] func(T) (R, error)

func (f Func[T, R]) Apply(v T) (R, error) {
	return f(v)
}

// Ref is a function that remembers which method or constructor it stands
// for. It implements Serializable.
type Ref[T, R any] struct {
	fn   func(T) (R, error)
	desc Descriptor
}

// New pairs fn with an explicit descriptor.
func New[T, R any](d Descriptor, fn func(T) (R, error)) *Ref[T, R] {
	return &Ref[T, R]{fn: fn, desc: d}
}

// MethodRef is an instance method reference such as String::toLowerCase.
// class may use either "/" or "." separators; signature is the JVM method
// descriptor of the target.
func MethodRef[T, R any](class, name, signature string, fn func(T) (R, error)) *Ref[T, R] {
	return New(Descriptor{
		ImplKind:            KindInvokeVirtual,
		ImplClass:           jtype.InternalName(class),
		ImplMethodName:      name,
		ImplMethodSignature: signature,
	}, fn)
}

// StaticRef is a static method reference such as Integer::parseInt.
func StaticRef[T, R any](class, name, signature string, fn func(T) (R, error)) *Ref[T, R] {
	return New(Descriptor{
		ImplKind:            KindInvokeStatic,
		ImplClass:           jtype.InternalName(class),
		ImplMethodName:      name,
		ImplMethodSignature: signature,
	}, fn)
}

// ConstructorRef is a constructor reference such as Integer::new.
func ConstructorRef[T, R any](class, signature string, fn func(T) (R, error)) *Ref[T, R] {
	return New(Descriptor{
		ImplKind:            KindNewInvokeSpecial,
		ImplClass:           jtype.InternalName(class),
		ImplMethodName:      "<init>",
		ImplMethodSignature: signature,
	}, fn)
}

// Closure is an inline lambda body compiled into the synthetic static method
// syntheticName (e.g. "lambda$test$0") of capturingClass.
func Closure[T, R any](capturingClass, syntheticName, signature string, fn func(T) (R, error)) *Ref[T, R] {
	class := jtype.InternalName(capturingClass)
	return New(Descriptor{
		CapturingClass:      class,
		ImplKind:            KindInvokeStatic,
		ImplClass:           class,
		ImplMethodName:      syntheticName,
		ImplMethodSignature: signature,
	}, fn)
}

func (r *Ref[T, R]) Apply(v T) (R, error) {
	return r.fn(v)
}

// WriteReplace returns the descriptor by value.
func (r *Ref[T, R]) WriteReplace() (any, error) {
	return r.desc, nil
}

func (r *Ref[T, R]) Descriptor() Descriptor {
	return r.desc
}
