package jtype

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is wrapped by every error caused by a malformed signature.
var ErrFormat = errors.New("malformed signature")

// ResolveFunc loads the class with the given binary name and returns its
// canonical Type. Errors are passed through to the caller unchanged.
type ResolveFunc func(name string) (Type, error)

// ParseArgumentTypes decodes the argument part of a method signature of the
// form "(<args>)<return>". The return type is not inspected. Reference types
// are checked with resolve; a nil resolve accepts every name.
//
// Argument descriptors follow the JVM grammar. Stray ';' separators are
// skipped, and the last reference before ')' may omit its terminating ';'.
func ParseArgumentTypes(signature string, resolve ResolveFunc) ([]Type, error) {
	end := strings.IndexByte(signature, ')')
	if !strings.HasPrefix(signature, "(") || end <= 0 {
		return nil, fmt.Errorf("%w: wrong format of method signature %q", ErrFormat, signature)
	}

	args := signature[1:end]
	types := make([]Type, 0, strings.Count(args, ";")+1)
	for i := 0; i < len(args); {
		if args[i] == ';' {
			i++
			continue
		}
		t, n, err := parseField(args[i:], false)
		if err != nil {
			return nil, err
		}
		i += n

		if t.Kind == KindReference && resolve != nil {
			resolved, err := resolve(t.Name)
			if err != nil {
				return nil, err
			}
			resolved.Dims += t.Dims
			t = resolved
		}
		types = append(types, t)
	}
	return types, nil
}

// ParseMethodDescriptor decodes a complete method descriptor without
// resolving reference types.
func ParseMethodDescriptor(descriptor string) (params []Type, ret Type, err error) {
	end := strings.IndexByte(descriptor, ')')
	if end < 0 {
		return nil, Type{}, fmt.Errorf("%w: wrong format of method descriptor %q", ErrFormat, descriptor)
	}
	params, err = ParseArgumentTypes(descriptor[:end+1], nil)
	if err != nil {
		return nil, Type{}, err
	}

	rest := descriptor[end+1:]
	ret, n, err := parseField(rest, true)
	if err != nil {
		return nil, Type{}, fmt.Errorf("return type of %q: %w", descriptor, err)
	}
	if n != len(rest) || !strings.HasSuffix(rest, ";") && ret.Kind == KindReference {
		return nil, Type{}, fmt.Errorf("%w: trailing data after return type in %q", ErrFormat, descriptor)
	}
	return params, ret, nil
}

// ParseFieldType decodes a single field descriptor such as "[Ljava/lang/String;".
func ParseFieldType(descriptor string) (Type, error) {
	t, n, err := parseField(descriptor, false)
	if err != nil {
		return Type{}, err
	}
	if n != len(descriptor) {
		return Type{}, fmt.Errorf("%w: trailing data in field descriptor %q", ErrFormat, descriptor)
	}
	return t, nil
}

// MethodDescriptor encodes argument and return types back into a
// descriptor.
func MethodDescriptor(params []Type, ret Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Descriptor())
	}
	b.WriteByte(')')
	b.WriteString(ret.Descriptor())
	return b.String()
}

// parseField reads one field type from the front of s and reports how many
// bytes it consumed.
func parseField(s string, allowVoid bool) (Type, int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims == len(s) {
		return Type{}, 0, fmt.Errorf("%w: missing type in %q", ErrFormat, s)
	}

	code := s[dims]
	if t, ok := primitivesByCode[code]; ok {
		if t.Kind == KindVoid && (!allowVoid || dims > 0) {
			return Type{}, 0, fmt.Errorf("%w: void (V) type is not allowed here", ErrFormat)
		}
		t.Dims = dims
		return t, dims + 1, nil
	}

	if code != 'L' {
		return Type{}, 0, fmt.Errorf("%w: wrong format of argument type (should start with 'L'): %q",
			ErrFormat, token(s))
	}
	rest := s[dims+1:]
	end := strings.IndexByte(rest, ';')
	consumed := dims + 1 + end + 1
	if end < 0 {
		end = len(rest)
		consumed = len(s)
	}
	name := rest[:end]
	if name == "" || strings.ContainsAny(name, "[(); ") {
		return Type{}, 0, fmt.Errorf("%w: invalid class name in %q", ErrFormat, token(s))
	}
	return Type{Kind: KindReference, Name: NormalizeName(name), Dims: dims}, consumed, nil
}

func token(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	return s
}
