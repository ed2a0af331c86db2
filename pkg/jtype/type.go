// Package jtype models JVM field types and decodes method signatures such as
// "(Ljava/lang/String;I)V" into ordered argument types.
package jtype

import (
	"strings"
)

// Kind classifies a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindVoid
	KindReference
)

var kindInfo = [...]struct {
	code byte
	name string
}{
	KindInvalid:   {0, "invalid"},
	KindBoolean:   {'Z', "boolean"},
	KindByte:      {'B', "byte"},
	KindChar:      {'C', "char"},
	KindShort:     {'S', "short"},
	KindInt:       {'I', "int"},
	KindLong:      {'J', "long"},
	KindFloat:     {'F', "float"},
	KindDouble:    {'D', "double"},
	KindVoid:      {'V', "void"},
	KindReference: {'L', "reference"},
}

func (k Kind) String() string {
	if int(k) < len(kindInfo) {
		return kindInfo[k].name
	}
	return "invalid"
}

// Type is a resolved type descriptor. It is comparable; two Types are equal
// when they denote the same JVM type.
type Type struct {
	Kind Kind
	// Name is the dotted binary name ("java.util.Map$Entry") of a reference
	// type, empty otherwise.
	Name string
	// Dims is the number of array dimensions.
	Dims int
}

var (
	Boolean = Type{Kind: KindBoolean}
	Byte    = Type{Kind: KindByte}
	Char    = Type{Kind: KindChar}
	Short   = Type{Kind: KindShort}
	Int     = Type{Kind: KindInt}
	Long    = Type{Kind: KindLong}
	Float   = Type{Kind: KindFloat}
	Double  = Type{Kind: KindDouble}
	Void    = Type{Kind: KindVoid}
)

var primitivesByCode = map[byte]Type{
	'Z': Boolean,
	'B': Byte,
	'C': Char,
	'S': Short,
	'I': Int,
	'J': Long,
	'F': Float,
	'D': Double,
	'V': Void,
}

var primitivesByName = map[string]Type{
	"boolean": Boolean,
	"byte":    Byte,
	"char":    Char,
	"short":   Short,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"void":    Void,
}

// Primitive returns the primitive type with the given Java keyword.
func Primitive(name string) (Type, bool) {
	t, ok := primitivesByName[name]
	return t, ok
}

// Reference returns the reference type for a binary name in either
// "java/lang/String" or "java.lang.String" form.
func Reference(name string) Type {
	return Type{Kind: KindReference, Name: NormalizeName(name)}
}

// ArrayOf returns an array type with t as its component type.
func ArrayOf(t Type) Type {
	t.Dims++
	return t
}

// NormalizeName turns an internal name ("java/util/Locale") into a binary
// name ("java.util.Locale").
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

// InternalName turns a binary name into the "/"-separated form used in
// class files.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// IsPrimitive reports whether t is a non-array primitive (void included).
func (t Type) IsPrimitive() bool {
	return t.Kind != KindReference && t.Kind != KindInvalid && t.Dims == 0
}

// Element returns the type with all array dimensions removed.
func (t Type) Element() Type {
	t.Dims = 0
	return t
}

// Descriptor returns the canonical encoding, e.g. "I", "Ljava/lang/String;"
// or "[[J".
func (t Type) Descriptor() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("[", t.Dims))
	if t.Kind == KindReference {
		b.WriteByte('L')
		b.WriteString(InternalName(t.Name))
		b.WriteByte(';')
	} else if int(t.Kind) < len(kindInfo) {
		b.WriteByte(kindInfo[t.Kind].code)
	}
	return b.String()
}

// String returns the Java source spelling: "int", "java.lang.String[]".
func (t Type) String() string {
	base := t.Kind.String()
	if t.Kind == KindReference {
		base = t.Name
	}
	return base + strings.Repeat("[]", t.Dims)
}

// SimpleName returns the name without package or enclosing classes, as
// Class.getSimpleName does for ordinary classes: "Locale", "Entry", "int[]".
func (t Type) SimpleName() string {
	if t.Kind != KindReference {
		return t.String()
	}
	return SimpleName(t.Name) + strings.Repeat("[]", t.Dims)
}

// SimpleName strips the package and any enclosing class names from a binary
// or internal class name.
func SimpleName(name string) string {
	name = NormalizeName(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 && i+1 < len(name) {
		name = name[i+1:]
	}
	return name
}
