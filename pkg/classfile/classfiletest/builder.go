// Package classfiletest assembles small but well-formed .class files in
// memory so that tests do not depend on javac or a JDK install.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/daimatz/jlambda/pkg/classfile"
)

// Builder accumulates the pieces of one class.
type Builder struct {
	name       string
	super      string
	sourceFile string
	access     uint16

	pool    []any
	index   map[string]uint16
	methods []method
	bsms    []classfile.BootstrapMethod
}

type method struct {
	access     uint16
	name       string
	descriptor string
	line       int
}

// New starts a public class with the given internal name that extends
// java/lang/Object.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		super:  "java/lang/Object",
		access: classfile.AccPublic | classfile.AccSuper,
		index:  make(map[string]uint16),
	}
}

// Super overrides the super class.
func (b *Builder) Super(name string) *Builder {
	b.super = name
	return b
}

// SourceFile sets the SourceFile attribute.
func (b *Builder) SourceFile(name string) *Builder {
	b.sourceFile = name
	return b
}

// Method adds a method with a one-instruction body. A positive line adds a
// LineNumberTable entry for pc 0.
func (b *Builder) Method(access uint16, name, descriptor string, line int) *Builder {
	b.methods = append(b.methods, method{access: access, name: name, descriptor: descriptor, line: line})
	return b
}

// Lambda records an invokedynamic call site bootstrapped by
// LambdaMetafactory.metafactory. samName and indyType describe the call
// site, samType and instantiated are the erased and specialized functional
// method types, and the impl* arguments name the target method handle.
func (b *Builder) Lambda(samName, indyType, samType string, implKind uint8, implClass, implName, implDesc, instantiated string) *Builder {
	bsmHandle := b.methodHandle(classfile.RefInvokeStatic, classfile.TagMethodref,
		"java/lang/invoke/LambdaMetafactory", "metafactory",
		"(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;"+
			"Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)"+
			"Ljava/lang/invoke/CallSite;")
	refTag := uint8(classfile.TagMethodref)
	if implKind == classfile.RefInvokeInterface {
		refTag = classfile.TagInterfaceMethodref
	}
	args := []uint16{
		b.methodType(samType),
		b.methodHandle(implKind, refTag, implClass, implName, implDesc),
		b.methodType(instantiated),
	}
	b.bsms = append(b.bsms, classfile.BootstrapMethod{MethodRef: bsmHandle, BootstrapArguments: args})
	b.add(fmt.Sprintf("indy:%d:%s%s", len(b.bsms), samName, indyType), rawEntry{
		tag:  classfile.TagInvokeDynamic,
		data: u16s(uint16(len(b.bsms)-1), b.nameAndType(samName, indyType)),
	})
	return b
}

// Bytes serializes the class.
func (b *Builder) Bytes() []byte {
	thisClass := b.class(b.name)
	superClass := b.class(b.super)
	codeName := b.utf8("Code")
	lntName := b.utf8("LineNumberTable")

	var body bytes.Buffer
	write(&body, b.access, thisClass, superClass, uint16(0), uint16(0))

	write(&body, uint16(len(b.methods)))
	for _, m := range b.methods {
		write(&body, m.access, b.utf8(m.name), b.utf8(m.descriptor), uint16(1))

		var code bytes.Buffer
		write(&code, uint16(1), uint16(8), uint32(1), byte(0xB1), uint16(0))
		if m.line > 0 {
			write(&code, uint16(1), lntName, uint32(6), uint16(1), uint16(0), uint16(m.line))
		} else {
			write(&code, uint16(0))
		}
		write(&body, codeName, uint32(code.Len()))
		body.Write(code.Bytes())
	}

	var attrs [][]byte
	if b.sourceFile != "" {
		var a bytes.Buffer
		write(&a, b.utf8("SourceFile"), uint32(2), b.utf8(b.sourceFile))
		attrs = append(attrs, a.Bytes())
	}
	if len(b.bsms) > 0 {
		var data bytes.Buffer
		write(&data, uint16(len(b.bsms)))
		for _, bsm := range b.bsms {
			write(&data, bsm.MethodRef, uint16(len(bsm.BootstrapArguments)))
			write(&data, bsm.BootstrapArguments)
		}
		var a bytes.Buffer
		write(&a, b.utf8("BootstrapMethods"), uint32(data.Len()))
		a.Write(data.Bytes())
		attrs = append(attrs, a.Bytes())
	}
	write(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	// The pool is complete only after every name above has been interned.
	var out bytes.Buffer
	write(&out, uint32(0xCAFEBABE), uint16(0), uint16(61), uint16(len(b.pool)+1))
	for _, e := range b.pool {
		switch e := e.(type) {
		case string:
			write(&out, byte(classfile.TagUtf8), uint16(len(e)))
			out.WriteString(e)
		case rawEntry:
			write(&out, e.tag)
			out.Write(e.data)
		}
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

type rawEntry struct {
	tag  uint8
	data []byte
}

func (b *Builder) add(key string, entry any) uint16 {
	if i, ok := b.index[key]; ok {
		return i
	}
	b.pool = append(b.pool, entry)
	i := uint16(len(b.pool))
	b.index[key] = i
	return i
}

func (b *Builder) utf8(s string) uint16 {
	return b.add("utf8:"+s, s)
}

func (b *Builder) class(name string) uint16 {
	n := b.utf8(name)
	return b.add("class:"+name, rawEntry{tag: classfile.TagClass, data: u16s(n)})
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	n, d := b.utf8(name), b.utf8(desc)
	return b.add("nat:"+name+":"+desc, rawEntry{tag: classfile.TagNameAndType, data: u16s(n, d)})
}

func (b *Builder) memberRef(tag uint8, class, name, desc string) uint16 {
	c, nat := b.class(class), b.nameAndType(name, desc)
	return b.add(fmt.Sprintf("ref%d:%s.%s%s", tag, class, name, desc), rawEntry{tag: tag, data: u16s(c, nat)})
}

func (b *Builder) methodHandle(kind, refTag uint8, class, name, desc string) uint16 {
	ref := b.memberRef(refTag, class, name, desc)
	data := append([]byte{kind}, u16s(ref)...)
	return b.add(fmt.Sprintf("mh%d:%s.%s%s", kind, class, name, desc), rawEntry{tag: classfile.TagMethodHandle, data: data})
}

func (b *Builder) methodType(desc string) uint16 {
	d := b.utf8(desc)
	return b.add("mt:"+desc, rawEntry{tag: classfile.TagMethodType, data: u16s(d)})
}

func u16s(vs ...uint16) []byte {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		out = binary.BigEndian.AppendUint16(out, v)
	}
	return out
}

func write(buf *bytes.Buffer, vs ...any) {
	for _, v := range vs {
		// bytes.Buffer writes never fail
		_ = binary.Write(buf, binary.BigEndian, v)
	}
}
