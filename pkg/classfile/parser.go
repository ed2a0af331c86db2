package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseBytes parses an in-memory .class file.
func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

// read decodes a big-endian value and names the field on failure.
func read(r io.Reader, what string, v any) error {
	if err := binary.Read(r, binary.BigEndian, v); err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}
	return nil
}

// Parse reads a .class file from the given reader and returns a ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := read(r, "magic number", &magic); err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	if err := read(r, "minor version", &cf.MinorVersion); err != nil {
		return nil, err
	}
	if err := read(r, "major version", &cf.MajorVersion); err != nil {
		return nil, err
	}

	var cpCount uint16
	if err := read(r, "constant pool count", &cpCount); err != nil {
		return nil, err
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if err := read(r, "access flags", &cf.AccessFlags); err != nil {
		return nil, err
	}
	if err := read(r, "this_class", &cf.ThisClass); err != nil {
		return nil, err
	}
	if err := read(r, "super_class", &cf.SuperClass); err != nil {
		return nil, err
	}

	var interfacesCount uint16
	if err := read(r, "interfaces count", &interfacesCount); err != nil {
		return nil, err
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	if err := read(r, "interfaces", cf.Interfaces); err != nil {
		return nil, err
	}

	var fieldsCount uint16
	if err := read(r, "fields count", &fieldsCount); err != nil {
		return nil, err
	}
	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		m, err := parseMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("parsing field %d: %w", i, err)
		}
		cf.Fields[i] = FieldInfo(m)
	}

	var methodsCount uint16
	if err := read(r, "methods count", &methodsCount); err != nil {
		return nil, err
	}
	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		m, err := parseMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("parsing method %d: %w", i, err)
		}
		method := MethodInfo{
			AccessFlags: m.AccessFlags,
			Name:        m.Name,
			Descriptor:  m.Descriptor,
			Attributes:  m.Attributes,
		}
		if data, ok := findAttribute(m.Attributes, "Code"); ok {
			method.Code, err = parseCodeAttribute(data, pool)
			if err != nil {
				return nil, fmt.Errorf("parsing Code attribute for method %s: %w", m.Name, err)
			}
		}
		cf.Methods[i] = method
	}

	if err := cf.parseClassAttributes(r); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

// member is the layout shared by field_info and method_info.
type member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

func parseMember(r io.Reader, pool []ConstantPoolEntry) (member, error) {
	var header struct {
		AccessFlags uint16
		NameIndex   uint16
		DescIndex   uint16
		AttrCount   uint16
	}
	if err := read(r, "member header", &header); err != nil {
		return member{}, err
	}

	name, err := GetUtf8(pool, header.NameIndex)
	if err != nil {
		return member{}, fmt.Errorf("resolving name: %w", err)
	}
	desc, err := GetUtf8(pool, header.DescIndex)
	if err != nil {
		return member{}, fmt.Errorf("resolving descriptor of %s: %w", name, err)
	}
	attrs, err := parseAttributeInfos(r, pool, header.AttrCount)
	if err != nil {
		return member{}, fmt.Errorf("parsing attributes of %s: %w", name, err)
	}

	return member{
		AccessFlags: header.AccessFlags,
		Name:        name,
		Descriptor:  desc,
		Attributes:  attrs,
	}, nil
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		var header struct {
			NameIndex uint16
			Length    uint32
		}
		if err := read(r, fmt.Sprintf("attribute %d header", i), &header); err != nil {
			return nil, err
		}
		data := make([]byte, header.Length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}

		name, err := GetUtf8(pool, header.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}

		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

func findAttribute(attrs []AttributeInfo, name string) ([]byte, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr.Data, true
		}
	}
	return nil, false
}

func parseCodeAttribute(data []byte, pool []ConstantPoolEntry) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}

	code := &CodeAttribute{
		MaxStack:  binary.BigEndian.Uint16(data[0:2]),
		MaxLocals: binary.BigEndian.Uint16(data[2:4]),
	}
	codeLength := binary.BigEndian.Uint32(data[4:8])
	if uint64(len(data)) < 8+uint64(codeLength) {
		return nil, fmt.Errorf("Code attribute data too short for code_length %d", codeLength)
	}
	code.Code = make([]byte, codeLength)
	copy(code.Code, data[8:8+codeLength])

	r := bytes.NewReader(data[8+codeLength:])
	if r.Len() == 0 {
		return code, nil
	}

	var exTableLen uint16
	if err := read(r, "exception table length", &exTableLen); err != nil {
		return nil, err
	}
	code.ExceptionHandlers = make([]ExceptionHandler, exTableLen)
	if err := read(r, "exception table", code.ExceptionHandlers); err != nil {
		return nil, err
	}

	var attrCount uint16
	if err := read(r, "Code attributes count", &attrCount); err != nil {
		return nil, err
	}
	attrs, err := parseAttributeInfos(r, pool, attrCount)
	if err != nil {
		return nil, fmt.Errorf("parsing Code attributes: %w", err)
	}
	for _, attr := range attrs {
		// A method may carry several LineNumberTable attributes; they are
		// concatenated.
		if attr.Name != "LineNumberTable" {
			continue
		}
		lines, err := parseLineNumberTable(attr.Data)
		if err != nil {
			return nil, err
		}
		code.LineNumbers = append(code.LineNumbers, lines...)
	}

	return code, nil
}

func parseLineNumberTable(data []byte) ([]LineNumber, error) {
	r := bytes.NewReader(data)
	var count uint16
	if err := read(r, "LineNumberTable length", &count); err != nil {
		return nil, err
	}
	lines := make([]LineNumber, count)
	if err := read(r, "LineNumberTable", lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (cf *ClassFile) parseClassAttributes(r io.Reader) error {
	var count uint16
	if err := read(r, "class attributes count", &count); err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		var header struct {
			NameIndex uint16
			Length    uint32
		}
		if err := read(r, "class attribute header", &header); err != nil {
			return err
		}
		data := make([]byte, header.Length)
		if _, err := io.ReadFull(r, data); err != nil {
			return fmt.Errorf("reading class attribute %d data: %w", i, err)
		}
		name, err := GetUtf8(cf.ConstantPool, header.NameIndex)
		if err != nil {
			continue // skip unknown attributes
		}

		switch name {
		case "BootstrapMethods":
			cf.BootstrapMethods, err = parseBootstrapMethods(data)
			if err != nil {
				return fmt.Errorf("parsing BootstrapMethods: %w", err)
			}
		case "SourceFile":
			if len(data) != 2 {
				return fmt.Errorf("SourceFile attribute has length %d, want 2", len(data))
			}
			cf.SourceFile, err = GetUtf8(cf.ConstantPool, binary.BigEndian.Uint16(data))
			if err != nil {
				return fmt.Errorf("resolving SourceFile: %w", err)
			}
		}
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("BootstrapMethods data too short")
	}
	numMethods := binary.BigEndian.Uint16(data[0:2])
	offset := 2
	methods := make([]BootstrapMethod, numMethods)
	for i := uint16(0); i < numMethods; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("BootstrapMethods truncated at method %d", i)
		}
		methodRef := binary.BigEndian.Uint16(data[offset : offset+2])
		numArgs := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += 4
		if offset+2*int(numArgs) > len(data) {
			return nil, fmt.Errorf("BootstrapMethods truncated in arguments of method %d", i)
		}
		args := make([]uint16, numArgs)
		for j := range args {
			args[j] = binary.BigEndian.Uint16(data[offset : offset+2])
			offset += 2
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}
