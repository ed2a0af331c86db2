package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
)

// parseConstantPool reads constant_pool_count-1 entries from the reader.
// The returned slice is 1-indexed: index 0 is nil.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}

		entry, err := parseConstant(r, tag)
		if err != nil {
			return nil, fmt.Errorf("reading constant pool entry %d (tag=%d): %w", i, tag, err)
		}
		pool[i] = entry

		// long and double take 2 slots
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}

	return pool, nil
}

func parseConstant(r io.Reader, tag uint8) (ConstantPoolEntry, error) {
	switch tag {
	case TagUtf8:
		var length uint16
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		// Modified UTF-8 only differs for NUL and supplementary characters,
		// neither of which appear in names or descriptors.
		return &ConstantUtf8{Value: string(buf)}, nil

	case TagInteger:
		c := &ConstantInteger{}
		return c, binary.Read(r, binary.BigEndian, &c.Value)

	case TagFloat:
		var bits uint32
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, err
		}
		return &ConstantFloat{Value: math.Float32frombits(bits)}, nil

	case TagLong:
		c := &ConstantLong{}
		return c, binary.Read(r, binary.BigEndian, &c.Value)

	case TagDouble:
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, err
		}
		return &ConstantDouble{Value: math.Float64frombits(bits)}, nil

	case TagClass:
		c := &ConstantClass{}
		return c, binary.Read(r, binary.BigEndian, &c.NameIndex)

	case TagString:
		c := &ConstantString{}
		return c, binary.Read(r, binary.BigEndian, &c.StringIndex)

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		c := &ConstantMemberref{tag: tag}
		if err := binary.Read(r, binary.BigEndian, &c.ClassIndex); err != nil {
			return nil, err
		}
		return c, binary.Read(r, binary.BigEndian, &c.NameAndTypeIndex)

	case TagNameAndType:
		c := &ConstantNameAndType{}
		if err := binary.Read(r, binary.BigEndian, &c.NameIndex); err != nil {
			return nil, err
		}
		return c, binary.Read(r, binary.BigEndian, &c.DescriptorIndex)

	case TagMethodHandle:
		c := &ConstantMethodHandle{}
		if err := binary.Read(r, binary.BigEndian, &c.ReferenceKind); err != nil {
			return nil, err
		}
		return c, binary.Read(r, binary.BigEndian, &c.ReferenceIndex)

	case TagMethodType:
		c := &ConstantMethodType{}
		return c, binary.Read(r, binary.BigEndian, &c.DescriptorIndex)

	case TagDynamic, TagInvokeDynamic:
		c := &ConstantDynamic{tag: tag}
		if err := binary.Read(r, binary.BigEndian, &c.BootstrapMethodAttrIndex); err != nil {
			return nil, err
		}
		return c, binary.Read(r, binary.BigEndian, &c.NameAndTypeIndex)
	}

	return nil, fmt.Errorf("unknown constant pool tag %d", tag)
}

func entryAt(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return pool[index], nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := entryAt(pool, index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, entry.Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	entry, err := entryAt(pool, classIndex)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// GetNameAndType returns the name and descriptor of a CONSTANT_NameAndType entry.
func GetNameAndType(pool []ConstantPoolEntry, index uint16) (name, descriptor string, err error) {
	entry, err := entryAt(pool, index)
	if err != nil {
		return "", "", err
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant pool index %d is not NameAndType", index)
	}
	if name, err = GetUtf8(pool, nat.NameIndex); err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	if descriptor, err = GetUtf8(pool, nat.DescriptorIndex); err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MemberRefInfo holds a resolved field or method reference.
type MemberRefInfo struct {
	Tag        uint8
	ClassName  string
	Name       string
	Descriptor string
}

// MethodRefInfo holds resolved method reference info.
type MethodRefInfo = MemberRefInfo

// FieldRefInfo holds resolved field reference info.
type FieldRefInfo = MemberRefInfo

var memberRefNames = map[uint8]string{
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
}

// resolveMemberRef resolves a member reference whose tag is one of want.
func resolveMemberRef(pool []ConstantPoolEntry, index uint16, want ...uint8) (*MemberRefInfo, error) {
	entry, err := entryAt(pool, index)
	if err != nil {
		return nil, err
	}
	ref, ok := entry.(*ConstantMemberref)
	if !ok || !tagIn(ref.tag, want) {
		return nil, fmt.Errorf("constant pool index %d is not %s", index, memberRefNames[want[0]])
	}

	className, err := GetClassName(pool, ref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s class: %w", memberRefNames[ref.tag], err)
	}
	name, descriptor, err := GetNameAndType(pool, ref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving %s name and type: %w", memberRefNames[ref.tag], err)
	}

	return &MemberRefInfo{
		Tag:        ref.tag,
		ClassName:  className,
		Name:       name,
		Descriptor: descriptor,
	}, nil
}

func tagIn(tag uint8, tags []uint8) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	return resolveMemberRef(pool, index, TagMethodref)
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	return resolveMemberRef(pool, index, TagInterfaceMethodref)
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	return resolveMemberRef(pool, index, TagFieldref)
}

// MethodHandleInfo is a resolved CONSTANT_MethodHandle.
type MethodHandleInfo struct {
	Kind uint8
	MemberRefInfo
}

// ResolveMethodHandle resolves a CONSTANT_MethodHandle entry and the member
// it points at.
func ResolveMethodHandle(pool []ConstantPoolEntry, index uint16) (*MethodHandleInfo, error) {
	entry, err := entryAt(pool, index)
	if err != nil {
		return nil, err
	}
	mh, ok := entry.(*ConstantMethodHandle)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not MethodHandle", index)
	}
	if mh.ReferenceKind < RefGetField || mh.ReferenceKind > RefInvokeInterface {
		return nil, fmt.Errorf("method handle %d has invalid reference kind %d", index, mh.ReferenceKind)
	}
	ref, err := resolveMemberRef(pool, mh.ReferenceIndex, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return nil, fmt.Errorf("resolving method handle %d: %w", index, err)
	}
	return &MethodHandleInfo{Kind: mh.ReferenceKind, MemberRefInfo: *ref}, nil
}

// GetMethodType returns the descriptor of a CONSTANT_MethodType entry.
func GetMethodType(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := entryAt(pool, index)
	if err != nil {
		return "", err
	}
	mt, ok := entry.(*ConstantMethodType)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not MethodType", index)
	}
	return GetUtf8(pool, mt.DescriptorIndex)
}
