package lambda

import (
	"fmt"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/jtype"
)

const metafactoryClass = "java/lang/invoke/LambdaMetafactory"

// Discover lists the lambda and method reference call sites compiled into
// cf, in constant pool order. Only invokedynamic sites bootstrapped by
// LambdaMetafactory are reported; string concatenation and other dynamic
// call sites are skipped.
func Discover(cf *classfile.ClassFile) ([]Descriptor, error) {
	capturing, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	pool := cf.ConstantPool

	var found []Descriptor
	for i, entry := range pool {
		indy, ok := entry.(*classfile.ConstantDynamic)
		if !ok || indy.Tag() != classfile.TagInvokeDynamic {
			continue
		}
		if int(indy.BootstrapMethodAttrIndex) >= len(cf.BootstrapMethods) {
			return nil, fmt.Errorf("invokedynamic #%d: bootstrap method %d out of range", i, indy.BootstrapMethodAttrIndex)
		}
		bsm := cf.BootstrapMethods[indy.BootstrapMethodAttrIndex]
		factory, err := classfile.ResolveMethodHandle(pool, bsm.MethodRef)
		if err != nil {
			return nil, fmt.Errorf("invokedynamic #%d: %w", i, err)
		}
		if factory.ClassName != metafactoryClass || len(bsm.BootstrapArguments) < 3 {
			continue
		}

		d, err := metafactorySite(pool, indy, bsm.BootstrapArguments)
		if err != nil {
			return nil, fmt.Errorf("invokedynamic #%d: %w", i, err)
		}
		d.CapturingClass = capturing
		found = append(found, d)
	}
	return found, nil
}

// metafactorySite decodes the three leading static arguments shared by
// metafactory and altMetafactory: the erased functional method type, the
// implementation handle and the instantiated method type.
func metafactorySite(pool []classfile.ConstantPoolEntry, indy *classfile.ConstantDynamic, args []uint16) (Descriptor, error) {
	samName, siteType, err := classfile.GetNameAndType(pool, indy.NameAndTypeIndex)
	if err != nil {
		return Descriptor{}, err
	}
	_, iface, err := jtype.ParseMethodDescriptor(siteType)
	if err != nil {
		return Descriptor{}, fmt.Errorf("call site type: %w", err)
	}
	if iface.Kind != jtype.KindReference || iface.Dims != 0 {
		return Descriptor{}, fmt.Errorf("call site type %q does not produce an interface", siteType)
	}

	samType, err := classfile.GetMethodType(pool, args[0])
	if err != nil {
		return Descriptor{}, err
	}
	impl, err := classfile.ResolveMethodHandle(pool, args[1])
	if err != nil {
		return Descriptor{}, err
	}
	instantiated, err := classfile.GetMethodType(pool, args[2])
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		FunctionalInterfaceClass:           jtype.InternalName(iface.Name),
		FunctionalInterfaceMethodName:      samName,
		FunctionalInterfaceMethodSignature: samType,
		ImplKind:                           Kind(impl.Kind),
		ImplClass:                          impl.ClassName,
		ImplMethodName:                     impl.Name,
		ImplMethodSignature:                impl.Descriptor,
		InstantiatedMethodType:             instantiated,
	}, nil
}
