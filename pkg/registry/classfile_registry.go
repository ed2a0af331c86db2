package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/classpath"
	"github.com/daimatz/jlambda/pkg/jtype"
)

// ClassFileRegistry builds Class descriptions from compiled class files. It
// also implements SourceLocator from the SourceFile and LineNumberTable
// attributes.
type ClassFileRegistry struct {
	Loader classpath.ClassLoader
	Logger *slog.Logger

	mu      sync.Mutex
	classes map[string]*Class
}

// NewClassFileRegistry creates a registry over loader.
func NewClassFileRegistry(loader classpath.ClassLoader) *ClassFileRegistry {
	return &ClassFileRegistry{
		Loader:  loader,
		classes: make(map[string]*Class),
	}
}

func (r *ClassFileRegistry) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *ClassFileRegistry) ResolveClass(name string) (*Class, error) {
	if c, ok := PrimitiveClass(name); ok {
		return c, nil
	}
	name = jtype.NormalizeName(name)

	r.mu.Lock()
	c, ok := r.classes[name]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	cf, err := r.Loader.LoadClass(jtype.InternalName(name))
	if err != nil {
		return nil, notFound(name, err)
	}
	c, err = classFromFile(cf)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", name, err)
	}
	if c.Name != name {
		return nil, notFound(name, fmt.Errorf("class file declares %s", c.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// A concurrent caller may have won; keep the first so pointers stay stable.
	if existing, ok := r.classes[name]; ok {
		return existing, nil
	}
	r.classes[name] = c
	r.logger().Debug("class registered",
		slog.String("class", name),
		slog.Int("methods", len(c.Methods)),
		slog.Int("constructors", len(c.Constructors)),
	)
	return c, nil
}

func classFromFile(cf *classfile.ClassFile) (*Class, error) {
	internal, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	c := &Class{
		Name:       jtype.NormalizeName(internal),
		Super:      jtype.NormalizeName(cf.SuperClassName()),
		SourceFile: cf.SourceFile,
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		if mi.Name == "<clinit>" {
			continue
		}
		params, ret, err := jtype.ParseMethodDescriptor(mi.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", mi.Name, err)
		}
		if mi.Name == "<init>" {
			c.Constructors = append(c.Constructors, &Constructor{
				Class:      c,
				Descriptor: mi.Descriptor,
				Params:     params,
			})
			continue
		}
		c.Methods = append(c.Methods, &Method{
			Class:      c,
			Name:       mi.Name,
			Descriptor: mi.Descriptor,
			Params:     params,
			Return:     ret,
			Static:     mi.IsStatic(),
			Synthetic:  mi.IsSynthetic(),
		})
	}
	return c, nil
}

// SourceLocation returns the source file of className and the line of the
// first instruction of the first method named methodName.
func (r *ClassFileRegistry) SourceLocation(className, methodName string) (string, int, error) {
	cf, err := r.Loader.LoadClass(jtype.InternalName(className))
	if err != nil {
		return "", 0, notFound(jtype.NormalizeName(className), err)
	}
	if cf.SourceFile == "" {
		return "", 0, fmt.Errorf("%s has no SourceFile attribute: %w", className, ErrNoSourceInfo)
	}
	m := cf.FindMethodByName(methodName)
	if m == nil {
		return "", 0, fmt.Errorf("%s.%s: no such method: %w", className, methodName, ErrNoSourceInfo)
	}
	line := m.FirstLine()
	if line == 0 {
		return "", 0, fmt.Errorf("%s.%s has no LineNumberTable: %w", className, methodName, ErrNoSourceInfo)
	}
	return cf.SourceFile, line, nil
}
