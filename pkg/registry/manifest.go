package registry

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/daimatz/jlambda/pkg/jtype"
)

//go:embed jdk.yaml
var defaultManifestYAML []byte

// Manifest is an explicit registration table of classes and their members,
// for classes whose class files are not at hand.
type Manifest struct {
	Classes []ClassSpec `yaml:"classes"`
}

// ClassSpec declares one class.
type ClassSpec struct {
	Name         string            `yaml:"name"`
	Super        string            `yaml:"super"`
	SourceFile   string            `yaml:"source_file"`
	Methods      []MethodSpec      `yaml:"methods"`
	Constructors []ConstructorSpec `yaml:"constructors"`
}

// MethodSpec declares one method by name and descriptor.
type MethodSpec struct {
	Name       string `yaml:"name"`
	Descriptor string `yaml:"descriptor"`
	Static     bool   `yaml:"static"`
	Synthetic  bool   `yaml:"synthetic"`
}

// ConstructorSpec declares one constructor by descriptor.
type ConstructorSpec struct {
	Descriptor string `yaml:"descriptor"`
}

// ManifestRegistry serves classes declared in manifests. It has no bytecode
// and therefore does not implement SourceLocator.
type ManifestRegistry struct {
	classes map[string]*Class
}

// NewManifestRegistry builds a registry from manifests. Later manifests
// replace classes of the same name declared by earlier ones.
func NewManifestRegistry(manifests ...*Manifest) (*ManifestRegistry, error) {
	r := &ManifestRegistry{classes: make(map[string]*Class)}
	for _, m := range manifests {
		for _, spec := range m.Classes {
			c, err := spec.build()
			if err != nil {
				return nil, err
			}
			r.classes[c.Name] = c
		}
	}
	return r, nil
}

// DefaultManifest returns the embedded manifest describing the core JDK
// classes (java.lang.String, java.lang.Integer, java.util.Locale, ...).
func DefaultManifest() *Manifest {
	m, err := ParseManifest(defaultManifestYAML)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded manifest: %v", err))
	}
	return m
}

// Default returns a registry over DefaultManifest.
func Default() *ManifestRegistry {
	r, err := NewManifestRegistry(DefaultManifest())
	if err != nil {
		panic(fmt.Sprintf("registry: embedded manifest: %v", err))
	}
	return r
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// ReadManifest decodes a YAML manifest from r.
func ReadManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// LoadManifestFile decodes the YAML manifest at path.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (s ClassSpec) build() (*Class, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("manifest class without name")
	}
	c := &Class{
		Name:       jtype.NormalizeName(s.Name),
		Super:      jtype.NormalizeName(s.Super),
		SourceFile: s.SourceFile,
	}
	for _, ms := range s.Methods {
		params, ret, err := jtype.ParseMethodDescriptor(ms.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("manifest %s.%s: %w", c.Name, ms.Name, err)
		}
		if ms.Name == "" || ms.Name == "<init>" || ms.Name == "<clinit>" {
			return nil, fmt.Errorf("manifest %s: invalid method name %q", c.Name, ms.Name)
		}
		c.Methods = append(c.Methods, &Method{
			Class:      c,
			Name:       ms.Name,
			Descriptor: ms.Descriptor,
			Params:     params,
			Return:     ret,
			Static:     ms.Static,
			Synthetic:  ms.Synthetic,
		})
	}
	for _, cs := range s.Constructors {
		params, ret, err := jtype.ParseMethodDescriptor(cs.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("manifest %s.<init>: %w", c.Name, err)
		}
		if ret != jtype.Void {
			return nil, fmt.Errorf("manifest %s: constructor descriptor %q must return V", c.Name, cs.Descriptor)
		}
		c.Constructors = append(c.Constructors, &Constructor{
			Class:      c,
			Descriptor: cs.Descriptor,
			Params:     params,
		})
	}
	return c, nil
}

func (r *ManifestRegistry) ResolveClass(name string) (*Class, error) {
	if c, ok := PrimitiveClass(name); ok {
		return c, nil
	}
	name = jtype.NormalizeName(name)
	c, ok := r.classes[name]
	if !ok {
		return nil, notFound(name, nil)
	}
	return c, nil
}

// Names lists the declared class names.
func (r *ManifestRegistry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	return names
}
