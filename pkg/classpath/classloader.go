// Package classpath locates and caches parsed class files by name.
package classpath

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/jtype"
)

// ErrClassNotFound is wrapped by LoadClass when no loader has the class.
var ErrClassNotFound = errors.New("class not found")

// ClassLoader loads .class files by class name. Names may use either the
// internal ("java/lang/String") or the binary ("java.lang.String") form.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// cache memoizes parsed classes and collapses concurrent loads of the same
// name into one parse.
type cache struct {
	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
	group   singleflight.Group
}

func (c *cache) load(name string, fetch func(string) (*classfile.ClassFile, error)) (*classfile.ClassFile, error) {
	c.mu.RLock()
	cf, ok := c.classes[name]
	c.mu.RUnlock()
	if ok {
		return cf, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		cf, err := fetch(name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.classes == nil {
			c.classes = make(map[string]*classfile.ClassFile)
		}
		c.classes[name] = cf
		c.mu.Unlock()
		return cf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*classfile.ClassFile), nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// ArchiveClassLoader loads classes from a zip archive: a jar, or a JDK jmod
// (which is a zip behind a 4-byte "JM" header with classes under classes/).
type ArchiveClassLoader struct {
	Path   string
	Logger *slog.Logger

	prefix string
	header int

	openOnce sync.Once
	openErr  error
	entries  map[string]*zip.File
	cache    cache
}

// NewJmodClassLoader creates a loader for a JDK .jmod file.
func NewJmodClassLoader(jmodPath string) *ArchiveClassLoader {
	return &ArchiveClassLoader{Path: jmodPath, prefix: "classes/", header: 4}
}

// NewJarClassLoader creates a loader for a .jar file.
func NewJarClassLoader(jarPath string) *ArchiveClassLoader {
	return &ArchiveClassLoader{Path: jarPath}
}

func (cl *ArchiveClassLoader) open() error {
	cl.openOnce.Do(func() {
		data, err := os.ReadFile(cl.Path)
		if err != nil {
			cl.openErr = fmt.Errorf("archive: reading %s: %w", cl.Path, err)
			return
		}
		if len(data) < cl.header {
			cl.openErr = fmt.Errorf("archive: %s is too short", cl.Path)
			return
		}
		data = data[cl.header:]
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			cl.openErr = fmt.Errorf("archive: opening zip %s: %w", cl.Path, err)
			return
		}

		cl.entries = make(map[string]*zip.File, len(zr.File))
		for _, f := range zr.File {
			name, ok := strings.CutPrefix(f.Name, cl.prefix)
			if !ok || !strings.HasSuffix(name, ".class") {
				continue
			}
			cl.entries[strings.TrimSuffix(name, ".class")] = f
		}
		loggerOrDefault(cl.Logger).Debug("archive indexed",
			slog.String("path", cl.Path),
			slog.Int("classes", len(cl.entries)),
		)
	})
	return cl.openErr
}

func (cl *ArchiveClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	return cl.cache.load(jtype.InternalName(name), cl.fetch)
}

func (cl *ArchiveClassLoader) fetch(name string) (*classfile.ClassFile, error) {
	if err := cl.open(); err != nil {
		return nil, err
	}
	f, ok := cl.entries[name]
	if !ok {
		return nil, fmt.Errorf("archive: class %s not in %s: %w", name, cl.Path, ErrClassNotFound)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
	}
	loggerOrDefault(cl.Logger).Debug("class loaded", slog.String("class", name), slog.String("from", cl.Path))
	return cf, nil
}

// Names lists every class in the archive in internal form.
func (cl *ArchiveClassLoader) Names() ([]string, error) {
	if err := cl.open(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cl.entries))
	for name := range cl.entries {
		names = append(names, name)
	}
	return names, nil
}

// DirClassLoader loads classes from a directory tree, delegating to the
// parent first.
type DirClassLoader struct {
	ClassPath string
	Parent    ClassLoader
	Logger    *slog.Logger

	cache cache
}

// NewDirClassLoader creates a new DirClassLoader. parent may be nil.
func NewDirClassLoader(classPath string, parent ClassLoader) *DirClassLoader {
	return &DirClassLoader{
		ClassPath: classPath,
		Parent:    parent,
	}
}

func (cl *DirClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	name = jtype.InternalName(name)
	if cl.Parent != nil {
		if cf, err := cl.Parent.LoadClass(name); err == nil {
			return cf, nil
		}
	}
	return cl.cache.load(name, cl.fetch)
}

func (cl *DirClassLoader) fetch(name string) (*classfile.ClassFile, error) {
	path := filepath.Join(cl.ClassPath, filepath.FromSlash(name)+".class")
	cf, err := classfile.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir: class %s not in %s: %w", name, cl.ClassPath, ErrClassNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dir: loading %s: %w", name, err)
	}
	loggerOrDefault(cl.Logger).Debug("class loaded", slog.String("class", name), slog.String("from", path))
	return cf, nil
}

// MultiLoader asks each loader in order and returns the first hit.
type MultiLoader []ClassLoader

func (m MultiLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	var errs []error
	for _, cl := range m {
		cf, err := cl.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("class %s: %w", jtype.InternalName(name), ErrClassNotFound)
}

// New builds a loader for a list of classpath entries. Entries ending in
// .jar or .jmod are read as archives, everything else as a directory.
func New(entries []string, logger *slog.Logger) MultiLoader {
	loaders := make(MultiLoader, 0, len(entries))
	for _, e := range entries {
		if e == "" {
			continue
		}
		switch strings.ToLower(filepath.Ext(e)) {
		case ".jar", ".zip":
			l := NewJarClassLoader(e)
			l.Logger = logger
			loaders = append(loaders, l)
		case ".jmod":
			l := NewJmodClassLoader(e)
			l.Logger = logger
			loaders = append(loaders, l)
		default:
			l := NewDirClassLoader(e, nil)
			l.Logger = logger
			loaders = append(loaders, l)
		}
	}
	return loaders
}
