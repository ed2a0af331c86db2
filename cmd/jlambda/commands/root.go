// Package commands provides the CLI commands for the jlambda tool.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daimatz/jlambda/internal/config"
	"github.com/daimatz/jlambda/pkg/classpath"
	"github.com/daimatz/jlambda/pkg/lambda"
	"github.com/daimatz/jlambda/pkg/registry"
)

// options holds the global flags.
type options struct {
	configPath string
	classpath  string
	jmod       string
	manifests  []string
	logLevel   string
}

// env is what every subcommand works against, built once per invocation.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	loader   classpath.MultiLoader
	files    *registry.ClassFileRegistry
	registry registry.Chain
	resolver *lambda.Resolver

	// roots holds the class directories added by addClassRoot.
	roots map[string]bool
}

// NewRootCmd builds the jlambda command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	e := &env{}

	root := &cobra.Command{
		Use:   "jlambda",
		Short: "Resolve JVM lambdas and method references to the members they call",
		Long: `jlambda resolves JVM lambda descriptors to the methods and constructors
they target, using compiled class files and YAML class manifests.

Usage:
  jlambda signature '(Ljava/lang/String;I)V'
  jlambda resolve --class java/lang/String --method toLowerCase --signature '()Ljava/lang/String;'
  jlambda lambdas build/classes/com/example/Pojo.class`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.classpath, "classpath", "", "Class directories and jars, separated by ':'")
	flags.StringVar(&opts.jmod, "jmod", "", "Path to java.base.jmod (default: detect from JAVA_BASE_JMOD or JAVA_HOME)")
	flags.StringSliceVar(&opts.manifests, "manifest", nil, "Extra YAML class manifests")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(newSignatureCmd(e))
	root.AddCommand(newResolveCmd(e))
	root.AddCommand(newLambdasCmd(e))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (e *env) setup(cmd *cobra.Command, opts *options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("classpath") {
		cfg.Classpath = config.SplitClasspath(opts.classpath)
	}
	if flags.Changed("jmod") {
		cfg.Jmod = opts.jmod
	}
	if flags.Changed("manifest") {
		cfg.Manifests = append(cfg.Manifests, opts.manifests...)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	manifests := []*registry.Manifest{registry.DefaultManifest()}
	for _, path := range cfg.Manifests {
		m, err := registry.LoadManifestFile(path)
		if err != nil {
			return err
		}
		manifests = append(manifests, m)
	}
	known, err := registry.NewManifestRegistry(manifests...)
	if err != nil {
		return err
	}

	entries := cfg.Classpath
	jmod := cfg.Jmod
	if jmod == "" {
		jmod = classpath.FindJmodPath()
	}
	if jmod != "" {
		entries = append(entries, jmod)
	}
	e.logger.Debug("classpath", slog.Any("entries", entries), slog.Int("manifests", len(manifests)))

	e.loader = classpath.New(entries, e.logger)
	e.files = registry.NewClassFileRegistry(e.loader)
	e.files.Logger = e.logger
	e.registry = registry.Chain{known, e.files}
	e.resolver = &lambda.Resolver{Registry: e.registry, Logger: e.logger}
	return nil
}

// addClassRoot puts a class directory in front of the configured classpath
// so that classes next to an inspected file resolve too. A directory is
// added once.
func (e *env) addClassRoot(dir string) {
	dir = filepath.Clean(dir)
	if e.roots[dir] {
		return
	}
	if e.roots == nil {
		e.roots = make(map[string]bool)
	}
	e.roots[dir] = true
	dl := classpath.NewDirClassLoader(dir, nil)
	dl.Logger = e.logger
	e.loader = append(classpath.MultiLoader{dl}, e.loader...)
	e.files.Loader = e.loader
}
