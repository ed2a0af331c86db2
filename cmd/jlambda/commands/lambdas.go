package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daimatz/jlambda/pkg/classfile"
	"github.com/daimatz/jlambda/pkg/classpath"
	"github.com/daimatz/jlambda/pkg/jtype"
	"github.com/daimatz/jlambda/pkg/lambda"
)

func newLambdasCmd(e *env) *cobra.Command {
	var preload int
	cmd := &cobra.Command{
		Use:   "lambdas <file.class>...",
		Short: "List the lambdas compiled into class files",
		Long: `List every lambda and method reference call site compiled into the given
class files, with the member each one resolves to. Lambda bodies compiled
with debug information are reported as File.java:line.

Output columns: capturing class, functional interface method, target.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("preload") {
				preload = e.cfg.Preload
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				cf, err := classfile.ParseFile(path)
				if err != nil {
					return err
				}
				name, err := cf.ClassName()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if root, ok := classRoot(path, name); ok {
					e.addClassRoot(root)
				}

				sites, err := lambda.Discover(cf)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if preload > 0 {
					e.warm(cmd.Context(), sites, preload)
				}
				for i := range sites {
					d := &sites[i]
					target, err := e.resolver.DescribeDescriptor(d)
					if err != nil {
						e.logger.Warn("unresolved lambda target",
							slog.String("lambda", d.String()),
							slog.Any("error", err))
					}
					if target == "" {
						target = "?" + d.String()
					}
					fmt.Fprintf(out, "%s\t%s.%s\t%s\n",
						jtype.NormalizeName(d.CapturingClass),
						jtype.SimpleName(jtype.NormalizeName(d.FunctionalInterfaceClass)),
						d.FunctionalInterfaceMethodName,
						target)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&preload, "preload", 0, "Load target classes with this many workers before resolving")
	return cmd
}

// classRoot returns the directory a class file sits under according to its
// package, e.g. "build" for build/com/example/Pojo.class.
func classRoot(path, internalName string) (string, bool) {
	suffix := filepath.FromSlash(internalName) + ".class"
	clean := filepath.Clean(path)
	if clean == suffix {
		return ".", true
	}
	root, ok := strings.CutSuffix(clean, string(filepath.Separator)+suffix)
	if !ok {
		return "", false
	}
	if root == "" {
		root = string(filepath.Separator)
	}
	return root, true
}

// warm loads the target classes of sites concurrently. Classes that only
// live in manifests are expected to miss, so failures are only logged.
func (e *env) warm(ctx context.Context, sites []lambda.Descriptor, workers int) {
	seen := make(map[string]bool)
	var names []string
	for _, d := range sites {
		if !seen[d.ImplClass] {
			seen[d.ImplClass] = true
			names = append(names, d.ImplClass)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := classpath.Preload(ctx, e.loader, names, workers); err != nil {
		e.logger.Debug("preload incomplete", slog.Any("error", err))
	}
}
