package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/jlambda/pkg/jtype"
	"github.com/daimatz/jlambda/pkg/registry"
)

func newSignatureCmd(e *env) *cobra.Command {
	var unresolved bool
	cmd := &cobra.Command{
		Use:   "signature <signature>",
		Short: "Print the argument types of a method signature",
		Long: `Parse the argument part of a JVM method signature and print one type per
line. Reference types must be known to the registry unless --unresolved
is given.

Examples:
  jlambda signature '(Ljava/util/Locale;)Ljava/lang/String;'
  jlambda signature --unresolved '(Lcom/example/Pojo;[I)V'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				types []jtype.Type
				err   error
			)
			if unresolved {
				types, err = jtype.ParseArgumentTypes(args[0], nil)
			} else {
				types, err = registry.ParseArgumentTypes(e.registry, args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range types {
				fmt.Fprintf(out, "%s\t%s\n", t.Descriptor(), t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "Do not check reference types against the registry")
	return cmd
}
