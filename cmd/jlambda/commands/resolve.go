package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/jlambda/pkg/jtype"
	"github.com/daimatz/jlambda/pkg/lambda"
)

var errNoMatch = errors.New("no matching member")

func newResolveCmd(e *env) *cobra.Command {
	var (
		kind      string
		class     string
		method    string
		signature string
		long      bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a method or constructor reference",
		Long: `Resolve a lambda implementation handle to the declared member it targets
and print its short reference.

Examples:
  jlambda resolve --class java/lang/String --method toLowerCase --signature '(Ljava/util/Locale;)Ljava/lang/String;'
  jlambda resolve --kind newInvokeSpecial --class java/lang/Integer --signature '(Ljava/lang/String;)V'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := lambda.ParseKind(kind)
			if err != nil {
				return err
			}
			if k.IsConstructorCall() && method == "" {
				method = "<init>"
			}
			d := &lambda.Descriptor{
				ImplKind:            k,
				ImplClass:           jtype.InternalName(class),
				ImplMethodName:      method,
				ImplMethodSignature: signature,
			}

			out := cmd.OutOrStdout()
			switch {
			case k.IsMethodCall():
				m, err := e.resolver.MethodFor(d)
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("%s: %w", d, errNoMatch)
				}
				if long {
					fmt.Fprintln(out, m)
				} else {
					fmt.Fprintln(out, e.resolver.MethodShortReference(m))
				}
			case k.IsConstructorCall():
				c, err := e.resolver.ConstructorFor(d)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("%s: %w", d, errNoMatch)
				}
				if long {
					fmt.Fprintln(out, c)
				} else {
					fmt.Fprintln(out, lambda.ConstructorShortReference(c))
				}
			default:
				return fmt.Errorf("kind %s does not invoke a method or constructor", k)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", lambda.KindInvokeVirtual.String(), "Reference kind: invokeVirtual, invokeStatic, invokeSpecial, invokeInterface or newInvokeSpecial")
	flags.StringVar(&class, "class", "", "Declaring class, e.g. java/lang/String")
	flags.StringVar(&method, "method", "", "Method name (ignored for constructors)")
	flags.StringVar(&signature, "signature", "", "JVM method descriptor of the target")
	flags.BoolVar(&long, "long", false, "Print the fully qualified member instead of the short reference")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
