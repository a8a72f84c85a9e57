package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/qcdb-go/qcdb/pkg/errkind"
)

// Command defines a single-purpose CLI command with unified help and
// exit-code handling.
type Command struct {
	// Flags defines command-specific flags.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after the binary name.
	// Examples: "qcgen -s <schema> [-o dir] [--strict]".
	Usage string

	// Short is a one-line description.
	Short string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// PrintHelp prints the full help output.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage:", c.Usage)
	o.Println()
	o.Println(c.Short)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags, executes the command, and returns a process exit code.
// Errors carrying an [errkind.Error] exit with a code derived from the kind;
// any other error is treated as GenericFailure.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag's own usage output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return exitCodeFor(errkind.BadArgument)
	}

	execErr := c.Exec(ctx, o, c.Flags.Args())
	if execErr != nil {
		o.ErrPrintln("error:", execErr)
		return exitCodeFor(errkind.KindOf(execErr))
	}

	return 0
}

// exitCodeFor maps an error kind to a process exit code: 1 for OK (an
// error was still returned), 1+kind for every other kind; callers print the
// kind itself in the error message, so the numeric codes only need to be
// stable and non-zero, not individually meaningful.
func exitCodeFor(k errkind.Kind) int {
	if k == errkind.OK {
		return 1
	}

	return 1 + int(k)
}
