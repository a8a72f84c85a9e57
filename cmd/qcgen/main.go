// Command qcgen compiles a .skm schema file into a pre-sized, initialized
// .qcdb table file (spec.md §6.4). It is the CLI front end that drives
// the schema parser (C2) and table initializer (C3); it is a collaborator
// of the core, not part of it (spec.md §1).
package main

import (
	"context"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/qcdb-go/qcdb/internal/applog"
	"github.com/qcdb-go/qcdb/internal/cli"
	"github.com/qcdb-go/qcdb/pkg/errkind"
	"github.com/qcdb-go/qcdb/pkg/fs"
	"github.com/qcdb-go/qcdb/pkg/qcdb"
	"github.com/qcdb-go/qcdb/pkg/schema"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	o := cli.NewIO(stdout, stderr)

	flags := flag.NewFlagSet("qcgen", flag.ContinueOnError)
	flags.SetInterspersed(true)

	schemaPath := flags.StringP("schema", "s", "", "path to the .skm schema file (required)")
	outputDir := flags.StringP("output", "o", "", "directory to write the .qcdb file into (default: current directory, or config)")
	strict := flags.Bool("strict", false, "reject layouts that require non-zero inter-field padding")
	verbose := flags.Bool("verbose", false, "enable verbose logging")
	initConfig := flags.Bool("init-config", false, "write a default .qcgen.json in the current directory and exit")

	cmd := &cli.Command{
		Flags: flags,
		Usage: "qcgen -s <schema> [-o dir] [--strict]",
		Short: "Compiles a .skm schema file into a pre-sized .qcdb table file.",
		Exec: func(ctx context.Context, o *cli.IO, _ []string) error {
			log, logErr := applog.New(*verbose)
			if logErr != nil {
				return errkind.Wrap(errkind.GenericFailure, "initializing logger", logErr)
			}
			defer func() { _ = log.Sync() }()

			if *initConfig {
				if err := writeDefaultConfig("."); err != nil {
					return errkind.Wrap(errkind.GenericFailure, "writing .qcgen.json", err)
				}

				o.Println("wrote", configFileName)

				return nil
			}

			if *schemaPath == "" {
				return errkind.New(errkind.BadArgument, "missing required -s/--schema flag")
			}

			cfg, cfgErr := loadConfig(".")
			if cfgErr != nil {
				return errkind.Wrap(errkind.BadArgument, "loading .qcgen.json", cfgErr)
			}

			dir := *outputDir
			if dir == "" {
				dir = cfg.OutputDir
			}

			if dir == "" {
				dir = "."
			}

			strictMode := cfg.Strict
			if flags.Changed("strict") {
				strictMode = *strict
			}

			log.Infow("parsing schema", "path", *schemaPath, "strict", strictMode)

			layout, parseErr := schema.ParseFile(*schemaPath, schema.Options{Strict: strictMode})
			if parseErr != nil {
				return errkind.Wrap(errkind.BadArgument, "parsing schema", parseErr)
			}

			log.Infow("creating table", "name", layout.Name, "capacity", layout.Capacity, "record_size", layout.RecordSize)

			path, createErr := qcdb.CreateTable(fs.NewReal(), dir, layout)
			if createErr != nil {
				return createErr
			}

			o.Printf("created %s (%d records x %d bytes)\n", path, layout.Capacity, layout.RecordSize)

			return nil
		},
	}

	return cmd.Run(context.Background(), o, args)
}
