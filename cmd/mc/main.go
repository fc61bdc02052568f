// Command mc is the driver for the MC compiler: it reads a source file,
// runs it through the pipeline in package compiler, and writes the
// resulting NASM assembly to disk.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skx/mc/compiler"
	"github.com/skx/mc/errs"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	cmd := &cobra.Command{
		Use:   "mc <source-file>",
		Short: "Compile an MC source file to x86-64 NASM assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.output, "output", "o", "output.asm", "path to write the generated assembly to")
	flags.BoolVar(&cfg.emitTokens, "emit-tokens", false, "dump the lexer's token stream to stderr")
	flags.BoolVar(&cfg.emitIR, "emit-ir", false, "dump the generated IR to stderr")
	flags.BoolVar(&cfg.debug, "debug", false, "enable debug logging of the compile and output steps")

	return cmd
}

func run(path string, cfg *config) error {
	if cfg.debug {
		log.SetLevel(logrus.DebugLevel)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	log.WithField("file", path).Debug("starting compile")

	c := compiler.New(string(src))
	c.SetDebug(cfg.emitTokens || cfg.emitIR || cfg.debug)

	asm, err := c.Compile()
	if err != nil {
		reportError(path, err)
		return err
	}

	if cfg.emitTokens {
		for _, tok := range c.Tokens() {
			fmt.Fprintln(os.Stderr, tok.String())
		}
	}

	if cfg.emitIR {
		fmt.Fprint(os.Stderr, c.IR().String())
	}

	log.WithField("output", cfg.output).Debug("writing assembly")

	if err := os.WriteFile(cfg.output, []byte(asm), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", cfg.output)
	}

	return nil
}

// reportError prints err to stderr, prefixed by stage when the
// underlying cause is one of the pipeline's typed *errs.Error values,
// per the driver's exit-code contract.
func reportError(path string, err error) {
	var se *errs.Error
	if errors.As(err, &se) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, se.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", path, err.Error())
}
