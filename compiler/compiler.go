// Package compiler contains the core of mc: a thin orchestrator that
// drives source text through the lexer, parser, semantic analyzer, IR
// generator, and code generator, in that order.
//
// Each stage consumes only its predecessor's output; a failure at any
// stage aborts the pipeline immediately. Errors are wrapped with
// github.com/pkg/errors as they cross each stage boundary so the
// original *errs.Error (stage, line, column) remains recoverable via
// errors.As, while %+v logging still shows which call site in this file
// produced it.
package compiler

import (
	"github.com/pkg/errors"

	"github.com/skx/mc/ast"
	"github.com/skx/mc/codegen"
	"github.com/skx/mc/ir"
	"github.com/skx/mc/irgen"
	"github.com/skx/mc/lexer"
	"github.com/skx/mc/parser"
	"github.com/skx/mc/sema"
	"github.com/skx/mc/token"
)

// Compiler holds our object-state: the source text we were given, and
// the intermediate results accumulated as it's driven through the
// pipeline.
type Compiler struct {

	// source holds the MC program we're compiling.
	source string

	// debug controls whether intermediate stages are retained for
	// inspection after a successful compile (see Tokens/IR below; the
	// AST is retained too but has no accessor).
	debug bool

	tokens []token.Token
	ast    *ast.Program
	ir     *ir.Program
}

// New creates a new compiler, given the source text in the constructor.
func New(input string) *Compiler {
	return &Compiler{source: input}
}

// SetDebug changes the debug-flag, which keeps intermediate results
// around after a successful Compile for Tokens/IR to return.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// Tokens returns the token stream produced by the most recent successful
// Compile run with debug set, or nil if there has been none.
func (c *Compiler) Tokens() []token.Token {
	return c.tokens
}

// IR returns the IR program produced by the most recent successful
// Compile run with debug set, or nil if there has been none.
func (c *Compiler) IR() *ir.Program {
	return c.ir
}

// Compile drives source through every pipeline stage and returns the
// generated NASM assembly text.
func (c *Compiler) Compile() (string, error) {
	toks, err := lexer.Lex(c.source)
	if err != nil {
		return "", errors.Wrap(err, "lexing")
	}

	prog, err := parser.Parse(toks)
	if err != nil {
		return "", errors.Wrap(err, "parsing")
	}

	if err := sema.Analyze(prog); err != nil {
		return "", errors.Wrap(err, "semantic analysis")
	}

	irProg, err := irgen.Generate(prog)
	if err != nil {
		return "", errors.Wrap(err, "IR generation")
	}

	asm, err := codegen.Generate(irProg)
	if err != nil {
		return "", errors.Wrap(err, "code generation")
	}

	if c.debug {
		c.tokens = toks
		c.ast = prog
		c.ir = irProg
	}

	return asm, nil
}
