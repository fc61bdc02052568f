// Package sema validates an *ast.Program's scoping, typing, and
// control-flow rules before it is handed to the IR generator. It never
// mutates the AST it is given - only later stages read the tree.
package sema

import (
	"github.com/skx/mc/ast"
	"github.com/skx/mc/errs"
	"github.com/skx/mc/stack"
	"github.com/skx/mc/token"
)

// scope is one level of a lexical scope stack: declared name -> type.
type scope map[string]ast.Type

// Analyzer holds the scope stack, the global function table, and the
// return type of whichever function is currently being checked.
//
// New is infallible - construction cannot fail, mirroring the
// constructor/Analyze split used elsewhere in this codebase's corpus of
// reference compilers. Analyze performs all the work and can fail.
type Analyzer struct {
	program *ast.Program

	scopes    *stack.Stack[scope]
	functions map[string]ast.Type

	currentReturnType ast.Type
}

// New creates an Analyzer for program. A nil program is treated as empty.
func New(program *ast.Program) *Analyzer {
	if program == nil {
		program = &ast.Program{}
	}
	return &Analyzer{
		program:   program,
		scopes:    stack.New[scope](),
		functions: make(map[string]ast.Type),
	}
}

// Analyze walks the program, returning the first semantic violation it
// finds, or nil if the program is valid.
func (a *Analyzer) Analyze() error {
	a.pushScope()
	defer a.popScope()

	if err := a.registerFunctions(); err != nil {
		return err
	}

	for _, fn := range a.program.Functions {
		if err := a.analyzeFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) registerFunctions() error {
	for _, fn := range a.program.Functions {
		if _, exists := a.functions[fn.Name]; exists {
			return errs.New(errs.Semantic, fn.Position.Line, fn.Position.Column, "function %q redeclared", fn.Name)
		}
		a.functions[fn.Name] = fn.ReturnType
	}
	return nil
}

func (a *Analyzer) analyzeFunction(fn *ast.Function) error {
	a.pushScope()
	defer a.popScope()

	prevReturn := a.currentReturnType
	a.currentReturnType = fn.ReturnType
	defer func() { a.currentReturnType = prevReturn }()

	top, _ := a.scopes.Peek()
	for _, param := range fn.Params {
		if _, exists := top[param.Name]; exists {
			return errs.New(errs.Semantic, param.Position.Line, param.Position.Column, "parameter %q redeclared", param.Name)
		}
		top[param.Name] = param.Type
	}

	return a.analyzeStmts(fn.Body)
}

func (a *Analyzer) analyzeStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return a.analyzeVarDecl(s)
	case *ast.Assign:
		return a.analyzeAssign(s)
	case *ast.Return:
		return a.analyzeReturn(s)
	case *ast.If:
		return a.analyzeIf(s)
	case *ast.While:
		return a.analyzeWhile(s)
	default:
		pos := stmt.Pos()
		return errs.New(errs.Semantic, pos.Line, pos.Column, "unhandled statement type %T", stmt)
	}
}

func (a *Analyzer) analyzeVarDecl(s *ast.VarDecl) error {
	top, _ := a.scopes.Peek()
	if _, exists := top[s.Name]; exists {
		return errs.New(errs.Semantic, s.Position.Line, s.Position.Column, "%q redeclared in this scope", s.Name)
	}
	if s.Type == ast.Void {
		return errs.New(errs.Semantic, s.Position.Line, s.Position.Column, "variable %q cannot have type void", s.Name)
	}
	if s.Initializer != nil {
		initType, err := a.inferType(s.Initializer)
		if err != nil {
			return err
		}
		if initType != s.Type {
			pos := s.Initializer.Pos()
			return errs.New(errs.Semantic, pos.Line, pos.Column, "cannot initialize %q of type %s with value of type %s", s.Name, s.Type, initType)
		}
	}
	top[s.Name] = s.Type
	return nil
}

func (a *Analyzer) analyzeAssign(s *ast.Assign) error {
	varType, ok := a.lookup(s.Name)
	if !ok {
		return errs.New(errs.Semantic, s.Position.Line, s.Position.Column, "undeclared variable %q", s.Name)
	}
	if varType == ast.Void {
		return errs.New(errs.Semantic, s.Position.Line, s.Position.Column, "cannot assign to void variable %q", s.Name)
	}
	valueType, err := a.inferType(s.Value)
	if err != nil {
		return err
	}
	if valueType != varType {
		pos := s.Value.Pos()
		return errs.New(errs.Semantic, pos.Line, pos.Column, "cannot assign value of type %s to %q of type %s", valueType, s.Name, varType)
	}
	return nil
}

func (a *Analyzer) analyzeReturn(s *ast.Return) error {
	if a.currentReturnType == ast.Void {
		if s.Value != nil {
			pos := s.Value.Pos()
			return errs.New(errs.Semantic, pos.Line, pos.Column, "void function must not return a value")
		}
		return nil
	}

	if s.Value == nil {
		return errs.New(errs.Semantic, s.Position.Line, s.Position.Column, "non-void function must return a value")
	}
	valueType, err := a.inferType(s.Value)
	if err != nil {
		return err
	}
	if valueType != a.currentReturnType {
		pos := s.Value.Pos()
		return errs.New(errs.Semantic, pos.Line, pos.Column, "returned value has type %s, function returns %s", valueType, a.currentReturnType)
	}
	return nil
}

func (a *Analyzer) analyzeIf(s *ast.If) error {
	if err := a.requireIntCondition(s.Cond); err != nil {
		return err
	}

	a.pushScope()
	err := a.analyzeStmts(s.Then)
	a.popScope()
	if err != nil {
		return err
	}

	if len(s.Else) > 0 {
		a.pushScope()
		err = a.analyzeStmts(s.Else)
		a.popScope()
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeWhile(s *ast.While) error {
	if err := a.requireIntCondition(s.Cond); err != nil {
		return err
	}

	a.pushScope()
	err := a.analyzeStmts(s.Body)
	a.popScope()
	return err
}

func (a *Analyzer) requireIntCondition(cond ast.Expr) error {
	condType, err := a.inferType(cond)
	if err != nil {
		return err
	}
	if condType != ast.Int {
		pos := cond.Pos()
		return errs.New(errs.Semantic, pos.Line, pos.Column, "condition must have type int, found %s", condType)
	}
	return nil
}

// inferType computes the type of an expression, per the rules in §4.3:
// literals carry their own type, identifiers are looked up, unary and
// binary arithmetic/comparison operators require int operands and
// produce int.
func (a *Analyzer) inferType(expr ast.Expr) (ast.Type, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return ast.Int, nil

	case *ast.StringLiteral:
		return ast.Str, nil

	case *ast.Identifier:
		typ, ok := a.lookup(e.Name)
		if !ok {
			return "", errs.New(errs.Semantic, e.Position.Line, e.Position.Column, "undeclared variable %q", e.Name)
		}
		return typ, nil

	case *ast.Unary:
		return a.inferUnary(e)

	case *ast.Binary:
		return a.inferBinary(e)

	default:
		pos := expr.Pos()
		return "", errs.New(errs.Semantic, pos.Line, pos.Column, "unhandled expression type %T", expr)
	}
}

func (a *Analyzer) inferUnary(e *ast.Unary) (ast.Type, error) {
	switch e.Op {
	case token.MINUS, token.BANG:
		operandType, err := a.inferType(e.Operand)
		if err != nil {
			return "", err
		}
		if operandType != ast.Int {
			pos := e.Operand.Pos()
			return "", errs.New(errs.Semantic, pos.Line, pos.Column, "unary %s requires an int operand, found %s", e.Op, operandType)
		}
		return ast.Int, nil
	default:
		return "", errs.New(errs.Semantic, e.Position.Line, e.Position.Column, "unsupported unary operator %s", e.Op)
	}
}

func (a *Analyzer) inferBinary(e *ast.Binary) (ast.Type, error) {
	switch e.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:

		leftType, err := a.inferType(e.Left)
		if err != nil {
			return "", err
		}
		if leftType != ast.Int {
			pos := e.Left.Pos()
			return "", errs.New(errs.Semantic, pos.Line, pos.Column, "operator %s requires int operands, left operand has type %s", e.Op, leftType)
		}

		rightType, err := a.inferType(e.Right)
		if err != nil {
			return "", err
		}
		if rightType != ast.Int {
			pos := e.Right.Pos()
			return "", errs.New(errs.Semantic, pos.Line, pos.Column, "operator %s requires int operands, right operand has type %s", e.Op, rightType)
		}

		return ast.Int, nil

	default:
		return "", errs.New(errs.Semantic, e.Position.Line, e.Position.Column, "unsupported binary operator %s", e.Op)
	}
}

func (a *Analyzer) pushScope() {
	a.scopes.Push(scope{})
}

func (a *Analyzer) popScope() {
	_, _ = a.scopes.Pop()
}

// lookup walks the scope stack from the top (innermost) down, returning
// the first matching declaration.
func (a *Analyzer) lookup(name string) (ast.Type, bool) {
	for i := a.scopes.Len() - 1; i >= 0; i-- {
		if typ, ok := a.scopes.At(i)[name]; ok {
			return typ, true
		}
	}
	return "", false
}

// Analyze is a convenience wrapper equivalent to New(program).Analyze().
func Analyze(program *ast.Program) error {
	return New(program).Analyze()
}
