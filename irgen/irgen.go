// Package irgen lowers an analyzed *ast.Program into an *ir.Program: one
// IRFunction per ast.Function, each a sequence of basic blocks threaded
// together with unique temporaries and labels.
package irgen

import (
	"strconv"

	"github.com/skx/mc/ast"
	"github.com/skx/mc/errs"
	"github.com/skx/mc/ir"
	"github.com/skx/mc/token"
)

// Generator walks one already-analyzed *ast.Program and produces IR. The
// AST is assumed valid - an *ast.Program that failed sema.Analyze
// produces undefined results here.
type Generator struct {
	// per-function state, reset by beginFunction
	fn       *ir.Function
	block    *ir.BasicBlock
	tempNum  int
	labelNum int
	vars     map[string]string
}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// Generate lowers program into an *ir.Program, or fails with an *errs.Error
// of kind IrGen.
func Generate(program *ast.Program) (*ir.Program, error) {
	return New().Generate(program)
}

// Generate lowers program into an *ir.Program.
func (g *Generator) Generate(program *ast.Program) (*ir.Program, error) {
	out := &ir.Program{}
	for _, fn := range program.Functions {
		irFn, err := g.generateFunction(fn)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, irFn)
	}
	return out, nil
}

func (g *Generator) generateFunction(fn *ast.Function) (*ir.Function, error) {
	g.tempNum = 0
	g.labelNum = 0
	g.vars = make(map[string]string)

	params := make([]ir.Param, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, ir.Param{Type: string(p.Type), Name: p.Name})
	}

	g.fn = &ir.Function{
		Name:       fn.Name,
		ReturnType: string(fn.ReturnType),
		Params:     params,
	}

	// Every function begins with an auto-minted entry block, already
	// current. There is only ever one per function, so its label never
	// needs to draw from the shared label counter.
	g.block = g.newBlock("entry_0")

	for _, p := range fn.Params {
		g.vars[p.Name] = p.Name
	}

	for _, stmt := range fn.Body {
		if err := g.generateStmt(stmt); err != nil {
			return nil, err
		}
	}

	return g.fn, nil
}

func (g *Generator) newBlock(label string) *ir.BasicBlock {
	b := &ir.BasicBlock{Label: label}
	g.fn.Blocks = append(g.fn.Blocks, b)
	return b
}

func (g *Generator) newTemp() string {
	t := "t" + strconv.Itoa(g.tempNum)
	g.tempNum++
	return t
}

func (g *Generator) newLabel(prefix string) string {
	l := prefix + "_" + strconv.Itoa(g.labelNum)
	g.labelNum++
	return l
}

func (g *Generator) emit(op ir.Opcode, result, op1, op2 string) {
	g.block.Instructions = append(g.block.Instructions, ir.Instruction{
		Op: op, Result: result, Operand1: op1, Operand2: op2,
	})
}

func (g *Generator) generateStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return g.generateVarDecl(s)
	case *ast.Assign:
		return g.generateAssign(s)
	case *ast.Return:
		return g.generateReturn(s)
	case *ast.If:
		return g.generateIf(s)
	case *ast.While:
		return g.generateWhile(s)
	default:
		pos := stmt.Pos()
		return errs.New(errs.IrGen, pos.Line, pos.Column, "unhandled statement type %T", stmt)
	}
}

func (g *Generator) generateVarDecl(s *ast.VarDecl) error {
	g.vars[s.Name] = s.Name
	if s.Initializer != nil {
		ti, err := g.generateExpr(s.Initializer)
		if err != nil {
			return err
		}
		g.emit(ir.ASSIGN, s.Name, ti, "")
	}
	return nil
}

func (g *Generator) generateAssign(s *ast.Assign) error {
	tv, err := g.generateExpr(s.Value)
	if err != nil {
		return err
	}
	g.emit(ir.ASSIGN, s.Name, tv, "")
	return nil
}

func (g *Generator) generateReturn(s *ast.Return) error {
	if s.Value != nil {
		tv, err := g.generateExpr(s.Value)
		if err != nil {
			return err
		}
		g.emit(ir.RETURN, "", tv, "")
		return nil
	}
	g.emit(ir.RETURN, "", "", "")
	return nil
}

func (g *Generator) generateIf(s *ast.If) error {
	tc, err := g.generateExpr(s.Cond)
	if err != nil {
		return err
	}

	thenL := g.newLabel("if_then")
	elseL := g.newLabel("if_else")
	endL := g.newLabel("if_end")

	g.emit(ir.JUMPIFNOT, "", tc, elseL)

	g.block = g.newBlock(thenL)
	for _, stmt := range s.Then {
		if err := g.generateStmt(stmt); err != nil {
			return err
		}
	}
	g.emit(ir.JUMP, "", endL, "")

	g.block = g.newBlock(elseL)
	for _, stmt := range s.Else {
		if err := g.generateStmt(stmt); err != nil {
			return err
		}
	}
	g.emit(ir.JUMP, "", endL, "")

	g.block = g.newBlock(endL)
	return nil
}

func (g *Generator) generateWhile(s *ast.While) error {
	condL := g.newLabel("while_cond")
	bodyL := g.newLabel("while_body")
	endL := g.newLabel("while_end")

	g.emit(ir.JUMP, "", condL, "")

	g.block = g.newBlock(condL)
	tc, err := g.generateExpr(s.Cond)
	if err != nil {
		return err
	}
	g.emit(ir.JUMPIFNOT, "", tc, endL)

	g.block = g.newBlock(bodyL)
	for _, stmt := range s.Body {
		if err := g.generateStmt(stmt); err != nil {
			return err
		}
	}
	g.emit(ir.JUMP, "", condL, "")

	g.block = g.newBlock(endL)
	return nil
}

func (g *Generator) generateExpr(expr ast.Expr) (string, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		t := g.newTemp()
		g.emit(ir.ASSIGN, t, strconv.FormatInt(e.Value, 10), "")
		return t, nil

	case *ast.StringLiteral:
		t := g.newTemp()
		g.emit(ir.ASSIGN, t, e.Value, "")
		return t, nil

	case *ast.Identifier:
		name, ok := g.vars[e.Name]
		if !ok {
			return "", errs.New(errs.IrGen, e.Position.Line, e.Position.Column, "undeclared identifier %q", e.Name)
		}
		return name, nil

	case *ast.Unary:
		return g.generateUnary(e)

	case *ast.Binary:
		return g.generateBinary(e)

	default:
		pos := expr.Pos()
		return "", errs.New(errs.IrGen, pos.Line, pos.Column, "unhandled expression type %T", expr)
	}
}

func (g *Generator) generateUnary(e *ast.Unary) (string, error) {
	tx, err := g.generateExpr(e.Operand)
	if err != nil {
		return "", err
	}
	tr := g.newTemp()
	switch e.Op {
	case token.MINUS:
		g.emit(ir.NEG, tr, tx, "")
	case token.BANG:
		g.emit(ir.NOT, tr, tx, "")
	default:
		return "", errs.New(errs.IrGen, e.Position.Line, e.Position.Column, "unsupported unary operator %s", e.Op)
	}
	return tr, nil
}

var binaryOpcodes = map[token.Kind]ir.Opcode{
	token.PLUS:  ir.ADD,
	token.MINUS: ir.SUB,
	token.STAR:  ir.MUL,
	token.SLASH: ir.DIV,
	token.EQ:    ir.EQ,
	token.NEQ:   ir.NEQ,
	token.LT:    ir.LT,
	token.GT:    ir.GT,
	token.LE:    ir.LE,
	token.GE:    ir.GE,
}

func (g *Generator) generateBinary(e *ast.Binary) (string, error) {
	tl, err := g.generateExpr(e.Left)
	if err != nil {
		return "", err
	}
	tr, err := g.generateExpr(e.Right)
	if err != nil {
		return "", err
	}
	opcode, ok := binaryOpcodes[e.Op]
	if !ok {
		return "", errs.New(errs.IrGen, e.Position.Line, e.Position.Column, "unsupported binary operator %s", e.Op)
	}
	tres := g.newTemp()
	g.emit(opcode, tres, tl, tr)
	return tres, nil
}
