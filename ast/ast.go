// Package ast defines the tagged node model the parser builds and every
// later stage reads by reference. Nodes are created once during parsing
// and never mutated afterwards; each parent exclusively owns its
// children and no cycles are possible given the grammar.
package ast

import "github.com/skx/mc/token"

// Type is one of MC's three declared types.
type Type string

// The closed set of MC types.
const (
	Int  Type = "int"
	Void Type = "void"
	Str  Type = "str"
)

// Node is implemented by every AST node; it reports the source position
// of the node's first token, for diagnostics.
type Node interface {
	Pos() token.Position
}

// Stmt is the sum type of MC statement forms.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the sum type of MC expression forms.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: an ordered list of function definitions.
type Program struct {
	Functions []*Function
}

// Param is one declared parameter of a Function.
type Param struct {
	Type     Type
	Name     string
	Position token.Position
}

// Function owns its parameter list and its body statements.
type Function struct {
	Name       string
	ReturnType Type
	Params     []*Param
	Body       []Stmt
	Position   token.Position
}

// Pos implements Node.
func (f *Function) Pos() token.Position { return f.Position }

// VarDecl declares a local variable, optionally with an initializer.
type VarDecl struct {
	Type        Type
	Name        string
	Initializer Expr // nil when absent
	Position    token.Position
}

func (*VarDecl) stmtNode()             {}
func (s *VarDecl) Pos() token.Position { return s.Position }

// Assign stores the value of Value into the variable named Name.
type Assign struct {
	Name     string
	Value    Expr
	Position token.Position
}

func (*Assign) stmtNode()             {}
func (s *Assign) Pos() token.Position { return s.Position }

// Return exits the enclosing function, optionally carrying a value.
type Return struct {
	Value    Expr // nil for a void return
	Position token.Position
}

func (*Return) stmtNode()             {}
func (s *Return) Pos() token.Position { return s.Position }

// If executes Then when Cond is non-zero, Else (which may be empty)
// otherwise.
type If struct {
	Cond     Expr
	Then     []Stmt
	Else     []Stmt
	Position token.Position
}

func (*If) stmtNode()             {}
func (s *If) Pos() token.Position { return s.Position }

// While repeatedly executes Body while Cond is non-zero.
type While struct {
	Cond     Expr
	Body     []Stmt
	Position token.Position
}

func (*While) stmtNode()             {}
func (s *While) Pos() token.Position { return s.Position }

// IntLiteral is a decimal integer constant.
type IntLiteral struct {
	Value    int64
	Position token.Position
}

func (*IntLiteral) exprNode()             {}
func (e *IntLiteral) Pos() token.Position { return e.Position }

// StringLiteral is a double-quoted string constant, already escape-decoded.
type StringLiteral struct {
	Value    string
	Position token.Position
}

func (*StringLiteral) exprNode()             {}
func (e *StringLiteral) Pos() token.Position { return e.Position }

// Identifier references a declared name.
type Identifier struct {
	Name     string
	Position token.Position
}

func (*Identifier) exprNode()             {}
func (e *Identifier) Pos() token.Position { return e.Position }

// Unary applies Op (MINUS or BANG) to Operand.
type Unary struct {
	Op       token.Kind
	Operand  Expr
	Position token.Position
}

func (*Unary) exprNode()             {}
func (e *Unary) Pos() token.Position { return e.Position }

// Binary applies Op to Left and Right.
type Binary struct {
	Left     Expr
	Op       token.Kind
	Right    Expr
	Position token.Position
}

func (*Binary) exprNode()             {}
func (e *Binary) Pos() token.Position { return e.Position }
