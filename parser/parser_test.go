package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/mc/ast"
	"github.com/skx/mc/lexer"
	"github.com/skx/mc/token"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex(src)
	require.NoError(t, err)
	prog, err := Parse(toks)
	require.NoError(t, err)
	return prog
}

func TestParseMinimalFunction(t *testing.T) {
	prog := mustParse(t, "int main() { return 0; }")
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, ast.Int, fn.ReturnType)
	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*ast.Return)
	require.True(t, ok)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(0), lit.Value)
}

func TestParseParams(t *testing.T) {
	prog := mustParse(t, "int add(int a, int b) { return a + b; }")
	fn := prog.Functions[0]
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, ast.Int, fn.Params[0].Type)
	assert.Equal(t, "b", fn.Params[1].Name)
}

func TestOperatorPrecedenceAndLeftAssociativity(t *testing.T) {
	prog := mustParse(t, "int f() { return 1 + 2 * 3 - 4 / 2; }")
	ret := prog.Functions[0].Body[0].(*ast.Return)

	// (1 + (2*3)) - (4/2)
	outer, ok := ret.Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.MINUS, outer.Op)

	left, ok := outer.Left.(*ast.Binary)
	require.True(t, ok)
	_, ok = left.Right.(*ast.Binary)
	require.True(t, ok, "2*3 should bind before 1+...")
}

func TestUnaryBindsTighterThanBinary(t *testing.T) {
	prog := mustParse(t, "int f() { return -1 + 2; }")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	bin, ok := ret.Value.(*ast.Binary)
	require.True(t, ok)
	_, ok = bin.Left.(*ast.Unary)
	require.True(t, ok)
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	prog := mustParse(t, "int f() { return (1 + 2) * 3; }")
	ret := prog.Functions[0].Body[0].(*ast.Return)
	bin, ok := ret.Value.(*ast.Binary)
	require.True(t, ok)
	_, ok = bin.Left.(*ast.Binary)
	require.True(t, ok, "parenthesised addition must be the left operand of the multiply")
}

func TestOptionalParensOnIfAndWhile(t *testing.T) {
	prog := mustParse(t, `
int f() {
	int x = 0;
	if x == 0 {
		return 1;
	}
	while x < 10 {
		x = x + 1;
	}
	return 0;
}`)
	fn := prog.Functions[0]
	require.Len(t, fn.Body, 4)
	_, ok := fn.Body[1].(*ast.If)
	require.True(t, ok)
	_, ok = fn.Body[2].(*ast.While)
	require.True(t, ok)
}

func TestIfWithoutElse(t *testing.T) {
	prog := mustParse(t, "int f() { if (1) { return 1; } return 0; }")
	ifStmt := prog.Functions[0].Body[0].(*ast.If)
	assert.Empty(t, ifStmt.Else)
}

func TestMissingSemicolonIsParseError(t *testing.T) {
	toks, err := lexer.Lex("int f() { return 0 }")
	require.NoError(t, err)
	_, err = Parse(toks)
	require.Error(t, err)
}

func TestEmptyProgram(t *testing.T) {
	prog := mustParse(t, "")
	assert.Empty(t, prog.Functions)
}
