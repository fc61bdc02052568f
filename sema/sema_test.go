package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/mc/errs"
	"github.com/skx/mc/lexer"
	"github.com/skx/mc/parser"
)

func analyzeSource(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Lex(src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	return Analyze(prog)
}

func assertSemanticError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	se, ok := err.(*errs.Error)
	require.True(t, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t, errs.Semantic, se.Kind)
}

func TestValidPrograms(t *testing.T) {
	tests := []string{
		"int main() { return 0; }",
		"void f() { return; }",
		"int f() { int x = 1; x = x + 1; return x; }",
		"int f(int x) { if (x > 0) { return 1; } else { return 0; } }",
		"int f() { int i = 0; while (i < 10) { i = i + 1; } return i; }",
		"string f() { string s = \"hi\"; return s; }",
		// shadowing an outer variable in an inner scope is fine
		"int f() { int x = 1; if (x == 1) { int x = 2; x = x + 1; } return x; }",
	}
	for _, src := range tests {
		err := analyzeSource(t, src)
		assert.NoErrorf(t, err, "expected %q to be valid", src)
	}
}

func TestReturnWithNoValueInNonVoidFunctionIsError(t *testing.T) {
	err := analyzeSource(t, "int main() { return; }")
	assertSemanticError(t, err)
}

func TestVoidFunctionReturningValueIsError(t *testing.T) {
	err := analyzeSource(t, "void f() { return 1; }")
	assertSemanticError(t, err)
}

func TestRedeclarationInSameScopeIsError(t *testing.T) {
	err := analyzeSource(t, "int f() { int x = 1; int x = 2; return x; }")
	assertSemanticError(t, err)
}

func TestUndeclaredVariableIsError(t *testing.T) {
	err := analyzeSource(t, "int main() { x = 1; return 0; }")
	assertSemanticError(t, err)
}

func TestTypeMismatchOnInitializerIsError(t *testing.T) {
	err := analyzeSource(t, `int main() { int x = "a"; return x; }`)
	assertSemanticError(t, err)
}

func TestMixedTypeBinaryIsError(t *testing.T) {
	err := analyzeSource(t, `int f() { string s = "x"; return 1 + s; }`)
	assertSemanticError(t, err)
}

func TestVoidVariableIsError(t *testing.T) {
	err := analyzeSource(t, "int main() { void x; return 0; }")
	assertSemanticError(t, err)
}

func TestNonIntConditionIsError(t *testing.T) {
	err := analyzeSource(t, `int f() { if ("x") { return 1; } return 0; }`)
	assertSemanticError(t, err)
}

func TestDuplicateFunctionIsError(t *testing.T) {
	err := analyzeSource(t, "int f() { return 0; } int f() { return 1; }")
	assertSemanticError(t, err)
}

func TestDuplicateParameterIsError(t *testing.T) {
	err := analyzeSource(t, "int f(int x, int x) { return x; }")
	assertSemanticError(t, err)
}
