package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/mc/irgen"
	"github.com/skx/mc/lexer"
	"github.com/skx/mc/parser"
	"github.com/skx/mc/sema"
)

func compileToAsm(t *testing.T, src string) string {
	t.Helper()
	toks, err := lexer.Lex(src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	require.NoError(t, sema.Analyze(prog))
	irProg, err := irgen.Generate(prog)
	require.NoError(t, err)
	asm, err := Generate(irProg)
	require.NoError(t, err)
	return asm
}

func TestPreambleContainsStartStub(t *testing.T) {
	asm := compileToAsm(t, "int main() { return 0; }")
	assert.Contains(t, asm, "global _start")
	assert.Contains(t, asm, "call main")
	assert.Contains(t, asm, "mov rax, 60")
	assert.Contains(t, asm, "syscall")
}

func TestFunctionHasLabelAndEpilogue(t *testing.T) {
	asm := compileToAsm(t, "int main() { return 0; }")
	assert.Contains(t, asm, "main:")
	assert.Contains(t, asm, "main_epilogue:")
	assert.Contains(t, asm, "leave")
	assert.Contains(t, asm, "ret")
}

func TestFrameSizeRoundedTo16(t *testing.T) {
	// one int slot (8 bytes, temporary t0) must round up to a 16-byte frame
	asm := compileToAsm(t, "int f() { return 1; }")
	assert.Contains(t, asm, "sub rsp, 16")
}

func TestReturnMovesValueIntoRaxAndJumpsToEpilogue(t *testing.T) {
	// the literal is first stored in temporary t0's slot, then loaded into rax
	asm := compileToAsm(t, "int main() { return 42; }")
	assert.Contains(t, asm, "mov rax, [rbp - 8]")
	assert.Contains(t, asm, "jmp main_epilogue")
}

func TestParametersMovedFromArgRegisters(t *testing.T) {
	asm := compileToAsm(t, "int add(int a, int b) { return a + b; }")
	assert.Contains(t, asm, "mov [rbp - 8], rdi")
	assert.Contains(t, asm, "mov [rbp - 16], rsi")
}

func TestTooManyParametersIsCodeGenError(t *testing.T) {
	toks, err := lexer.Lex("int f(int a, int b, int c, int d, int e, int g, int h) { return a; }")
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	require.NoError(t, sema.Analyze(prog))
	irProg, err := irgen.Generate(prog)
	require.NoError(t, err)

	_, err = Generate(irProg)
	require.Error(t, err)
}

func TestDivisionUsesIdiv(t *testing.T) {
	asm := compileToAsm(t, "int f() { return 9 / 3; }")
	assert.Contains(t, asm, "cqo")
	assert.Contains(t, asm, "idiv rbx")
}

func TestComparisonUsesSetccAndMovzx(t *testing.T) {
	asm := compileToAsm(t, "int f() { return 1 < 2; }")
	assert.Contains(t, asm, "setl al")
	assert.Contains(t, asm, "movzx rax, al")
}

func TestIfEmitsConditionalJump(t *testing.T) {
	asm := compileToAsm(t, "int f() { if (1) { return 1; } else { return 0; } }")
	assert.Contains(t, asm, "je ")
}

func TestWhileBodyJumpsBackToCondBlock(t *testing.T) {
	asm := compileToAsm(t, "int f() { int i = 0; while (i < 10) { i = i + 1; } return i; }")
	assert.Contains(t, asm, "while_cond_0:")
	assert.Contains(t, asm, "while_body_1:")
	assert.Contains(t, asm, "while_end_2:")
	assert.Contains(t, asm, "jmp while_cond_0")
}

func TestFallThroughBetweenBlocksIsExplicit(t *testing.T) {
	asm := compileToAsm(t, "int f() { if (1) { return 1; } return 0; }")
	// the if_else block is empty of user statements but must still fall
	// through explicitly into if_end, never implicitly.
	assert.Contains(t, asm, "if_else_1:")
	assert.Contains(t, asm, "if_end_2:")
	assert.Contains(t, asm, "jmp if_end_2")
}

func TestVoidFunctionFallingOffEndJumpsToEpilogue(t *testing.T) {
	asm := compileToAsm(t, "void f() { int x = 1; }")
	assert.Contains(t, asm, "jmp f_epilogue")
}

func TestMultipleFunctionsEachGetOwnEpilogue(t *testing.T) {
	asm := compileToAsm(t, "int f() { return 1; } int g() { return 2; }")
	assert.Contains(t, asm, "f_epilogue:")
	assert.Contains(t, asm, "g_epilogue:")
}
