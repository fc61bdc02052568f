// Package parser builds an *ast.Program from a token stream by
// recursive descent, with precedence climbing for expressions.
package parser

import (
	"github.com/skx/mc/ast"
	"github.com/skx/mc/errs"
	"github.com/skx/mc/token"
)

// Parser holds our cursor over an already-lexed token slice.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New creates a Parser over tokens, which must end with an EOF token.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse lexes nothing itself; it consumes tokens and returns the
// resulting *ast.Program, or the first parse error encountered.
func Parse(tokens []token.Token) (*ast.Program, error) {
	return New(tokens).ParseProgram()
}

// ParseProgram parses a whole program: program := function*
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipLayout()
	for p.cur().Kind != token.EOF {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
		p.skipLayout()
	}
	return prog, nil
}

// cur returns the token under the cursor.
func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

// advance consumes and returns the token under the cursor.
func (p *Parser) advance() token.Token {
	tok := p.cur()
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it has the given kind, else fails
// with a Parse error at its position.
func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok := p.cur()
	if tok.Kind != kind {
		return token.Token{}, errs.New(errs.Parse, tok.Pos.Line, tok.Pos.Column, "expected %s, found %s", kind, tok.Kind)
	}
	return p.advance(), nil
}

// skipLayout discards NEWLINE/INDENT/DEDENT tokens. MC's blocks are
// brace-delimited, so the lexer's indentation bookkeeping never carries
// grammatical meaning here - it is whitespace, exactly like NEWLINE is
// for block/function contexts per the grammar.
func (p *Parser) skipLayout() {
	for {
		switch p.cur().Kind {
		case token.NEWLINE, token.INDENT, token.DEDENT:
			p.advance()
		default:
			return
		}
	}
}

// synchronize advances to the next ';' (or EOF) after a parse error, so a
// caller that chooses to keep parsing can resume at a statement boundary.
// mc's driver still aborts on the first error - this only preserves the
// recovery hook the grammar contract documents.
func (p *Parser) synchronize() {
	for p.cur().Kind != token.SEMICOLON && p.cur().Kind != token.EOF {
		p.advance()
	}
	if p.cur().Kind == token.SEMICOLON {
		p.advance()
	}
}

// parseFunction parses: function := type IDENT '(' params? ')' block
func (p *Parser) parseFunction() (*ast.Function, error) {
	start := p.cur().Pos

	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var params []*ast.Param
	if p.cur().Kind != token.RPAREN {
		params, err = p.parseParams()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Function{
		Name:       nameTok.StrValue,
		ReturnType: retType,
		Params:     params,
		Body:       body,
		Position:   start,
	}, nil
}

// parseType parses: type := 'int' | 'void' | 'string'
func (p *Parser) parseType() (ast.Type, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.INT_KW:
		p.advance()
		return ast.Int, nil
	case token.VOID_KW:
		p.advance()
		return ast.Void, nil
	case token.STRING_KW:
		p.advance()
		return ast.Str, nil
	default:
		return "", errs.New(errs.Parse, tok.Pos.Line, tok.Pos.Column, "expected a type, found %s", tok.Kind)
	}
}

// parseParams parses: params := param (',' param)*
func (p *Parser) parseParams() ([]*ast.Param, error) {
	var params []*ast.Param
	for {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.cur().Kind != token.COMMA {
			break
		}
		p.advance()
	}
	return params, nil
}

// parseParam parses: param := type IDENT
func (p *Parser) parseParam() (*ast.Param, error) {
	pos := p.cur().Pos
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	return &ast.Param{Type: typ, Name: nameTok.StrValue, Position: pos}, nil
}

// parseBlock parses: block := NEWLINE* '{' NEWLINE* (stmt NEWLINE*)* '}' NEWLINE*
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	p.skipLayout()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	p.skipLayout()

	var stmts []ast.Stmt
	for p.cur().Kind != token.RBRACE {
		if p.cur().Kind == token.EOF {
			tok := p.cur()
			return nil, errs.New(errs.Parse, tok.Pos.Line, tok.Pos.Column, "unexpected end of file, expected '}'")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			p.synchronize()
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.skipLayout()
	}
	p.advance() // consume '}'
	p.skipLayout()
	return stmts, nil
}

// parseStmt parses: stmt := if | while | return | var_decl | assign
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.INT_KW, token.VOID_KW, token.STRING_KW:
		return p.parseVarDecl()
	case token.IDENTIFIER:
		return p.parseAssign()
	default:
		tok := p.cur()
		return nil, errs.New(errs.Parse, tok.Pos.Line, tok.Pos.Column, "unexpected token %s", tok.Kind)
	}
}

// parseIf parses: if := 'if' '('? expr ')'? block ('else' block)?
// Parentheses around the condition are optional and discarded if present.
func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.cur().Pos
	p.advance()

	hasParen := p.cur().Kind == token.LPAREN
	if hasParen {
		p.advance()
	}

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if hasParen {
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}

	thenStmts, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseStmts []ast.Stmt
	p.skipLayout()
	if p.cur().Kind == token.ELSE {
		p.advance()
		elseStmts, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Cond: cond, Then: thenStmts, Else: elseStmts, Position: pos}, nil
}

// parseWhile parses: while := 'while' '('? expr ')'? block
func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.cur().Pos
	p.advance()

	hasParen := p.cur().Kind == token.LPAREN
	if hasParen {
		p.advance()
	}

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if hasParen {
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.While{Cond: cond, Body: body, Position: pos}, nil
}

// parseReturn parses: return := 'return' expr? ';'
func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.cur().Pos
	p.advance()

	var value ast.Expr
	if p.cur().Kind != token.SEMICOLON {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		value = v
	}

	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	return &ast.Return{Value: value, Position: pos}, nil
}

// parseVarDecl parses: var_decl := type IDENT ('=' expr)? ';'
func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	pos := p.cur().Pos
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}

	var init ast.Expr
	if p.cur().Kind == token.ASSIGN {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	return &ast.VarDecl{Type: typ, Name: nameTok.StrValue, Initializer: init, Position: pos}, nil
}

// parseAssign parses: assign := IDENT '=' expr ';'
func (p *Parser) parseAssign() (ast.Stmt, error) {
	nameTok := p.advance()

	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	return &ast.Assign{Name: nameTok.StrValue, Value: value, Position: nameTok.Pos}, nil
}

// parseExpr parses: expr := comparison
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseComparison()
}

// parseComparison parses: comparison := term (( '==' | '!=' | '<' | '<=' | '>' | '>=' ) term)*
func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for isComparisonOp(p.cur().Kind) {
		opTok := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: opTok.Kind, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

// parseTerm parses: term := factor (( '+' | '-' ) factor)*
func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.PLUS || p.cur().Kind == token.MINUS {
		opTok := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: opTok.Kind, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

// parseFactor parses: factor := primary (( '*' | '/' ) primary)*
func (p *Parser) parseFactor() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.STAR || p.cur().Kind == token.SLASH {
		opTok := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Op: opTok.Kind, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

// parsePrimary parses:
//
//	primary := '(' expr ')' | ('!' | '-') primary
//	         | INT_LIT | STR_LIT | IDENT
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.LPAREN:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case token.BANG, token.MINUS:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: tok.Kind, Operand: operand, Position: tok.Pos}, nil

	case token.INT:
		p.advance()
		return &ast.IntLiteral{Value: tok.IntValue, Position: tok.Pos}, nil

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Value: tok.StrValue, Position: tok.Pos}, nil

	case token.IDENTIFIER:
		p.advance()
		return &ast.Identifier{Name: tok.StrValue, Position: tok.Pos}, nil

	default:
		return nil, errs.New(errs.Parse, tok.Pos.Line, tok.Pos.Column, "unexpected token %s in expression", tok.Kind)
	}
}

func isComparisonOp(k token.Kind) bool {
	switch k {
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:
		return true
	default:
		return false
	}
}
