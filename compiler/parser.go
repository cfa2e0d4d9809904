package compiler

import "errors"

// ---------------------------------------------------------------------------
// Parser: recursive descent with one token of lookahead. Declarations are
// entered into the symbol table and identifier uses are resolved while the
// tree is built.
// ---------------------------------------------------------------------------

// Parser parses exactly one class from a token stream.
type Parser struct {
	lexer     *Lexer
	symbols   *SymbolTable
	className string
}

// NewParser creates a parser. A nil symbol table gets a fresh one.
func NewParser(l *Lexer, symbols *SymbolTable) *Parser {
	if symbols == nil {
		symbols = NewSymbolTable()
	}
	return &Parser{lexer: l, symbols: symbols}
}

// ParseString parses a class from an in-memory source.
func ParseString(src string) (*Class, error) {
	return NewParser(NewLexerString(src), nil).ParseClass()
}

// ParseStringTokens parses a class and also returns its token stream, in
// a single pass over src.
func ParseStringTokens(src string) (*Class, []Token, error) {
	l := NewLexerString(src)
	l.KeepTokens()
	class, err := NewParser(l, nil).ParseClass()
	if err != nil {
		return nil, nil, err
	}
	return class, l.Tokens(), nil
}

// Symbols returns the parser's symbol table.
func (p *Parser) Symbols() *SymbolTable {
	return p.symbols
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) peek() (Token, error) {
	return p.lexer.Peek()
}

// matches reports whether tok has type typ and one of lits (any literal
// when lits is empty).
func matches(tok Token, typ TokenType, lits []string) bool {
	if tok.Type != typ {
		return false
	}
	if len(lits) == 0 {
		return true
	}
	for _, lit := range lits {
		if tok.Literal == lit {
			return true
		}
	}
	return false
}

// peekIs checks the next token without consuming it.
func (p *Parser) peekIs(typ TokenType, lits ...string) (bool, error) {
	tok, err := p.peek()
	if err != nil {
		return false, err
	}
	return matches(tok, typ, lits), nil
}

// expect consumes the next token if it matches, otherwise fails with a
// ParseError naming what was expected and what was found.
func (p *Parser) expect(typ TokenType, lits ...string) (Token, error) {
	tok, err := p.peek()
	if err != nil {
		return Token{}, err
	}
	if !matches(tok, typ, lits) {
		return Token{}, &ParseError{ExpectedKind: typ, ExpectedValues: lits, Actual: tok}
	}
	return p.lexer.NextToken()
}

// terminal is expect wrapped in a tree node.
func (p *Parser) terminal(typ TokenType, lits ...string) (*Terminal, error) {
	tok, err := p.expect(typ, lits...)
	if err != nil {
		return nil, err
	}
	return &Terminal{Token: tok}, nil
}

// declare consumes an identifier and enters it into the scope for kind.
func (p *Parser) declare(kind Kind, typ string) (*IdentifierRef, error) {
	tok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	sym, err := p.symbols.Define(tok.Literal, kind, typ)
	if err != nil {
		var redecl *RedeclarationError
		if errors.As(err, &redecl) {
			redecl.Pos = tok.Pos
		}
		return nil, err
	}
	return &IdentifierRef{
		Name:     sym.Name,
		Kind:     sym.Kind,
		Type:     sym.Type,
		Index:    sym.Index,
		Declared: true,
		At:       tok.Pos,
	}, nil
}

// reference resolves an identifier use. Names absent from both scopes are
// taken to be class names.
func (p *Parser) reference(tok Token) *IdentifierRef {
	if sym, ok := p.symbols.Resolve(tok.Literal); ok {
		return &IdentifierRef{Name: sym.Name, Kind: sym.Kind, Type: sym.Type, Index: sym.Index, At: tok.Pos}
	}
	return &IdentifierRef{Name: tok.Literal, Kind: KindClass, At: tok.Pos}
}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// ParseClass parses 'class' className '{' classVarDec* subroutineDec* '}'
// and requires the input to end afterwards.
func (p *Parser) ParseClass() (*Class, error) {
	p.symbols.ResetClass()

	kw, err := p.terminal(TokenKeyword, "class")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	p.className = nameTok.Literal
	lbrace, err := p.terminal(TokenSymbol, "{")
	if err != nil {
		return nil, err
	}

	children := []Node{
		kw,
		&IdentifierRef{Name: nameTok.Literal, Kind: KindClass, Declared: true, At: nameTok.Pos},
		lbrace,
	}

	for {
		ok, err := p.peekIs(TokenKeyword, "static", "field")
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		dec, err := p.parseClassVarDec()
		if err != nil {
			return nil, err
		}
		children = append(children, dec)
	}

	class := &Class{Name: p.className, Scope: p.symbols.Class}

	for {
		done, err := p.peekIs(TokenSymbol, "}")
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		sub, err := p.parseSubroutineDec()
		if err != nil {
			return nil, err
		}
		children = append(children, sub.Decl)
		class.Subroutines = append(class.Subroutines, sub)
	}

	rbrace, err := p.terminal(TokenSymbol, "}")
	if err != nil {
		return nil, err
	}
	children = append(children, rbrace)

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenEOF {
		return nil, &TrailingTokensError{Token: tok}
	}

	class.Tree = newComposite(ProdClass, kw.Pos(), children)
	return class, nil
}

// parseClassVarDec parses ('static' | 'field') type varName (',' varName)* ';'
func (p *Parser) parseClassVarDec() (*Composite, error) {
	kindTok, err := p.expect(TokenKeyword, "static", "field")
	if err != nil {
		return nil, err
	}
	kind := KindStatic
	if kindTok.Literal == "field" {
		kind = KindField
	}
	typeNode, typ, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	children := []Node{&Terminal{Token: kindTok}, typeNode}
	names, err := p.parseNameList(kind, typ)
	if err != nil {
		return nil, err
	}
	children = append(children, names...)
	semi, err := p.terminal(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	children = append(children, semi)
	return newComposite(ProdClassVarDec, kindTok.Pos, children), nil
}

// parseNameList parses varName (',' varName)* declaring each name.
func (p *Parser) parseNameList(kind Kind, typ string) ([]Node, error) {
	var nodes []Node
	for {
		ref, err := p.declare(kind, typ)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, ref)

		more, err := p.peekIs(TokenSymbol, ",")
		if err != nil {
			return nil, err
		}
		if !more {
			return nodes, nil
		}
		comma, err := p.terminal(TokenSymbol, ",")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, comma)
	}
}

// parseType parses 'int' | 'char' | 'boolean' | className, plus 'void'
// when allowVoid is set. It returns the node and the type name.
func (p *Parser) parseType(allowVoid bool) (Node, string, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, "", err
	}
	switch {
	case tok.Type == TokenKeyword && (tok.Literal == "int" || tok.Literal == "char" || tok.Literal == "boolean"),
		allowVoid && tok.Is(TokenKeyword, "void"):
		if _, err := p.lexer.NextToken(); err != nil {
			return nil, "", err
		}
		return &Terminal{Token: tok}, tok.Literal, nil
	case tok.Type == TokenIdentifier:
		if _, err := p.lexer.NextToken(); err != nil {
			return nil, "", err
		}
		return &IdentifierRef{Name: tok.Literal, Kind: KindClass, At: tok.Pos}, tok.Literal, nil
	}

	want := []string{"int", "char", "boolean"}
	if allowVoid {
		want = append(want, "void")
	}
	return nil, "", &ParseError{ExpectedKind: TokenKeyword, ExpectedValues: want, Actual: tok}
}

// parseSubroutineDec parses
// ('constructor' | 'function' | 'method') ('void' | type) subroutineName
// '(' parameterList ')' subroutineBody
func (p *Parser) parseSubroutineDec() (*Subroutine, error) {
	kwTok, err := p.expect(TokenKeyword, "constructor", "function", "method")
	if err != nil {
		return nil, err
	}

	kind := SubFunction
	receiver := ""
	switch kwTok.Literal {
	case "constructor":
		kind = SubConstructor
	case "method":
		kind = SubMethod
		receiver = p.className
	}
	scope := p.symbols.ResetSubroutine(receiver)

	retNode, retType, err := p.parseType(true)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	lparen, err := p.terminal(TokenSymbol, "(")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	rparen, err := p.terminal(TokenSymbol, ")")
	if err != nil {
		return nil, err
	}
	body, err := p.parseSubroutineBody()
	if err != nil {
		return nil, err
	}

	decl := newComposite(ProdSubroutineDec, kwTok.Pos, []Node{
		&Terminal{Token: kwTok},
		retNode,
		&IdentifierRef{Name: nameTok.Literal, Kind: KindSubroutine, Type: retType, Declared: true, At: nameTok.Pos},
		lparen,
		params,
		rparen,
		body,
	})

	return &Subroutine{
		Name:       nameTok.Literal,
		Kind:       kind,
		ReturnType: retType,
		Decl:       decl,
		Body:       body,
		Scope:      scope,
	}, nil
}

// parseParameterList parses ((type varName) (',' type varName)*)?
func (p *Parser) parseParameterList() (*Composite, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}

	var children []Node
	if !start.Is(TokenSymbol, ")") {
		for {
			typeNode, typ, err := p.parseType(false)
			if err != nil {
				return nil, err
			}
			ref, err := p.declare(KindArgument, typ)
			if err != nil {
				return nil, err
			}
			children = append(children, typeNode, ref)

			more, err := p.peekIs(TokenSymbol, ",")
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			comma, err := p.terminal(TokenSymbol, ",")
			if err != nil {
				return nil, err
			}
			children = append(children, comma)
		}
	}
	return newComposite(ProdParameterList, start.Pos, children), nil
}

// parseSubroutineBody parses '{' varDec* statements '}'
func (p *Parser) parseSubroutineBody() (*Composite, error) {
	lbrace, err := p.terminal(TokenSymbol, "{")
	if err != nil {
		return nil, err
	}
	children := []Node{lbrace}

	for {
		ok, err := p.peekIs(TokenKeyword, "var")
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		dec, err := p.parseVarDec()
		if err != nil {
			return nil, err
		}
		children = append(children, dec)
	}

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	rbrace, err := p.terminal(TokenSymbol, "}")
	if err != nil {
		return nil, err
	}
	children = append(children, stmts, rbrace)
	return newComposite(ProdSubroutineBody, lbrace.Pos(), children), nil
}

// parseVarDec parses 'var' type varName (',' varName)* ';'
func (p *Parser) parseVarDec() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "var")
	if err != nil {
		return nil, err
	}
	typeNode, typ, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	names, err := p.parseNameList(KindLocal, typ)
	if err != nil {
		return nil, err
	}
	semi, err := p.terminal(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	children := append([]Node{kw, typeNode}, names...)
	children = append(children, semi)
	return newComposite(ProdVarDec, kw.Pos(), children), nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatements parses statement* up to the closing brace.
func (p *Parser) parseStatements() (*Composite, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	var children []Node
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Is(TokenSymbol, "}") {
			break
		}
		stmt, err := p.parseStatement(tok)
		if err != nil {
			return nil, err
		}
		children = append(children, stmt)
	}
	return newComposite(ProdStatements, start.Pos, children), nil
}

var statementKeywords = []string{"let", "if", "while", "do", "return"}

func (p *Parser) parseStatement(tok Token) (*Composite, error) {
	if tok.Type == TokenKeyword {
		switch tok.Literal {
		case "let":
			return p.parseLet()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDo()
		case "return":
			return p.parseReturn()
		}
	}
	return nil, &ParseError{ExpectedKind: TokenKeyword, ExpectedValues: statementKeywords, Actual: tok}
}

// parseLet parses 'let' varName ('[' expression ']')? '=' expression ';'
func (p *Parser) parseLet() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "let")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	children := []Node{kw, p.reference(nameTok)}

	indexed, err := p.peekIs(TokenSymbol, "[")
	if err != nil {
		return nil, err
	}
	if indexed {
		nodes, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		children = append(children, nodes...)
	}

	eq, err := p.terminal(TokenSymbol, "=")
	if err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.terminal(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	children = append(children, eq, value, semi)
	return newComposite(ProdLetStatement, kw.Pos(), children), nil
}

// parseIndex parses '[' expression ']'
func (p *Parser) parseIndex() ([]Node, error) {
	lbracket, err := p.terminal(TokenSymbol, "[")
	if err != nil {
		return nil, err
	}
	index, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	rbracket, err := p.terminal(TokenSymbol, "]")
	if err != nil {
		return nil, err
	}
	return []Node{lbracket, index, rbracket}, nil
}

// parseBlock parses '{' statements '}'
func (p *Parser) parseBlock() ([]Node, error) {
	lbrace, err := p.terminal(TokenSymbol, "{")
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	rbrace, err := p.terminal(TokenSymbol, "}")
	if err != nil {
		return nil, err
	}
	return []Node{lbrace, stmts, rbrace}, nil
}

// parseCondition parses '(' expression ')'
func (p *Parser) parseCondition() ([]Node, error) {
	lparen, err := p.terminal(TokenSymbol, "(")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	rparen, err := p.terminal(TokenSymbol, ")")
	if err != nil {
		return nil, err
	}
	return []Node{lparen, cond, rparen}, nil
}

// parseIf parses 'if' '(' expression ')' '{' statements '}'
// ('else' '{' statements '}')?
func (p *Parser) parseIf() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "if")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	children := append([]Node{kw}, cond...)
	children = append(children, then...)

	hasElse, err := p.peekIs(TokenKeyword, "else")
	if err != nil {
		return nil, err
	}
	if hasElse {
		elseKw, err := p.terminal(TokenKeyword, "else")
		if err != nil {
			return nil, err
		}
		otherwise, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		children = append(children, elseKw)
		children = append(children, otherwise...)
	}
	return newComposite(ProdIfStatement, kw.Pos(), children), nil
}

// parseWhile parses 'while' '(' expression ')' '{' statements '}'
func (p *Parser) parseWhile() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "while")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	children := append([]Node{kw}, cond...)
	children = append(children, body...)
	return newComposite(ProdWhileStatement, kw.Pos(), children), nil
}

// parseDo parses 'do' subroutineCall ';'
func (p *Parser) parseDo() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "do")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	call, err := p.parseCall(nameTok)
	if err != nil {
		return nil, err
	}
	semi, err := p.terminal(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	children := append([]Node{kw}, call...)
	children = append(children, semi)
	return newComposite(ProdDoStatement, kw.Pos(), children), nil
}

// parseReturn parses 'return' expression? ';'
func (p *Parser) parseReturn() (*Composite, error) {
	kw, err := p.terminal(TokenKeyword, "return")
	if err != nil {
		return nil, err
	}
	children := []Node{kw}

	empty, err := p.peekIs(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	if !empty {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		children = append(children, value)
	}
	semi, err := p.terminal(TokenSymbol, ";")
	if err != nil {
		return nil, err
	}
	children = append(children, semi)
	return newComposite(ProdReturnStatement, kw.Pos(), children), nil
}

// ---------------------------------------------------------------------------
// Expressions (no precedence: term (op term)*)
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() (*Composite, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	children := []Node{first}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenSymbol || !isBinaryOp(tok.Literal) {
			break
		}
		if _, err := p.lexer.NextToken(); err != nil {
			return nil, err
		}
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, &Terminal{Token: tok}, next)
	}
	return newComposite(ProdExpression, first.Pos(), children), nil
}

// parseTerm parses integerConstant | stringConstant | keywordConstant |
// varName | varName '[' expression ']' | subroutineCall |
// '(' expression ')' | unaryOp term
func (p *Parser) parseTerm() (*Composite, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	var children []Node
	switch tok.Type {
	case TokenIntegerConstant, TokenStringConstant:
		if _, err := p.lexer.NextToken(); err != nil {
			return nil, err
		}
		children = []Node{&Terminal{Token: tok}}

	case TokenKeyword:
		kw, err := p.terminal(TokenKeyword, "true", "false", "null", "this")
		if err != nil {
			return nil, err
		}
		children = []Node{kw}

	case TokenIdentifier:
		if _, err := p.lexer.NextToken(); err != nil {
			return nil, err
		}
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch {
		case next.Is(TokenSymbol, "["):
			index, err := p.parseIndex()
			if err != nil {
				return nil, err
			}
			children = append([]Node{p.reference(tok)}, index...)
		case next.Is(TokenSymbol, "("), next.Is(TokenSymbol, "."):
			call, err := p.parseCall(tok)
			if err != nil {
				return nil, err
			}
			children = call
		default:
			children = []Node{p.reference(tok)}
		}

	case TokenSymbol:
		switch {
		case tok.Literal == "(":
			group, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			children = group
		case isUnaryOp(tok.Literal):
			if _, err := p.lexer.NextToken(); err != nil {
				return nil, err
			}
			operand, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			children = []Node{&Terminal{Token: tok}, operand}
		default:
			return nil, &ParseError{ExpectedKind: TokenSymbol, ExpectedValues: []string{"(", "-", "~"}, Actual: tok}
		}

	default:
		return nil, &ParseError{ExpectedKind: TokenIdentifier, Actual: tok}
	}

	return newComposite(ProdTerm, tok.Pos, children), nil
}

// parseCall parses the remainder of a subroutine call after its first
// identifier:
//
//	subroutineName '(' expressionList ')'
//	(className | varName) '.' subroutineName '(' expressionList ')'
func (p *Parser) parseCall(name Token) ([]Node, error) {
	next, err := p.peek()
	if err != nil {
		return nil, err
	}

	var nodes []Node
	switch {
	case next.Is(TokenSymbol, "("):
		nodes = []Node{&IdentifierRef{Name: name.Literal, Kind: KindSubroutine, At: name.Pos}}

	case next.Is(TokenSymbol, "."):
		dot, err := p.terminal(TokenSymbol, ".")
		if err != nil {
			return nil, err
		}
		subTok, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		nodes = []Node{
			p.reference(name),
			dot,
			&IdentifierRef{Name: subTok.Literal, Kind: KindSubroutine, At: subTok.Pos},
		}

	default:
		return nil, &ParseError{ExpectedKind: TokenSymbol, ExpectedValues: []string{"(", "."}, Actual: next}
	}

	lparen, err := p.terminal(TokenSymbol, "(")
	if err != nil {
		return nil, err
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	rparen, err := p.terminal(TokenSymbol, ")")
	if err != nil {
		return nil, err
	}
	return append(nodes, lparen, args, rparen), nil
}

// parseExpressionList parses (expression (',' expression)*)?
func (p *Parser) parseExpressionList() (*Composite, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}

	var children []Node
	if !start.Is(TokenSymbol, ")") {
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			children = append(children, expr)

			more, err := p.peekIs(TokenSymbol, ",")
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			comma, err := p.terminal(TokenSymbol, ",")
			if err != nil {
				return nil, err
			}
			children = append(children, comma)
		}
	}
	return newComposite(ProdExpressionList, start.Pos, children), nil
}
