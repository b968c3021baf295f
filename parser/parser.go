// Package parser implements a recursive-descent parser over the token
// stream, with one function per binary-operator precedence level, producing a Module AST plus parse
// diagnostics (spec.md §4.2). It always produces a Module, even on input
// with syntax errors, and recovers at well-known synchronization points.
package parser

import (
	"loom/ast"
	"loom/diag"
	"loom/source"
	"loom/token"
)

// Parser holds the token stream and current read position. pos indexes the
// current token, the next one not yet consumed (peek returns tokens[pos]).
type Parser struct {
	path   string
	tokens []token.Token
	pos    int
	diags  diag.Bag

	interpCache map[string]cachedFragment

	// suppressStructLiteral disables the "Ident { ... }" struct-literal
	// reading while parsing a condition expression (if/while/for/match),
	// so the opening brace is unambiguously the block/arm delimiter.
	suppressStructLiteral bool
}

// New creates a Parser over a tokenized source file.
func New(path string, tokens []token.Token) *Parser {
	return &Parser{
		path:        path,
		tokens:      tokens,
		interpCache: make(map[string]cachedFragment),
	}
}

// Parse parses the entire token stream into a Module AST. Parsing always
// produces a Module (spec.md §4.2 contract); diagnostics are accumulated,
// not fatal, and the parser resynchronizes after each failed top-level
// item.
func (p *Parser) Parse() (*ast.Module, *diag.Bag) {
	p.skipNewlines()
	start := 0
	var items []ast.Stmt
	for !p.isAtEnd() {
		if p.checkKind(token.NEWLINE) {
			p.advance()
			continue
		}
		item, err := p.topLevelItem()
		if err != nil {
			p.reportAndSync(err)
			continue
		}
		items = append(items, item)
		p.skipNewlines()
	}
	mod := &ast.Module{
		Path:  p.path,
		Items: items,
		Sp:    p.spanFrom(start),
	}
	return mod, &p.diags
}

func (p *Parser) reportAndSync(err error) {
	if se, ok := err.(SyntaxError); ok {
		p.diags.Add(se.Diagnostic())
	} else {
		p.diags.Errorf(diag.CodeExpectedToken, p.peek().Span, "%s", err.Error())
	}
	p.synchronize()
}

// synchronize advances the parser to the next synchronization point:
// end-of-line, a top-level keyword start, or a closing delimiter
// (spec.md §4.2).
func (p *Parser) synchronize() {
	if !p.isAtEnd() {
		p.advance()
	}
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case token.NEWLINE, token.SEMI,
			token.FUNC, token.LET, token.VAR, token.IF, token.WHILE, token.FOR,
			token.MATCH, token.WHEN, token.USE, token.RBRACE:
			return
		}
		p.advance()
	}
}

// --- token-stream navigation -------------------------------------------

func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) checkKind(k token.Kind) bool {
	if p.isAtEnd() && k != token.EOF {
		return false
	}
	return p.peek().Kind == k
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.checkKind(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(k token.Kind, msg string) (token.Token, error) {
	if p.checkKind(k) {
		return p.advance(), nil
	}
	return token.Token{}, newSyntaxError(p.peek().Span, diag.CodeExpectedToken, "%s (got %s)", msg, p.peek().Kind)
}

func (p *Parser) skipNewlines() {
	for p.checkKind(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) spanFrom(startTokPos int) source.Span {
	if len(p.tokens) == 0 {
		return source.Span{}
	}
	start := p.tokens[startTokPos].Span
	end := p.previous().Span
	return start.Union(end)
}
