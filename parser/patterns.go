// patterns.go parses match-arm and destructuring-let patterns: wildcard,
// binding, literal, tuple, and tagged-variant (spec.md §4.2, §3.3).
package parser

import (
	"loom/ast"
	"loom/diag"
	"loom/token"
)

func (p *Parser) pattern() (ast.Pattern, error) {
	start := p.pos
	tok := p.peek()
	switch tok.Kind {
	case token.IDENTIFIER:
		if tok.Lexeme == "_" {
			p.advance()
			return &ast.WildcardPattern{Sp: tok.Span}, nil
		}
		p.advance()
		if p.checkKind(token.LPAREN) {
			return p.variantPattern(tok, start)
		}
		return &ast.BindingPattern{Name: tok, Sp: tok.Span}, nil
	case token.INT:
		p.advance()
		return &ast.LiteralPattern{Value: tok.Literal.(int64), Sp: tok.Span}, nil
	case token.FLOAT:
		p.advance()
		return &ast.LiteralPattern{Value: tok.Literal.(float64), Sp: tok.Span}, nil
	case token.TRUE:
		p.advance()
		return &ast.LiteralPattern{Value: true, Sp: tok.Span}, nil
	case token.FALSE:
		p.advance()
		return &ast.LiteralPattern{Value: false, Sp: tok.Span}, nil
	case token.NULL:
		p.advance()
		return &ast.LiteralPattern{Value: nil, Sp: tok.Span}, nil
	case token.STRING:
		p.advance()
		lit := tok.Literal.(token.StringLiteral)
		return &ast.LiteralPattern{Value: lit.Value, Sp: tok.Span}, nil
	case token.MINUS:
		// Negative numeric literal pattern, e.g. "-1".
		p.advance()
		numTok := p.peek()
		switch numTok.Kind {
		case token.INT:
			p.advance()
			return &ast.LiteralPattern{Value: -numTok.Literal.(int64), Sp: p.spanFrom(start)}, nil
		case token.FLOAT:
			p.advance()
			return &ast.LiteralPattern{Value: -numTok.Literal.(float64), Sp: p.spanFrom(start)}, nil
		}
		return nil, newSyntaxError(numTok.Span, diag.CodeExpectedToken, "expected a number after '-' in pattern")
	case token.LPAREN:
		return p.tuplePattern(start)
	}
	return nil, newSyntaxError(tok.Span, diag.CodeExpectedToken, "expected a pattern (got %s)", tok.Kind)
}

func (p *Parser) variantPattern(tag token.Token, start int) (ast.Pattern, error) {
	p.advance() // '('
	var fields []ast.Pattern
	for !p.checkKind(token.RPAREN) {
		fp, err := p.pattern()
		if err != nil {
			return nil, err
		}
		fields = append(fields, fp)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' to close variant pattern payload"); err != nil {
		return nil, err
	}
	return &ast.VariantPattern{Tag: tag, Fields: fields, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) tuplePattern(start int) (ast.Pattern, error) {
	p.advance() // '('
	var elems []ast.Pattern
	for !p.checkKind(token.RPAREN) {
		e, err := p.pattern()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' to close tuple pattern"); err != nil {
		return nil, err
	}
	return &ast.TuplePattern{Elements: elems, Sp: p.spanFrom(start)}, nil
}
