// expressions.go implements the expression grammar as a precedence
// ladder (spec.md §4.2): assignment (right-assoc) > or > and > equality >
// relational > range > additive > multiplicative > unary > postfix
// (call/index/field) > primary.
package parser

import (
	"loom/ast"
	"loom/diag"
	"loom/token"
)

func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expression, error) {
	start := p.pos
	left, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.checkKind(token.ASSIGN) {
		p.advance()
		value, err := p.assignment() // right-associative
		if err != nil {
			return nil, err
		}
		switch left.(type) {
		case *ast.Identifier, *ast.FieldAccess, *ast.Index:
			return &ast.Assign{Target: left, Value: value, Sp: p.spanFrom(start)}, nil
		}
		return nil, newSyntaxError(left.Span(), diag.CodeExpectedToken, "invalid assignment target")
	}
	return left, nil
}

func (p *Parser) or() (ast.Expression, error) {
	start := p.pos
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.OR) || p.checkKind(token.PIPE_PIPE) {
		op := p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) and() (ast.Expression, error) {
	start := p.pos
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.AND) || p.checkKind(token.AMP_AMP) {
		op := p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) equality() (ast.Expression, error) {
	start := p.pos
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.EQ_EQ) || p.checkKind(token.BANG_EQ) || p.checkKind(token.IS) || p.checkKind(token.ISNT) {
		op := p.advance()
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) relational() (ast.Expression, error) {
	start := p.pos
	left, err := p.rangeExpr()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.LESS) || p.checkKind(token.LESS_EQ) || p.checkKind(token.GREATER) || p.checkKind(token.GREATER_EQ) {
		op := p.advance()
		right, err := p.rangeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) rangeExpr() (ast.Expression, error) {
	start := p.pos
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	if p.checkKind(token.DOTDOT) || p.checkKind(token.DOTDOTEQ) {
		inclusive := p.peek().Kind == token.DOTDOTEQ
		p.advance()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		return &ast.RangeExpr{Start: left, End: right, Inclusive: inclusive, Sp: p.spanFrom(start)}, nil
	}
	return left, nil
}

func (p *Parser) additive() (ast.Expression, error) {
	start := p.pos
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.PLUS) || p.checkKind(token.MINUS) {
		op := p.advance()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) multiplicative() (ast.Expression, error) {
	start := p.pos
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.checkKind(token.STAR) || p.checkKind(token.SLASH) || p.checkKind(token.PERCENT) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Left: left, Operator: op, Right: right, Sp: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	start := p.pos
	if p.checkKind(token.BANG) || p.checkKind(token.MINUS) || p.checkKind(token.NOT) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Operator: op, Right: right, Sp: p.spanFrom(start)}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (ast.Expression, error) {
	start := p.pos
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.checkKind(token.DOT):
			p.advance()
			field, err := p.consume(token.IDENTIFIER, "expected field name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &ast.FieldAccess{Target: expr, Field: field, Sp: p.spanFrom(start)}
		case p.checkKind(token.LBRACKET):
			p.advance()
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RBRACKET, "expected ']' to close index expression"); err != nil {
				return nil, err
			}
			expr = &ast.Index{Target: expr, Idx: idx, Sp: p.spanFrom(start)}
		case p.checkKind(token.LPAREN):
			p.advance()
			var args []ast.Expression
			for !p.checkKind(token.RPAREN) {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(token.COMMA) {
					break
				}
			}
			if _, err := p.consume(token.RPAREN, "expected ')' to close call arguments"); err != nil {
				return nil, err
			}
			expr = &ast.Call{Callee: expr, Args: args, Sp: p.spanFrom(start)}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) primary() (ast.Expression, error) {
	start := p.pos
	tok := p.peek()
	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.Literal{Value: tok.Literal.(int64), Sp: tok.Span}, nil
	case token.FLOAT:
		p.advance()
		return &ast.Literal{Value: tok.Literal.(float64), Sp: tok.Span}, nil
	case token.TRUE:
		p.advance()
		return &ast.Literal{Value: true, Sp: tok.Span}, nil
	case token.FALSE:
		p.advance()
		return &ast.Literal{Value: false, Sp: tok.Span}, nil
	case token.NULL:
		p.advance()
		return &ast.Literal{Value: nil, Sp: tok.Span}, nil
	case token.STRING:
		p.advance()
		lit := tok.Literal.(token.StringLiteral)
		return &ast.StringInterp{Parts: []string{lit.Value}, Raw: lit.Raw, Multi: lit.Multi, Sp: tok.Span}, nil
	case token.STRING_HEAD:
		return p.stringInterp()
	case token.IDENTIFIER:
		p.advance()
		ident := &ast.Identifier{Name: tok, Sp: tok.Span}
		if p.checkKind(token.LBRACE) && !p.suppressStructLiteral {
			return p.structLiteral(ident, start)
		}
		return ident, nil
	case token.LPAREN:
		return p.parenOrTuple(start)
	case token.LBRACKET:
		return p.listLiteral(start)
	case token.LBRACE:
		return p.mapLiteral(start)
	case token.FUNC:
		return p.funcLiteral(start)
	case token.IF:
		return p.ifExpr(start)
	case token.MATCH:
		return p.matchExpr(start)
	}
	return nil, newSyntaxError(tok.Span, diag.CodeExpectedToken, "expected an expression (got %s)", tok.Kind)
}

func (p *Parser) parenOrTuple(start int) (ast.Expression, error) {
	p.advance() // '('
	if p.match(token.RPAREN) {
		return &ast.TupleLiteral{Sp: p.spanFrom(start)}, nil
	}
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.checkKind(token.COMMA) {
		if _, err := p.consume(token.RPAREN, "expected ')' to close grouping"); err != nil {
			return nil, err
		}
		return &ast.Grouping{Expression: first, Sp: p.spanFrom(start)}, nil
	}
	elems := []ast.Expression{first}
	for p.match(token.COMMA) {
		if p.checkKind(token.RPAREN) {
			break
		}
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.consume(token.RPAREN, "expected ')' to close tuple"); err != nil {
		return nil, err
	}
	return &ast.TupleLiteral{Elements: elems, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) listLiteral(start int) (ast.Expression, error) {
	p.advance() // '['
	p.skipNewlines()
	var elems []ast.Expression
	for !p.checkKind(token.RBRACKET) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	if _, err := p.consume(token.RBRACKET, "expected ']' to close list literal"); err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Elements: elems, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) mapLiteral(start int) (ast.Expression, error) {
	p.advance() // '{'
	p.skipNewlines()
	var entries []ast.MapEntry
	for !p.checkKind(token.RBRACE) {
		key, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' between map key and value"); err != nil {
			return nil, err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	if _, err := p.consume(token.RBRACE, "expected '}' to close map literal"); err != nil {
		return nil, err
	}
	return &ast.MapLiteral{Entries: entries, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) structLiteral(ident *ast.Identifier, start int) (ast.Expression, error) {
	p.advance() // '{'
	p.skipNewlines()
	var fields []ast.StructFieldInit
	var base ast.Expression
	for !p.checkKind(token.RBRACE) {
		if p.checkKind(token.DOTDOT) {
			p.advance()
			b, err := p.expression()
			if err != nil {
				return nil, err
			}
			base = b
			p.skipNewlines()
			p.match(token.COMMA)
			continue
		}
		name, err := p.consume(token.IDENTIFIER, "expected field name in struct literal")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' after struct field name"); err != nil {
			return nil, err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructFieldInit{Name: name, Value: val})
		p.skipNewlines()
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	if _, err := p.consume(token.RBRACE, "expected '}' to close struct literal"); err != nil {
		return nil, err
	}
	return &ast.StructLiteral{TypeName: ident.Name, Fields: fields, Base: base, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) funcLiteral(start int) (ast.Expression, error) {
	p.advance() // 'func'
	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	body, err := p.blockRequired()
	if err != nil {
		return nil, err
	}
	return &ast.FuncLiteral{Params: params, Body: body, Sp: p.spanFrom(start)}, nil
}

// withoutStructLiteral parses a condition expression with struct-literal
// brace disambiguation suppressed, matching the common approach (also
// taken by Go itself) of forbidding a bare "Ident { ... }" in condition
// position so the opening brace is unambiguously the block/arm delimiter.
func (p *Parser) withoutStructLiteral() (ast.Expression, error) {
	prev := p.suppressStructLiteral
	p.suppressStructLiteral = true
	defer func() { p.suppressStructLiteral = prev }()
	return p.expression()
}

func (p *Parser) ifExpr(start int) (ast.Expression, error) {
	p.advance() // 'if'
	cond, err := p.withoutStructLiteral()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "expected '{' to start if-expression then-branch"); err != nil {
		return nil, err
	}
	then, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.consume(token.RBRACE, "expected '}' to close if-expression then-branch"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ELSE, "if-expression requires an 'else' branch"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "expected '{' to start if-expression else-branch"); err != nil {
		return nil, err
	}
	elseExpr, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.consume(token.RBRACE, "expected '}' to close if-expression else-branch"); err != nil {
		return nil, err
	}
	return &ast.IfExpr{Condition: cond, Then: then, Else: elseExpr, Sp: p.spanFrom(start)}, nil
}

func (p *Parser) matchExpr(start int) (ast.Expression, error) {
	p.advance() // 'match'
	scrutinee, err := p.withoutStructLiteral()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.consume(token.LBRACE, "expected '{' to start match body"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	var arms []ast.MatchArm
	sawWildcard := false
	for !p.checkKind(token.RBRACE) && !p.isAtEnd() {
		pat, err := p.pattern()
		if err != nil {
			return nil, err
		}
		if _, ok := pat.(*ast.WildcardPattern); ok {
			sawWildcard = true
		}
		var guard ast.Expression
		if p.checkKind(token.IF) {
			p.advance()
			guard, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(token.FATARROW, "expected '=>' before match-expression arm body"); err != nil {
			return nil, err
		}
		body, err := p.expression()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		p.skipNewlines()
		p.match(token.COMMA)
		p.skipNewlines()
	}
	if !sawWildcard {
		return nil, newSyntaxError(p.previous().Span, diag.CodeNonExhaustiveMatch, "match expression must end with a terminal wildcard arm '_'")
	}
	if _, err := p.consume(token.RBRACE, "expected '}' to close match expression"); err != nil {
		return nil, err
	}
	return &ast.MatchExpr{Scrutinee: scrutinee, Arms: arms, Sp: p.spanFrom(start)}, nil
}

// stringInterp reassembles a STRING_HEAD ... STRING_MID* ... STRING_TAIL
// token run into a single StringInterp node, parsing each interpolation
// slot's token span as a nested expression (consulting the interpolation
// cache first, per spec.md §4.2).
func (p *Parser) stringInterp() (ast.Expression, error) {
	start := p.pos
	head := p.advance() // STRING_HEAD
	headLit := head.Literal.(token.StringLiteral)

	parts := []string{headLit.Value}
	var exprs []ast.Expression

	for {
		slotStart := p.pos
		var expr ast.Expression
		if cf, ok := p.lookupFragment(); ok {
			expr = cf.expr
			p.pos += cf.consumed
		} else {
			toks := p.slotTokens()
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			expr = e
			p.storeFragment(toks, expr, p.pos-slotStart)
		}
		exprs = append(exprs, expr)

		if !p.checkKind(token.STRING_MID) && !p.checkKind(token.STRING_TAIL) {
			return nil, newSyntaxError(p.peek().Span, diag.CodeExpectedToken, "unterminated string interpolation slot")
		}
		frag := p.advance()
		fragLit := frag.Literal.(token.StringLiteral)
		parts = append(parts, fragLit.Value)
		if frag.Kind == token.STRING_TAIL {
			break
		}
	}

	return &ast.StringInterp{Parts: parts, Exprs: exprs, Raw: headLit.Raw, Multi: headLit.Multi, Sp: p.spanFrom(start)}, nil
}
