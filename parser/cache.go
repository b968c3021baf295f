package parser

import (
	"strings"

	"loom/ast"
	"loom/token"
)

// cachedFragment is a previously parsed interpolation-slot expression,
// keyed by the literal token text of the slot (spec.md §4.2: identical
// interpolation fragments appearing more than once in a module — e.g. from
// a loop body re-lexed verbatim by a macro-like construct, or simply
// repeated literals — should not be re-parsed from scratch).
type cachedFragment struct {
	expr     ast.Expression
	consumed int // number of tokens spanned by the cached expression
}

// fragmentKey builds a cache key from the raw token sequence of an
// interpolation slot, stopping at the matching STRING_MID/STRING_TAIL at
// nesting depth 0 (nested STRING_HEAD markers, from a string literal
// inside the slot, increase depth).
func fragmentKey(toks []token.Token) string {
	var b strings.Builder
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case token.STRING_HEAD:
			depth++
		case token.STRING_MID, token.STRING_TAIL:
			if depth == 0 {
				return b.String()
			}
			depth--
		}
		b.WriteString(string(t.Kind))
		b.WriteByte(0)
		b.WriteString(t.Lexeme)
		b.WriteByte(0)
	}
	return b.String()
}

// slotTokens collects the tokens making up one interpolation slot starting
// at p.pos, up to (not including) the closing STRING_MID/STRING_TAIL token
// at nesting depth 0.
func (p *Parser) slotTokens() []token.Token {
	depth := 0
	var out []token.Token
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		switch t.Kind {
		case token.STRING_HEAD:
			depth++
		case token.STRING_MID, token.STRING_TAIL:
			if depth == 0 {
				return out
			}
			depth--
		}
		out = append(out, t)
	}
	return out
}

// lookupFragment returns a cached parse of the interpolation slot starting
// at the current position, if one exists.
func (p *Parser) lookupFragment() (cachedFragment, bool) {
	key := fragmentKey(p.slotTokens())
	cf, ok := p.interpCache[key]
	return cf, ok
}

// storeFragment records a freshly parsed interpolation slot in the cache,
// keyed by its original token text.
func (p *Parser) storeFragment(toks []token.Token, expr ast.Expression, consumed int) {
	key := fragmentKey(toks)
	p.interpCache[key] = cachedFragment{expr: expr, consumed: consumed}
}
