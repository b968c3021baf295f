package token

import (
	"testing"

	"loom/source"
)

func TestKeywordsResolveToDistinctKinds(t *testing.T) {
	seen := map[Kind]string{}
	for text, kind := range Keywords {
		if other, ok := seen[kind]; ok {
			t.Fatalf("keyword kind %s used by both %q and %q", kind, other, text)
		}
		seen[kind] = text
	}
}

func TestReservedIdentifiersHaveNoGrammarRule(t *testing.T) {
	for kind := range ReservedIdentifiers {
		found := false
		for _, k := range Keywords {
			if k == kind {
				found = true
			}
		}
		if !found {
			t.Fatalf("reserved kind %s missing from Keywords table", kind)
		}
	}
}

func TestTokenString(t *testing.T) {
	tok := New(PLUS, "+", source.Span{}, 1, 0)
	if got := tok.String(); got != `Token{Kind: +, Lexeme: "+"}` {
		t.Fatalf("unexpected token string: %s", got)
	}
}
