package lexer

import (
	"testing"

	"loom/source"
	"loom/token"
)

func scan(t *testing.T, text string) []token.Token {
	t.Helper()
	src := source.New("test", text)
	toks, diags := New(src).Scan()
	for _, d := range diags.All() {
		if d.Severity.String() == "Error" {
			t.Fatalf("unexpected lex error: %s", d.Message)
		}
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestScanArithmetic(t *testing.T) {
	toks := scan(t, "2 + 3 * 4")
	got := kinds(toks)
	want := []token.Kind{token.INT, token.PLUS, token.INT, token.STAR, token.INT, token.NEWLINE, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestIndentDedentBalanced(t *testing.T) {
	text := "if true {\n  let x = 1\n  let y = 2\n}\n"
	toks := scan(t, text)
	indents, dedents := 0, 0
	for _, tk := range toks {
		if tk.Kind == token.INDENT {
			indents++
		}
		if tk.Kind == token.DEDENT {
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("unbalanced indent/dedent: %d indents, %d dedents", indents, dedents)
	}
}

func TestNoIndentTokensInsideDelimiters(t *testing.T) {
	text := "let xs = [\n  1,\n  2,\n]\n"
	toks := scan(t, text)
	for _, tk := range toks {
		if tk.Kind == token.INDENT || tk.Kind == token.DEDENT {
			t.Fatalf("unexpected %s token while inside an open delimiter", tk.Kind)
		}
	}
}

func TestHexAndBinaryIntegers(t *testing.T) {
	toks := scan(t, "0xFF 0b1010 1_000")
	if toks[0].Literal.(int64) != 255 {
		t.Fatalf("0xFF: got %v", toks[0].Literal)
	}
	if toks[1].Literal.(int64) != 10 {
		t.Fatalf("0b1010: got %v", toks[1].Literal)
	}
	if toks[2].Literal.(int64) != 1000 {
		t.Fatalf("1_000: got %v", toks[2].Literal)
	}
}

func TestStringInterpolationProducesFragments(t *testing.T) {
	toks := scan(t, `"Hi, {1+1}!"`)
	got := kinds(toks)
	want := []token.Kind{token.STRING_HEAD, token.INT, token.PLUS, token.INT, token.STRING_TAIL, token.NEWLINE, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestKeywordAsIdentifierIsRejected(t *testing.T) {
	src := source.New("test", "async")
	_, diags := New(src).Scan()
	if !diags.HasErrors() {
		t.Fatalf("expected an error for reserved keyword used as identifier")
	}
}
