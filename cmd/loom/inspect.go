package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"loom/lexer"
	"loom/parser"
	"loom/source"
)

// tokensCmd dumps the lexer's token stream, the lowest rung of cmd_emit_
// bytecode.go's "inspect a pipeline stage" family.
type tokensCmd struct{}

func (*tokensCmd) Name() string             { return "tokens" }
func (*tokensCmd) Synopsis() string         { return "Print the token stream for a source file" }
func (*tokensCmd) Usage() string            { return "tokens <file>\n" }
func (*tokensCmd) SetFlags(f *flag.FlagSet) {}

func (*tokensCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	lex := lexer.New(source.New(path, text))
	toks, diags := lex.Scan()
	for _, tok := range toks {
		fmt.Printf("%-12s %q\n", tok.Kind, tok.Lexeme)
	}
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if diags.HasErrors() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// astCmd dumps the parsed module as JSON, following parser/printer.go's
// PrintASTJSON (the student-adapted, segmentio/encoding-backed version of
// the teacher's parser.Print).
type astCmd struct{}

func (*astCmd) Name() string             { return "ast" }
func (*astCmd) Synopsis() string         { return "Print the parsed AST for a source file as JSON" }
func (*astCmd) Usage() string            { return "ast <file>\n" }
func (*astCmd) SetFlags(f *flag.FlagSet) {}

func (*astCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	toks, lexDiags := lexer.New(source.New(path, text)).Scan()
	mod, parseDiags := parser.New(path, toks).Parse()
	for _, d := range lexDiags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	for _, d := range parseDiags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	out, err := parser.PrintASTJSON(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(out)
	if lexDiags.HasErrors() || parseDiags.HasErrors() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// checkCmd runs lex/parse/analyze and reports every diagnostic without
// executing anything, the "does this compile" subcommand the teacher's
// family never had (informatter-nilan has no semantic analysis stage at
// all, only cmd_run's "lex, parse, interpret").
type checkCmd struct{}

func (*checkCmd) Name() string             { return "check" }
func (*checkCmd) Synopsis() string         { return "Lex, parse, and semantically analyze a file" }
func (*checkCmd) Usage() string            { return "check <file>\n" }
func (*checkCmd) SetFlags(f *flag.FlagSet) {}

func (*checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	rt := newRuntime(false)
	_, diags := rt.Compile(path, text)
	for _, d := range diags.All() {
		fmt.Println(d.String())
	}
	if diags.HasErrors() {
		return subcommands.ExitFailure
	}
	fmt.Println("ok")
	return subcommands.ExitSuccess
}

// emitCmd compiles a file to bytecode and disassembles it, following
// cmd_emit_bytecode.go's shape (minus its hexadecimal-dump-to-.nic-file
// option, which nothing downstream of this repo ever reads back in).
type emitCmd struct{}

func (*emitCmd) Name() string             { return "emit" }
func (*emitCmd) Synopsis() string         { return "Compile a file and print its disassembled bytecode" }
func (*emitCmd) Usage() string            { return "emit <file>\n" }
func (*emitCmd) SetFlags(f *flag.FlagSet) {}

func (*emitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	rt := newRuntime(false)
	mod, diags := rt.Compile(path, text)
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if diags.HasErrors() {
		return subcommands.ExitFailure
	}
	_, compileDiags, listing := rt.Disassemble(mod)
	for _, d := range compileDiags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if compileDiags.HasErrors() {
		return subcommands.ExitFailure
	}
	fmt.Print(listing)
	return subcommands.ExitSuccess
}
