package main

import (
	"bufio"
	"io"
)

// bufioReader adapts a bufio.Scanner to replReader's readLine shape for
// non-interactive stdin (piped scripts, test harnesses), since
// chzyer/readline needs a real terminal to manage history and line
// editing against.
type bufioReader struct {
	scanner *bufio.Scanner
}

func newBufioReader(r io.Reader) *bufioReader {
	return &bufioReader{scanner: bufio.NewScanner(r)}
}

func (b *bufioReader) readLine(prompt string) (string, error) {
	if !b.scanner.Scan() {
		if err := b.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return b.scanner.Text(), nil
}
