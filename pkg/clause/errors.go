package clause

import "fmt"

// SyntaxError reports clause text that does not match the grammar, or a
// construct rejected during AST building (unknown geom, unknown aesthetic,
// malformed value). It carries the offending position and the surrounding
// grammar context so the caller can point at the input.
type SyntaxError struct {
	Line    int
	Column  int
	Context string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return "syntax error: " + e.Message
}

func syntaxErrorf(line, column int, context, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:    line,
		Column:  column,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	}
}
