// Package splitter locates visualization clauses inside raw query text and
// divides each from the relational statement it trails.
//
// The clause keyword is recognized in both spellings (VISUALISE/VISUALIZE),
// case-insensitively, and never inside string literals, quoted identifiers
// or comments. A clause fragment runs from the keyword to the statement's
// top-level semicolon (inclusive), so a following statement never bleeds
// into it. Splitting is a pure text transform: concatenating every
// fragment's prefix and text plus the trailing remainder reproduces the
// input byte for byte.
package splitter

import "strings"

// Fragment is one visualization clause: the relational statement text
// preceding it, the clause text (keyword through statement terminator) and
// the clause's byte offset in the original input.
type Fragment struct {
	Prefix string
	Text   string
	Offset int
}

// Split divides input into clause fragments plus the trailing remainder
// (text after the last clause's statement, or the whole input when no
// clause keyword occurs — that is not an error).
func Split(input string) (string, []Fragment) {
	starts, semis := scan(input)
	if len(starts) == 0 {
		return input, nil
	}

	frags := make([]Fragment, 0, len(starts))
	cursor := 0
	semi := 0
	for i, start := range starts {
		end := len(input)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		// A top-level semicolon terminates the clause's statement.
		for semi < len(semis) && semis[semi] < start {
			semi++
		}
		if semi < len(semis) && semis[semi] < end {
			end = semis[semi] + 1
		}
		frags = append(frags, Fragment{
			Prefix: input[cursor:start],
			Text:   input[start:end],
			Offset: start,
		})
		cursor = end
	}
	return input[cursor:], frags
}

// HasClause reports whether input contains at least one visualization
// clause outside of literals and comments.
func HasClause(input string) bool {
	starts, _ := scan(input)
	return len(starts) > 0
}

// scan walks input once, recording keyword offsets and top-level semicolon
// offsets. Single-quoted strings (with doubled-quote escapes),
// double-quoted and backtick-quoted identifiers, line comments and block
// comments are skipped.
func scan(input string) (starts, semis []int) {
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\'':
			i = skipQuoted(input, i, '\'')
		case c == '"':
			i = skipQuoted(input, i, '"')
		case c == '`':
			i = skipQuoted(input, i, '`')
		case c == '-' && i+1 < len(input) && input[i+1] == '-':
			i = skipLineComment(input, i)
		case c == '/' && i+1 < len(input) && input[i+1] == '*':
			i = skipBlockComment(input, i)
		case c == ';':
			semis = append(semis, i)
			i++
		case isWordByte(c):
			end := i
			for end < len(input) && isWordByte(input[end]) {
				end++
			}
			if isKeyword(input[i:end]) {
				starts = append(starts, i)
			}
			i = end
		default:
			i++
		}
	}
	return starts, semis
}

func isKeyword(word string) bool {
	if len(word) != len("visualise") {
		return false
	}
	lower := strings.ToLower(word)
	return lower == "visualise" || lower == "visualize"
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// skipQuoted advances past a quoted region starting at i. A doubled quote
// character escapes itself. An unterminated literal runs to end of input.
func skipQuoted(input string, i int, quote byte) int {
	i++ // opening quote
	for i < len(input) {
		if input[i] == quote {
			if i+1 < len(input) && input[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipLineComment(input string, i int) int {
	for i < len(input) && input[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(input string, i int) int {
	i += 2
	for i < len(input) {
		if input[i] == '*' && i+1 < len(input) && input[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return i
}
