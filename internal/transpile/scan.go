package transpile

import "strings"

// matchBrace returns the index of the '}' closing the '{' at open, or -1 when
// the block is never closed.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'', '`':
			i = skipQuoted(s, i)
		case '/':
			if i+1 < len(s) {
				switch s[i+1] {
				case '/':
					i = lineEnd(s, i)
				case '*':
					if end := strings.Index(s[i+2:], "*/"); end >= 0 {
						i += end + 3
					} else {
						return -1
					}
				}
			}
		case '#':
			if i+1 < len(s) && s[i+1] == '#' {
				i = lineEnd(s, i)
			}
		}
	}
	return -1
}

// skipQuoted returns the index of the quote closing the literal opened at i.
// Single and double quoted literals end at the line; an unterminated literal
// is treated as a plain character and i is returned unchanged.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return i
			}
		}
	}
	return i
}

// lineEnd returns the index of the newline ending the line that contains i,
// or len(s) for the last line.
func lineEnd(s string, i int) int {
	if n := strings.IndexByte(s[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(s)
}

// restOfLineBlank reports whether s holds only spaces, tabs or a single
// statement terminator before its first newline.
func restOfLineBlank(s string) bool {
	line := s[:lineEnd(s, 0)]
	line = strings.TrimSpace(line)
	return line == "" || line == ";"
}

// inLineComment reports whether pos sits after a `//` on its line.
func inLineComment(s string, pos int) bool {
	start := strings.LastIndexByte(s[:pos], '\n') + 1
	var quote byte
	for i := start; i < pos; i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && i+1 < pos && s[i+1] == '/':
			return true
		}
	}
	return false
}
