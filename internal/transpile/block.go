package transpile

import (
	"regexp"
	"strings"
)

// blockRule rewrites every `<head> { <body> }` construct. The head pattern must
// end with the opening brace; the body runs to the matching closing brace.
type blockRule struct {
	head *regexp.Regexp
	// lineEnd accepts a match only when nothing but whitespace follows the
	// closing brace on its line.
	lineEnd bool
	// trail, when it matches right after the closing brace, is dropped.
	trail *regexp.Regexp
	// build renders the replacement from the head's submatches and the
	// trimmed body.
	build func(groups []string, body string) string
}

func (r blockRule) apply(src string) string {
	matches := r.head.FindAllStringSubmatchIndex(src, -1)
	if matches == nil {
		return src
	}

	var b strings.Builder
	b.Grow(len(src))
	cursor := 0
	for _, m := range matches {
		open := m[1] - 1
		if m[0] < cursor || inLineComment(src, open) {
			continue
		}
		end := matchBrace(src, open)
		if end < 0 || (r.lineEnd && !restOfLineBlank(src[end+1:])) {
			continue
		}

		groups := make([]string, len(m)/2)
		for g := range groups {
			if m[2*g] >= 0 {
				groups[g] = src[m[2*g]:m[2*g+1]]
			}
		}
		body := r.apply(strings.TrimSpace(src[open+1 : end]))

		b.WriteString(src[cursor:m[0]])
		b.WriteString(r.build(groups, body))
		cursor = end + 1
		if r.trail != nil {
			if loc := r.trail.FindStringIndex(src[cursor:]); loc != nil {
				cursor += loc[1]
			}
		}
	}
	b.WriteString(src[cursor:])
	return b.String()
}
