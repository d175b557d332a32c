package transpile

import (
	"regexp"
	"strings"
)

// Helper is prepended to every transpiled buffer.
const Helper = `function join(){ return Array.from(arguments).join(""); }` + "\n"

// rule is one named stage of the rewrite.
type rule struct {
	name  string
	apply func(string) string
}

var pipeline = []rule{
	{"normalize-line-endings", normalizeLineEndings},
	{"unwrap-public-variable", publicVariable.apply},
	{"unwrap-public-script", publicScript.apply},
	{"map-declarations", mapDeclarations},
	{"convert-comments", convertComments},
	{"map-print", mapPrint},
	{"interpolate-templates", interpolateTemplates},
	{"event-assignment", eventAssignment.apply},
	{"event-expression", eventExpression.apply},
	{"event-named", eventNamed.apply},
}

// Transpile rewrites IronScript text into JavaScript. The rules run in a
// fixed order; running Transpile over its own output is not supported.
func Transpile(text string) string {
	for _, r := range pipeline {
		text = r.apply(text)
	}
	return Helper + text
}

// TranspileValue is Transpile for values of unknown type. Anything other than
// a string yields the empty string.
func TranspileValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Transpile(s)
}

// Stages lists the rule names in application order.
func Stages() []string {
	names := make([]string, 0, len(pipeline)+1)
	for _, r := range pipeline {
		names = append(names, r.name)
	}
	return append(names, "inject-helpers")
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// wrapperTrail drops a separator comma after a wrapper's closing brace.
var wrapperTrail = regexp.MustCompile(`^\s*,`)

func unwrapBody(_ []string, body string) string { return body }

var (
	publicVariable = blockRule{
		head:  regexp.MustCompile(`(?i)\bpublic\s+variable\s*\{`),
		trail: wrapperTrail,
		build: unwrapBody,
	}
	publicScript = blockRule{
		head:  regexp.MustCompile(`(?i)\bpublic\s+script\s*\{`),
		trail: wrapperTrail,
		build: unwrapBody,
	}
)

type declaration struct {
	re      *regexp.Regexp
	binding string
}

func declare(keyword, binding string) declaration {
	return declaration{
		re:      regexp.MustCompile(`\b` + keyword + `\s+([A-Za-z_]\w*)\s*=\s*([^;]+);`),
		binding: binding,
	}
}

// elem and need bind immutably, the rest mutably.
var declarations = []declaration{
	declare("elem", "const"),
	declare("need", "const"),
	declare("string", "let"),
	declare("int", "let"),
	declare("bool", "let"),
	declare("array", "let"),
	declare("object", "let"),
}

func mapDeclarations(s string) string {
	for _, d := range declarations {
		s = d.re.ReplaceAllString(s, d.binding+" ${1} = ${2};")
	}
	return s
}

func convertComments(s string) string {
	lines := strings.Split(s, "\n")
	inTemplate := false
	for i, line := range lines {
		var at int
		at, inTemplate = commentMarker(line, inTemplate)
		if at < 0 {
			continue
		}
		text := strings.TrimLeft(line[at+2:], " \t")
		if text == "" {
			lines[i] = line[:at] + "//"
		} else {
			lines[i] = line[:at] + "// " + text
		}
	}
	return strings.Join(lines, "\n")
}

// commentMarker finds a `##` outside string and template literals. Templates
// may span lines, so the template state is carried from line to line.
func commentMarker(line string, inTemplate bool) (int, bool) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inTemplate:
			if c == '\\' {
				i++
			} else if c == '`' {
				inTemplate = false
			}
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '`':
			inTemplate = true
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return -1, inTemplate
		case c == '#' && i+1 < len(line) && line[i+1] == '#':
			return i, inTemplate
		}
	}
	return -1, inTemplate
}

var printCall = regexp.MustCompile(`\bprintLog\s*\(`)

func mapPrint(s string) string {
	return printCall.ReplaceAllString(s, "console.log(")
}

var (
	templateSpan        = regexp.MustCompile("`[^`]*`")
	interpolationMarker = regexp.MustCompile(`\$_([A-Za-z0-9_.$]+)\$`)
)

func interpolateTemplates(s string) string {
	return templateSpan.ReplaceAllStringFunc(s, func(span string) string {
		return interpolationMarker.ReplaceAllString(span, "$${${1}}")
	})
}

// eventTrail drops a statement terminator the author already wrote after a
// handler body, since the rewrite adds its own.
var eventTrail = regexp.MustCompile(`^[ \t]*;`)

func handler(target, name, body string) string {
	fn := "function"
	if name != "" {
		fn += " " + name
	}
	if body == "" {
		return target + " = " + fn + "(){ };"
	}
	return target + " = " + fn + "(){ " + body + " };"
}

var (
	// target = event name { body }
	eventAssignment = blockRule{
		head:  regexp.MustCompile(`(?im)^([ \t]*)(\S[^\n]*)[ \t]*=[ \t]*event\s+([A-Za-z_$][\w$]*)\s*\{`),
		trail: eventTrail,
		build: func(g []string, body string) string {
			return g[1] + handler(assignmentTarget(g[2]), g[3], body)
		},
	}
	// event target.expr { body }
	eventExpression = blockRule{
		head:  regexp.MustCompile(`(?i)\bevent\s+([\w$.()\[\]'"]+)\s*\{`),
		trail: eventTrail,
		build: func(g []string, body string) string {
			return handler(g[1], "", body)
		},
	}
	// event name { body } on a line of its own
	eventNamed = blockRule{
		head:    regexp.MustCompile(`(?im)^([ \t]*)event[ \t]+([A-Za-z_$][\w$]*)[ \t]*\{`),
		lineEnd: true,
		trail:   eventTrail,
		build: func(g []string, body string) string {
			return g[1] + handler(g[2], "", body)
		},
	}
)

// assignmentTarget drops the blanks the greedy head keeps before the `=`.
func assignmentTarget(s string) string {
	return strings.TrimRight(s, " \t")
}
