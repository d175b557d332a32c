package transpile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspile_PrependsHelper(t *testing.T) {
	assert.Equal(t, Helper, Transpile(""))
	assert.True(t, strings.HasPrefix(Transpile("foo();"), Helper))
}

func TestTranspileValue_NonStringYieldsEmpty(t *testing.T) {
	assert.Equal(t, "", TranspileValue(42))
	assert.Equal(t, "", TranspileValue(nil))
	assert.Equal(t, "", TranspileValue([]byte("int a = 1;")))
	assert.Equal(t, Helper+"let a = 1;", TranspileValue("int a = 1;"))
}

func TestTranspile_Stages(t *testing.T) {
	want := []string{
		"normalize-line-endings",
		"unwrap-public-variable",
		"unwrap-public-script",
		"map-declarations",
		"convert-comments",
		"map-print",
		"interpolate-templates",
		"event-assignment",
		"event-expression",
		"event-named",
		"inject-helpers",
	}
	if diff := cmp.Diff(want, Stages()); diff != "" {
		t.Errorf("Stages() mismatch (-want +got):\n%s", diff)
	}
}

func TestTranspile_LineEndings(t *testing.T) {
	got := Transpile("int a = 1;\r\nint b = 2;\rprintLog(a)")
	assert.Equal(t, Helper+"let a = 1;\nlet b = 2;\nconsole.log(a)", got)
}

func TestTranspile_Declarations(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"elem is immutable", "elem x = 5;", "const x = 5;"},
		{"need is immutable", "need cfg = load();", "const cfg = load();"},
		{"string is mutable", `string s = "hi";`, `let s = "hi";`},
		{"int is mutable", "int y = 2;", "let y = 2;"},
		{"bool is mutable", "bool ok = true;", "let ok = true;"},
		{"array is mutable", "array xs = [1, 2, 3];", "let xs = [1, 2, 3];"},
		{"object is mutable", "object o = {a: 1};", "let o = {a: 1};"},
		{"spacing is normalized", "int   n=  a + b ;", "let n = a + b ;"},
		{"expression is kept verbatim", "elem el = document.querySelector('#app');", "const el = document.querySelector('#app');"},
		{"keyword must stand alone", "print x = 1;", "print x = 1;"},
		{"no terminator no rewrite", "int y = 2", "int y = 2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Helper+tc.want, Transpile(tc.in))
		})
	}
}

func TestTranspile_Comments(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"own line", "## hello", "// hello"},
		{"indented", "  ## hello", "  // hello"},
		{"no space after marker", "##hello", "// hello"},
		{"inline", "go(); ## note", "go(); // note"},
		{"empty comment", "##", "//"},
		{"inside double quotes", `s = "a ## b";`, `s = "a ## b";`},
		{"inside single quotes", `s = 'a ## b';`, `s = 'a ## b';`},
		{"inside template", "s = `a ## b`;", "s = `a ## b`;"},
		{"inside multi-line template", "s = `a\n## b`;", "s = `a\n## b`;"},
		{"after js comment", "// keep ## this", "// keep ## this"},
		{"only first line", "## a\nb();", "// a\nb();"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Helper+tc.want, Transpile(tc.in))
		})
	}
}

func TestTranspile_Print(t *testing.T) {
	assert.Equal(t, Helper+"console.log(a, b)", Transpile("printLog(a, b)"))
	assert.Equal(t, Helper+"console.log(f(x), [1, 2])", Transpile("printLog (f(x), [1, 2])"))
	assert.Equal(t, Helper+"myprintLog(a)", Transpile("myprintLog(a)"))
}

func TestTranspile_InterpolationIsScopedToTemplates(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"inside template", "s = `Hi $_name$!`;", "s = `Hi ${name}!`;"},
		{"outside template", "s = $_name$;", "s = $_name$;"},
		{"mixed", "x = $_name$; y = `v: $_user.id$`;", "x = $_name$; y = `v: ${user.id}`;"},
		{"several markers", "`$_a$ and $_b$`", "`${a} and ${b}`"},
		{"quoted string untouched", `s = "$_name$";`, `s = "$_name$";`},
		{"two templates", "`$_a$` + $_b$ + `$_c$`", "`${a}` + $_b$ + `${c}`"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Helper+tc.want, Transpile(tc.in))
		})
	}
}

func TestTranspile_Events(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "named bare form",
			in:   "event foo { return 1; }",
			want: "foo = function(){ return 1; };",
		},
		{
			name: "assignment form",
			in:   "btn.onclick = event clicked { go(); }",
			want: "btn.onclick = function clicked(){ go(); };",
		},
		{
			name: "assignment target spans every equals sign",
			in:   "a = b = event h { x(); }",
			want: "a = b = function h(){ x(); };",
		},
		{
			name: "expression target",
			in:   "event document.getElementById('btn').onclick { go(); }",
			want: "document.getElementById('btn').onclick = function(){ go(); };",
		},
		{
			name: "bracket target",
			in:   `event handlers["load"] { init(); }`,
			want: `handlers["load"] = function(){ init(); };`,
		},
		{
			name: "nested braces stay in the body",
			in:   "event foo { if (x) { y(); } }",
			want: "foo = function(){ if (x) { y(); } };",
		},
		{
			name: "existing terminator is not doubled",
			in:   "event foo { a(); };",
			want: "foo = function(){ a(); };",
		},
		{
			name: "empty body",
			in:   "event noop { }",
			want: "noop = function(){ };",
		},
		{
			name: "indentation is kept",
			in:   "if (ok) {\n  el.onload = event ready { start(); }\n}",
			want: "if (ok) {\n  el.onload = function ready(){ start(); };\n}",
		},
		{
			name: "unbalanced handler is left alone",
			in:   "event foo { a();",
			want: "event foo { a();",
		},
		{
			name: "event in a comment is left alone",
			in:   "## fires event foo { once }",
			want: "// fires event foo { once }",
		},
		{
			name: "event as a plain identifier",
			in:   "el.addEventListener('click', function(event) { run(event); });",
			want: "el.addEventListener('click', function(event) { run(event); });",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Helper+tc.want, Transpile(tc.in))
		})
	}
}

func TestTranspile_EventPassesDoNotDoubleRewrite(t *testing.T) {
	inputs := []string{
		"el.onclick = event go { run(); }",
		"event el.onclick { run(); }",
		"event go { run(); }",
	}
	for _, in := range inputs {
		out := strings.TrimPrefix(Transpile(in), Helper)
		assert.Equal(t, 1, strings.Count(out, "function"), in)
		assert.NotContains(t, out, "event", in)
		assert.Equal(t, 1, strings.Count(out, "};"), in)
	}
}

func TestEventNamed_RequiresWholeLine(t *testing.T) {
	assert.Equal(t, "foo = function(){ a(); };", eventNamed.apply("event foo { a(); }"))
	assert.Equal(t, "  foo = function(){ a(); };\nbar();", eventNamed.apply("  event foo { a(); }\nbar();"))
	assert.Equal(t, "event foo { a(); } bar();", eventNamed.apply("event foo { a(); } bar();"))
	assert.Equal(t, "x(); event foo { a(); }", eventNamed.apply("x(); event foo { a(); }"))
}

func TestTranspile_WrapperRemoval(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "script wrapper",
			in:   "public script {\n  foo(1, {a: 2});\n}",
			want: "foo(1, {a: 2});",
		},
		{
			name: "variable wrapper with separator",
			in:   "public variable { elem a = 1; },\npublic script { printLog(a); }",
			want: "const a = 1;\nconsole.log(a);",
		},
		{
			name: "nested braces",
			in:   "public script {\n  if (ok) {\n    go();\n  }\n}",
			want: "if (ok) {\n    go();\n  }",
		},
		{
			name: "keywords are case-insensitive",
			in:   "PUBLIC Script { x(); }",
			want: "x();",
		},
		{
			name: "separator is optional",
			in:   "public variable { elem a = 1; }\nb();",
			want: "const a = 1;\nb();",
		},
		{
			name: "unbalanced wrapper is left alone",
			in:   "public script { x();",
			want: "public script { x();",
		},
		{
			name: "braces in comments and strings do not close the body",
			in:   "public script {\n## don't } close\ns = \"}\";\n}",
			want: "// don't } close\ns = \"}\";",
		},
		{
			name: "template braces do not close the body",
			in:   "public script { s = `${a}}`; }",
			want: "s = `${a}}`;",
		},
		{
			name: "nested wrapper of the same kind",
			in:   "public script { a(); public script { b(); } }",
			want: "a(); b();",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Helper+tc.want, Transpile(tc.in))
		})
	}
}

func TestTranspile_WrapperPreservesBody(t *testing.T) {
	bodies := []string{
		"foo();",
		"x.y = [1, 2, 3];",
		"if (a) { b(); } else { c(); }",
		"const s = 'brace } inside';",
		"go(function () { return {k: {v: 1}}; });",
	}

	for _, body := range bodies {
		for _, wrapped := range []string{
			"public script { " + body + " }",
			"public variable {\n" + body + "\n},",
		} {
			require.Equal(t, Helper+body, Transpile(wrapped), wrapped)
		}
	}
}

func TestTranspile_Program(t *testing.T) {
	in := "public variable {\n" +
		"  elem greeting = \"Hello\";\n" +
		"  int count = 0;\n" +
		"},\n" +
		"public script {\n" +
		"  ## greet the user\n" +
		"  printLog(`$_greeting$, world`);\n" +
		"  event tick {\n" +
		"    count = count + 1;\n" +
		"  }\n" +
		"}"

	want := Helper +
		"const greeting = \"Hello\";\n" +
		"  let count = 0;\n" +
		"// greet the user\n" +
		"  console.log(`${greeting}, world`);\n" +
		"  tick = function(){ count = count + 1; };"

	if diff := cmp.Diff(want, Transpile(in)); diff != "" {
		t.Errorf("Transpile() mismatch (-want +got):\n%s", diff)
	}
}
