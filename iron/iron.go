// Package iron is the programmatic entry point to IronScript: the rewriter
// and a per-document Runtime that loads, transpiles and runs script units.
//
// A Runtime owns one JavaScript context. Everything run through it, whether
// discovered in a document or submitted with Run or LoadAndRunRemote, shares
// that context's bindings. The same API is installed into the context as the
// global object "iron":
//
//	iron.transpile(text)        // IronScript -> JavaScript
//	iron.run(text, origin)      // transpile and run now, errors are logged
//	iron.loadAndRunRemote(url)  // fetch, transpile and run in the background
package iron

import "github.com/vk/ironrun/internal/transpile"

// NamespaceName is the global object the API is installed as.
const NamespaceName = "iron"

// Transpile rewrites IronScript text into JavaScript.
func Transpile(text string) string {
	return transpile.Transpile(text)
}

// TranspileValue is Transpile for values coming from scripts; anything that
// is not a string yields "".
func TranspileValue(v any) string {
	return transpile.TranspileValue(v)
}
