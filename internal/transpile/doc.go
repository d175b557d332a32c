// Package transpile rewrites IronScript source into JavaScript.
//
// The rewrite is not a compiler. It is a fixed, ordered list of substitution
// rules, each applied once over the whole buffer and each consuming the output
// of the previous one:
//
//  1. line endings are normalized to LF
//  2. `public variable { ... }` and `public script { ... }` wrappers are
//     replaced by their bodies
//  3. typed declarations (`elem x = 1;`, `int y = 2;`, ...) become const/let
//  4. `##` comments become `//` comments
//  5. `printLog(...)` becomes `console.log(...)`
//  6. `$_name$` inside backtick templates becomes `${name}`
//  7. the three `event` handler forms become function assignments
//  8. the `join` helper is prepended
//
// Rule order is significant. Malformed input produces malformed JavaScript;
// nothing in this package returns an error.
//
// Block-shaped constructs (wrappers and event handlers) find their closing
// brace by tracking nesting depth, skipping string literals, template
// literals and comments, so bodies that contain braces of their own are
// captured whole.
package transpile
