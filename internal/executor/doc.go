// Package executor runs transpiled JavaScript inside a shared execution
// context backed by a goja runtime.
//
// One JS value is created per host document. Every script unit of that
// document runs in it, so bindings declared by one unit are visible to the
// units that run after it. The runtime is guarded by a mutex: detached units
// may be scheduled from other goroutines, but only one unit body executes at
// any instant.
//
// Run is the error-containment boundary of the pipeline. Compile errors,
// thrown exceptions, interrupts and Go panics raised by bound functions are
// logged together with the unit's origin and handed back as a plain error
// value; nothing escapes as a panic.
package executor
