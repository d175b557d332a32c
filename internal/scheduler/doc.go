// Package scheduler is the sequencing controller. It turns the document's
// discovery snapshot into script units and drives each one through
// load -> transpile -> execute with a single cursor in document order.
//
// # Ordering
//
// Inline units and remote units in ordered mode complete before the cursor
// moves on, so execution follows document order across inline/remote
// boundaries. Remote units in detached mode are started on their own
// goroutine and the cursor advances immediately; when they finish relative
// to later units is unspecified. The executor serializes unit bodies, so
// detaching changes ordering, never concurrency of script code.
//
// # Failure isolation
//
// Every unit is processed behind its own recover boundary. A load failure, a
// panic while transpiling or an execution error marks that unit failed at the
// corresponding stage and is logged with the element reference; the
// remaining units still run. Nothing is retried.
package scheduler
