// Package loop provides the single logical thread that owns every binding's
// state.
//
// Tasks posted to a Loop run one at a time in FIFO order, so code running on
// the loop never needs locks for binding state. Blocking device operations
// are started with Await: the operation runs on its own goroutine and its
// continuation is posted back to the loop. Those continuations are the only
// points where other work can interleave with a binding's logic.
//
// Production code drives the loop with Run. Tests drive it by hand with
// Flush and Settle from the test goroutine, which then plays the role of the
// loop thread.
package loop
