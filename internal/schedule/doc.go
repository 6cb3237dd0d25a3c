// Package schedule repeats monitor runs.
//
// A Runner executes one run immediately, then one per interval tick and
// one more whenever the watched targets directory changes (debounced
// through fsnotify). Cancelling the context stops the Runner between
// runs; a run in progress always completes.
package schedule
