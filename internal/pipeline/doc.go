// Package pipeline drives targets through the change-detection steps.
//
// One Pipeline processes one target: collect, compare against history,
// diff, persist, notify. Each stage is a Step operating on a
// model.Observation, whose state machine rejects illegal transitions.
// Kind-specific behavior lives in a Ledger (ByteLedger or SetLedger).
//
// The new identity is always persisted before notification, so a failed
// delivery never leaves the history behind what was observed.
//
// BatchProcessor runs pipelines for many targets concurrently with
// errgroup, and Monitor ties a whole run together into a RunSummary.
package pipeline
