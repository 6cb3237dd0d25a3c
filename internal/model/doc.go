// Package model defines the data structures shared by every changemon component.
//
// This package contains:
//   - Target and Kind: what is monitored and by which monitor
//   - ByteSnapshot and SetSnapshot: the observed state of a target
//   - Fingerprint: the content identity of a ByteSnapshot
//   - ChangeEvent and Artifact: a detected change plus its rendered report
//   - Observation: the per-target state machine driven by the pipeline
//   - RunSummary: the outcome of one pass over all targets
//
// Model types carry no I/O. Persistence lives in the history and database
// packages, rendering in diff and report.
package model
