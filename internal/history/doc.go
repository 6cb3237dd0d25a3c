// Package history provides the durable per-target ledgers of past observations.
//
// Two independent stores exist, one per monitor kind:
//   - ByteStore: target -> ordered list of fingerprints, plus one payload
//     file per fingerprint so earlier bodies can be diffed later
//   - SetStore: target -> the most recent member set with its capture time
//
// Both stores load the whole JSON document when opened, mutate an in-memory
// copy under a mutex, and write the whole document back through a temporary
// file and an atomic rename. A crash mid-write leaves the previous committed
// document intact. A document that cannot be parsed is reported as
// ErrStoreCorrupt and never replaced by an empty history.
package history
