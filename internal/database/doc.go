// Package database provides the SQLite run journal of changemon.
//
// The journal records the terminal outcome of every observation: target,
// kind, outcome, identity, counts, errors and whether a notification was
// delivered. It is an audit trail read by the status command. The history
// stores in package history remain the source of truth for change
// detection; losing the journal never changes what is reported as new.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver.
package database
