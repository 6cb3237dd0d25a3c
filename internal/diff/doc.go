// Package diff computes the deltas between two snapshots of a target.
//
// Byte snapshots are decoded to text, reformatted into a canonical layout so
// that minification and whitespace-only edits do not show up as changes,
// and compared line by line. The result renders as a side-by-side HTML
// document or as a unified text diff.
//
// Set snapshots compare by membership: Added and Removed are computed from
// the two sorted member lists and returned in lexicographic order.
package diff
